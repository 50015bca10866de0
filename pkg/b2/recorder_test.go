package b2

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objectfs/b2/pkg/transport"
)

const (
	testToken       = "unicorns and rainbows"
	testAccountID   = "abcd"
	testAPIURL      = "https://foo"
	testDownloadURL = "https://download"
)

// recorder is an Executor that keeps every request it receives.
type recorder struct {
	mu      sync.Mutex
	reqs    []*transport.Request
	respond func(req *transport.Request) (*transport.Response, error)
}

func (r *recorder) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	respond := r.respond
	r.mu.Unlock()

	if respond != nil {
		return respond(req)
	}
	return &transport.Response{StatusCode: 200, Raw: []byte(`{}`)}, nil
}

func (r *recorder) requests() []*transport.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*transport.Request(nil), r.reqs...)
}

func (r *recorder) last(t *testing.T) *transport.Request {
	t.Helper()
	reqs := r.requests()
	require.NotEmpty(t, reqs, "no request was sent")
	return reqs[len(reqs)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = nil
	r.respond = nil
}

func jsonResponse(body string) func(*transport.Request) (*transport.Response, error) {
	return func(*transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: 200, Raw: []byte(body)}, nil
	}
}

// authorizedClient returns a client whose session was filled by a fake
// b2_authorize_account, and the recorder behind it with its history cleared.
func authorizedClient(t *testing.T, opts ...Option) (*Client, *recorder) {
	t.Helper()

	rec := &recorder{respond: jsonResponse(`{
		"accountId": "` + testAccountID + `",
		"authorizationToken": "` + testToken + `",
		"apiUrl": "` + testAPIURL + `",
		"downloadUrl": "` + testDownloadURL + `",
		"recommendedPartSize": 100000000
	}`)}
	c := New(Credentials{ApplicationKeyID: "kittens", ApplicationKey: "rainbows"},
		append([]Option{WithExecutor(rec)}, opts...)...)

	_, err := c.Authorize(context.Background())
	require.NoError(t, err)
	rec.reset()
	return c, rec
}

func bodyJSON(t *testing.T, req *transport.Request) string {
	t.Helper()
	data, err := json.Marshal(req.JSON)
	require.NoError(t, err)
	return string(data)
}

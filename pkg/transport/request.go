package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// ProgressFunc reports bytes transferred so far out of total. total is -1 when unknown.
type ProgressFunc func(transferred, total int64)

// Request describes one HTTP exchange with the B2 API.
type Request struct {
	// Op names the operation for metrics and logs, e.g. "b2_list_buckets".
	Op      string
	Method  string
	URL     string
	Headers map[string]string

	// JSON is marshalled as the request body when non-nil.
	JSON map[string]any
	// Data is sent verbatim as the request body. It takes precedence over JSON.
	Data []byte

	// NoRedirect returns 3xx responses instead of following them.
	NoRedirect bool
	// Stream leaves the response body unread in Response.Body.
	Stream bool
	// Timeout bounds the whole exchange when positive.
	Timeout time.Duration

	OnUploadProgress   ProgressFunc
	OnDownloadProgress ProgressFunc
}

// SetHeader sets a request header, replacing any earlier value.
func (r *Request) SetHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
}

// SetField sets a top-level field of the JSON body, replacing any earlier value.
func (r *Request) SetField(key string, value any) {
	if r.JSON == nil {
		r.JSON = make(map[string]any)
	}
	r.JSON[key] = value
}

// Body returns the encoded request body and its length.
func (r *Request) Body() ([]byte, error) {
	if r.Data != nil {
		return r.Data, nil
	}
	if r.JSON == nil {
		return nil, nil
	}
	return json.Marshal(r.JSON)
}

// Response is the outcome of a successful (2xx) exchange.
type Response struct {
	StatusCode int
	Header     http.Header

	// Raw holds the response body unless the request was streamed.
	Raw []byte
	// Body is the unread response body of a streamed request. The caller closes it.
	Body io.ReadCloser

	// Data is the decoded JSON body, set by Send. It stays nil when the body is not JSON.
	Data any
}

// Executor performs a Request. A non-2xx response is returned as an error.
type Executor interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req *Request) (*Response, error)

// Do calls f.
func (f ExecutorFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Send performs req with exec and normalizes the result. Errors are returned
// untouched; on success Data holds the parsed JSON body, or nil when the body
// is empty, streamed, or not JSON.
func Send(ctx context.Context, exec Executor, req *Request) (*Response, error) {
	resp, err := exec.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if !req.Stream && len(resp.Raw) > 0 {
		var v any
		if json.Unmarshal(resp.Raw, &v) == nil {
			resp.Data = v
		}
	}
	return resp, nil
}

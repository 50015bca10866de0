package transport

import (
	"bytes"
	"context"
	stderr "errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/b2/internal/circuit"
	"github.com/objectfs/b2/pkg/errors"
	"github.com/objectfs/b2/pkg/metrics"
	"github.com/objectfs/b2/pkg/retry"
)

func apiError(status int, code string) error {
	return errors.FromResponse("op", status, nil, []byte(`{"status":0,"code":"`+code+`","message":"m"}`))
}

func fastRetryer(attempts int) *retry.Retryer {
	return retry.New(retry.Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})
}

func TestRetryExecutor(t *testing.T) {
	t.Parallel()

	t.Run("retries retryable failures", func(t *testing.T) {
		var calls atomic.Int32
		next := ExecutorFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if calls.Add(1) < 3 {
				return nil, apiError(503, "service_unavailable")
			}
			return &Response{StatusCode: 200}, nil
		})

		resp, err := Chain(next, WithRetry(fastRetryer(5))).Do(context.Background(), &Request{})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("returns the last error unchanged", func(t *testing.T) {
		last := apiError(400, "bad_request")
		next := ExecutorFunc(func(ctx context.Context, req *Request) (*Response, error) {
			return nil, last
		})

		_, err := Chain(next, WithRetry(fastRetryer(5))).Do(context.Background(), &Request{})
		assert.Same(t, last, err)
	})
}

func TestHostHealthy(t *testing.T) {
	t.Parallel()

	assert.True(t, HostHealthy(nil))
	assert.True(t, HostHealthy(apiError(400, "bad_request")))
	assert.True(t, HostHealthy(apiError(404, "not_found")))
	assert.False(t, HostHealthy(apiError(408, "request_timeout")))
	assert.False(t, HostHealthy(apiError(429, "too_many_requests")))
	assert.False(t, HostHealthy(apiError(500, "internal_error")))
	assert.False(t, HostHealthy(stderr.New("dial tcp: refused")))
	assert.False(t, HostHealthy(errors.NewError(errors.ErrCodeValidationFailed, "x")))
}

func TestBreakerExecutor(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	next := ExecutorFunc(func(ctx context.Context, req *Request) (*Response, error) {
		calls.Add(1)
		if req.URL == "https://pod-1.example.test/upload" {
			return nil, apiError(500, "internal_error")
		}
		return nil, apiError(400, "bad_request")
	})

	m := NewBreakerManager(circuit.Config{Timeout: time.Minute, ReadyToTrip: circuit.ConsecutiveFailures(2)})
	exec := Chain(next, WithBreaker(m))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = exec.Do(ctx, &Request{URL: "https://api.example.test/b2api/v2/b2_get_file_info"})
	}
	assert.Equal(t, circuit.StateClosed, m.Get("api.example.test").State(), "4xx responses do not trip the breaker")

	for i := 0; i < 2; i++ {
		_, _ = exec.Do(ctx, &Request{URL: "https://pod-1.example.test/upload"})
	}
	before := calls.Load()
	_, err := exec.Do(ctx, &Request{URL: "https://pod-1.example.test/upload"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeCircuitOpen))
	assert.Equal(t, before, calls.Load(), "open breaker does not send")

	_, err = exec.Do(ctx, &Request{URL: "https://api.example.test/b2api/v2/b2_get_file_info"})
	assert.False(t, errors.HasCode(err, errors.ErrCodeCircuitOpen), "other hosts are unaffected")
}

func TestInstrumentedExecutor(t *testing.T) {
	t.Parallel()

	collector, err := metrics.NewCollector(nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fail := apiError(401, "expired_auth_token")
	next := ExecutorFunc(func(ctx context.Context, req *Request) (*Response, error) {
		if req.Op == "b2_list_buckets" {
			return nil, fail
		}
		return &Response{StatusCode: 200, Raw: []byte(`{"fileId":"x"}`)}, nil
	})
	exec := Chain(next, WithInstrumentation(collector, logger))
	ctx := context.Background()

	resp, err := exec.Do(ctx, &Request{
		Op:      "b2_upload_file",
		Method:  "POST",
		URL:     "https://pod.example.test/b2api/v2/b2_upload_file/abc",
		Headers: map[string]string{"Authorization": "secret-upload-token"},
		Data:    []byte("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	_, err = exec.Do(ctx, &Request{
		Op:      "b2_list_buckets",
		Method:  "POST",
		URL:     "https://api.example.test/b2api/v2/b2_list_buckets",
		Headers: map[string]string{"Authorization": "secret-account-token"},
	})
	assert.Same(t, fail, err)

	upload, ok := collector.Operation("b2_upload_file")
	require.True(t, ok)
	assert.Equal(t, int64(1), upload.Count)
	assert.Equal(t, int64(5), upload.BytesSent)
	assert.Equal(t, int64(14), upload.BytesReceived)

	list, ok := collector.Operation("b2_list_buckets")
	require.True(t, ok)
	assert.Equal(t, int64(1), list.Errors)

	out := buf.String()
	assert.Contains(t, out, "op=b2_upload_file")
	assert.Contains(t, out, "status=401")
	assert.Contains(t, out, "host=api.example.test")
	assert.NotContains(t, out, "secret-")
}

func TestInstrumentedExecutor_NilCollectorAndLogger(t *testing.T) {
	t.Parallel()

	next := ExecutorFunc(func(ctx context.Context, req *Request) (*Response, error) {
		return &Response{StatusCode: 204}, nil
	})
	resp, err := Chain(next, WithInstrumentation(nil, nil)).Do(context.Background(), &Request{Op: "x"})
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var order []string
	tag := func(name string) Middleware {
		return func(next Executor) Executor {
			return ExecutorFunc(func(ctx context.Context, req *Request) (*Response, error) {
				order = append(order, name)
				return next.Do(ctx, req)
			})
		}
	}
	base := ExecutorFunc(func(ctx context.Context, req *Request) (*Response, error) {
		order = append(order, "base")
		return &Response{}, nil
	})

	_, err := Chain(base, tag("inner"), nil, tag("outer")).Do(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "base"}, order)
}

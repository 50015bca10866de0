package transport

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/objectfs/b2/internal/circuit"
	"github.com/objectfs/b2/pkg/errors"
	"github.com/objectfs/b2/pkg/metrics"
	"github.com/objectfs/b2/pkg/retry"
)

// Middleware wraps an Executor.
type Middleware func(Executor) Executor

// Chain wraps exec with mws; the last middleware is the outermost.
func Chain(exec Executor, mws ...Middleware) Executor {
	for _, mw := range mws {
		if mw != nil {
			exec = mw(exec)
		}
	}
	return exec
}

// RetryExecutor repeats failed requests according to a retry policy.
type RetryExecutor struct {
	next    Executor
	retryer *retry.Retryer
}

// WithRetry returns middleware that retries with r.
func WithRetry(r *retry.Retryer) Middleware {
	return func(next Executor) Executor {
		return &RetryExecutor{next: next, retryer: r}
	}
}

// Do performs req, retrying retryable failures. The last error is returned as-is.
func (e *RetryExecutor) Do(ctx context.Context, req *Request) (*Response, error) {
	var resp *Response
	err := e.retryer.DoWithContext(ctx, func(ctx context.Context) error {
		r, err := e.next.Do(ctx, req)
		resp = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// BreakerExecutor short-circuits requests to hosts that keep failing.
type BreakerExecutor struct {
	next     Executor
	breakers *circuit.Manager
}

// WithBreaker returns middleware keeping one breaker per host in m.
func WithBreaker(m *circuit.Manager) Middleware {
	return func(next Executor) Executor {
		return &BreakerExecutor{next: next, breakers: m}
	}
}

// NewBreakerManager returns a manager whose breakers treat client errors as
// successes, since they say nothing about the health of the host.
func NewBreakerManager(cfg circuit.Config) *circuit.Manager {
	if cfg.IsSuccessful == nil {
		cfg.IsSuccessful = HostHealthy
	}
	return circuit.NewManager(cfg)
}

// HostHealthy reports whether err leaves the host's health unquestioned: nil,
// or an API error with a 4xx status other than 408 and 429.
func HostHealthy(err error) bool {
	if err == nil {
		return true
	}
	b2Err, ok := errors.As(err)
	if !ok || b2Err.Code != errors.ErrCodeAPIError {
		return false
	}
	s := b2Err.HTTPStatus
	return s >= 400 && s < 500 && s != http.StatusRequestTimeout && s != http.StatusTooManyRequests
}

// Do performs req unless the breaker for its host is open.
func (e *BreakerExecutor) Do(ctx context.Context, req *Request) (*Response, error) {
	var resp *Response
	err := e.breakers.Get(hostOf(req.URL)).Execute(ctx, func(ctx context.Context) error {
		r, err := e.next.Do(ctx, req)
		resp = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// InstrumentedExecutor records metrics and logs for every request.
type InstrumentedExecutor struct {
	next      Executor
	collector *metrics.Collector
	logger    *slog.Logger
}

// WithInstrumentation returns middleware recording into collector and logger.
// Either may be nil.
func WithInstrumentation(collector *metrics.Collector, logger *slog.Logger) Middleware {
	return func(next Executor) Executor {
		return &InstrumentedExecutor{next: next, collector: collector, logger: logger}
	}
}

// Do performs req and records its outcome. Headers are never logged.
func (e *InstrumentedExecutor) Do(ctx context.Context, req *Request) (*Response, error) {
	end := e.collector.Begin()
	start := time.Now()
	resp, err := e.next.Do(ctx, req)
	duration := time.Since(start)
	end()

	status := 0
	var received int64
	if resp != nil {
		status = resp.StatusCode
		received = int64(len(resp.Raw))
		if req.Stream {
			received, _ = strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
		}
	} else if b2Err, ok := errors.As(err); ok {
		status = b2Err.HTTPStatus
	}

	e.collector.RecordRequest(req.Op, duration, status, int64(len(req.Data)), received, err)

	if e.logger != nil {
		attrs := []any{
			"op", req.Op,
			"method", req.Method,
			"host", hostOf(req.URL),
			"status", status,
			"duration", duration,
		}
		if err != nil {
			e.logger.Warn("b2 request failed", append(attrs, "error", err.Error())...)
		} else {
			e.logger.Debug("b2 request", attrs...)
		}
	}

	return resp, err
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

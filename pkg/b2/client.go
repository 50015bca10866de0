package b2

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/objectfs/b2/internal/circuit"
	"github.com/objectfs/b2/internal/logging"
	"github.com/objectfs/b2/pkg/config"
	"github.com/objectfs/b2/pkg/errors"
	"github.com/objectfs/b2/pkg/headers"
	"github.com/objectfs/b2/pkg/metrics"
	"github.com/objectfs/b2/pkg/retry"
	"github.com/objectfs/b2/pkg/transport"
)

const (
	DefaultAuthURL    = "https://api.backblazeb2.com"
	DefaultAPIVersion = "/b2api/v2"
)

// CallOption adjusts a single request. See transport.Compose.
type CallOption = transport.Option

// Client is a B2 native API client. It is safe for concurrent use once
// Authorize has returned.
type Client struct {
	creds          Credentials
	exec           transport.Executor
	logger         *slog.Logger
	authURL        string
	apiVersion     string
	maxInfoHeaders int

	session *Session
	metrics *metrics.Collector
	closers []io.Closer
}

// Option configures a Client.
type Option func(*Client)

// WithExecutor replaces the HTTP executor.
func WithExecutor(exec transport.Executor) Option {
	return func(c *Client) { c.exec = exec }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithAuthURL sets the host b2_authorize_account is called on.
func WithAuthURL(url string) Option {
	return func(c *Client) { c.authURL = url }
}

// WithAPIVersion sets the API path prefix, e.g. "/b2api/v2".
func WithAPIVersion(version string) Option {
	return func(c *Client) { c.apiVersion = version }
}

// WithMaxInfoHeaders sets the X-Bz-Info-* limit checked before uploads.
func WithMaxInfoHeaders(n int) Option {
	return func(c *Client) { c.maxInfoHeaders = n }
}

// New creates a client. Nothing is sent until Authorize is called.
func New(creds Credentials, opts ...Option) *Client {
	c := &Client{
		creds:          creds,
		authURL:        DefaultAuthURL,
		apiVersion:     DefaultAPIVersion,
		maxInfoHeaders: headers.DefaultMaxInfoHeaders,
		session:        &Session{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if c.exec == nil {
		c.exec = transport.NewHTTPExecutor(nil).WithLogger(c.logger)
	}
	return c
}

// NewFromConfig creates a client from cfg. The executor is wrapped, innermost
// first, with the circuit breaker, retry and instrumentation middleware that
// cfg enables. opts are applied last.
func NewFromConfig(cfg *config.Configuration, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, closer, err := logging.NewLogger(cfg.Monitoring.Logging)
	if err != nil {
		return nil, err
	}

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   cfg.Monitoring.Metrics.Enabled,
		Namespace: cfg.Monitoring.Metrics.Namespace,
		Subsystem: cfg.Monitoring.Metrics.Subsystem,
		Labels:    cfg.Monitoring.Metrics.Labels,
	})
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	httpExec := transport.NewHTTPExecutor(nil).WithLogger(logger)
	if cfg.Network.Timeout > 0 {
		httpExec.Client().SetTimeout(cfg.Network.Timeout)
	}

	var mws []transport.Middleware
	if cb := cfg.Network.CircuitBreaker; cb.Enabled {
		mws = append(mws, transport.WithBreaker(transport.NewBreakerManager(circuit.Config{
			Interval:    cb.Interval,
			Timeout:     cb.Timeout,
			ReadyToTrip: circuit.ConsecutiveFailures(uint32(cb.FailureThreshold)),
			OnStateChange: func(name string, from, to circuit.State) {
				logger.Warn("B2 circuit breaker state changed", "host", name, "from", from.String(), "to", to.String())
			},
		})))
	}
	if rc := cfg.Network.Retry; rc.Enabled {
		policy := retry.DefaultConfig()
		policy.MaxAttempts = rc.MaxAttempts
		policy.InitialDelay = rc.InitialDelay
		policy.MaxDelay = rc.MaxDelay
		policy.Multiplier = rc.Multiplier
		policy.Jitter = rc.Jitter
		policy.OnRetry = func(attempt int, err error, delay time.Duration) {
			logger.Debug("Retrying B2 request", "attempt", attempt, "delay", delay, "error", err)
		}
		mws = append(mws, transport.WithRetry(retry.New(policy)))
	}
	mws = append(mws, transport.WithInstrumentation(collector, logger))

	c := New(Credentials{
		AccountID:        cfg.Credentials.AccountID,
		ApplicationKeyID: cfg.Credentials.ApplicationKeyID,
		ApplicationKey:   cfg.Credentials.ApplicationKey,
	}, append([]Option{
		WithLogger(logger),
		WithExecutor(transport.Chain(httpExec, mws...)),
		WithAuthURL(cfg.Endpoint.AuthURL),
		WithAPIVersion(cfg.Endpoint.APIVersion),
		WithMaxInfoHeaders(cfg.Upload.MaxInfoHeaders),
	}, opts...)...)
	c.metrics = collector
	c.closers = append(c.closers, closer)
	return c, nil
}

// Session returns the client's session.
func (c *Client) Session() *Session {
	return c.session
}

// Executor returns the executor requests are sent through.
func (c *Client) Executor() transport.Executor {
	return c.exec
}

// Metrics returns the collector set up by NewFromConfig, or nil.
func (c *Client) Metrics() *metrics.Collector {
	return c.metrics
}

// Close releases resources opened by NewFromConfig.
func (c *Client) Close() error {
	var first error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

// Call posts body to an API operation that has no typed wrapper and returns the
// normalized response. op is the operation name, e.g. "b2_update_file_retention".
func (c *Client) Call(ctx context.Context, op string, body map[string]any, opts ...CallOption) (*transport.Response, error) {
	st, err := c.session.authorized(op)
	if err != nil {
		return nil, err
	}
	req := c.apiRequest(st, op, body, opts)
	return transport.Send(ctx, c.exec, req)
}

// call posts the body built from the session snapshot to op and decodes the
// JSON response into out.
func (c *Client) call(ctx context.Context, op string, build func(st SessionState) map[string]any, out any, opts []CallOption) error {
	st, err := c.session.authorized(op)
	if err != nil {
		return err
	}
	return c.send(ctx, c.apiRequest(st, op, build(st), opts), out)
}

func (c *Client) apiRequest(st SessionState, op string, fields map[string]any, opts []CallOption) *transport.Request {
	return transport.Compose(func(r *transport.Request) {
		r.Op = op
		r.Method = http.MethodPost
		r.URL = c.apiURL(st, op)
		r.SetHeader("Authorization", st.AuthorizationToken)
		for k, v := range fields {
			r.SetField(k, v)
		}
	}, opts...)
}

// send performs req and decodes the body into out. Executor errors are
// returned as they are.
func (c *Client) send(ctx context.Context, req *transport.Request, out any) error {
	resp, err := transport.Send(ctx, c.exec, req)
	if err != nil {
		return err
	}
	return decode(req.Op, resp, out)
}

func decode(op string, resp *transport.Response, out any) error {
	if out == nil {
		return nil
	}
	if resp.Data == nil {
		return errors.NewError(errors.ErrCodeMalformedResponse, "response body is not JSON").
			WithComponent("b2").
			WithOperation(op).
			WithDetail("body", string(resp.Raw))
	}
	if err := json.Unmarshal(resp.Raw, out); err != nil {
		return errors.NewError(errors.ErrCodeMalformedResponse, "unexpected response body").
			WithComponent("b2").
			WithOperation(op).
			WithDetail("body", string(resp.Raw)).
			WithCause(err)
	}
	return nil
}

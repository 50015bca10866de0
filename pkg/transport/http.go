package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/objectfs/b2/pkg/errors"
)

// HTTPExecutor performs requests with a resty client.
type HTTPExecutor struct {
	client *resty.Client
}

type noRedirectKey struct{}

// maxRedirects matches net/http's default redirect limit.
const maxRedirects = 10

// NewHTTPExecutor wraps client, or a fresh resty client when nil. The
// executor installs its own pre-request hook and redirect policy on the
// client; a redirect policy the client already had still applies to requests
// that follow redirects. Every request goes through client, so settings made
// on it later (timeout, retries, headers) reach uploads too.
func NewHTTPExecutor(client *resty.Client) *HTTPExecutor {
	if client == nil {
		client = resty.New()
	}
	client.SetPreRequestHook(applyContentLength)

	prev := client.GetClient().CheckRedirect
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		if noRedirect, _ := req.Context().Value(noRedirectKey{}).(bool); noRedirect {
			return http.ErrUseLastResponse
		}
		if prev != nil {
			return prev(req, via)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}))

	return &HTTPExecutor{client: client}
}

// WithLogger routes resty's own diagnostics to logger.
func (e *HTTPExecutor) WithLogger(logger *slog.Logger) *HTTPExecutor {
	if logger != nil {
		e.client.SetLogger(restyLogger{logger})
	}
	return e
}

// Client returns the underlying resty client for callers that need to tune it.
func (e *HTTPExecutor) Client() *resty.Client {
	return e.client
}

// Do performs req. Failures of the HTTP layer are returned as produced; a
// non-2xx status becomes a *errors.B2Error.
func (e *HTTPExecutor) Do(ctx context.Context, req *Request) (*Response, error) {
	cancel := context.CancelFunc(func() {})
	if req.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
	}

	if req.NoRedirect {
		ctx = context.WithValue(ctx, noRedirectKey{}, true)
	}

	r := e.client.R().SetContext(ctx)
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}

	body, err := req.Body()
	if err != nil {
		cancel()
		return nil, errors.NewError(errors.ErrCodeValidationFailed, "failed to encode request body").
			WithComponent("transport").
			WithOperation(req.Op).
			WithCause(err)
	}
	if body != nil {
		if req.Data == nil && req.Headers["Content-Type"] == "" {
			r.SetHeader("Content-Type", "application/json")
		}
		if _, ok := req.Headers["Content-Length"]; !ok {
			r.SetHeader("Content-Length", strconv.Itoa(len(body)))
		}
		if req.OnUploadProgress != nil {
			r.SetBody(newProgressReader(bytes.NewReader(body), int64(len(body)), req.OnUploadProgress))
		} else {
			r.SetBody(body)
		}
	}

	r.SetDoNotParseResponse(req.Stream)

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		cancel()
		return nil, err
	}

	if req.Stream {
		return e.streamed(req, resp, cancel)
	}
	cancel()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, errors.FromResponse(req.Op, resp.StatusCode(), resp.Header(), resp.Body())
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Raw:        resp.Body(),
	}, nil
}

func (e *HTTPExecutor) streamed(req *Request, resp *resty.Response, cancel context.CancelFunc) (*Response, error) {
	raw := resp.RawBody()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		data, _ := io.ReadAll(raw)
		_ = raw.Close()
		cancel()
		return nil, errors.FromResponse(req.Op, resp.StatusCode(), resp.Header(), data)
	}

	var reader io.Reader = raw
	if req.OnDownloadProgress != nil {
		reader = newProgressReader(raw, resp.RawResponse.ContentLength, req.OnDownloadProgress)
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       &progressBody{Reader: reader, closer: raw, onClose: cancel},
	}, nil
}

// applyContentLength moves an explicit Content-Length header onto the request,
// where net/http reads it.
func applyContentLength(_ *resty.Client, r *http.Request) error {
	v := r.Header.Get("Content-Length")
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return errors.NewError(errors.ErrCodeValidationFailed, "invalid Content-Length: "+v).
			WithComponent("transport")
	}
	r.ContentLength = n
	r.Header.Del("Content-Length")
	if n == 0 {
		r.Body = http.NoBody
	}
	return nil
}

type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error("resty", "detail", fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn("resty", "detail", fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug("resty", "detail", fmt.Sprintf(format, v...))
}

package transport

import "time"

// Option adjusts a Request. See Compose for the order options apply in.
type Option struct {
	base  bool
	apply func(*Request)
}

// Compose builds a Request: base options, then build, then the other options.
func Compose(build func(*Request), opts ...Option) *Request {
	req := &Request{Headers: make(map[string]string)}

	for _, opt := range opts {
		if opt.base && opt.apply != nil {
			opt.apply(req)
		}
	}
	if build != nil {
		build(req)
	}
	for _, opt := range opts {
		if !opt.base && opt.apply != nil {
			opt.apply(req)
		}
	}
	return req
}

// Base turns opts into defaults that the action's own values override.
func Base(opts ...Option) Option {
	return Option{
		base: true,
		apply: func(r *Request) {
			for _, opt := range opts {
				if opt.apply != nil {
					opt.apply(r)
				}
			}
		},
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) Option {
	return Option{apply: func(r *Request) { r.SetHeader(key, value) }}
}

// WithBodyField sets a field of the JSON body.
func WithBodyField(key string, value any) Option {
	return Option{apply: func(r *Request) { r.SetField(key, value) }}
}

// WithTimeout bounds the request.
func WithTimeout(d time.Duration) Option {
	return Option{apply: func(r *Request) { r.Timeout = d }}
}

// WithURL replaces the request URL.
func WithURL(url string) Option {
	return Option{apply: func(r *Request) { r.URL = url }}
}

// WithUploadProgress reports request body progress.
func WithUploadProgress(fn ProgressFunc) Option {
	return Option{apply: func(r *Request) { r.OnUploadProgress = fn }}
}

// WithDownloadProgress reports response body progress.
func WithDownloadProgress(fn ProgressFunc) Option {
	return Option{apply: func(r *Request) { r.OnDownloadProgress = fn }}
}

// WithMutator runs fn against the composed request.
func WithMutator(fn func(*Request)) Option {
	return Option{apply: fn}
}

/*
Package transport carries B2 requests to the wire.

Every action in the client builds a Request and hands it to an Executor. The
default Executor, HTTPExecutor, is backed by a resty client; middleware
executors add retries, circuit breaking, and metrics around any other
Executor without the actions knowing.

# Request composition

A Request is composed in three layers by Compose:

 1. Base options (wrapped with Base) are applied first.
 2. The action then sets the headers and body fields the API requires.
 3. Remaining options are applied last.

An ordinary option therefore overrides what the action set, and the action
overrides base options:

	req := transport.Compose(func(r *transport.Request) {
		r.Method = http.MethodPost
		r.SetField("bucketId", id)
	}, transport.WithBodyField("maxFileCount", 1000))

# Errors

Errors from the HTTP layer are returned exactly as produced. Non-2xx
responses are converted into *errors.B2Error values carrying the status and
the API's code and message. Executors never wrap either kind.

# Middleware

	exec := transport.Chain(transport.NewHTTPExecutor(nil),
		transport.WithBreaker(circuit.NewManager(circuit.Config{})),
		transport.WithRetry(retry.New(retry.DefaultConfig())),
		transport.WithInstrumentation(collector, logger),
	)

Middleware is applied in order, so the last one listed is outermost.
*/
package transport

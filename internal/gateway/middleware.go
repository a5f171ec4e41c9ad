package gateway

import "context"

// Handler processes one request. On network failure it may return both a
// synthetic response and an error.
type Handler interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Do calls f(ctx, req).
func (f HandlerFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Chain wraps terminal with mws. The first middleware is outermost, so
// Chain(f, a, b) runs a, then b, then f.
func Chain(terminal Handler, mws ...Middleware) Handler {
	h := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

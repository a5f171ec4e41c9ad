package gateway

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"lmsgate/pkg/logging"
)

// Credential attaches the held session token to requests that carry no
// Authorization header of their own and are not marked Anonymous. A nil
// source disables attachment.
//
// When the source reports KindAuthRequired the request continues anonymously;
// the backend decides whether the endpoint needs a token.
func Credential(source oauth2.TokenSource) Middleware {
	return func(next Handler) Handler {
		if source == nil {
			return next
		}
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if req.Anonymous || req.Header.Get("Authorization") != "" {
				return next.Do(ctx, req)
			}

			token, err := source.Token()
			switch {
			case IsAuthRequired(err):
				logging.Debug("Gateway", "No session credential held, forwarding %s anonymously", req.Endpoint())
			case err != nil:
				return nil, err
			default:
				token.SetAuthHeader(&http.Request{Header: req.Header})
			}
			return next.Do(ctx, req)
		})
	}
}

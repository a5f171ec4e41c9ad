package gateway

import (
	"context"
	"net/http"
	"strings"

	"lmsgate/internal/cache"
	"lmsgate/pkg/logging"
)

// CacheOptions controls the cache middleware.
type CacheOptions struct {
	Policy            cache.Policy
	InvalidateOnWrite bool
}

// Cache serves fresh GET responses from store and stores successful ones.
// Writes bypass the cache; a successful write drops cached entries under the
// same top-level resource when InvalidateOnWrite is set.
func Cache(store *cache.Cache, opts CacheOptions) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if req.Method != http.MethodGet {
				resp, err := next.Do(ctx, req)
				if err == nil && opts.InvalidateOnWrite && resp != nil && resp.Success() && req.Method != http.MethodHead && req.Method != http.MethodOptions {
					if prefix := resourcePrefix(req.Endpoint()); prefix != "" {
						if n := store.Invalidate(prefix); n > 0 {
							logging.Debug("Gateway", "Invalidated %d cached entries under %s after %s", n, prefix, req.Method)
						}
					}
				}
				return resp, err
			}

			ttl := opts.Policy.TTLFor(req.Endpoint())
			if ttl <= 0 {
				return next.Do(ctx, req)
			}

			key := cache.Key{
				Endpoint: req.CacheEndpoint(),
				Identity: cache.Fingerprint(req.BearerToken()),
			}

			payload, hit, err := store.Load(ctx, key, ttl, func(ctx context.Context) (cache.Payload, bool, error) {
				resp, err := next.Do(ctx, req)
				if resp == nil {
					return cache.Payload{}, false, err
				}
				p := cache.Payload{Status: resp.Status, Header: resp.Header, Body: resp.Body}
				return p, err == nil && resp.Success(), err
			})
			if payload.Status == 0 {
				return nil, err
			}

			return &Response{
				Status:    payload.Status,
				Header:    payload.Header,
				Body:      payload.Body,
				FromCache: hit,
			}, err
		})
	}
}

// resourcePrefix returns the first path segment of endpoint.
func resourcePrefix(endpoint string) string {
	if i := strings.IndexByte(endpoint, '/'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

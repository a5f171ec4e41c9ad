package gateway

import (
	"context"
	"fmt"
	"math"
	"time"

	"lmsgate/internal/ratelimit"
	"lmsgate/pkg/logging"
)

// RateLimit rejects calls that would exceed the per-endpoint window before
// they reach the network.
func RateLimit(limiter *ratelimit.Limiter) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			endpoint := req.Endpoint()
			if !limiter.Allow(endpoint) {
				retryAfter := limiter.RetryAfter(endpoint)
				logging.Debug("Gateway", "Rate limit reached for %s, retry in %s", endpoint, retryAfter)
				return nil, &Error{
					Kind: KindRateLimited,
					Message: fmt.Sprintf("Too many requests to %s. Please wait %s before trying again.",
						endpoint, formatWait(retryAfter)),
					RetryAfter: retryAfter,
				}
			}
			return next.Do(ctx, req)
		})
	}
}

func formatWait(d time.Duration) string {
	n := int(math.Ceil(d.Seconds()))
	if n == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", n)
}

package gateway

import (
	"context"
	"time"

	"lmsgate/pkg/logging"
)

// Instrument records one outcome per request and upstream latency for
// forwarded calls. A nil Metrics only logs.
func Instrument(m *Metrics) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			start := time.Now()
			resp, err := next.Do(ctx, req)
			elapsed := time.Since(start)

			outcome := outcomeOf(resp, err)
			logging.Debug("Gateway", "%s %s -> %s in %s", req.Method, req.CacheEndpoint(), outcome, elapsed)

			if m != nil {
				m.observeOutcome(outcome)
				if outcome == OutcomeForwarded {
					m.observeUpstream(resp.Status, elapsed)
				}
			}
			return resp, err
		})
	}
}

func outcomeOf(resp *Response, err error) string {
	switch KindOf(err) {
	case KindRateLimited:
		return OutcomeRateLimited
	case KindNetworkFailure:
		return OutcomeNetworkFailure
	case KindInvalidRequest:
		return OutcomeInvalid
	}
	if err != nil || resp == nil {
		return OutcomeError
	}
	if resp.FromCache {
		return OutcomeCacheHit
	}
	return OutcomeForwarded
}

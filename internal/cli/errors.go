package cli

import (
	"errors"
	"fmt"
	"math"
	"time"

	"lmsgate/internal/backend"
	"lmsgate/internal/gateway"
	"lmsgate/internal/proxy"
)

// AuthRequiredError indicates authentication is needed.
// Implements error with actionable guidance.
type AuthRequiredError struct {
	// Origin is the backend that requires authentication.
	Origin string
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf(`Authentication required for %s

To authenticate, run:
  lmsgate auth login

To check current authentication status:
  lmsgate auth status`, e.Origin)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// AuthExpiredError indicates the held credential is no longer accepted.
type AuthExpiredError struct {
	// Origin is the backend whose credential expired.
	Origin string
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf(`Authentication expired for %s

To re-authenticate, run:
  lmsgate auth login

Or try to refresh your token:
  lmsgate auth refresh`, e.Origin)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthExpiredError) Is(target error) bool {
	_, ok := target.(*AuthExpiredError)
	return ok
}

// AuthFailedError indicates a login, challenge or 2FA change was rejected.
type AuthFailedError struct {
	// Origin is the backend where authentication failed.
	Origin string
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf(`Authentication failed for %s: %v

To retry authentication, run:
  lmsgate auth login`, e.Origin, e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}

// RateLimitedError indicates the local limiter refused a call.
type RateLimitedError struct {
	Endpoint   string
	RetryAfter time.Duration
}

// Error returns the wait time in whole seconds.
func (e *RateLimitedError) Error() string {
	seconds := int(math.Ceil(e.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return fmt.Sprintf("Too many requests to %s. Please wait %d seconds before trying again.", e.Endpoint, seconds)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *RateLimitedError) Is(target error) bool {
	_, ok := target.(*RateLimitedError)
	return ok
}

// Translate maps pipeline and backend errors onto the CLI error types that
// carry exit codes and guidance. Errors it does not recognize are returned
// unchanged.
func Translate(err error, origin, endpoint string) error {
	if err == nil {
		return nil
	}

	switch gateway.KindOf(err) {
	case gateway.KindRateLimited:
		return &RateLimitedError{Endpoint: endpoint, RetryAfter: gateway.RetryAfterOf(err)}
	case gateway.KindAuthRequired:
		return &AuthRequiredError{Origin: origin}
	case gateway.KindRefreshFailed:
		return &AuthExpiredError{Origin: origin}
	case gateway.KindChallengeFailed:
		return &AuthFailedError{Origin: origin, Reason: err}
	}

	if be, ok := backend.AsBackendError(err); ok && be.Unauthorized() {
		return &AuthExpiredError{Origin: origin}
	}
	return err
}

// DescribeConnectionError returns "<type>: <reason>" for a network failure,
// or "" when err is not one.
func DescribeConnectionError(err error) string {
	var connErr *proxy.ConnectionError
	if !errors.As(err, &connErr) {
		return ""
	}
	return fmt.Sprintf("%s: %v", connErr.Type, connErr.Reason)
}

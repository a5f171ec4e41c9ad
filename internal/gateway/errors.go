package gateway

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies gateway failures.
type ErrorKind int

const (
	// KindNetworkFailure means the backend could not be reached.
	KindNetworkFailure ErrorKind = iota + 1
	// KindRateLimited means the call was rejected locally before the network.
	KindRateLimited
	// KindBackendError is a non-2xx reply surfaced by the typed backend client.
	KindBackendError
	// KindAuthRequired means a call needed a credential and none was held.
	KindAuthRequired
	// KindChallengeFailed means a second-factor code was rejected.
	KindChallengeFailed
	// KindRefreshFailed means the refresh endpoint rejected the current token.
	KindRefreshFailed
	// KindInvalidRequest covers caller mistakes detected locally.
	KindInvalidRequest
)

// String returns the kind's name.
func (k ErrorKind) String() string {
	switch k {
	case KindNetworkFailure:
		return "NetworkFailure"
	case KindRateLimited:
		return "RateLimited"
	case KindBackendError:
		return "BackendError"
	case KindAuthRequired:
		return "AuthRequired"
	case KindChallengeFailed:
		return "ChallengeFailed"
	case KindRefreshFailed:
		return "RefreshFailed"
	case KindInvalidRequest:
		return "InvalidRequest"
	default:
		return "Unknown"
	}
}

// Error is the error type returned by the pipeline and its collaborators.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error

	// RetryAfter is set for KindRateLimited.
	RetryAfter time.Duration
}

// Error returns the human-readable message.
func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err,
// &Error{Kind: KindRateLimited}) works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return 0
}

// IsRateLimited reports whether err was raised by the rate limiter.
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}

// IsNetworkFailure reports whether the backend could not be reached.
func IsNetworkFailure(err error) bool {
	return KindOf(err) == KindNetworkFailure
}

// IsAuthRequired reports whether a credential was needed but missing.
func IsAuthRequired(err error) bool {
	return KindOf(err) == KindAuthRequired
}

// IsInvalidRequest reports whether the request was rejected locally as malformed.
func IsInvalidRequest(err error) bool {
	return KindOf(err) == KindInvalidRequest
}

// RetryAfterOf returns the wait hint carried by a rate-limit error.
func RetryAfterOf(err error) time.Duration {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.RetryAfter
	}
	return 0
}

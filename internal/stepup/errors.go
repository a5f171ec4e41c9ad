package stepup

import (
	"errors"
	"fmt"

	"lmsgate/internal/backend"
	"lmsgate/internal/gateway"
)

var (
	// ErrInvalidTransition is returned when an operation is not valid in the
	// current state. The machine is left unchanged.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInFlight is returned when a submission is already awaiting the
	// backend's reply.
	ErrInFlight = errors.New("a submission is already in progress")
)

// TransitionError describes a rejected operation.
type TransitionError struct {
	Op    string
	State fmt.Stringer
}

// Error returns the operation and the state it was attempted in.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s is not allowed in state %s", e.Op, e.State)
}

// Is matches ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// codeRejected turns a backend refusal of a second-factor code into a
// KindChallengeFailed error. Other failures are returned unchanged.
func codeRejected(err error) error {
	if be, ok := backend.AsBackendError(err); ok && be.Rejected() {
		return &gateway.Error{Kind: gateway.KindChallengeFailed, Message: "verification code rejected", Err: err}
	}
	return err
}

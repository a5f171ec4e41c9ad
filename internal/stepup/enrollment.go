package stepup

import (
	"context"
	"strings"
	"sync"

	"lmsgate/internal/backend"
	"lmsgate/internal/gateway"
	"lmsgate/pkg/logging"
)

// EnrollmentState is a step of second-factor enrollment.
type EnrollmentState int

const (
	// EnrollmentIdle means no second factor is configured.
	EnrollmentIdle EnrollmentState = iota

	// EnrollmentAwaitingCode means a secret was issued and the first code
	// from the authenticator app is expected.
	EnrollmentAwaitingCode

	// EnrollmentEnabled means the second factor is active.
	EnrollmentEnabled
)

// String returns the state's name.
func (s EnrollmentState) String() string {
	switch s {
	case EnrollmentIdle:
		return "idle"
	case EnrollmentAwaitingCode:
		return "awaiting_code"
	case EnrollmentEnabled:
		return "enabled"
	default:
		return "unknown"
	}
}

// Enroller performs the enrollment calls.
type Enroller interface {
	SetupTwoFactor(ctx context.Context) (*backend.SetupResult, error)
	EnableTwoFactor(ctx context.Context, secret, code string) (*backend.EnableResult, error)
	DisableTwoFactor(ctx context.Context, code string) error
}

// RecoveryCodes holds backup codes that can be revealed exactly once.
type RecoveryCodes struct {
	once  sync.Once
	codes []string
}

func newRecoveryCodes(codes []string) *RecoveryCodes {
	return &RecoveryCodes{codes: append([]string(nil), codes...)}
}

// Reveal returns the codes on the first call and nothing afterwards.
func (r *RecoveryCodes) Reveal() ([]string, bool) {
	var out []string
	revealed := false
	r.once.Do(func() {
		out = r.codes
		r.codes = nil
		revealed = true
	})
	return out, revealed
}

// Enrollment drives Idle -> AwaitingCode -> Enabled and back to Idle on
// disable.
type Enrollment struct {
	mu       sync.Mutex
	state    EnrollmentState
	setup    *backend.SetupResult
	inFlight bool

	client Enroller
}

// NewEnrollment creates an enrollment flow starting in initial.
func NewEnrollment(client Enroller, initial EnrollmentState) *Enrollment {
	return &Enrollment{client: client, state: initial}
}

// State returns the current state.
func (e *Enrollment) State() EnrollmentState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Setup returns the pending setup material while awaiting the first code.
func (e *Enrollment) Setup() (*backend.SetupResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.setup == nil {
		return nil, false
	}
	s := *e.setup
	return &s, true
}

func (e *Enrollment) begin(op string, allowed ...EnrollmentState) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok := false
	for _, s := range allowed {
		if e.state == s {
			ok = true
			break
		}
	}
	if !ok {
		return &TransitionError{Op: op, State: e.state}
	}
	if e.inFlight {
		return ErrInFlight
	}
	e.inFlight = true
	return nil
}

// Begin requests a new secret. Calling it again while awaiting a code
// replaces the pending secret.
func (e *Enrollment) Begin(ctx context.Context) (*backend.SetupResult, error) {
	if err := e.begin("begin enrollment", EnrollmentIdle, EnrollmentAwaitingCode); err != nil {
		return nil, err
	}

	setup, err := e.client.SetupTwoFactor(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight = false
	if err != nil {
		return nil, err
	}
	e.setup = setup
	e.state = EnrollmentAwaitingCode
	s := *setup
	return &s, nil
}

// Resume continues an enrollment started by another process from its
// secret.
func (e *Enrollment) Resume(secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return gateway.NewError(gateway.KindInvalidRequest, nil, "secret is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EnrollmentIdle && e.state != EnrollmentAwaitingCode {
		return &TransitionError{Op: "resume enrollment", State: e.state}
	}
	e.setup = &backend.SetupResult{Secret: secret}
	e.state = EnrollmentAwaitingCode
	return nil
}

// Confirm submits the first code. On success the flow is Enabled and the
// backup codes are returned as a one-shot value; they are not kept anywhere
// else.
func (e *Enrollment) Confirm(ctx context.Context, code string) (*RecoveryCodes, error) {
	code = strings.TrimSpace(code)
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	if err := e.begin("confirm enrollment", EnrollmentAwaitingCode); err != nil {
		return nil, err
	}

	e.mu.Lock()
	secret := e.setup.Secret
	e.mu.Unlock()

	res, err := e.client.EnableTwoFactor(ctx, secret, code)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight = false
	if err != nil {
		logging.Audit(logging.AuditEvent{Action: "two_factor_enable", Outcome: "failure", Reason: err.Error()})
		return nil, codeRejected(err)
	}

	e.setup = nil
	e.state = EnrollmentEnabled
	logging.Audit(logging.AuditEvent{Action: "two_factor_enable", Outcome: "success"})
	return newRecoveryCodes(res.BackupCodes), nil
}

// Disable turns the second factor off with a current or backup code.
func (e *Enrollment) Disable(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if err := ValidateCode(code); err != nil {
		return err
	}
	if err := e.begin("disable two-factor", EnrollmentEnabled); err != nil {
		return err
	}

	err := e.client.DisableTwoFactor(ctx, code)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight = false
	if err != nil {
		logging.Audit(logging.AuditEvent{Action: "two_factor_disable", Outcome: "failure", Reason: err.Error()})
		return codeRejected(err)
	}
	e.state = EnrollmentIdle
	logging.Audit(logging.AuditEvent{Action: "two_factor_disable", Outcome: "success"})
	return nil
}

package stepup

import (
	"context"
	"strings"
	"sync"

	"lmsgate/internal/backend"
	"lmsgate/internal/gateway"
	"lmsgate/internal/session"
	"lmsgate/pkg/logging"
)

// State is a step of the login flow.
type State int

const (
	// StatePasswordPending waits for email and password.
	StatePasswordPending State = iota

	// StateChallengePending holds a pending challenge and waits for a
	// second-factor code.
	StateChallengePending

	// StateAuthenticatedDirect means the password step issued a final token.
	StateAuthenticatedDirect

	// StateAuthenticatedAfterChallenge means the second factor was accepted.
	StateAuthenticatedAfterChallenge
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StatePasswordPending:
		return "password_pending"
	case StateChallengePending:
		return "challenge_pending"
	case StateAuthenticatedDirect:
		return "authenticated"
	case StateAuthenticatedAfterChallenge:
		return "authenticated_after_challenge"
	default:
		return "unknown"
	}
}

// Authenticated reports whether s is a terminal success state.
func (s State) Authenticated() bool {
	return s == StateAuthenticatedDirect || s == StateAuthenticatedAfterChallenge
}

// Challenge is issued when the password was accepted but a second factor is
// required. Its validity window is enforced by the backend.
type Challenge struct {
	TempToken string
	Email     string
}

// Authenticator performs the two network steps of a login.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResult, error)
	VerifyTwoFactor(ctx context.Context, email, tempToken, code string) (*backend.AuthResult, error)
}

// CredentialInstaller receives the final token.
type CredentialInstaller interface {
	Install(token string) (*session.Credential, error)
}

// Result is the outcome of a completed login.
type Result struct {
	Credential *session.Credential
	User       *backend.User
}

// Machine drives one login attempt. Transitions are committed only after the
// backend replies; a failed step leaves the state as it was.
type Machine struct {
	mu        sync.Mutex
	state     State
	challenge *Challenge
	result    *Result
	inFlight  bool

	auth  Authenticator
	creds CredentialInstaller
}

// NewMachine creates a machine in StatePasswordPending.
func NewMachine(auth Authenticator, creds CredentialInstaller) *Machine {
	return &Machine{
		state: StatePasswordPending,
		auth:  auth,
		creds: creds,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Challenge returns the pending challenge, if any.
func (m *Machine) Challenge() (Challenge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.challenge == nil {
		return Challenge{}, false
	}
	return *m.challenge, true
}

// Result returns the completed login, or nil before authentication.
func (m *Machine) Result() *Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// begin checks the state and marks a submission in flight.
func (m *Machine) begin(op string, want State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != want {
		return &TransitionError{Op: op, State: m.state}
	}
	if m.inFlight {
		return ErrInFlight
	}
	m.inFlight = true
	return nil
}

// SubmitPassword performs the password step. It returns the resulting state:
// StateAuthenticatedDirect when a final token was installed, or
// StateChallengePending when a second factor is required. On failure the
// machine stays in StatePasswordPending; there is no lockout.
func (m *Machine) SubmitPassword(ctx context.Context, email, password string) (State, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return m.State(), gateway.NewError(gateway.KindInvalidRequest, nil, "email and password are required")
	}
	if err := m.begin("submit password", StatePasswordPending); err != nil {
		return m.State(), err
	}

	res, err := m.auth.Login(ctx, email, password)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false

	if err != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "login",
			Outcome: "failure",
			Subject: logging.TruncateIdentifier(email),
			Reason:  err.Error(),
		})
		return m.state, err
	}

	if res.RequiresTwoFactor {
		m.challenge = &Challenge{TempToken: res.TempToken, Email: email}
		m.state = StateChallengePending
		logging.Audit(logging.AuditEvent{
			Action:  "login",
			Outcome: "challenge_issued",
			Subject: logging.TruncateIdentifier(email),
		})
		return m.state, nil
	}

	cred, err := m.creds.Install(res.Token)
	if err != nil {
		return m.state, err
	}
	m.result = &Result{Credential: cred, User: res.User}
	m.state = StateAuthenticatedDirect
	logging.Audit(logging.AuditEvent{
		Action:  "login",
		Outcome: "success",
		Subject: logging.TruncateIdentifier(email),
	})
	return m.state, nil
}

// SubmitCode answers the pending challenge with a 6-digit code or a backup
// code. A rejected code yields a KindChallengeFailed error and keeps the same
// challenge, so the caller may retry or Cancel.
func (m *Machine) SubmitCode(ctx context.Context, code string) (State, error) {
	code = strings.TrimSpace(code)
	if err := ValidateCode(code); err != nil {
		return m.State(), err
	}
	if err := m.begin("submit code", StateChallengePending); err != nil {
		return m.State(), err
	}

	m.mu.Lock()
	challenge := *m.challenge
	m.mu.Unlock()

	res, err := m.auth.VerifyTwoFactor(ctx, challenge.Email, challenge.TempToken, code)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false

	if err != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "second_factor",
			Outcome: "failure",
			Subject: logging.TruncateIdentifier(challenge.Email),
			Reason:  err.Error(),
		})
		return m.state, codeRejected(err)
	}

	cred, err := m.creds.Install(res.Token)
	if err != nil {
		return m.state, err
	}
	m.result = &Result{Credential: cred, User: res.User}
	m.challenge = nil
	m.state = StateAuthenticatedAfterChallenge
	logging.Audit(logging.AuditEvent{
		Action:  "second_factor",
		Outcome: "success",
		Subject: logging.TruncateIdentifier(challenge.Email),
	})
	return m.state, nil
}

// Cancel abandons the pending challenge and returns to StatePasswordPending.
// It is local only; the backend lets the temp token lapse.
func (m *Machine) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateChallengePending {
		return &TransitionError{Op: "cancel", State: m.state}
	}
	if m.inFlight {
		return ErrInFlight
	}
	m.challenge = nil
	m.state = StatePasswordPending
	return nil
}

// Reset starts a new login attempt after a completed one.
func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Authenticated() {
		return &TransitionError{Op: "reset", State: m.state}
	}
	m.state = StatePasswordPending
	m.result = nil
	return nil
}

// ValidateCode accepts a 6-digit numeric code or any non-empty non-numeric
// backup code.
func ValidateCode(code string) error {
	if code == "" {
		return gateway.NewError(gateway.KindInvalidRequest, nil, "verification code is required")
	}
	if isDigits(code) && len(code) != 6 {
		return gateway.NewError(gateway.KindInvalidRequest, nil, "verification code must be 6 digits")
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

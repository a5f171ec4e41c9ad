package stepup

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lmsgate/internal/backend"
	"lmsgate/internal/gateway"
	"lmsgate/internal/proxy"
	"lmsgate/internal/session"
	"lmsgate/internal/testing/mock"
)

// fixture wires a machine to the mock backend through the real forwarder.
type fixture struct {
	backend *mock.Backend
	client  *backend.Client
	manager *session.Manager
	machine *Machine
}

func newFixture(t *testing.T, users ...mock.User) *fixture {
	t.Helper()
	b := mock.NewBackend(mock.BackendConfig{Users: users})
	origin, err := b.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Stop(context.Background()) })

	forwarder, err := proxy.NewForwarder(origin, proxy.WithTimeout(5*time.Second))
	require.NoError(t, err)

	store, err := session.NewStore(session.StoreConfig{FileMode: false})
	require.NoError(t, err)
	manager := session.NewManager(store)
	client := backend.NewClient(forwarder, backend.WithTokenSource(manager))

	return &fixture{
		backend: b,
		client:  client,
		manager: manager,
		machine: NewMachine(client, manager),
	}
}

func scenarioUser() mock.User {
	return mock.User{
		ID:               "7",
		Email:            "a@x.com",
		Password:         "p",
		Role:             "student",
		TwoFactorCode:    "123456",
		TwoFactorEnabled: true,
		BackupCodes:      []string{"ABCD-EFGH"},
	}
}

func TestMachine_StepUpScenario(t *testing.T) {
	f := newFixture(t, scenarioUser())
	ctx := context.Background()

	state, err := f.machine.SubmitPassword(ctx, "a@x.com", "p")
	require.NoError(t, err)
	assert.Equal(t, StateChallengePending, state)

	challenge, ok := f.machine.Challenge()
	require.True(t, ok)
	assert.Equal(t, "T1", challenge.TempToken)
	assert.Equal(t, "a@x.com", challenge.Email)
	assert.Nil(t, f.manager.Current(), "no credential while a challenge is pending")

	state, err = f.machine.SubmitCode(ctx, "000000")
	require.Error(t, err)
	assert.Equal(t, gateway.KindChallengeFailed, gateway.KindOf(err))
	assert.Equal(t, StateChallengePending, state)

	challenge, ok = f.machine.Challenge()
	require.True(t, ok)
	assert.Equal(t, "T1", challenge.TempToken, "failed code keeps the same temp token")

	state, err = f.machine.SubmitCode(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticatedAfterChallenge, state)
	assert.True(t, state.Authenticated())

	_, ok = f.machine.Challenge()
	assert.False(t, ok, "challenge consumed")

	result := f.machine.Result()
	require.NotNil(t, result)
	require.NotNil(t, result.User)
	assert.Equal(t, "a@x.com", result.User.Email)
	assert.NotEmpty(t, result.Credential.Token)
	assert.Equal(t, result.Credential.Token, f.manager.BearerToken())
	assert.Equal(t, "a@x.com", f.manager.Current().Claims.Email)

	me, err := f.client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", me.User.Email)
}

func TestMachine_DirectLogin(t *testing.T) {
	user := scenarioUser()
	user.TwoFactorEnabled = false
	f := newFixture(t, user)

	state, err := f.machine.SubmitPassword(context.Background(), "a@x.com", "p")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticatedDirect, state)
	assert.NotEmpty(t, f.manager.BearerToken())

	_, err = f.machine.SubmitCode(context.Background(), "123456")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMachine_WrongPasswordStays(t *testing.T) {
	f := newFixture(t, scenarioUser())

	for i := 0; i < 3; i++ {
		state, err := f.machine.SubmitPassword(context.Background(), "a@x.com", "wrong")
		require.Error(t, err)
		assert.Equal(t, StatePasswordPending, state)
		be, ok := backend.AsBackendError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, be.Status)
	}
	assert.Nil(t, f.manager.Current())
}

func TestMachine_BackupCode(t *testing.T) {
	f := newFixture(t, scenarioUser())

	_, err := f.machine.SubmitPassword(context.Background(), "a@x.com", "p")
	require.NoError(t, err)

	state, err := f.machine.SubmitCode(context.Background(), "ABCD-EFGH")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticatedAfterChallenge, state)
}

func TestMachine_CancelAndReset(t *testing.T) {
	f := newFixture(t, scenarioUser())
	ctx := context.Background()

	assert.ErrorIs(t, f.machine.Cancel(), ErrInvalidTransition)
	assert.ErrorIs(t, f.machine.Reset(), ErrInvalidTransition)

	_, err := f.machine.SubmitPassword(ctx, "a@x.com", "p")
	require.NoError(t, err)
	require.NoError(t, f.machine.Cancel())
	assert.Equal(t, StatePasswordPending, f.machine.State())
	_, ok := f.machine.Challenge()
	assert.False(t, ok)

	_, err = f.machine.SubmitPassword(ctx, "a@x.com", "p")
	require.NoError(t, err)
	challenge, _ := f.machine.Challenge()
	assert.Equal(t, "T2", challenge.TempToken)

	_, err = f.machine.SubmitCode(ctx, "123456")
	require.NoError(t, err)

	_, err = f.machine.SubmitPassword(ctx, "a@x.com", "p")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, f.machine.Reset())
	assert.Equal(t, StatePasswordPending, f.machine.State())
	assert.Nil(t, f.machine.Result())
}

func TestMachine_InputValidation(t *testing.T) {
	f := newFixture(t, scenarioUser())
	ctx := context.Background()

	_, err := f.machine.SubmitPassword(ctx, "", "p")
	assert.True(t, gateway.IsInvalidRequest(err))
	assert.Equal(t, 0, f.backend.TotalCalls())

	_, err = f.machine.SubmitPassword(ctx, "a@x.com", "p")
	require.NoError(t, err)

	for _, code := range []string{"", "   ", "12345", "1234567"} {
		state, err := f.machine.SubmitCode(ctx, code)
		assert.True(t, gateway.IsInvalidRequest(err), "code %q", code)
		assert.Equal(t, StateChallengePending, state)
	}
	assert.Equal(t, 0, f.backend.Calls(http.MethodPost, backend.PathVerify2FA))
}

// blockingAuth parks Login until released.
type blockingAuth struct {
	entered chan struct{}
	release chan struct{}
}

func (a *blockingAuth) Login(ctx context.Context, email, password string) (*backend.LoginResult, error) {
	close(a.entered)
	<-a.release
	return &backend.LoginResult{RequiresTwoFactor: true, TempToken: "T9"}, nil
}

func (a *blockingAuth) VerifyTwoFactor(ctx context.Context, email, tempToken, code string) (*backend.AuthResult, error) {
	return nil, errors.New("not used")
}

func TestMachine_ConcurrentSubmissionRejected(t *testing.T) {
	auth := &blockingAuth{entered: make(chan struct{}), release: make(chan struct{})}
	m := NewMachine(auth, nil)

	done := make(chan error, 1)
	go func() {
		_, err := m.SubmitPassword(context.Background(), "a@x.com", "p")
		done <- err
	}()

	<-auth.entered
	_, err := m.SubmitPassword(context.Background(), "a@x.com", "p")
	assert.ErrorIs(t, err, ErrInFlight)

	close(auth.release)
	require.NoError(t, <-done)
	assert.Equal(t, StateChallengePending, m.State())
}

// failingVerifier issues a challenge and then fails verification with err.
type failingVerifier struct {
	err error
}

func (a failingVerifier) Login(ctx context.Context, email, password string) (*backend.LoginResult, error) {
	return &backend.LoginResult{RequiresTwoFactor: true, TempToken: "T4"}, nil
}

func (a failingVerifier) VerifyTwoFactor(ctx context.Context, email, tempToken, code string) (*backend.AuthResult, error) {
	return nil, a.err
}

func TestMachine_VerificationFailureKinds(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		challengeFails bool
	}{
		{name: "bad request", status: http.StatusBadRequest, challengeFails: true},
		{name: "unauthorized", status: http.StatusUnauthorized, challengeFails: true},
		{name: "forbidden", status: http.StatusForbidden, challengeFails: true},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, challengeFails: true},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "unavailable", status: http.StatusServiceUnavailable},
		{name: "throttled", status: http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cause := &backend.BackendError{Status: tt.status, Message: "db down"}
			m := NewMachine(failingVerifier{err: gateway.NewError(gateway.KindBackendError, cause, "verify failed")}, nil)

			_, err := m.SubmitPassword(context.Background(), "a@x.com", "p")
			require.NoError(t, err)

			state, err := m.SubmitCode(context.Background(), "123456")
			require.Error(t, err)
			assert.Equal(t, StateChallengePending, state)

			be, ok := backend.AsBackendError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, be.Status)
			if tt.challengeFails {
				assert.Equal(t, gateway.KindChallengeFailed, gateway.KindOf(err))
			} else {
				assert.Equal(t, gateway.KindBackendError, gateway.KindOf(err))
				assert.NotContains(t, err.Error(), "verification code rejected")
			}

			challenge, ok := m.Challenge()
			require.True(t, ok)
			assert.Equal(t, "T4", challenge.TempToken)
		})
	}
}

func TestValidateCode(t *testing.T) {
	tests := []struct {
		code    string
		wantErr bool
	}{
		{code: "123456"},
		{code: "ABCD-EFGH"},
		{code: "a1b2c3d4"},
		{code: "", wantErr: true},
		{code: "12345", wantErr: true},
		{code: "1234567", wantErr: true},
	}
	for _, tt := range tests {
		err := ValidateCode(tt.code)
		if tt.wantErr {
			assert.Error(t, err, tt.code)
		} else {
			assert.NoError(t, err, tt.code)
		}
	}
}

func TestTransitionError(t *testing.T) {
	err := &TransitionError{Op: "cancel", State: StatePasswordPending}
	assert.Equal(t, "cancel is not allowed in state password_pending", err.Error())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

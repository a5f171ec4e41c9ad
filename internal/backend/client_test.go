package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"lmsgate/internal/gateway"
	"lmsgate/internal/proxy"
	"lmsgate/internal/ratelimit"
	"lmsgate/internal/testing/mock"
)

func startBackend(t *testing.T, users ...mock.User) (*mock.Backend, gateway.Handler) {
	t.Helper()
	backend := mock.NewBackend(mock.BackendConfig{Users: users})
	origin, err := backend.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Stop(context.Background()) })

	forwarder, err := proxy.NewForwarder(origin, proxy.WithTimeout(5*time.Second))
	require.NoError(t, err)
	return backend, forwarder
}

func alice() mock.User {
	return mock.User{ID: "1", Email: "alice@example.com", Password: "secret", Role: "student", TwoFactorCode: "654321"}
}

func TestClient_LoginDirect(t *testing.T) {
	_, pipeline := startBackend(t, alice())
	c := NewClient(pipeline)

	result, err := c.Login(context.Background(), "alice@example.com", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.False(t, result.RequiresTwoFactor)
	require.NotNil(t, result.User)
	assert.Equal(t, UserID("1"), result.User.ID)
	assert.Equal(t, "student", result.User.Role)
}

func TestClient_LoginWrongPassword(t *testing.T) {
	_, pipeline := startBackend(t, alice())
	c := NewClient(pipeline)

	_, err := c.Login(context.Background(), "alice@example.com", "nope")
	require.Error(t, err)
	assert.Equal(t, gateway.KindBackendError, gateway.KindOf(err))

	be, ok := AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, be.Status)
	assert.Equal(t, "Invalid credentials", be.Message)
	assert.True(t, be.Unauthorized())
}

func TestClient_LoginValidatesInput(t *testing.T) {
	backend, pipeline := startBackend(t, alice())
	c := NewClient(pipeline)

	_, err := c.Login(context.Background(), "  ", "secret")
	assert.True(t, gateway.IsInvalidRequest(err))
	assert.Equal(t, 0, backend.TotalCalls())
}

func TestClient_LoginAndVerifyChallenge(t *testing.T) {
	user := alice()
	user.TwoFactorEnabled = true
	_, pipeline := startBackend(t, user)
	c := NewClient(pipeline)

	login, err := c.Login(context.Background(), user.Email, user.Password)
	require.NoError(t, err)
	assert.True(t, login.RequiresTwoFactor)
	assert.Equal(t, "T1", login.TempToken)
	assert.Empty(t, login.Token)

	_, err = c.VerifyTwoFactor(context.Background(), user.Email, login.TempToken, "000000")
	be, ok := AsBackendError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, be.Status)

	result, err := c.VerifyTwoFactor(context.Background(), user.Email, login.TempToken, "654321")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestClient_MeAndRefresh(t *testing.T) {
	backend, pipeline := startBackend(t, alice())
	token, err := backend.IssueToken("alice@example.com")
	require.NoError(t, err)

	c := NewClient(pipeline, WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})))

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.True(t, me.Success)
	assert.Equal(t, "alice@example.com", me.User.Email)

	fresh, err := c.Refresh(context.Background(), token)
	require.NoError(t, err)
	assert.NotEqual(t, token, fresh)

	_, err = c.Refresh(context.Background(), token)
	be, ok := AsBackendError(err)
	require.True(t, ok, "old token is revoked after refresh")
	assert.True(t, be.Unauthorized())
}

func TestClient_SessionEndpointsNeverCarryHeldToken(t *testing.T) {
	seen := map[string]string{}
	terminal := gateway.HandlerFunc(func(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
		seen[req.Endpoint()] = req.Header.Get("Authorization")
		body := `{"token":"new-token","user":{"id":1,"email":"a@x.com","role":"student"}}`
		if req.Endpoint() == PathLogin {
			body = `{"requiresTwoFactor":true,"tempToken":"T1"}`
		}
		return &gateway.Response{Status: http.StatusOK, Body: []byte(body)}, nil
	})
	held := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "old-session"})
	pipeline := gateway.Chain(terminal, gateway.Credential(held))
	c := NewClient(pipeline, WithTokenSource(held))

	_, err := c.Login(context.Background(), "a@x.com", "p")
	require.NoError(t, err)
	_, err = c.VerifyTwoFactor(context.Background(), "a@x.com", "T1", "123456")
	require.NoError(t, err)
	_, err = c.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "", seen[PathLogin])
	assert.Equal(t, "", seen[PathVerify2FA])
	assert.Equal(t, "Bearer old-session", seen[PathMe])
}

func TestClient_AuthRequiredWithoutToken(t *testing.T) {
	backend, pipeline := startBackend(t, alice())
	c := NewClient(pipeline)

	_, err := c.Me(context.Background())
	assert.True(t, gateway.IsAuthRequired(err))
	_, err = c.SetupTwoFactor(context.Background())
	assert.True(t, gateway.IsAuthRequired(err))
	_, err = c.Refresh(context.Background(), "")
	assert.True(t, gateway.IsAuthRequired(err))
	assert.Equal(t, 0, backend.TotalCalls())
}

func TestClient_TwoFactorEnrollment(t *testing.T) {
	backend, pipeline := startBackend(t, alice())
	token, err := backend.IssueToken("alice@example.com")
	require.NoError(t, err)
	c := NewClient(pipeline, WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})))

	setup, err := c.SetupTwoFactor(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.OTPAuthURL, "otpauth://")
	assert.NotEmpty(t, setup.QRCode)

	_, err = c.EnableTwoFactor(context.Background(), setup.Secret, "111111")
	assert.Equal(t, gateway.KindBackendError, gateway.KindOf(err))

	enabled, err := c.EnableTwoFactor(context.Background(), setup.Secret, "654321")
	require.NoError(t, err)
	assert.Len(t, enabled.BackupCodes, 8)
	assert.True(t, backend.TwoFactorEnabled("alice@example.com"))

	require.NoError(t, c.DisableTwoFactor(context.Background(), "654321"))
	assert.False(t, backend.TwoFactorEnabled("alice@example.com"))
}

func TestClient_RateLimitedBeforeNetwork(t *testing.T) {
	backend, forwarder := startBackend(t, alice())
	pipeline := gateway.Chain(forwarder, gateway.RateLimit(ratelimit.New(1, time.Minute)))
	c := NewClient(pipeline)

	_, err := c.Login(context.Background(), "alice@example.com", "wrong")
	require.Error(t, err)
	_, err = c.Login(context.Background(), "alice@example.com", "secret")
	assert.True(t, gateway.IsRateLimited(err))
	assert.Equal(t, 1, backend.Calls(http.MethodPost, PathLogin))
}

func TestUserID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want UserID
	}{
		{in: `{"id":42}`, want: "42"},
		{in: `{"id":"64f1c2"}`, want: "64f1c2"},
		{in: `{"id":null}`, want: ""},
	}
	for _, tt := range tests {
		var u User
		require.NoError(t, json.Unmarshal([]byte(tt.in), &u))
		assert.Equal(t, tt.want, u.ID)
	}
}

func TestExtractMessage(t *testing.T) {
	assert.Equal(t, "bad", extractMessage(400, []byte(`{"message":"bad"}`)))
	assert.Equal(t, "worse", extractMessage(400, []byte(`{"error":"worse"}`)))
	assert.Equal(t, "Not Found", extractMessage(404, []byte(`<html>`)))
	assert.Equal(t, "status 599", extractMessage(599, nil))
	assert.Equal(t, "upstream timed out", extractMessage(504, []byte("upstream\n timed out\n")))
	assert.Equal(t, "Bad Request", extractMessage(400, []byte(`{"other":1}`)))
}

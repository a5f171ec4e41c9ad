package cmd

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lmsgate/internal/cli"
)

func TestAuthLogin_PasswordStdin(t *testing.T) {
	env := newCLIEnv(t, plainUser())

	out, err := env.run(t, "pw\n", "auth", "login", "--email", "student@example.com", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as student@example.com (student)")

	out, err = env.run(t, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Authenticated")
	assert.Contains(t, out, "student@example.com")
	assert.Contains(t, out, "session.json")
}

func TestAuthLogin_WrongPassword(t *testing.T) {
	env := newCLIEnv(t, plainUser())

	_, err := env.run(t, "nope\n", "auth", "login", "--email", "student@example.com", "--password-stdin")
	require.Error(t, err)
	assert.ErrorIs(t, err, &cli.AuthFailedError{})
	assert.Equal(t, ExitCodeAuthFailed, getExitCode(err))
}

func TestAuthLogin_InteractiveChallenge(t *testing.T) {
	env := newCLIEnv(t, twoFactorUser())
	prompter := &scriptedPrompter{answers: []string{"a@x.com", "pw", "000000", "123456"}}
	usePrompter(t, prompter)

	out, err := env.run(t, "", "auth", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as a@x.com (instructor)")
	assert.Contains(t, out, "Second factor verified")
	assert.Len(t, prompter.asked, 4)
	assert.Equal(t, 2, env.backend.Calls(http.MethodPost, "2fa/verify"))
}

func TestAuthLogin_ChallengeGivesUp(t *testing.T) {
	env := newCLIEnv(t, twoFactorUser())
	// --code is the first attempt, the prompts supply the rest.
	usePrompter(t, &scriptedPrompter{answers: []string{"pw", "000000", "111111"}})
	_, err := env.run(t, "", "auth", "login", "--email", "a@x.com", "--code", "333333")
	require.Error(t, err)
	assert.ErrorIs(t, err, &cli.AuthFailedError{})
	assert.Equal(t, maxCodeAttempts, env.backend.Calls(http.MethodPost, "2fa/verify"))

	out, err := env.run(t, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not authenticated")
}

func TestAuthLogin_BackupCodeFlag(t *testing.T) {
	env := newCLIEnv(t, twoFactorUser())

	out, err := env.run(t, "pw\n", "auth", "login", "--email", "a@x.com", "--password-stdin", "--code", "BACKUP-ONE")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as a@x.com")
}

func TestAuthLogin_ChallengeWithoutCodeOnStdin(t *testing.T) {
	env := newCLIEnv(t, twoFactorUser())

	_, err := env.run(t, "pw\n", "auth", "login", "--email", "a@x.com", "--password-stdin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--code")
}

func TestAuthStatus_NotAuthenticated(t *testing.T) {
	env := newCLIEnv(t, plainUser())

	out, err := env.run(t, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not authenticated")
	assert.Contains(t, out, "lmsgate auth login")
}

func TestAuthStatus_Verify(t *testing.T) {
	env := newCLIEnv(t, plainUser())
	_, err := env.run(t, "pw\n", "auth", "login", "--email", "student@example.com", "--password-stdin")
	require.NoError(t, err)

	out, err := env.run(t, "", "auth", "status", "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "verified")
	assert.Equal(t, 1, env.backend.Calls(http.MethodGet, "auth/me"))
}

func TestAuthRefreshAndLogout(t *testing.T) {
	env := newCLIEnv(t, plainUser())

	_, err := env.run(t, "", "auth", "refresh")
	require.Error(t, err)
	assert.Equal(t, ExitCodeAuthRequired, getExitCode(err))

	_, err = env.run(t, "pw\n", "auth", "login", "--email", "student@example.com", "--password-stdin")
	require.NoError(t, err)

	out, err := env.run(t, "", "auth", "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Token refreshed")
	assert.Equal(t, 1, env.backend.Calls(http.MethodPost, "auth/refresh"))

	env.backend.SetFailRefresh(true)
	_, err = env.run(t, "", "auth", "refresh")
	require.Error(t, err)
	assert.ErrorIs(t, err, &cli.AuthExpiredError{})

	out, err = env.run(t, "", "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	out, err = env.run(t, "", "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "No session was held")
}

func TestTwoFactorEnrollmentCommands(t *testing.T) {
	env := newCLIEnv(t, plainUser())

	_, err := env.run(t, "", "2fa", "setup")
	require.Error(t, err)
	assert.Equal(t, ExitCodeAuthRequired, getExitCode(err))

	_, err = env.run(t, "pw\n", "auth", "login", "--email", "student@example.com", "--password-stdin")
	require.NoError(t, err)

	out, err := env.run(t, "", "2fa", "setup")
	require.NoError(t, err)
	m := regexp.MustCompile(`--secret (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	secret := m[1]

	_, err = env.run(t, "", "2fa", "enable", "--secret", secret, "--code", "999999")
	require.Error(t, err)
	assert.Equal(t, ExitCodeAuthFailed, getExitCode(err))

	out, err = env.run(t, "", "2fa", "enable", "--secret", secret, "--code", "246810")
	require.NoError(t, err)
	assert.Contains(t, out, "Two-factor authentication enabled")
	assert.Contains(t, out, "BK00-")
	assert.True(t, env.backend.TwoFactorEnabled("student@example.com"))

	out, err = env.run(t, "", "2fa", "disable", "--code", "246810")
	require.NoError(t, err)
	assert.Contains(t, out, "disabled")
	assert.False(t, env.backend.TwoFactorEnabled("student@example.com"))
}

func TestTwoFactorEnable_RequiresFlags(t *testing.T) {
	env := newCLIEnv(t, plainUser())
	_, err := env.run(t, "", "2fa", "enable", "--code", "123456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret")
}

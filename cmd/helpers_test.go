package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"lmsgate/internal/cli"
	"lmsgate/internal/config"
	"lmsgate/internal/testing/mock"
)

// scriptedPrompter answers prompts from a fixed list.
type scriptedPrompter struct {
	answers []string
	asked   []string
}

func (p *scriptedPrompter) next(prompt string) (string, error) {
	p.asked = append(p.asked, prompt)
	if len(p.answers) == 0 {
		return "", cli.ErrPromptCancelled
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func (p *scriptedPrompter) Line(prompt string) (string, error)   { return p.next(prompt) }
func (p *scriptedPrompter) Secret(prompt string) (string, error) { return p.next(prompt) }
func (p *scriptedPrompter) Close() error                         { return nil }

func usePrompter(t *testing.T, p *scriptedPrompter) {
	t.Helper()
	orig := newPrompter
	newPrompter = func(*cobra.Command) (cli.Prompter, error) { return p, nil }
	t.Cleanup(func() { newPrompter = orig })
}

// cliEnv is a mock backend plus an isolated config directory.
type cliEnv struct {
	backend *mock.Backend
	dir     string
}

func newCLIEnv(t *testing.T, users ...mock.User) *cliEnv {
	t.Helper()
	backend := mock.NewBackend(mock.BackendConfig{Users: users})
	origin, err := backend.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Stop(context.Background()) })

	t.Setenv(config.EnvBackendOrigin, origin)
	t.Setenv(config.EnvBackendOriginFallback, "")
	t.Setenv(config.EnvLogLevel, "")

	return &cliEnv{backend: backend, dir: t.TempDir()}
}

// run executes the root command with args and returns stdout.
func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config-path", e.dir, "--quiet"}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default between runs.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func plainUser() mock.User {
	return mock.User{ID: "7", Email: "student@example.com", Password: "pw", Role: "student", TwoFactorCode: "246810"}
}

func twoFactorUser() mock.User {
	return mock.User{
		ID:               "9",
		Email:            "a@x.com",
		Password:         "pw",
		Role:             "instructor",
		TwoFactorCode:    "123456",
		TwoFactorEnabled: true,
		BackupCodes:      []string{"BACKUP-ONE"},
	}
}

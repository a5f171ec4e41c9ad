package cmd

import (
	"errors"
	"fmt"

	"lmsgate/internal/backend"
	"lmsgate/internal/cli"
	"lmsgate/internal/gateway"
	"lmsgate/internal/stepup"

	"github.com/spf13/cobra"
)

// maxCodeAttempts is how many verification codes an interactive login
// accepts before giving up.
const maxCodeAttempts = 3

// Login-specific flags
var (
	loginEmail         string
	loginPasswordStdin bool
	loginCode          string
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the learning platform",
	Long: `Sign in with email and password.

If the account has two-factor authentication enabled, you are asked for the
6-digit code from your authenticator app. A backup code is accepted instead.

Examples:
  lmsgate auth login
  lmsgate auth login --email a@x.com
  lmsgate auth login --email a@x.com --password-stdin --code 123456 < pw.txt`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (prompted when omitted)")
	authLoginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	authLoginCmd.Flags().StringVar(&loginCode, "code", "", "Two-factor or backup code (prompted when required and omitted)")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}
	defer services.Close()
	origin := services.Forwarder.Origin()

	var prompter cli.Prompter
	prompt := func() (cli.Prompter, error) {
		if prompter == nil {
			p, err := newPrompter(cmd)
			if err != nil {
				return nil, err
			}
			prompter = p
		}
		return prompter, nil
	}
	defer func() {
		if prompter != nil {
			_ = prompter.Close()
		}
	}()

	email := loginEmail
	if email == "" {
		if loginPasswordStdin {
			return fmt.Errorf("--email is required with --password-stdin")
		}
		p, err := prompt()
		if err != nil {
			return err
		}
		if email, err = p.Line("Email: "); err != nil {
			return err
		}
	}

	var password string
	if loginPasswordStdin {
		if password, err = readSecretLine(cmd.InOrStdin()); err != nil {
			return err
		}
	} else {
		p, err := prompt()
		if err != nil {
			return err
		}
		if password, err = p.Secret("Password: "); err != nil {
			return err
		}
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	machine := stepup.NewMachine(services.Backend, services.Session)

	p := cli.StartProgress(cmd.ErrOrStderr(), commonFlags.Quiet, "Signing in...")
	state, err := machine.SubmitPassword(ctx, email, password)
	if err != nil {
		p.Fail("Sign-in failed")
		return authFailure(err, origin, backend.PathLogin)
	}
	p.Stop()

	for attempt := 1; state == stepup.StateChallengePending; attempt++ {
		code := loginCode
		if code == "" || attempt > 1 {
			if loginPasswordStdin {
				return &cli.AuthFailedError{Origin: origin, Reason: errors.New("two-factor code required; pass --code")}
			}
			pr, err := prompt()
			if err != nil {
				return err
			}
			if code, err = pr.Secret("Two-factor code (or backup code): "); err != nil {
				_ = machine.Cancel()
				return err
			}
		}

		p := cli.StartProgress(cmd.ErrOrStderr(), commonFlags.Quiet, "Verifying code...")
		state, err = machine.SubmitCode(ctx, code)
		if err == nil {
			p.Stop()
			break
		}
		p.Fail("Verification failed")

		retryable := gateway.KindOf(err) == gateway.KindChallengeFailed || gateway.IsInvalidRequest(err)
		if !retryable || attempt >= maxCodeAttempts || loginPasswordStdin {
			_ = machine.Cancel()
			return authFailure(err, origin, backend.PathVerify2FA)
		}
		authPrintln(cmd, cli.FormatWarning(err.Error()))
	}

	result := machine.Result()
	who := email
	if result != nil && result.User != nil {
		who = fmt.Sprintf("%s (%s)", result.User.Email, result.User.Role)
	}
	authPrintln(cmd, cli.FormatSuccess("Signed in as "+who))
	if state == stepup.StateAuthenticatedAfterChallenge {
		authPrintln(cmd, "  Second factor verified.")
	}
	return nil
}

package cmd

import (
	"errors"
	"os"

	"lmsgate/internal/cli"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required, or the held credential expired.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates a login, challenge or 2FA change was rejected.
	ExitCodeAuthFailed = 3
	// ExitCodeRateLimited indicates the local rate limiter refused the call.
	ExitCodeRateLimited = 4
)

// commonFlags holds the persistent flags shared by all subcommands.
var commonFlags cli.CommandFlags

// rootCmd represents the base command for the lmsgate application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lmsgate",
	Short: "Client-side gateway for the learning platform API",
	Long: `lmsgate sits between local tools and the learning platform backend.

It forwards /api/ calls to the configured backend origin, caches reads,
rate limits each endpoint, keeps the session token fresh and walks through
the two-factor sign-in flow.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "lmsgate version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authExpired *cli.AuthExpiredError
	if errors.As(err, &authExpired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	var rateLimited *cli.RateLimitedError
	if errors.As(err, &rateLimited) {
		return ExitCodeRateLimited
	}

	return ExitCodeError
}

func init() {
	cli.RegisterCommonFlags(rootCmd, &commonFlags)
	rootCmd.AddCommand(newVersionCmd())
}

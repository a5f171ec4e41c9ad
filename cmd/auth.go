package cmd

import (
	"lmsgate/internal/backend"
	"lmsgate/internal/cli"

	"github.com/spf13/cobra"
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the learning platform session",
	Long: `Manage the session credential used by lmsgate.

Examples:
  lmsgate auth login                       # Sign in interactively
  lmsgate auth login --email a@x.com --password-stdin < pw.txt
  lmsgate auth status                      # Show the held credential
  lmsgate auth status --verify             # Confirm it with the backend
  lmsgate auth refresh                     # Force a token refresh
  lmsgate auth logout                      # Drop the credential`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drop the stored session credential",
	Long: `Drop the held session credential and empty the session slot.

Cached responses are discarded with it. Other running lmsgate processes
watching the same slot drop their copy as well.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogout,
}

// authRefreshCmd represents the auth refresh command
var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force a token refresh",
	Long: `Exchange the held token for a new one.

On failure the held token is kept unchanged.`,
	Args: cobra.NoArgs,
	RunE: runAuthRefresh,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRefreshCmd)
	authCmd.AddCommand(authLogoutCmd)
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}
	defer services.Close()

	held := services.Session.Current() != nil
	if err := services.Session.Logout(); err != nil {
		return err
	}

	if held {
		authPrintln(cmd, cli.FormatSuccess("Logged out"))
	} else {
		authPrintln(cmd, "No session was held.")
	}
	return nil
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}
	defer services.Close()
	origin := services.Forwarder.Origin()

	if _, err := services.Session.RequireCredential(); err != nil {
		return cli.Translate(err, origin, backend.PathRefresh)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	p := cli.StartProgress(cmd.ErrOrStderr(), commonFlags.Quiet, "Refreshing token...")
	cred, err := services.Session.Refresh(ctx)
	if err != nil {
		p.Fail("Token refresh failed")
		return cli.Translate(err, origin, backend.PathRefresh)
	}
	p.Stop()

	authPrintln(cmd, cli.FormatSuccess("Token refreshed"))
	authPrint(cmd, "  Expires:   %s\n", cli.FormatExpiry(services.Session.SecondsUntilExpiry(), cred.Claims.HasExpiry()))
	return nil
}

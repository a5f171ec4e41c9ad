package cmd

import (
	"time"

	"lmsgate/internal/app"
	"lmsgate/internal/backend"
	"lmsgate/internal/cli"
	"lmsgate/internal/gateway"
	"lmsgate/internal/session"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Status-specific flags
var (
	statusVerify bool
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the held session credential",
	Long: `Show the session credential held in the session slot.

Claims shown here are decoded from the token without signature
verification. Use --verify to confirm the token with the backend.

Examples:
  lmsgate auth status
  lmsgate auth status --verify`,
	Args: cobra.NoArgs,
	RunE: runAuthStatus,
}

func init() {
	authStatusCmd.Flags().BoolVar(&statusVerify, "verify", false, "Confirm the token with the backend (GET /api/auth/me)")
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}
	defer services.Close()

	cred := services.Session.Current()
	if cred == nil {
		cli.RenderFields(cmd.OutOrStdout(), "Session", []cli.Field{
			{Key: "Backend", Value: services.Forwarder.Origin()},
			{Key: "Status", Value: text.FgYellow.Sprint("Not authenticated")},
			{Key: "Storage", Value: storageDescription(services)},
		})
		authPrintln(cmd, "Run: lmsgate auth login")
		return nil
	}

	status := text.FgGreen.Sprint("Authenticated")
	var verifyNote string
	if statusVerify {
		status, verifyNote = verifyStatus(cmd, services)
	}

	cli.RenderFields(cmd.OutOrStdout(), "Session", credentialFields(services, cred, status))
	if verifyNote != "" {
		authPrintln(cmd, verifyNote)
	}
	return nil
}

// verifyStatus asks the backend whether the held token is still accepted.
// A rejected token is dropped locally.
func verifyStatus(cmd *cobra.Command, services *app.Services) (status, note string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	p := cli.StartProgress(cmd.ErrOrStderr(), commonFlags.Quiet, "Verifying with backend...")
	_, err := services.Backend.Me(ctx)
	p.Stop()

	switch {
	case err == nil:
		return text.FgGreen.Sprint("Authenticated (verified)"), ""
	case gateway.IsNetworkFailure(err):
		return text.FgRed.Sprint("Connection failed"), cli.DescribeConnectionError(err)
	}
	if be, ok := backend.AsBackendError(err); ok && be.Unauthorized() {
		_ = services.Session.Logout()
		return text.FgYellow.Sprint("Token rejected"), "The backend no longer accepts this session. Run: lmsgate auth login"
	}
	return text.FgRed.Sprint("Unverified"), err.Error()
}

func credentialFields(services *app.Services, cred *session.Credential, status string) []cli.Field {
	fields := []cli.Field{
		{Key: "Backend", Value: services.Forwarder.Origin()},
		{Key: "Status", Value: status},
		{Key: "Subject", Value: cred.Claims.Subject},
		{Key: "Email", Value: cred.Claims.Email},
		{Key: "Role", Value: cred.Claims.Role},
		{Key: "Expires", Value: cli.FormatExpiry(services.Session.SecondsUntilExpiry(), cred.Claims.HasExpiry())},
	}
	if !cred.StoredAt.IsZero() {
		fields = append(fields, cli.Field{Key: "Stored", Value: cred.StoredAt.Local().Format(time.RFC1123)})
	}
	fields = append(fields, cli.Field{Key: "Storage", Value: storageDescription(services)})
	return fields
}

func storageDescription(services *app.Services) string {
	if !services.Store.FileMode() {
		return "memory"
	}
	return services.Store.Path()
}

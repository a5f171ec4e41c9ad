package cmd

import (
	"lmsgate/internal/backend"
	"lmsgate/internal/cli"
	"lmsgate/internal/stepup"

	"github.com/spf13/cobra"
)

// 2FA flags
var (
	twoFASecret string
	twoFACode   string
)

// twoFACmd represents the 2fa command group
var twoFACmd = &cobra.Command{
	Use:   "2fa",
	Short: "Manage two-factor authentication for the signed-in account",
	Long: `Enroll in or remove two-factor authentication.

Enrollment takes two steps:
  lmsgate 2fa setup                                 # prints a secret and otpauth URL
  lmsgate 2fa enable --secret <secret> --code <code> # confirms with the first code

Backup codes are printed once by 'enable' and cannot be shown again.`,
}

var twoFASetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Start enrollment and print the authenticator secret",
	Args:  cobra.NoArgs,
	RunE:  runTwoFASetup,
}

var twoFAEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Confirm enrollment with the first code",
	Args:  cobra.NoArgs,
	RunE:  runTwoFAEnable,
}

var twoFADisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn off two-factor authentication",
	Args:  cobra.NoArgs,
	RunE:  runTwoFADisable,
}

func init() {
	rootCmd.AddCommand(twoFACmd)
	twoFACmd.AddCommand(twoFASetupCmd)
	twoFACmd.AddCommand(twoFAEnableCmd)
	twoFACmd.AddCommand(twoFADisableCmd)

	twoFAEnableCmd.Flags().StringVar(&twoFASecret, "secret", "", "Secret printed by '2fa setup'")
	twoFAEnableCmd.Flags().StringVar(&twoFACode, "code", "", "Current code from the authenticator app")
	_ = twoFAEnableCmd.MarkFlagRequired("secret")
	_ = twoFAEnableCmd.MarkFlagRequired("code")

	twoFADisableCmd.Flags().StringVar(&twoFACode, "code", "", "Current code or a backup code")
	_ = twoFADisableCmd.MarkFlagRequired("code")
}

func runTwoFASetup(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}
	defer services.Close()
	origin := services.Forwarder.Origin()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	enrollment := stepup.NewEnrollment(services.Backend, stepup.EnrollmentIdle)
	p := cli.StartProgress(cmd.ErrOrStderr(), commonFlags.Quiet, "Requesting secret...")
	setup, err := enrollment.Begin(ctx)
	if err != nil {
		p.Fail("Setup failed")
		return cli.Translate(err, origin, backend.PathSetup2FA)
	}
	p.Stop()

	cli.RenderFields(cmd.OutOrStdout(), "Two-factor setup", []cli.Field{
		{Key: "Secret", Value: setup.Secret},
		{Key: "otpauth URL", Value: setup.OTPAuthURL},
	})
	authPrintln(cmd, "Add the secret to your authenticator app, then run:")
	authPrint(cmd, "  lmsgate 2fa enable --secret %s --code <code>\n", setup.Secret)
	return nil
}

func runTwoFAEnable(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}
	defer services.Close()
	origin := services.Forwarder.Origin()

	enrollment := stepup.NewEnrollment(services.Backend, stepup.EnrollmentIdle)
	if err := enrollment.Resume(twoFASecret); err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	p := cli.StartProgress(cmd.ErrOrStderr(), commonFlags.Quiet, "Enabling two-factor authentication...")
	codes, err := enrollment.Confirm(ctx, twoFACode)
	if err != nil {
		p.Fail("Enable failed")
		return authFailure(err, origin, backend.PathEnable2FA)
	}
	p.Stop()

	authPrintln(cmd, cli.FormatSuccess("Two-factor authentication enabled"))
	if backup, ok := codes.Reveal(); ok && len(backup) > 0 {
		authPrintln(cmd, cli.FormatWarning("Store these backup codes now. They will not be shown again."))
		cli.RenderList(cmd.OutOrStdout(), "Backup code", backup)
	}
	return nil
}

func runTwoFADisable(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}
	defer services.Close()
	origin := services.Forwarder.Origin()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	enrollment := stepup.NewEnrollment(services.Backend, stepup.EnrollmentEnabled)
	p := cli.StartProgress(cmd.ErrOrStderr(), commonFlags.Quiet, "Disabling two-factor authentication...")
	if err := enrollment.Disable(ctx, twoFACode); err != nil {
		p.Fail("Disable failed")
		return authFailure(err, origin, backend.PathDisable2FA)
	}
	p.Stop()

	authPrintln(cmd, cli.FormatSuccess("Two-factor authentication disabled"))
	return nil
}

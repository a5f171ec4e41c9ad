package cli

import (
	"github.com/spf13/cobra"
)

// CommandFlags holds the flag values shared by every lmsgate command.
type CommandFlags struct {
	// Debug enables debug logging
	Debug bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// ConfigPath specifies a custom configuration directory path
	ConfigPath string
}

// RegisterCommonFlags registers the shared flags as persistent flags on cmd.
//
// The registered flags are:
//   - --debug: Enable debug logging
//   - --quiet/-q: Suppress non-essential output
//   - --config-path: Configuration directory (default ~/.config/lmsgate)
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config-path", "", "Configuration directory (default ~/.config/lmsgate)")
}

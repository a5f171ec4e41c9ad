package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"lmsgate/internal/app"
	"lmsgate/internal/backend"
	"lmsgate/internal/cli"

	"github.com/spf13/cobra"
)

// DefaultCommandTimeout bounds the network calls of one-shot commands.
const DefaultCommandTimeout = 2 * time.Minute

// newPrompter opens the interactive prompter. Tests replace it.
var newPrompter = func(cmd *cobra.Command) (cli.Prompter, error) {
	in, ok := cmd.InOrStdin().(io.ReadCloser)
	if !ok {
		in = io.NopCloser(cmd.InOrStdin())
	}
	return cli.NewReadlinePrompter(in, cmd.OutOrStdout())
}

// loadServices bootstraps the application for a one-shot command. Logs are
// discarded unless --debug is set.
func loadServices() (*app.Services, error) {
	cfg := app.NewConfig(commonFlags.Debug, !commonFlags.Debug, commonFlags.ConfigPath)
	application, err := app.NewApplication(cfg)
	if err != nil {
		return nil, err
	}
	return application.Services(), nil
}

// commandContext returns the command context bounded by DefaultCommandTimeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, DefaultCommandTimeout)
}

// readSecretLine reads the first line of r, as used by --password-stdin.
func readSecretLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("no password provided on stdin")
	}
	return line, nil
}

// authFailure maps a login or 2FA error to a CLI error. Rejections by the
// backend become AuthFailedError.
func authFailure(err error, origin, endpoint string) error {
	if be, ok := backend.AsBackendError(err); ok && be.Rejected() {
		return &cli.AuthFailedError{Origin: origin, Reason: err}
	}
	return cli.Translate(err, origin, endpoint)
}

// authPrint writes to the command output.
func authPrint(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

func authPrintln(cmd *cobra.Command, a ...interface{}) {
	fmt.Fprintln(cmd.OutOrStdout(), a...)
}

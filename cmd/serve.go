package cmd

import (
	"context"
	"fmt"

	"lmsgate/internal/app"

	"github.com/spf13/cobra"
)

// serveHost and servePort override server.host and server.port from config.yaml.
var (
	serveHost string
	servePort int
)

// serveCmd starts the local gateway.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local gateway",
	Long: `Starts the lmsgate gateway on server.host:server.port.

Every request to /api/<path> is forwarded to <backend.origin>/api/<path>
through the rate limiter, the session credential and the response cache.
The held session token is refreshed in the background before it expires.

Endpoints:
  /api/...   passthrough to the backend
  /health    liveness probe
  /metrics   Prometheus metrics (server.metrics: true)

Configuration:
  lmsgate loads config.yaml from ~/.config/lmsgate, or from --config-path.
  The backend origin can be set with LMSGATE_BACKEND_ORIGIN (or API_URL).`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(commonFlags.Debug, false, commonFlags.ConfigPath)
	cfg.Host = serveHost
	cfg.Port = servePort

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides server.port)")
}

package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"lmsgate/internal/config"
	"lmsgate/internal/server"
	"lmsgate/pkg/logging"
)

// Application represents the main application structure that bootstraps and runs lmsgate.
// It encapsulates configuration and the Services graph for one process.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: initialize logging, load configuration, set up services
//  2. Execution phase: serve the gateway until interrupted
//
// Example usage:
//
//	cfg := app.NewConfig(true, false, "")  // debug enabled
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance with the provided configuration.
// This function performs the complete bootstrap sequence:
//
//  1. Configures logging based on debug and silent settings
//  2. Loads config.yaml from cfg.ConfigPath (or ~/.config/lmsgate)
//  3. Applies listener overrides from flags
//  4. Initializes all services
//
// The function returns an error if configuration loading or service
// initialization fails.
func NewApplication(cfg *Config) (*Application, error) {
	var logOutput io.Writer = os.Stderr
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.InitForCLI(levelFor(cfg, ""), logOutput)

	gatewayCfg, err := config.LoadConfig(cfg.ConfigPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load lmsgate configuration")
		return nil, fmt.Errorf("failed to load lmsgate configuration: %w", err)
	}

	// Re-initialize with the configured level now that it is known.
	logging.InitForCLI(levelFor(cfg, gatewayCfg.Logging.Level), logOutput)

	if cfg.Host != "" {
		gatewayCfg.Server.Host = cfg.Host
	}
	if cfg.Port != 0 {
		gatewayCfg.Server.Port = cfg.Port
	}
	cfg.Gateway = &gatewayCfg

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

func levelFor(cfg *Config, configured string) logging.LogLevel {
	if cfg.Debug {
		return logging.LevelDebug
	}
	if configured == "" {
		return logging.LevelInfo
	}
	return logging.ParseLevel(configured)
}

// Services returns the initialized services. One-shot CLI commands use them
// directly without starting the server.
func (a *Application) Services() *Services {
	return a.services
}

// Close releases background resources.
func (a *Application) Close() {
	a.services.Close()
}

// Run serves the gateway until ctx is cancelled or SIGINT/SIGTERM arrives.
func (a *Application) Run(ctx context.Context) error {
	srv := server.New(server.Config{
		Host: a.config.Gateway.Server.Host,
		Port: a.config.Gateway.Server.Port,
	}, a.services.HTTP.CreateMux())
	return runServe(ctx, a.services, srv)
}

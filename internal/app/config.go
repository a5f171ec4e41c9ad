package app

import (
	"lmsgate/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// Silent discards log output. Used by one-shot CLI commands.
	Silent bool

	// Custom configuration path (optional)
	// When empty, ~/.config/lmsgate is used
	ConfigPath string

	// Listener overrides from flags. Zero values keep the configured ones.
	Host string
	Port int

	// Gateway configuration, populated by NewApplication
	Gateway *config.GatewayConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug, silent bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		ConfigPath: configPath,
	}
}

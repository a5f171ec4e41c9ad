package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lmsgate/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/lmsgate"
	configFileName = "config.yaml"

	// EnvBackendOrigin overrides backend.origin.
	EnvBackendOrigin = "LMSGATE_BACKEND_ORIGIN"
	// EnvBackendOriginFallback is consulted when EnvBackendOrigin is unset.
	EnvBackendOriginFallback = "API_URL"
	// EnvLogLevel overrides logging.level.
	EnvLogLevel = "LMSGATE_LOG_LEVEL"
)

// GetDefaultConfigPath returns the user configuration directory (~/.config/lmsgate).
func GetDefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads config.yaml from configPath (or the default user directory
// when empty), applies environment overrides and validates the result.
// A missing config.yaml is not an error; defaults are used.
func LoadConfig(configPath string) (GatewayConfig, error) {
	if configPath == "" {
		var err error
		configPath, err = GetDefaultConfigPath()
		if err != nil {
			return GatewayConfig{}, err
		}
	}

	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return GatewayConfig{}, ConfigurationError{
			FilePath:  configFilePath,
			ErrorType: "io",
			Message:   "failed to read configuration file",
			Details:   err.Error(),
		}
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return GatewayConfig{}, ConfigurationError{
				FilePath:    configFilePath,
				ErrorType:   "parse",
				Message:     "malformed YAML",
				Details:     err.Error(),
				Suggestions: []string{"Durations use Go syntax, e.g. 30s, 5m, 1h"},
			}
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	if config.Session.StorageDir == "" {
		config.Session.StorageDir = configPath
	}

	ApplyEnvOverrides(&config, os.Getenv)

	if err := Validate(config); err != nil {
		return GatewayConfig{}, ConfigurationError{
			FilePath:    configFilePath,
			ErrorType:   "validation",
			Message:     "invalid configuration",
			Details:     err.Error(),
			Suggestions: []string{fmt.Sprintf("Set backend.origin in %s or export %s", configFilePath, EnvBackendOrigin)},
		}
	}

	return config, nil
}

// ApplyEnvOverrides applies environment variables on top of file configuration.
// getenv is injected so tests do not have to mutate the process environment.
func ApplyEnvOverrides(config *GatewayConfig, getenv func(string) string) {
	if origin := getenv(EnvBackendOrigin); origin != "" {
		config.Backend.Origin = origin
	} else if origin := getenv(EnvBackendOriginFallback); origin != "" && config.Backend.Origin == "" {
		config.Backend.Origin = origin
	}
	config.Backend.Origin = strings.TrimSuffix(config.Backend.Origin, "/")

	if level := getenv(EnvLogLevel); level != "" {
		config.Logging.Level = level
	}
}

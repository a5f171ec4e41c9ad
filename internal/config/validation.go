package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks a GatewayConfig for missing or inconsistent values.
func Validate(cfg GatewayConfig) error {
	var errs ValidationErrors

	validateOrigin(&errs, cfg.Backend.Origin)
	if cfg.Backend.Timeout < 0 {
		errs.Add("backend.timeout", "must not be negative", cfg.Backend.Timeout)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs.Add("server.port", "must be between 1 and 65535", cfg.Server.Port)
	}

	if cfg.Cache.DefaultTTL < 0 {
		errs.Add("cache.defaultTTL", "must not be negative", cfg.Cache.DefaultTTL)
	}
	for i, route := range cfg.Cache.Routes {
		field := fmt.Sprintf("cache.routes[%d]", i)
		if strings.TrimSpace(route.Pattern) == "" {
			errs.Add(field+".pattern", "is required")
		}
		if route.TTL < 0 {
			errs.Add(field+".ttl", "must not be negative", route.TTL)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.MaxRequests <= 0 {
			errs.Add("rateLimit.maxRequests", "must be positive", cfg.RateLimit.MaxRequests)
		}
		if cfg.RateLimit.Window <= 0 {
			errs.Add("rateLimit.window", "must be positive", cfg.RateLimit.Window)
		}
	}

	if cfg.Session.RefreshThreshold < 0 {
		errs.Add("session.refreshThreshold", "must not be negative", cfg.Session.RefreshThreshold)
	}
	if cfg.Session.CheckInterval <= 0 {
		errs.Add("session.checkInterval", "must be positive", cfg.Session.CheckInterval)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateOrigin(errs *ValidationErrors, origin string) {
	if strings.TrimSpace(origin) == "" {
		errs.Add("backend.origin", "is required")
		return
	}
	u, err := url.Parse(origin)
	if err != nil {
		errs.Add("backend.origin", fmt.Sprintf("is not a valid URL: %v", err), origin)
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		errs.Add("backend.origin", "must use http or https", origin)
	}
	if u.Host == "" {
		errs.Add("backend.origin", "must include a host", origin)
	}
	if u.Path != "" && u.Path != "/" {
		errs.Add("backend.origin", "must not include a path; /api/ is appended automatically", origin)
	}
}

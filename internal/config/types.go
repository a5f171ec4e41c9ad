package config

import "time"

// GatewayConfig is the top-level configuration structure for lmsgate.
type GatewayConfig struct {
	Backend   BackendConfig   `yaml:"backend"`
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BackendConfig describes the learning-platform backend requests are forwarded to.
type BackendConfig struct {
	// Origin is the scheme://host[:port] of the backend. Requests for
	// /api/<path> are forwarded to <Origin>/api/<path>.
	Origin string `yaml:"origin"`

	// Timeout bounds each outbound call. Zero disables the timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig configures the local gateway started by `lmsgate serve`.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// AttachSession makes the gateway attach the locally held session
	// credential to inbound requests that carry no Authorization header.
	AttachSession bool `yaml:"attachSession"`

	// Metrics exposes Prometheus metrics on /metrics.
	Metrics bool `yaml:"metrics"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`

	// DefaultTTL applies to cacheable routes not matched by Routes.
	DefaultTTL time.Duration `yaml:"defaultTTL"`

	// Routes is an ordered {pattern: ttl} table; the first matching pattern wins.
	// A user-supplied list replaces the default list entirely.
	Routes []RouteTTL `yaml:"routes,omitempty"`

	// InvalidateOnWrite drops cached entries under the same top-level resource
	// after a successful write.
	InvalidateOnWrite bool `yaml:"invalidateOnWrite"`
}

// RouteTTL binds a route pattern to a cache TTL. A zero TTL disables caching
// for matching routes.
type RouteTTL struct {
	Pattern string        `yaml:"pattern"`
	TTL     time.Duration `yaml:"ttl"`
}

// RateLimitConfig configures the per-endpoint sliding window limiter.
type RateLimitConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxRequests int           `yaml:"maxRequests"`
	Window      time.Duration `yaml:"window"`
}

// SessionConfig configures credential persistence and refresh.
type SessionConfig struct {
	// StorageDir holds the session slot file. Defaults to ~/.config/lmsgate.
	StorageDir string `yaml:"storageDir,omitempty"`

	// FileMode persists the credential to disk. When false it lives in memory only.
	FileMode bool `yaml:"fileMode"`

	// RefreshThreshold is how long before expiry a proactive refresh is attempted.
	RefreshThreshold time.Duration `yaml:"refreshThreshold"`

	// CheckInterval is how often the background refresher inspects the credential.
	CheckInterval time.Duration `yaml:"checkInterval"`

	// WatchFile reloads the credential when another process rewrites the slot.
	WatchFile bool `yaml:"watchFile"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

package config

import "time"

const (
	// DefaultBackendTimeout is the default timeout for outbound backend calls.
	DefaultBackendTimeout = 30 * time.Second

	// DefaultServerPort is the default port of the local gateway.
	DefaultServerPort = 8090

	// DefaultCacheTTL is the short default window for cached reads.
	DefaultCacheTTL = 60 * time.Second

	// DefaultConfigurationTTL applies to rarely-changing configuration-style data.
	DefaultConfigurationTTL = 30 * time.Minute

	// DefaultRateLimitMaxRequests is the number of calls allowed per endpoint per window.
	DefaultRateLimitMaxRequests = 20

	// DefaultRateLimitWindow is the sliding window length.
	DefaultRateLimitWindow = 60 * time.Second

	// DefaultRefreshThreshold is how long before expiry tokens are refreshed.
	DefaultRefreshThreshold = 5 * time.Minute

	// DefaultRefreshCheckInterval is how often the refresher runs.
	DefaultRefreshCheckInterval = 30 * time.Second
)

// DefaultCacheRoutes returns the default route TTL table.
func DefaultCacheRoutes() []RouteTTL {
	return []RouteTTL{
		{Pattern: "auth/**", TTL: 0},
		{Pattern: "2fa/**", TTL: 0},
		{Pattern: "user2fa/**", TTL: 0},
		{Pattern: "settings/**", TTL: DefaultConfigurationTTL},
		{Pattern: "categories/**", TTL: DefaultConfigurationTTL},
	}
}

// GetDefaultConfig returns the default configuration for lmsgate.
func GetDefaultConfig() GatewayConfig {
	return GatewayConfig{
		Backend: BackendConfig{
			Timeout: DefaultBackendTimeout,
		},
		Server: ServerConfig{
			Host:          "localhost",
			Port:          DefaultServerPort,
			AttachSession: true,
			Metrics:       true,
		},
		Cache: CacheConfig{
			Enabled:           true,
			DefaultTTL:        DefaultCacheTTL,
			Routes:            DefaultCacheRoutes(),
			InvalidateOnWrite: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxRequests: DefaultRateLimitMaxRequests,
			Window:      DefaultRateLimitWindow,
		},
		Session: SessionConfig{
			FileMode:         true,
			RefreshThreshold: DefaultRefreshThreshold,
			CheckInterval:    DefaultRefreshCheckInterval,
			WatchFile:        true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

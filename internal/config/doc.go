// Package config loads the lmsgate configuration.
//
// Configuration is read from config.yaml in ~/.config/lmsgate (or the
// directory passed with --config-path), layered on top of GetDefaultConfig,
// then overridden by environment variables:
//
//	LMSGATE_BACKEND_ORIGIN   backend.origin (API_URL is used as a fallback)
//	LMSGATE_LOG_LEVEL        logging.level
//
// Example config.yaml:
//
//	backend:
//	  origin: https://lms.example.com
//	  timeout: 30s
//	server:
//	  port: 8090
//	  attachSession: true
//	cache:
//	  defaultTTL: 60s
//	  routes:
//	    - pattern: "settings/**"
//	      ttl: 30m
//	    - pattern: "auth/**"
//	      ttl: 0s
//	rateLimit:
//	  maxRequests: 20
//	  window: 60s
//	session:
//	  refreshThreshold: 5m
package config

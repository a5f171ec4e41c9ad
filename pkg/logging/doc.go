// Package logging provides the structured logging used across lmsgate.
//
// It is a thin layer over log/slog that tags every entry with a subsystem
// (Gateway, Cache, RateLimit, Proxy, Session, StepUp, Config, Server, ...)
// and offers an Audit helper for security-relevant events.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Gateway", "Listening on %s", addr)
//	logging.Debug("Cache", "hit for %s", endpoint)
//	logging.Warn("Session", "Token expired, login required")
//	logging.Error("Proxy", err, "Backend unreachable")
//
// # Audit Logging
//
//	logging.Audit(logging.AuditEvent{
//	    Action:  "token_refresh",
//	    Outcome: "success",
//	    Subject: logging.TruncateIdentifier(email),
//	})
//
// Audit events are logged at INFO level with an [AUDIT] prefix. Bearer tokens,
// temp tokens, passwords and second-factor codes are never logged.
package logging

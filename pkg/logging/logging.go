package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	lmsstrings "lmsgate/pkg/strings"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to INFO for unknown
	}
}

// ParseLevel converts a level name ("debug", "info", "warn", "error") into a LogLevel.
// Unknown names map to LevelInfo.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// InitForCLI initializes the logging system for CLI and server use.
// This should be called once at application startup.
func InitForCLI(filterLevel LogLevel, output io.Writer) {
	opts := &slog.HandlerOptions{
		Level: filterLevel.SlogLevel(),
	}
	logger := slog.New(slog.NewTextHandler(output, opts))

	mu.Lock()
	defaultLogger = logger
	mu.Unlock()

	slog.SetDefault(logger)
}

// Logger returns the configured slog logger, falling back to slog.Default()
// when InitForCLI has not been called.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if defaultLogger == nil {
		return slog.Default()
	}
	return defaultLogger
}

func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	logger := Logger()
	if !logger.Enabled(context.Background(), level.SlogLevel()) {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	logger.LogAttrs(context.Background(), level.SlogLevel(), msg, attrs...)
}

// Debug logs a debug message.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}

// AuditEvent describes a security-relevant action such as a login, a second-factor
// verification, a token refresh or a logout.
// Token values must never be placed in an AuditEvent.
type AuditEvent struct {
	// Action is the operation, e.g. "login", "challenge_verify", "token_refresh".
	Action string
	// Outcome is "success", "failure" or "pending".
	Outcome string
	// Subject identifies the user, truncated with TruncateIdentifier.
	Subject string
	// Target is the backend origin or endpoint involved.
	Target string
	// Reason carries a short failure reason.
	Reason string
}

// Audit logs an AuditEvent at INFO level with an [AUDIT] prefix.
func Audit(ev AuditEvent) {
	logger := Logger()
	attrs := []slog.Attr{
		slog.String("subsystem", "Audit"),
		slog.String("action", ev.Action),
		slog.String("outcome", ev.Outcome),
		slog.Time("at", time.Now()),
	}
	if ev.Subject != "" {
		attrs = append(attrs, slog.String("subject", ev.Subject))
	}
	if ev.Target != "" {
		attrs = append(attrs, slog.String("target", ev.Target))
	}
	if ev.Reason != "" {
		attrs = append(attrs, slog.String("reason", lmsstrings.TruncateLine(ev.Reason, lmsstrings.DefaultLineMaxLen)))
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "[AUDIT] "+ev.Action, attrs...)
}

// auditIdentifierPrefixLength is how many characters of an identifier are kept in logs.
const auditIdentifierPrefixLength = 8

// TruncateIdentifier shortens emails, subjects and fingerprints for logging.
func TruncateIdentifier(id string) string {
	if len(id) <= auditIdentifierPrefixLength {
		return id
	}
	return id[:auditIdentifierPrefixLength] + "..."
}

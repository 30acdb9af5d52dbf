package logger

import (
	"context"
	"log/slog"
	"time"
)

// SecurityEvent represents a suspicious-activity or lifecycle event worth
// an immediate structured log line, independent of the persisted audit trail.
type SecurityEvent struct {
	EventType     string
	RequestID     string
	Email         string // masked before logging
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// SecurityLogger provides structured security event logging
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger creates a new security logger
func NewSecurityLogger(logger *slog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger,
	}
}

// LogEvent logs a security event at info or warn level depending on outcome
func (sl *SecurityLogger) LogEvent(event SecurityEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	if event.Success {
		sl.logger.LogAttrs(context.Background(), slog.LevelInfo, "security", attrs...)
	} else {
		sl.logger.LogAttrs(context.Background(), slog.LevelWarn, "security", attrs...)
	}
}

// LogRateLimitViolation logs a rejected request due to rate limiting
func (sl *SecurityLogger) LogRateLimitViolation(key, ipAddress string) {
	sl.logger.LogAttrs(context.Background(), slog.LevelWarn, "security",
		slog.String("audit_type", "security"),
		slog.String("event_type", "rate_limit_violation"),
		slog.String("limit_key", key),
		slog.String("ip_address", ipAddress),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}

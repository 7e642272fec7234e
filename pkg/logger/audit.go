package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security or production audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	Email         string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes audit records through slog with a fixed audit_type attribute
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		now:    time.Now,
	}
}

// LogAuthAttempt logs login, logout and password reset outcomes. Emails are masked.
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := al.baseAttrs("auth", event.EventType)
	attrs = append(attrs, slog.Bool("success", event.Success))

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	attrs = appendMetadata(attrs, event.Metadata)

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

// LogMachineAction logs writes against the machine registry and event log
func (al *AuditLogger) LogMachineAction(eventType, userID string, machineID int64, metadata map[string]string) {
	attrs := al.baseAttrs("machine", eventType)
	attrs = append(attrs, slog.Int64("machine_id", machineID))
	if userID != "" {
		attrs = append(attrs, slog.String("user_id", userID))
	}
	attrs = appendMetadata(attrs, metadata)

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}

// LogAccountAction logs user administration such as registration
func (al *AuditLogger) LogAccountAction(eventType, userID, ipAddress string, metadata map[string]string) {
	attrs := al.baseAttrs("account", eventType)
	attrs = append(attrs, slog.String("user_id", userID))
	if ipAddress != "" {
		attrs = append(attrs, slog.String("ip_address", ipAddress))
	}
	attrs = appendMetadata(attrs, metadata)

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}

func (al *AuditLogger) baseAttrs(auditType, eventType string) []slog.Attr {
	return []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", eventType),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}
}

func appendMetadata(attrs []slog.Attr, metadata map[string]string) []slog.Attr {
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}
	return attrs
}

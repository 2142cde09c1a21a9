package logger

import (
	"context"
	"log/slog"
	"time"
)

// SecurityEvent is a structured record of an authentication-relevant action
type SecurityEvent struct {
	EventType     string
	UserID        string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// SecurityLogger writes security events through slog
type SecurityLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewSecurityLogger(logger *slog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger,
		now:    time.Now,
	}
}

// Log records an event. Failures are logged at warn level.
func (sl *SecurityLogger) Log(ctx context.Context, event SecurityEvent) {
	if sl == nil || sl.logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", sl.now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	sl.logger.LogAttrs(ctx, level, "security", attrs...)
}

// Success is shorthand for a successful event with optional metadata pairs
func (sl *SecurityLogger) Success(ctx context.Context, eventType, userID string, metadata map[string]string) {
	sl.Log(ctx, SecurityEvent{EventType: eventType, UserID: userID, Success: true, Metadata: metadata})
}

// Failure is shorthand for a failed event
func (sl *SecurityLogger) Failure(ctx context.Context, eventType, userID, reason string) {
	sl.Log(ctx, SecurityEvent{EventType: eventType, UserID: userID, FailureReason: reason})
}

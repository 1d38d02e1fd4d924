package observability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Audit event types.
const (
	AuditGate    = "gate"
	AuditSession = "session"
	AuditConfig  = "config"
)

// AuditEvent is one line of the audit log: who was let in or reset, and config reloads.
type AuditEvent struct {
	Type      string
	Timestamp time.Time
	Actor     string // user:<id>, "file" or "system"
	Action    string // membership_check, session_reset, texts_reload
	Status    string // success, denied, failure
	Metadata  map[string]interface{}
}

// AuditLogger writes audit events as JSON lines, separate from the application log.
type AuditLogger struct {
	mu     sync.Mutex
	logger zerolog.Logger
	file   *os.File
}

var (
	auditMu   sync.RWMutex
	auditInst = &AuditLogger{logger: zerolog.New(os.Stderr).With().Timestamp().Logger()}
)

// GetAuditLogger returns the process audit logger; stderr until InitAuditLogger succeeds.
func GetAuditLogger() *AuditLogger {
	auditMu.RLock()
	defer auditMu.RUnlock()
	return auditInst
}

// InitAuditLogger redirects audit events to path, closing any previous file.
func InitAuditLogger(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create audit directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	auditMu.Lock()
	prev := auditInst
	auditInst = &AuditLogger{
		logger: zerolog.New(file).With().Timestamp().Logger(),
		file:   file,
	}
	auditMu.Unlock()

	prev.Close()
	return nil
}

// Record writes the event and mirrors it onto the active span, if any.
func (a *AuditLogger) Record(ctx context.Context, event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	var traceID string
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		traceID = span.SpanContext().TraceID().String()
		span.AddEvent("audit."+event.Action, trace.WithAttributes(
			attribute.String("audit.type", event.Type),
			attribute.String("audit.status", event.Status),
			attribute.String("audit.actor", event.Actor),
		))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entry := a.logger.Log().
		Time("at", event.Timestamp).
		Str("type", event.Type).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("status", event.Status)
	if traceID != "" {
		entry = entry.Str("trace_id", traceID)
	}
	if len(event.Metadata) > 0 {
		entry = entry.Fields(event.Metadata)
	}
	entry.Send()
}

// Close closes the audit file; stderr loggers have nothing to close.
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// Actor formats a platform user id as an audit actor.
func Actor(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// RecordGateAudit logs an access gate decision for a user.
func RecordGateAudit(ctx context.Context, userID int64, status string, metadata map[string]interface{}) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:     AuditGate,
		Actor:    Actor(userID),
		Action:   "membership_check",
		Status:   status,
		Metadata: metadata,
	})
}

// RecordSessionAudit logs a lifecycle change of a user's session (restart, language change).
func RecordSessionAudit(ctx context.Context, userID int64, action string, metadata map[string]interface{}) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:     AuditSession,
		Actor:    Actor(userID),
		Action:   action,
		Status:   "success",
		Metadata: metadata,
	})
}

// RecordConfigAudit logs a configuration change made outside a user conversation.
func RecordConfigAudit(ctx context.Context, action, actor string, metadata map[string]interface{}) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:     AuditConfig,
		Actor:    actor,
		Action:   action,
		Status:   "success",
		Metadata: metadata,
	})
}

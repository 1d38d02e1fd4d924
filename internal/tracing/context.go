package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// UpdateIDKey is the context key for the inbound platform update id
	UpdateIDKey ContextKey = "update_id"
	// UserIDKey is the context key for the platform user id
	UserIDKey ContextKey = "user_id"
	// WorkflowKey is the context key for the workflow handling the event
	WorkflowKey ContextKey = "workflow"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID  string
	UpdateID int
	UserID   int64
	Workflow string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithUpdateID adds the platform update id to the context
func WithUpdateID(ctx context.Context, updateID int) context.Context {
	return context.WithValue(ctx, UpdateIDKey, updateID)
}

// WithUserID adds the platform user id to the context
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithWorkflow adds the workflow name to the context
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	return context.WithValue(ctx, WorkflowKey, workflow)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetUpdateID retrieves the update id from the context, 0 if absent
func GetUpdateID(ctx context.Context) int {
	if id, ok := ctx.Value(UpdateIDKey).(int); ok {
		return id
	}
	return 0
}

// GetUserID retrieves the user id from the context, 0 if absent
func GetUserID(ctx context.Context) int64 {
	if id, ok := ctx.Value(UserIDKey).(int64); ok {
		return id
	}
	return 0
}

// GetWorkflow retrieves the workflow name from the context
func GetWorkflow(ctx context.Context) string {
	if wf, ok := ctx.Value(WorkflowKey).(string); ok {
		return wf
	}
	return ""
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:  GetTraceID(ctx),
		UpdateID: GetUpdateID(ctx),
		UserID:   GetUserID(ctx),
		Workflow: GetWorkflow(ctx),
	}
}

// NewContext creates a new context with tracing information
func NewContext(ctx context.Context, tc *TraceContext) context.Context {
	if tc.TraceID != "" {
		ctx = WithTraceID(ctx, tc.TraceID)
	}
	if tc.UpdateID != 0 {
		ctx = WithUpdateID(ctx, tc.UpdateID)
	}
	if tc.UserID != 0 {
		ctx = WithUserID(ctx, tc.UserID)
	}
	if tc.Workflow != "" {
		ctx = WithWorkflow(ctx, tc.Workflow)
	}
	return ctx
}

// NewUpdateContext creates the context an inbound update is processed under, with a fresh trace ID.
func NewUpdateContext(ctx context.Context, updateID int, userID int64) context.Context {
	ctx = WithTraceID(ctx, NewTraceID())
	ctx = WithUpdateID(ctx, updateID)
	return WithUserID(ctx, userID)
}

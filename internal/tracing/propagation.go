package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// PropagateToLogger adds tracing context to a zerolog logger
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)

	if tc.TraceID != "" {
		logger = logger.With().Str("trace_id", tc.TraceID).Logger()
	}
	if tc.UpdateID != 0 {
		logger = logger.With().Int("update_id", tc.UpdateID).Logger()
	}
	if tc.UserID != 0 {
		logger = logger.With().Int64("user_id", tc.UserID).Logger()
	}
	if tc.Workflow != "" {
		logger = logger.With().Str("workflow", tc.Workflow).Logger()
	}

	return logger
}

// LoggerFromContext creates a logger with tracing context from the given context
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	return PropagateToLogger(ctx, baseLogger)
}

// MergeContext merges tracing information from source context into target context
func MergeContext(target, source context.Context) context.Context {
	tc := FromContext(source)

	if tc.TraceID != "" && GetTraceID(target) == "" {
		target = WithTraceID(target, tc.TraceID)
	}
	if tc.UpdateID != 0 && GetUpdateID(target) == 0 {
		target = WithUpdateID(target, tc.UpdateID)
	}
	if tc.UserID != 0 && GetUserID(target) == 0 {
		target = WithUserID(target, tc.UserID)
	}
	if tc.Workflow != "" && GetWorkflow(target) == "" {
		target = WithWorkflow(target, tc.Workflow)
	}

	return target
}

// Detach copies the tracing values of ctx onto a background context.
// Queued work uses it so it is not cancelled together with the poll loop that produced it.
func Detach(ctx context.Context) context.Context {
	return NewContext(context.Background(), FromContext(ctx))
}

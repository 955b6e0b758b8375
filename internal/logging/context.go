package logging

import (
	"context"
	"log/slog"

	"loom/internal/services"
)

// Shared field names keep pipeline log output consistent across packages.
const (
	FieldComponent      = "component"
	FieldStage          = "stage"
	FieldConversationID = "conversation_id"
	FieldRequestID      = "request_id"
	FieldProvider       = "provider"
	FieldStatus         = "status"
	FieldDuration       = "duration"
)

// ContextFields extracts pipeline identity fields carried on ctx.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]Attr, 0, 3)
	if id, ok := services.ConversationIDFromContext(ctx); ok {
		fields = append(fields, String(FieldConversationID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, String(FieldStage, stage))
	}
	if requestID, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, String(FieldRequestID, requestID))
	}
	return fields
}

// WithContext returns a logger annotated with ctx's pipeline fields.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, len(fields))
	for i, field := range fields {
		args[i] = field
	}
	return logger.With(args...)
}

package logging

import (
	"context"
	"log/slog"

	"storyloom/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldGroupID is the standardized structured logging key for segment group identifiers.
	FieldGroupID = "group_id"
	// FieldSegment is the standardized structured logging key for 1-based segment numbers.
	FieldSegment = "segment"
	// FieldStep is the standardized structured logging key for pipeline step names.
	FieldStep = "step"
	// FieldEventType tags log lines with a machine-readable event classification.
	FieldEventType = "event_type"
	// FieldErrorHint carries an operator-facing suggestion for failures.
	FieldErrorHint = "error_hint"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.GroupIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldGroupID, id))
	}
	if n, ok := services.SegmentNumberFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldSegment, n))
	}
	if step, ok := services.StepFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStep, step))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}

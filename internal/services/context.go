package services

import "context"

type contextKey string

const (
	groupIDKey       contextKey = "group_id"
	segmentNumberKey contextKey = "segment_number"
	stepKey          contextKey = "step"
	requestIDKey     contextKey = "request_id"
)

// WithGroupID annotates context with the segment group identifier.
func WithGroupID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, groupIDKey, id)
}

// GroupIDFromContext extracts the segment group identifier if present.
func GroupIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(groupIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithSegmentNumber annotates context with the 1-based segment number.
func WithSegmentNumber(ctx context.Context, n int) context.Context {
	if n <= 0 {
		return ctx
	}
	return context.WithValue(ctx, segmentNumberKey, n)
}

// SegmentNumberFromContext returns the segment number if present.
func SegmentNumberFromContext(ctx context.Context) (int, bool) {
	if v, ok := ctx.Value(segmentNumberKey).(int); ok && v > 0 {
		return v, true
	}
	return 0, false
}

// WithStep annotates context with the pipeline step name.
func WithStep(ctx context.Context, step string) context.Context {
	if step == "" {
		return ctx
	}
	return context.WithValue(ctx, stepKey, step)
}

// StepFromContext returns the step name if present.
func StepFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stepKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

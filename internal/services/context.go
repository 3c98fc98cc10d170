package services

import "context"

type contextKey string

const (
	rowKey        contextKey = "row"
	identifierKey contextKey = "identifier"
	tierKey       contextKey = "tier"
	runIDKey      contextKey = "run_id"
)

// WithRow annotates context with the input row sequence number.
func WithRow(ctx context.Context, seq int64) context.Context {
	return context.WithValue(ctx, rowKey, seq)
}

// RowFromContext extracts the input row sequence number if present.
func RowFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(rowKey)
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

// WithIdentifier annotates context with the normalized tax identifier.
func WithIdentifier(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, identifierKey, id)
}

// IdentifierFromContext returns the normalized tax identifier if present.
func IdentifierFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(identifierKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithTier annotates context with the resolution tier name.
func WithTier(ctx context.Context, tier string) context.Context {
	if tier == "" {
		return ctx
	}
	return context.WithValue(ctx, tierKey, tier)
}

// TierFromContext returns the resolution tier name if present.
func TierFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(tierKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with a batch run correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the batch run correlation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

package logging

import "context"

type contextKey string

const (
	itemKey  contextKey = "item"
	runIDKey contextKey = "run_id"
)

// WithItem adds a work item number to the context.
func WithItem(ctx context.Context, number int) context.Context {
	return context.WithValue(ctx, itemKey, number)
}

// WithRunID adds an automation run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetItem retrieves the work item number from the context.
// Returns zero if not present.
func GetItem(ctx context.Context) int {
	if n, ok := ctx.Value(itemKey).(int); ok {
		return n
	}
	return 0
}

// GetRunID retrieves the run ID from the context.
// Returns empty string if not present.
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

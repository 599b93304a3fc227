package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts the item number and run ID from context and
// adds them to log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if item := GetItem(ctx); item != 0 {
		e.Int("item", item)
	}

	if runID := GetRunID(ctx); runID != "" {
		e.Str("run_id", runID)
	}
}

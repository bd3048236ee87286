package global

import (
	"context"
)

type ContextKey uint

const (
	CancelKey ContextKey = iota
	VersionKey
	ProcessContextKey
)

func Version(ctx context.Context) string {
	if v, ok := ctx.Value(VersionKey).(string); ok {
		return v
	}
	return "unknown"
}

// Cancel returns the cancel function stored by the command line context, or a no-op.
func Cancel(ctx context.Context) context.CancelFunc {
	if cancel, ok := ctx.Value(CancelKey).(context.CancelFunc); ok {
		return cancel
	}
	return func() {}
}

// ProcessContext returns the process-wide context for background services.
// This context is cancelled only when the entire process terminates, not on individual operation completion.
func ProcessContext(ctx context.Context) context.Context {
	if processCtx, ok := ctx.Value(ProcessContextKey).(context.Context); ok {
		return processCtx
	}
	return ctx
}

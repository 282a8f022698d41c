package trace

import (
	"context"

	"github.com/devpulse/devpulse/internal/shared/id"
)

// contextKey keeps the trace id scoped to a context chain; there is no
// process-global current trace id.
type contextKey string

const traceIDKey contextKey = "trace_id"

// Generate produces a new globally-unique trace identifier.
func Generate() string {
	return id.NewTraceID().String()
}

// Install places traceID into a fresh child context and returns it along
// with the installed value. An empty traceID generates a new one. The parent
// context is never mutated; sibling goroutines holding it are unaffected.
func Install(ctx context.Context, traceID string) (context.Context, string) {
	if traceID == "" {
		traceID = Generate()
	}
	return context.WithValue(ctx, traceIDKey, traceID), traceID
}

// FromContext reads the current trace identifier. Returns "" when none is
// installed; it never fails.
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// Go runs fn on a new goroutine with the parent's trace id captured and
// re-installed into a detached context. Crossing an asynchronous boundary is
// always this explicit capture-and-reinstall; queued work must not inherit
// the parent's cancellation or deadlines.
func Go(parent context.Context, fn func(ctx context.Context)) {
	captured := FromContext(parent)
	go func() {
		ctx := context.Background()
		if captured != "" {
			ctx, _ = Install(ctx, captured)
		}
		fn(ctx)
	}()
}

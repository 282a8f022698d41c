// Package trace implements trace identifier propagation.
//
// The trace id is the correlation key that threads a logical execution (one
// request, one task chain) through every event it produces. Propagation is
// context-based: Install scopes an id to a context chain, FromContext reads
// it, and Go/Wrap re-install it explicitly when work crosses a goroutine or
// task-queue boundary. Two concurrent executions never observe each other's
// id because nothing here is global.
//
// Example:
//
//	ctx, traceID := trace.Install(ctx, r.Header.Get(trace.Header))
//	trace.Go(ctx, func(ctx context.Context) {
//		// same trace id, detached lifetime
//	})
package trace

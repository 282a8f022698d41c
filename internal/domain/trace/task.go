package trace

import (
	"context"
	"fmt"
)

// Emitter records lifecycle events around instrumented work. Implemented by
// the ingest emitter; kept as an interface here so task wrapping carries no
// pipeline dependency.
type Emitter interface {
	Info(ctx context.Context, system, details string, locals map[string]string)
	Error(ctx context.Context, system, details string, locals map[string]string)
}

// Task is a unit of background work executed under a trace.
type Task func(ctx context.Context) error

// Wrap instruments a task body with trace installation and lifecycle events.
// The returned task installs the context's trace id (generating one when the
// caller provided none), emits a start event, runs the body, then emits a
// success or error event. This is the static replacement for runtime
// patching of task frameworks: schedulers invoke the wrapped task directly.
func Wrap(system, name string, emit Emitter, task Task) Task {
	return func(ctx context.Context) error {
		ctx, _ = Install(ctx, FromContext(ctx))

		emit.Info(ctx, system, fmt.Sprintf("task started: %s", name),
			map[string]string{"task": name, "event_type": "task_start"})

		err := task(ctx)
		if err != nil {
			emit.Error(ctx, system, fmt.Sprintf("task failed: %s: %v", name, err),
				map[string]string{"task": name, "event_type": "task_error"})
			return err
		}

		emit.Info(ctx, system, fmt.Sprintf("task completed: %s", name),
			map[string]string{"task": name, "event_type": "task_success"})
		return nil
	}
}

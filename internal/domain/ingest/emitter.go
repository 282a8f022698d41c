package ingest

import (
	"context"
	"fmt"
	"runtime"

	"github.com/devpulse/devpulse/internal/domain/event"
	"github.com/devpulse/devpulse/internal/domain/trace"
)

// maxEmitterFrames bounds the captured call stack on error events.
const maxEmitterFrames = 32

// Emitter builds records from application call sites and feeds them to a
// Service. The trace id comes from the context; calls made outside an
// installed trace are skipped, so untraced code paths produce no events.
type Emitter struct {
	svc *Service
}

// NewEmitter creates an emitter over svc.
func NewEmitter(svc *Service) *Emitter {
	return &Emitter{svc: svc}
}

// Debug emits a debug event.
func (e *Emitter) Debug(ctx context.Context, system, details string, locals map[string]string) {
	e.emit(ctx, event.SeverityDebug, system, details, locals, false)
}

// Info emits an info event.
func (e *Emitter) Info(ctx context.Context, system, details string, locals map[string]string) {
	e.emit(ctx, event.SeverityInfo, system, details, locals, false)
}

// Warning emits a warning event.
func (e *Emitter) Warning(ctx context.Context, system, details string, locals map[string]string) {
	e.emit(ctx, event.SeverityWarning, system, details, locals, false)
}

// Error emits an error event with the emitting goroutine's call stack.
func (e *Emitter) Error(ctx context.Context, system, details string, locals map[string]string) {
	e.emit(ctx, event.SeverityError, system, details, locals, true)
}

func (e *Emitter) emit(ctx context.Context, sev event.Severity, system, details string, locals map[string]string, withStack bool) {
	traceID := trace.FromContext(ctx)
	if traceID == "" {
		return
	}

	raw := map[string]interface{}{
		"traceId":  traceID,
		"severity": string(sev),
		"system":   system,
		"details":  details,
	}
	if len(locals) > 0 {
		raw["locals"] = locals
	}

	if file, line, ok := callSite(); ok {
		raw["file"] = file
		raw["line"] = line
	}
	if withStack {
		raw["stacktrace"] = callStack()
	}

	_ = e.svc.Submit(ctx, raw)
}

// callSite reports the application frame that invoked the emitter.
func callSite() (string, int, bool) {
	// 0 callSite, 1 emit, 2 Debug/Info/..., 3 caller.
	_, file, line, ok := runtime.Caller(3)
	return file, line, ok
}

// callStack captures the emitting goroutine's frames, innermost first,
// skipping the emitter's own plumbing.
func callStack() []string {
	pc := make([]uintptr, maxEmitterFrames)
	n := runtime.Callers(4, pc)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pc[:n])
	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return stack
}

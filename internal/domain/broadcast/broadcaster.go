package broadcast

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devpulse/devpulse/internal/domain/event"
	"github.com/devpulse/devpulse/internal/shared/id"
)

var (
	// ErrEmptyTraceID rejects subscriptions without a trace identifier.
	ErrEmptyTraceID = errors.New("subscribe requires a trace id")
	// ErrSinkClosed is returned by sinks that can no longer accept sends.
	ErrSinkClosed = errors.New("sink closed")
)

// Sink is a live output consumer that events are pushed to. Send must be
// safe for concurrent use and should bound its own blocking time (e.g. a
// write deadline); a Send error permanently removes the sink.
type Sink interface {
	Send(rec event.Record) error
	Close() error
}

// Handle identifies one (trace id, sink) registration.
type Handle struct {
	ID      string
	TraceID string
	sub     *subscription
}

type subscription struct {
	handle  string
	traceID string
	sink    Sink
}

// Metrics receives broadcaster instrumentation callbacks.
type Metrics interface {
	RecordSubscription(active int)
	RecordDelivery()
	RecordSinkError()
}

// Broadcaster routes each published event to every live sink registered for
// its trace id. Registration is set-semantic per (trace id, sink) pair and
// the table shrinks to nothing when the last sink of a trace detaches.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]map[Sink]*subscription

	logger         *zap.Logger
	metrics        Metrics
	publishTimeout time.Duration
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithMetrics attaches instrumentation.
func WithMetrics(m Metrics) Option {
	return func(b *Broadcaster) { b.metrics = m }
}

// WithPublishTimeout bounds how long one Publish waits for its sink sends.
func WithPublishTimeout(d time.Duration) Option {
	return func(b *Broadcaster) { b.publishTimeout = d }
}

// New creates a Broadcaster.
func New(logger *zap.Logger, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		subs:           make(map[string]map[Sink]*subscription),
		logger:         logger,
		publishTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers sink under traceID. Subscribing the same sink to the
// same trace id twice is idempotent and returns the existing registration.
func (b *Broadcaster) Subscribe(traceID string, sink Sink) (Handle, error) {
	if traceID == "" {
		return Handle{}, ErrEmptyTraceID
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sinks, ok := b.subs[traceID]
	if !ok {
		sinks = make(map[Sink]*subscription)
		b.subs[traceID] = sinks
	}
	if existing, ok := sinks[sink]; ok {
		return Handle{ID: existing.handle, TraceID: traceID, sub: existing}, nil
	}

	sub := &subscription{
		handle:  id.NewSubscriptionID().String(),
		traceID: traceID,
		sink:    sink,
	}
	sinks[sink] = sub

	b.logger.Debug("sink subscribed",
		zap.String("trace_id", traceID),
		zap.String("subscription", sub.handle),
	)
	if b.metrics != nil {
		b.metrics.RecordSubscription(b.totalLocked())
	}
	return Handle{ID: sub.handle, TraceID: traceID, sub: sub}, nil
}

// Unsubscribe removes a registration. Removing the last sink for a trace id
// drops the trace's entry entirely. Unknown or already-removed handles are
// a no-op.
func (b *Broadcaster) Unsubscribe(handle Handle) {
	if handle.sub == nil {
		return
	}

	b.mu.Lock()
	removed := b.removeLocked(handle.sub)
	active := b.totalLocked()
	b.mu.Unlock()

	if removed {
		b.logger.Debug("sink unsubscribed",
			zap.String("trace_id", handle.TraceID),
			zap.String("subscription", handle.ID),
		)
		if b.metrics != nil {
			b.metrics.RecordSubscription(active)
		}
	}
}

// Publish fans rec out to every sink registered for its trace id. Sink sends
// run concurrently so one slow or broken sink cannot delay the others; a
// failed send unsubscribes and closes that sink only. Publish returns once
// all sends finish or the publish timeout elapses, whichever is first;
// stragglers complete (and self-remove on failure) in the background.
func (b *Broadcaster) Publish(rec event.Record) {
	b.mu.RLock()
	sinks := b.subs[rec.TraceID]
	snapshot := make([]*subscription, 0, len(sinks))
	for _, sub := range sinks {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	if len(snapshot) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, sub := range snapshot {
		wg.Add(1)
		go func(sub *subscription) {
			defer wg.Done()
			if err := sub.sink.Send(rec); err != nil {
				b.dropSink(sub, err)
				return
			}
			if b.metrics != nil {
				b.metrics.RecordDelivery()
			}
		}(sub)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(b.publishTimeout):
		b.logger.Warn("publish timed out waiting for sinks",
			zap.String("trace_id", rec.TraceID),
			zap.Int("sinks", len(snapshot)),
		)
	}
}

// SubscriberCount reports the number of live sinks for a trace id.
func (b *Broadcaster) SubscriberCount(traceID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[traceID])
}

// Close detaches and closes every sink.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]map[Sink]*subscription)
	b.mu.Unlock()

	for _, sinks := range subs {
		for sink := range sinks {
			sink.Close()
		}
	}
	if b.metrics != nil {
		b.metrics.RecordSubscription(0)
	}
}

func (b *Broadcaster) dropSink(sub *subscription, cause error) {
	b.mu.Lock()
	removed := b.removeLocked(sub)
	active := b.totalLocked()
	b.mu.Unlock()

	if !removed {
		return
	}
	sub.sink.Close()

	b.logger.Warn("sink send failed, unsubscribed",
		zap.String("trace_id", sub.traceID),
		zap.String("subscription", sub.handle),
		zap.Error(cause),
	)
	if b.metrics != nil {
		b.metrics.RecordSinkError()
		b.metrics.RecordSubscription(active)
	}
}

func (b *Broadcaster) removeLocked(sub *subscription) bool {
	sinks, ok := b.subs[sub.traceID]
	if !ok {
		return false
	}
	current, ok := sinks[sub.sink]
	if !ok || current != sub {
		return false
	}
	delete(sinks, sub.sink)
	if len(sinks) == 0 {
		delete(b.subs, sub.traceID)
	}
	return true
}

func (b *Broadcaster) totalLocked() int {
	total := 0
	for _, sinks := range b.subs {
		total += len(sinks)
	}
	return total
}

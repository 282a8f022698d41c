package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devpulse/devpulse/internal/domain/event"
)

// ErrQueueFull reports that a record was dropped because the bounded queue
// was at capacity.
var ErrQueueFull = errors.New("dispatch queue full")

// ErrClosed reports an enqueue after shutdown began.
var ErrClosed = errors.New("dispatcher closed")

// State tracks the transport connection lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// Transport carries records to the remote hub. Implementations serialize
// one record per Send; the Dispatcher guarantees single-goroutine use.
type Transport interface {
	Connect(ctx context.Context) error
	Send(rec event.Record) error
	Close() error
}

// Metrics receives dispatcher instrumentation callbacks.
type Metrics interface {
	RecordQueueDepth(depth int)
	RecordOverflow()
	RecordDelivery()
	RecordReconnect()
}

// Config bounds the dispatcher's queue and retry behavior.
type Config struct {
	// QueueCapacity is the fixed queue size. Enqueues past it drop the new
	// record.
	QueueCapacity int
	// BackoffBase and BackoffMax bound reconnect delays.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// DrainGrace bounds the shutdown flush of queued records.
	DrainGrace time.Duration
}

// DefaultConfig returns production dispatcher settings.
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 1024,
		BackoffBase:   100 * time.Millisecond,
		BackoffMax:    30 * time.Second,
		DrainGrace:    5 * time.Second,
	}
}

// Dispatcher delivers records to a Transport without blocking producers and
// under bounded memory. A single background loop owns the consumer side of
// the queue: it sends records in FIFO order, reconnecting with backoff on
// transport failure and retrying the in-flight record after reconnect.
// Delivery is therefore at-least-once per record while the pipeline is
// healthy; duplicates after a half-completed send are an accepted tradeoff.
//
// Overflow policy: when the queue is full the NEW record is dropped and
// counted, so producers on latency-sensitive paths are never blocked and
// already-accepted records are never displaced.
type Dispatcher struct {
	queue     chan event.Record
	transport Transport
	backoff   *Backoff
	logger    *zap.Logger
	metrics   Metrics

	state      State
	stateMu    sync.Mutex
	drainGrace time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics attaches instrumentation.
func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New creates a Dispatcher and starts its delivery loop.
func New(transport Transport, cfg Config, logger *zap.Logger, opts ...Option) *Dispatcher {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultConfig().QueueCapacity
	}
	if cfg.DrainGrace <= 0 {
		cfg.DrainGrace = DefaultConfig().DrainGrace
	}

	d := &Dispatcher{
		queue:      make(chan event.Record, cfg.QueueCapacity),
		transport:  transport,
		backoff:    NewBackoff(cfg.BackoffBase, cfg.BackoffMax),
		logger:     logger,
		state:      StateDisconnected,
		drainGrace: cfg.DrainGrace,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	go d.run()
	return d
}

// Enqueue appends rec to the bounded queue without blocking. When the queue
// is full the record is dropped and ErrQueueFull returned; producers treat
// that as a counted, non-fatal loss of observability.
func (d *Dispatcher) Enqueue(rec event.Record) error {
	select {
	case <-d.stop:
		return ErrClosed
	default:
	}

	select {
	case d.queue <- rec:
		if d.metrics != nil {
			d.metrics.RecordQueueDepth(len(d.queue))
		}
		return nil
	default:
		if d.metrics != nil {
			d.metrics.RecordOverflow()
		}
		d.logger.Warn("dispatch queue full, dropping event",
			zap.String("trace_id", rec.TraceID),
			zap.Int("capacity", cap(d.queue)),
		)
		return ErrQueueFull
	}
}

// State reports the current connection state.
func (d *Dispatcher) State() State {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.state
}

// QueueDepth reports how many records are waiting.
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

// Close stops accepting records, drains what it can within the configured
// grace period (bounded additionally by ctx), discards the rest, and
// releases the transport.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.stop) })

	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// run is the single consumer of the queue.
func (d *Dispatcher) run() {
	defer close(d.done)
	defer d.transport.Close()

	for {
		select {
		case <-d.stop:
			d.drain()
			return
		case rec := <-d.queue:
			if !d.deliver(rec) {
				d.drain()
				return
			}
			if d.metrics != nil {
				d.metrics.RecordQueueDepth(len(d.queue))
			}
		}
	}
}

// deliver sends one record, reconnecting as needed. It returns false when
// shutdown interrupted delivery.
func (d *Dispatcher) deliver(rec event.Record) bool {
	for {
		if d.State() != StateConnected {
			if !d.connect() {
				return false
			}
		}

		err := d.transport.Send(rec)
		if err == nil {
			if d.metrics != nil {
				d.metrics.RecordDelivery()
			}
			return true
		}

		// Disconnect immediately on send failure; the same record is
		// retried once reconnected, never skipped.
		d.setState(StateDisconnected)
		d.logger.Warn("transport send failed",
			zap.String("trace_id", rec.TraceID),
			zap.Error(err),
		)

		select {
		case <-d.stop:
			return false
		default:
		}
	}
}

// connect attempts to (re)establish the transport with backoff until it
// succeeds or shutdown begins.
func (d *Dispatcher) connect() bool {
	for {
		select {
		case <-d.stop:
			return false
		default:
		}

		d.setState(StateConnecting)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := d.transport.Connect(ctx)
		cancel()

		if err == nil {
			d.setState(StateConnected)
			d.backoff.Reset()
			if d.metrics != nil {
				d.metrics.RecordReconnect()
			}
			return true
		}

		d.setState(StateDisconnected)
		delay := d.backoff.Next()
		d.logger.Warn("transport connect failed, backing off",
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)

		select {
		case <-d.stop:
			return false
		case <-time.After(delay):
		}
	}
}

// drain flushes remaining queued records within the grace period, then
// discards the rest.
func (d *Dispatcher) drain() {
	d.setState(StateDraining)
	deadline := time.After(d.drainGrace)

	for {
		if len(d.queue) == 0 {
			d.setState(StateDisconnected)
			return
		}
		select {
		case rec := <-d.queue:
			if err := d.transport.Send(rec); err != nil {
				// No reconnect attempts during drain; discard the rest.
				d.discard()
				d.setState(StateDisconnected)
				return
			}
		case <-deadline:
			d.discard()
			d.setState(StateDisconnected)
			return
		}
	}
}

func (d *Dispatcher) discard() {
	dropped := 0
	for {
		select {
		case <-d.queue:
			dropped++
		default:
			if dropped > 0 {
				d.logger.Warn("discarded undelivered events at shutdown",
					zap.Int("count", dropped),
				)
			}
			return
		}
	}
}

func (d *Dispatcher) setState(s State) {
	d.stateMu.Lock()
	prev := d.state
	d.state = s
	d.stateMu.Unlock()

	if prev != s {
		d.logger.Debug("dispatcher state change",
			zap.String("from", prev.String()),
			zap.String("to", s.String()),
		)
	}
}

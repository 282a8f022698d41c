package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/devpulse/devpulse/internal/domain/event"
)

// Saver persists normalized records.
type Saver interface {
	Save(ctx context.Context, rec event.Record) error
}

// Enqueuer hands records to an async delivery queue.
type Enqueuer interface {
	Enqueue(rec event.Record) error
}

// Publisher fans records out to live subscribers.
type Publisher interface {
	Publish(rec event.Record)
}

// Metrics receives ingestion counters.
type Metrics interface {
	RecordAccepted(sev event.Severity)
	RecordRejected()
	RecordUnknownSeverity()
}

// Service is the ingestion pipeline: normalize, persist, distribute. Every
// downstream collaborator is optional so the same service serves both the
// server (store + broadcaster) and an instrumented producer (dispatcher).
//
// Rejection is the only error a producer sees. Store, queue and broadcast
// trouble is logged and counted but never propagated: a slow or dead
// downstream must not fail the instrumented application.
type Service struct {
	limits  event.Limits
	store   Saver
	queue   Enqueuer
	pub     Publisher
	metrics Metrics
	logger  *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists accepted records.
func WithStore(s Saver) Option {
	return func(svc *Service) { svc.store = s }
}

// WithQueue enqueues accepted records for async delivery.
func WithQueue(q Enqueuer) Option {
	return func(svc *Service) { svc.queue = q }
}

// WithPublisher fans accepted records out to live subscribers.
func WithPublisher(p Publisher) Option {
	return func(svc *Service) { svc.pub = p }
}

// WithMetrics wires ingestion counters.
func WithMetrics(m Metrics) Option {
	return func(svc *Service) { svc.metrics = m }
}

// WithLimits overrides the default field budgets.
func WithLimits(l event.Limits) Option {
	return func(svc *Service) { svc.limits = l }
}

// NewService creates an ingestion service.
func NewService(logger *zap.Logger, opts ...Option) *Service {
	svc := &Service{
		limits: event.DefaultLimits(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Submit normalizes a raw event and feeds it to the configured
// destinations. A normalization rejection is returned to the producer;
// rejected events reach nothing downstream.
func (s *Service) Submit(ctx context.Context, raw map[string]interface{}) error {
	rec, err := event.Normalize(raw, s.limits)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordRejected()
		}
		s.logger.Warn("event rejected", zap.Error(err))
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordAccepted(rec.Severity)
		if rec.UnknownSeverity {
			s.metrics.RecordUnknownSeverity()
		}
	}

	if s.store != nil {
		if err := s.store.Save(ctx, rec); err != nil {
			s.logger.Error("event persist failed",
				zap.String("trace_id", rec.TraceID),
				zap.Error(err))
		}
	}

	if s.pub != nil {
		s.pub.Publish(rec)
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(rec); err != nil {
			s.logger.Warn("event enqueue failed",
				zap.String("trace_id", rec.TraceID),
				zap.Error(err))
		}
	}

	return nil
}

package monitoring

import (
	"github.com/devpulse/devpulse/internal/domain/event"
)

// IngestMetrics adapts Metrics to the ingest pipeline's counter interface.
type IngestMetrics struct {
	m *Metrics
}

// NewIngestMetrics creates an ingest metrics adapter.
func NewIngestMetrics(m *Metrics) *IngestMetrics {
	return &IngestMetrics{m: m}
}

func (a *IngestMetrics) RecordAccepted(sev event.Severity) {
	a.m.RecordEventAccepted(string(sev))
}

func (a *IngestMetrics) RecordRejected() {
	a.m.RecordEventRejected()
}

func (a *IngestMetrics) RecordUnknownSeverity() {
	a.m.UnknownSeverities.Inc()
}

// DispatchMetrics adapts Metrics to the dispatcher's counter interface.
type DispatchMetrics struct {
	m *Metrics
}

// NewDispatchMetrics creates a dispatch metrics adapter.
func NewDispatchMetrics(m *Metrics) *DispatchMetrics {
	return &DispatchMetrics{m: m}
}

func (a *DispatchMetrics) RecordQueueDepth(depth int) {
	a.m.QueueDepth.Set(float64(depth))
}

func (a *DispatchMetrics) RecordOverflow() {
	a.m.QueueOverflow.Inc()
}

func (a *DispatchMetrics) RecordDelivery() {
	a.m.Deliveries.Inc()
}

func (a *DispatchMetrics) RecordReconnect() {
	a.m.Reconnects.Inc()
}

// BroadcastMetrics adapts Metrics to the broadcaster's counter interface.
type BroadcastMetrics struct {
	m *Metrics
}

// NewBroadcastMetrics creates a broadcast metrics adapter.
func NewBroadcastMetrics(m *Metrics) *BroadcastMetrics {
	return &BroadcastMetrics{m: m}
}

func (a *BroadcastMetrics) RecordSubscription(active int) {
	a.m.SetSubscribersActive(active)
}

func (a *BroadcastMetrics) RecordDelivery() {
	a.m.BroadcastSends.Inc()
}

func (a *BroadcastMetrics) RecordSinkError() {
	a.m.BroadcastSinkFails.Inc()
}

package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Ingestion metrics
	EventsAccepted    *prometheus.CounterVec
	EventsRejected    prometheus.Counter
	UnknownSeverities prometheus.Counter

	// Dispatch metrics
	QueueDepth    prometheus.Gauge
	QueueOverflow prometheus.Counter
	Deliveries    prometheus.Counter
	Reconnects    prometheus.Counter

	// Broadcast metrics
	SubscribersActive  prometheus.Gauge
	BroadcastSends     prometheus.Counter
	BroadcastSinkFails prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64
	TotalErrors       int64
	EventsAccepted    int64
	EventsRejected    int64
	ActiveSubscribers int64
	ActiveConnections int64
	TotalDuration     float64 // sum of all request durations
	RequestCount      int64   // count for averaging
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		stopCh:    make(chan struct{}),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devpulse_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devpulse_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devpulse_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devpulse_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Ingestion metrics
		EventsAccepted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devpulse_events_accepted_total",
				Help: "Total number of events accepted by severity",
			},
			[]string{"severity"},
		),
		EventsRejected: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "devpulse_events_rejected_total",
				Help: "Total number of events rejected at normalization",
			},
		),
		UnknownSeverities: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "devpulse_events_unknown_severity_total",
				Help: "Total number of events with a severity coerced to info",
			},
		),

		// Dispatch metrics
		QueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "devpulse_dispatch_queue_depth",
				Help: "Current depth of the dispatch queue",
			},
		),
		QueueOverflow: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "devpulse_dispatch_queue_overflow_total",
				Help: "Total number of events dropped on a full queue",
			},
		),
		Deliveries: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "devpulse_dispatch_deliveries_total",
				Help: "Total number of events delivered upstream",
			},
		),
		Reconnects: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "devpulse_dispatch_reconnects_total",
				Help: "Total number of upstream reconnect attempts",
			},
		),

		// Broadcast metrics
		SubscribersActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "devpulse_broadcast_subscribers",
				Help: "Number of active trace subscribers",
			},
		),
		BroadcastSends: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "devpulse_broadcast_deliveries_total",
				Help: "Total number of events delivered to subscribers",
			},
		),
		BroadcastSinkFails: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "devpulse_broadcast_sink_errors_total",
				Help: "Total number of subscriber sink failures",
			},
		),

		// WebSocket metrics
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "devpulse_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devpulse_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "devpulse_uptime_seconds",
				Help: "Collector uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric until Stop.
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		case <-m.stopCh:
			return
		}
	}
}

// Stop terminates the uptime updater. Safe to call more than once.
func (m *Metrics) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordEventAccepted records an event entering the pipeline
func (m *Metrics) RecordEventAccepted(severity string) {
	m.EventsAccepted.WithLabelValues(severity).Inc()
	m.mu.Lock()
	m.snapshot.EventsAccepted++
	m.mu.Unlock()
}

// RecordEventRejected records an event rejected at normalization
func (m *Metrics) RecordEventRejected() {
	m.EventsRejected.Inc()
	m.mu.Lock()
	m.snapshot.EventsRejected++
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetSubscribersActive sets the number of active trace subscribers
func (m *Metrics) SetSubscribersActive(count int) {
	m.SubscribersActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveSubscribers = int64(count)
	m.mu.Unlock()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns current counter values for the JSON stats endpoint
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

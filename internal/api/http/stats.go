package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devpulse/devpulse/internal/infrastructure/monitoring"
)

// StatsHandler serves a JSON view of the collector counters for dashboards
// that do not scrape Prometheus.
type StatsHandler struct {
	metrics *monitoring.Metrics
	started time.Time
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(metrics *monitoring.Metrics) *StatsHandler {
	return &StatsHandler{
		metrics: metrics,
		started: time.Now(),
	}
}

// Stats returns current counter values as JSON
func (s *StatsHandler) Stats(c *gin.Context) {
	snap := s.metrics.Snapshot()

	var avgLatencyMs float64
	if snap.RequestCount > 0 {
		avgLatencyMs = snap.TotalDuration / float64(snap.RequestCount) * 1000
	}
	var errorRate float64
	if snap.TotalRequests > 0 {
		errorRate = float64(snap.TotalErrors) / float64(snap.TotalRequests)
	}

	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().UTC(),
		"requests": gin.H{
			"total":              snap.TotalRequests,
			"errors":             snap.TotalErrors,
			"average_latency_ms": avgLatencyMs,
			"error_rate":         errorRate,
		},
		"events": gin.H{
			"accepted": snap.EventsAccepted,
			"rejected": snap.EventsRejected,
		},
		"streaming": gin.H{
			"subscribers": snap.ActiveSubscribers,
			"connections": snap.ActiveConnections,
		},
		"uptime_seconds": time.Since(s.started).Seconds(),
	})
}

package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/devpulse/devpulse/internal/domain/event"
	"github.com/devpulse/devpulse/internal/domain/ingest"
	"github.com/devpulse/devpulse/internal/domain/store"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	ingest  *ingest.Service
	queries *store.QueryService
	logger  *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(ingestSvc *ingest.Service, queries *store.QueryService, logger *zap.Logger) *Handlers {
	return &Handlers{
		ingest:  ingestSvc,
		queries: queries,
		logger:  logger,
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "DevPulse Collector",
		"version": "0.2.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// SubmitEvent accepts one raw diagnostic event
func (h *Handlers) SubmitEvent(c *gin.Context) {
	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	if err := h.ingest.Submit(c.Request.Context(), raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// ListEvents fetches stored events matching the query filters
func (h *Handlers) ListEvents(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.queries.Events(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("event query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// RecentTraces lists summaries of the most recently active traces
func (h *Handlers) RecentTraces(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	summaries, err := h.queries.RecentTraces(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("trace listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "trace listing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"traces": summaries,
		"count":  len(summaries),
	})
}

// TraceEvents fetches every event of one trace
func (h *Handlers) TraceEvents(c *gin.Context) {
	traceID := c.Param("traceId")

	events, err := h.queries.TraceEvents(c.Request.Context(), traceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trace not found", "traceId": traceID})
			return
		}
		h.logger.Error("trace query failed", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "trace query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"traceId": traceID,
		"events":  events,
		"count":   len(events),
	})
}

// TraceTimeline reconstructs the execution timeline of one trace
func (h *Handlers) TraceTimeline(c *gin.Context) {
	traceID := c.Param("traceId")

	tl, err := h.queries.Timeline(c.Request.Context(), traceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trace not found", "traceId": traceID})
			return
		}
		h.logger.Error("timeline build failed", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "timeline build failed"})
		return
	}

	c.JSON(http.StatusOK, tl)
}

// ClearEvents deletes stored events matching the query filters
func (h *Handlers) ClearEvents(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	removed, err := h.queries.Clear(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("event clear failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event clear failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"removed": removed,
	})
}

// parseFilter translates query parameters into a store filter.
func parseFilter(c *gin.Context) (store.Filter, error) {
	f := store.Filter{
		TraceID: c.Query("traceId"),
		System:  c.Query("system"),
	}

	if raw := c.Query("severity"); raw != "" {
		sev := event.Severity(raw)
		if !sev.Valid() {
			return store.Filter{}, errors.New("invalid severity")
		}
		f.Severity = sev
	}
	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return store.Filter{}, errors.New("invalid start time")
		}
		f.Start = t
	}
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return store.Filter{}, errors.New("invalid end time")
		}
		f.End = t
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return store.Filter{}, errors.New("invalid limit")
		}
		f.Limit = n
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return store.Filter{}, errors.New("invalid offset")
		}
		f.Offset = n
	}

	return f, nil
}

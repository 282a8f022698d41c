package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devpulse/devpulse/internal/domain/event"
	"github.com/devpulse/devpulse/internal/domain/ingest"
	"github.com/devpulse/devpulse/internal/domain/store"
	"github.com/devpulse/devpulse/internal/domain/store/memory"
)

func setupRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := memory.New(0)
	queries := store.NewQueryService(mem, zap.NewNop())
	ingestSvc := ingest.NewService(zap.NewNop(), ingest.WithStore(mem))
	handlers := NewHandlers(ingestSvc, queries, zap.NewNop())

	router := gin.New()
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.POST("/api/events", handlers.SubmitEvent)
	router.GET("/api/events", handlers.ListEvents)
	router.DELETE("/api/events", handlers.ClearEvents)
	router.GET("/api/traces", handlers.RecentTraces)
	router.GET("/api/traces/:traceId", handlers.TraceEvents)
	router.GET("/api/traces/:traceId/timeline", handlers.TraceTimeline)
	return router, mem
}

func seed(t *testing.T, mem *memory.Store, traceID, system string, sev event.Severity, sec int) {
	t.Helper()
	err := mem.Save(context.Background(), event.Record{
		TraceID:   traceID,
		Timestamp: time.Date(2024, 3, 1, 10, 0, sec, 0, time.UTC).Format(event.TimestampLayout),
		Severity:  sev,
		System:    system,
		Details:   "seeded",
	})
	require.NoError(t, err)
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitEvent(t *testing.T) {
	router, mem := setupRouter(t)

	w := doRequest(router, "POST", "/api/events", map[string]interface{}{
		"traceId":  "trc_a",
		"severity": "info",
		"system":   "api",
		"details":  "request received",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, mem.Len())
}

func TestSubmitEvent_MissingTraceIDRejected(t *testing.T) {
	router, mem := setupRouter(t)

	w := doRequest(router, "POST", "/api/events", map[string]interface{}{
		"severity": "info",
		"details":  "orphan",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, mem.Len())
}

func TestSubmitEvent_MalformedBody(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest("POST", "/api/events", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListEvents_Filters(t *testing.T) {
	router, mem := setupRouter(t)
	seed(t, mem, "trc_a", "api", event.SeverityInfo, 1)
	seed(t, mem, "trc_a", "db", event.SeverityError, 2)
	seed(t, mem, "trc_b", "api", event.SeverityInfo, 3)

	w := doRequest(router, "GET", "/api/events?traceId=trc_a", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Events []event.Record `json:"events"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	w = doRequest(router, "GET", "/api/events?severity=error", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "db", resp.Events[0].System)
}

func TestListEvents_InvalidSeverity(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, "GET", "/api/events?severity=catastrophic", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecentTraces(t *testing.T) {
	router, mem := setupRouter(t)
	seed(t, mem, "trc_a", "api", event.SeverityInfo, 1)
	seed(t, mem, "trc_b", "db", event.SeverityError, 2)

	w := doRequest(router, "GET", "/api/traces", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Traces []store.TraceSummary `json:"traces"`
		Count  int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "trc_b", resp.Traces[0].TraceID)
}

func TestTraceEvents(t *testing.T) {
	router, mem := setupRouter(t)
	seed(t, mem, "trc_a", "api", event.SeverityInfo, 1)
	seed(t, mem, "trc_a", "api", event.SeverityInfo, 2)

	w := doRequest(router, "GET", "/api/traces/trc_a", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TraceID string         `json:"traceId"`
		Events  []event.Record `json:"events"`
		Count   int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "trc_a", resp.TraceID)
	assert.Equal(t, 2, resp.Count)
}

func TestTraceEvents_NotFound(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, "GET", "/api/traces/trc_missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTraceTimeline(t *testing.T) {
	router, mem := setupRouter(t)
	seed(t, mem, "trc_a", "api", event.SeverityInfo, 1)
	seed(t, mem, "trc_a", "api", event.SeverityInfo, 3)
	seed(t, mem, "trc_a", "db", event.SeverityError, 5)

	w := doRequest(router, "GET", "/api/traces/trc_a/timeline", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TraceID     string `json:"traceId"`
		TotalStages int    `json:"totalStages"`
		HasErrors   bool   `json:"hasErrors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "trc_a", resp.TraceID)
	assert.Equal(t, 2, resp.TotalStages)
	assert.True(t, resp.HasErrors)
}

func TestTraceTimeline_NotFound(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, "GET", "/api/traces/trc_missing/timeline", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearEvents(t *testing.T) {
	router, mem := setupRouter(t)
	seed(t, mem, "trc_a", "api", event.SeverityInfo, 1)
	seed(t, mem, "trc_b", "api", event.SeverityInfo, 2)

	w := doRequest(router, "DELETE", "/api/events?traceId=trc_a", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Removed int64 `json:"removed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Removed)
	assert.Equal(t, 1, mem.Len())
}

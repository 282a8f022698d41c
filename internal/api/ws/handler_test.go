package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devpulse/devpulse/internal/domain/broadcast"
	"github.com/devpulse/devpulse/internal/domain/event"
	"github.com/devpulse/devpulse/internal/domain/ingest"
	"github.com/devpulse/devpulse/internal/domain/store"
	"github.com/devpulse/devpulse/internal/domain/store/memory"
)

type wsFixture struct {
	server      *httptest.Server
	broadcaster *broadcast.Broadcaster
	store       *memory.Store
}

func setupWS(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := broadcast.New(zap.NewNop())
	mem := memory.New(0)
	ingestSvc := ingest.NewService(zap.NewNop(),
		ingest.WithStore(mem),
		ingest.WithPublisher(b),
	)
	handler := NewHandler(b, ingestSvc, zap.NewNop())

	router := gin.New()
	router.GET("/ws/traces/:traceId", handler.HandleSubscribe)
	router.GET("/ws/ingest", handler.HandleIngest)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	t.Cleanup(b.Close)

	return &wsFixture{server: server, broadcaster: b, store: mem}
}

func (f *wsFixture) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, b *broadcast.Broadcaster, traceID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.SubscriberCount(traceID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d subscribers for %s, have %d", want, traceID, b.SubscriberCount(traceID))
}

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	f := setupWS(t)
	conn := f.dial(t, "/ws/traces/trc_a")
	waitForSubscribers(t, f.broadcaster, "trc_a", 1)

	published := event.Record{
		TraceID:   "trc_a",
		Timestamp: event.Now(),
		Severity:  event.SeverityInfo,
		System:    "api",
		Details:   "request received",
	}
	f.broadcaster.Publish(published)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got event.Record
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, published, got)
}

func TestSubscribeTraceIsolation(t *testing.T) {
	f := setupWS(t)
	conn := f.dial(t, "/ws/traces/trc_a")
	waitForSubscribers(t, f.broadcaster, "trc_a", 1)

	f.broadcaster.Publish(event.Record{
		TraceID:   "trc_other",
		Timestamp: event.Now(),
		Severity:  event.SeverityInfo,
		System:    "api",
		Details:   "unrelated",
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var got event.Record
	err := conn.ReadJSON(&got)
	assert.Error(t, err, "no event should arrive for a different trace")
}

func TestSubscribeBlankTraceIDRejected(t *testing.T) {
	f := setupWS(t)
	conn := f.dial(t, "/ws/traces/%20")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected close error, got %v", err)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}

func TestIngestFeedsPipeline(t *testing.T) {
	f := setupWS(t)
	conn := f.dial(t, "/ws/ingest")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"traceId":  "trc_a",
		"severity": "info",
		"system":   "worker",
		"details":  "task started",
	}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && f.store.Len() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, f.store.Len())

	events, err := f.store.FetchEvents(context.Background(), store.Filter{TraceID: "trc_a"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "worker", events[0].System)
}

func TestIngestRejectionReportedWithoutClosing(t *testing.T) {
	f := setupWS(t)
	conn := f.dial(t, "/ws/ingest")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"severity": "info",
		"details":  "no trace id",
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.NotEmpty(t, reply.Error)

	// Connection survives the rejection.
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"traceId":  "trc_a",
		"severity": "info",
		"system":   "worker",
		"details":  "recovered",
	}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && f.store.Len() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, f.store.Len())
}

func TestIngestStreamsToSubscriber(t *testing.T) {
	f := setupWS(t)
	sub := f.dial(t, "/ws/traces/trc_a")
	waitForSubscribers(t, f.broadcaster, "trc_a", 1)

	producer := f.dial(t, "/ws/ingest")
	require.NoError(t, producer.WriteJSON(map[string]interface{}{
		"traceId":  "trc_a",
		"severity": "error",
		"system":   "db",
		"details":  "query failed",
	}))

	require.NoError(t, sub.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got event.Record
	require.NoError(t, sub.ReadJSON(&got))
	assert.Equal(t, "trc_a", got.TraceID)
	assert.Equal(t, event.SeverityError, got.Severity)
	assert.Equal(t, "db", got.System)
}

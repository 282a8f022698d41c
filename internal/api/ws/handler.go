package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/devpulse/devpulse/internal/domain/broadcast"
	"github.com/devpulse/devpulse/internal/domain/ingest"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// ConnMetrics tracks WebSocket connection counters.
type ConnMetrics interface {
	IncWSConnections()
	DecWSConnections()
	RecordWSMessage(direction, msgType string)
}

// Handler manages WebSocket connections for trace subscribers and remote
// producers.
type Handler struct {
	broadcaster *broadcast.Broadcaster
	ingest      *ingest.Service
	metrics     ConnMetrics
	logger      *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(b *broadcast.Broadcaster, ingestSvc *ingest.Service, logger *zap.Logger) *Handler {
	return &Handler{
		broadcaster: b,
		ingest:      ingestSvc,
		logger:      logger,
	}
}

// WithMetrics wires connection counters.
func (h *Handler) WithMetrics(m ConnMetrics) *Handler {
	h.metrics = m
	return h
}

// HandleSubscribe attaches a client to one trace's live event stream. The
// connection stays open until the client disconnects; every event published
// for the trace is forwarded as one JSON message.
func (h *Handler) HandleSubscribe(c *gin.Context) {
	traceID := strings.TrimSpace(c.Param("traceId"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	if traceID == "" {
		h.closeWithPolicyViolation(conn, "missing trace id")
		return
	}

	sink := newConnSink(conn)
	handle, err := h.broadcaster.Subscribe(traceID, sink)
	if err != nil {
		h.closeWithPolicyViolation(conn, err.Error())
		return
	}

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}
	h.logger.Info("subscriber attached", zap.String("trace_id", traceID))

	// Reads only surface client disconnects; subscribers never send data.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("subscriber read error", zap.String("trace_id", traceID), zap.Error(err))
			}
			break
		}
	}

	h.broadcaster.Unsubscribe(handle)
	sink.Close()
	h.logger.Info("subscriber detached", zap.String("trace_id", traceID))
}

// HandleIngest accepts events from a remote producer. Each JSON message is
// one raw event fed to the ingestion pipeline; rejections are reported back
// on the same connection without closing it.
func (h *Handler) HandleIngest(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	// Correlates one producer's log lines across its whole session.
	connID := uuid.New().String()
	h.logger.Info("producer attached",
		zap.String("conn_id", connID),
		zap.String("remote", conn.RemoteAddr().String()))

	for {
		var raw map[string]interface{}
		if err := conn.ReadJSON(&raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("producer read error", zap.String("conn_id", connID), zap.Error(err))
			}
			break
		}

		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", "event")
		}

		if err := h.ingest.Submit(c.Request.Context(), raw); err != nil {
			h.sendError(conn, err.Error())
		}
	}

	h.logger.Info("producer detached", zap.String("conn_id", connID))
}

func (h *Handler) closeWithPolicyViolation(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(writeTimeout)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		h.logger.Debug("close write failed", zap.Error(err))
	}
	conn.Close()
}

func (h *Handler) sendError(conn *websocket.Conn, message string) {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return
	}
	if err := conn.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": message,
	}); err != nil {
		h.logger.Debug("error write failed", zap.Error(err))
	}
}

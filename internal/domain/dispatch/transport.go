package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devpulse/devpulse/internal/domain/event"
)

// errNotConnected is returned by Send before a successful Connect.
var errNotConnected = errors.New("transport not connected")

// WebSocketTransport delivers records as JSON messages over a WebSocket
// connection to the hub's ingest endpoint. It is not safe for concurrent
// use; the Dispatcher's single delivery loop is its only caller.
type WebSocketTransport struct {
	url          string
	writeTimeout time.Duration
	conn         *websocket.Conn
}

// NewWebSocketTransport creates a transport dialing url (ws://host/ws/ingest).
func NewWebSocketTransport(url string) *WebSocketTransport {
	return &WebSocketTransport{
		url:          url,
		writeTimeout: 10 * time.Second,
	}
}

// Connect dials the hub, replacing any previous connection.
func (t *WebSocketTransport) Connect(ctx context.Context) error {
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

// Send writes one record. Any error leaves the connection unusable; the
// caller reconnects before retrying.
func (t *WebSocketTransport) Send(rec event.Record) error {
	if t.conn == nil {
		return errNotConnected
	}
	t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	if err := t.conn.WriteJSON(rec); err != nil {
		t.conn.Close()
		t.conn = nil
		return err
	}
	return nil
}

// Close releases the connection.
func (t *WebSocketTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	t.conn.Close()
	t.conn = nil
	return err
}

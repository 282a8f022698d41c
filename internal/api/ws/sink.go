package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devpulse/devpulse/internal/domain/event"
)

// writeTimeout bounds a single frame write to a subscriber.
const writeTimeout = 10 * time.Second

// connSink adapts a WebSocket connection to the broadcaster's Sink. The
// broadcaster sends from per-event goroutines, so writes are serialized
// with a mutex; gorilla connections allow one concurrent writer.
type connSink struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func newConnSink(conn *websocket.Conn) *connSink {
	return &connSink{conn: conn}
}

func (s *connSink) Send(rec event.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return websocket.ErrCloseSent
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(rec)
}

func (s *connSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

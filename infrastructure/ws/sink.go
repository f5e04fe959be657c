package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"messenger/contract"

	"github.com/gorilla/websocket"
)

// ConnectionSink serializes all writes of one websocket connection through a
// buffered channel and a single write pump. Request responses and fanned-out
// pushes share the same path, so frames never interleave.
type ConnectionSink struct {
	conn      *websocket.Conn
	out       chan []byte
	timeout   time.Duration
	log       *slog.Logger
	closeOnce sync.Once
	closed    chan struct{}
}

func NewConnectionSink(conn *websocket.Conn, buffer int, timeout time.Duration, log *slog.Logger) *ConnectionSink {
	return &ConnectionSink{
		conn:    conn,
		out:     make(chan []byte, buffer),
		timeout: timeout,
		log:     log,
		closed:  make(chan struct{}),
	}
}

// Consume implements contract.EventSink for fanned-out push events.
func (s *ConnectionSink) Consume(ctx context.Context, e contract.PushEvent) error {
	return s.Send(ctx, Response{Event: e.Name(), Data: e})
}

// Send enqueues one outbound envelope. A consumer that cannot drain its
// buffer within the delivery timeout loses the frame and the connection:
// a stuck socket must not pin the fanout worker.
func (s *ConnectionSink) Send(ctx context.Context, response Response) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshaling %s envelope: %w", response.Event, err)
	}

	select {
	case s.out <- payload:
		return nil
	case <-s.closed:
		return fmt.Errorf("connection closed")
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.timeout):
		s.Close()
		return fmt.Errorf("delivery timeout on %s, dropping connection", response.Event)
	}
}

// WritePump owns the websocket write side. It runs in its own goroutine for
// the lifetime of the connection.
func (s *ConnectionSink) WritePump() {
	for {
		select {
		case payload := <-s.out:
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.log.Debug("websocket write failed", slog.String("error", err.Error()))
				s.Close()
				return
			}
		case <-s.closed:
			return
		}
	}
}

// Close shuts the underlying connection; the read loop and write pump both
// unblock on it. Safe to call from any goroutine, any number of times.
func (s *ConnectionSink) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
}

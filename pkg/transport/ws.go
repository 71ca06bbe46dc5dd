package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/strideworks/go-strider/internal/log"
)

const (
	// dialTimeout bounds the websocket handshake.
	dialTimeout = 5 * time.Second
	// writeWait is how long to wait for a frame write to complete. The
	// feed runs at 100ms, so a slower link is already a lost cause.
	writeWait = time.Second
)

// WSStream is the websocket implementation of Stream. The robot exposes a
// binary websocket endpoint; each Send ships one 22-byte frame as a single
// binary message.
type WSStream struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSStream creates a closed websocket stream.
func NewWSStream() *WSStream {
	return &WSStream{}
}

// Open dials the robot's control endpoint. Opening an already-open stream
// closes the old connection first.
func (s *WSStream) Open(addr string) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(addr, nil)
	if err != nil {
		log.Error("control channel dial failed", "addr", addr, "err", err)
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	log.Info("control channel open", "addr", addr)
	return nil
}

// Send transmits one frame. Errors are returned for the caller to log;
// the connection is left as-is, the next Send simply tries again.
func (s *WSStream) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("control channel not open")
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("frame send: %w", err)
	}
	return nil
}

// Close tears the channel down after a best-effort close handshake.
func (s *WSStream) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	deadline := time.Now().Add(writeWait)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	err := conn.Close()
	log.Info("control channel closed")
	return err
}

// IsOpen reports whether the stream currently holds a connection.
func (s *WSStream) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

package chat

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/config"
)

// Session is one long-lived bidirectional channel per client. Outbound
// events go through a buffered queue drained by a single writer goroutine;
// a slow client drops events rather than stalling the broadcaster.
type Session struct {
	id     string
	conn   *websocket.Conn
	cfg    config.WebSocketConfig
	logger *zap.Logger

	send chan Outbound
	done chan struct{}
	once sync.Once
}

// NewSession wraps an upgraded connection.
func NewSession(conn *websocket.Conn, cfg config.WebSocketConfig, logger *zap.Logger) *Session {
	buffer := cfg.SendBufferSize
	if buffer <= 0 {
		buffer = 64
	}
	return &Session{
		id:     uuid.NewString(),
		conn:   conn,
		cfg:    cfg,
		logger: logger,
		send:   make(chan Outbound, buffer),
		done:   make(chan struct{}),
	}
}

// ID returns the connection identifier.
func (s *Session) ID() string {
	return s.id
}

// Send queues an event for delivery. Returns false when the session is
// closed or its queue is full.
func (s *Session) Send(evt Outbound) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- evt:
		return true
	default:
		s.logger.Warn("send queue full, dropping event",
			zap.String("connection_id", s.id),
			zap.String("event", evt.Event))
		return false
	}
}

// Close terminates the session once; the write pump exits on done.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// WritePump drains the outbound queue and keeps the connection alive with
// periodic pings. Must run in its own goroutine, one per session.
func (s *Session) WritePump() {
	ticker := time.NewTicker(s.cfg.PingInterval())
	defer ticker.Stop()

	for {
		select {
		case evt := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait()))
			if err := s.conn.WriteJSON(evt); err != nil {
				s.logger.Debug("write failed", zap.String("connection_id", s.id), zap.Error(err))
				s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait()))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// ReadLoop consumes inbound frames until the connection dies, handing each
// raw payload to handle. The pong handler extends the read deadline so idle
// but responsive clients stay connected.
func (s *Session) ReadLoop(handle func(raw []byte)) {
	s.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait()))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait()))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("read failed", zap.String("connection_id", s.id), zap.Error(err))
			}
			return
		}
		handle(raw)
	}
}

package ws

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/telemetry"
)

var (
	// ErrSessionClosed is returned by Send once the session has ended.
	ErrSessionClosed = errors.New("ws: session closed")
	// ErrOutboxFull is returned by Send when the client cannot keep up; the
	// session is closed as a side effect.
	ErrOutboxFull = errors.New("ws: outbox full")
)

const outboxOverflowMetricKey = "ws_outbox_overflow_total"

// Session is one admitted websocket client. The simulation pushes frames
// through Send without blocking; a dedicated writer goroutine drains them.
type Session struct {
	id      uint32
	conn    *websocket.Conn
	remote  string
	opened  time.Time
	cfg     Config
	metrics telemetry.Metrics

	outbox chan []byte
	done   chan struct{}
	player atomic.Pointer[entity.Player]

	mu          deadlock.Mutex
	closed      bool
	closeCode   int
	closeReason string
}

func newSession(id uint32, conn *websocket.Conn, remote string, cfg Config, metrics telemetry.Metrics) *Session {
	return &Session{
		id:        id,
		conn:      conn,
		remote:    remote,
		opened:    time.Now(),
		cfg:       cfg,
		metrics:   telemetry.MetricsOrNop(metrics),
		outbox:    make(chan []byte, cfg.OutboxSize),
		done:      make(chan struct{}),
		closeCode: websocket.CloseNormalClosure,
	}
}

func (s *Session) ID() uint32 { return s.id }

func (s *Session) Remote() string { return s.remote }

// Player returns the world player once the join has been applied.
func (s *Session) Player() *entity.Player { return s.player.Load() }

func (s *Session) bindPlayer(p *entity.Player) { s.player.Store(p) }

// Send queues payload for the writer. It never blocks.
func (s *Session) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	select {
	case s.outbox <- payload:
		return nil
	default:
		s.metrics.Add(outboxOverflowMetricKey, 1)
		s.closeLocked(websocket.CloseTryAgainLater, "outbox full")
		return ErrOutboxFull
	}
}

// Close ends the session normally.
func (s *Session) Close() error {
	s.CloseWith(websocket.CloseNormalClosure, "")
	return nil
}

// CloseWith ends the session; the writer sends a close frame with code and
// reason. Only the first call has an effect.
func (s *Session) CloseWith(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(code, reason)
}

func (s *Session) closeLocked(code int, reason string) {
	if s.closed {
		return
	}
	s.closed = true
	s.closeCode = code
	s.closeReason = reason
	close(s.done)
}

// Closed reports whether the session has ended.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// CloseStatus returns the code and reason the session ended with.
func (s *Session) CloseStatus() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCode, s.closeReason
}

// writePump is the only goroutine writing data frames to the connection.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case payload := <-s.outbox:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
				s.CloseWith(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				s.CloseWith(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		case <-s.done:
			code, reason := s.CloseStatus()
			if code != websocket.CloseAbnormalClosure {
				if !s.flush() {
					return
				}
				message := websocket.FormatCloseMessage(code, reason)
				s.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(s.cfg.WriteTimeout))
			}
			return
		}
	}
}

// flush writes frames queued before the close, such as a kick notice, under
// one shared deadline. It reports false when a write failed.
func (s *Session) flush() bool {
	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	for {
		select {
		case payload := <-s.outbox:
			if err := s.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
				return false
			}
		default:
			return true
		}
	}
}

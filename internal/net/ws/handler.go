// Package ws serves the game websocket: handshake, per-session writer,
// decode of client frames into commands and disconnect handling.
package ws

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/net/intake"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/net/proto"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/sim"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/telemetry"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/network"
)

const (
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultIdleTimeout      = 60 * time.Second
	DefaultPingInterval     = 20 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultOutboxSize       = 256
	DefaultMaxMessageBytes  = 4096
	DefaultMaxViolations    = 16

	violationMetricKey = "ws_protocol_violations_total"
)

var errHandshake = errors.New("ws: handshake failed")

// Config tunes the websocket layer.
type Config struct {
	HandshakeTimeout time.Duration `yaml:"handshakeTimeout"`
	IdleTimeout      time.Duration `yaml:"idleTimeout"`
	PingInterval     time.Duration `yaml:"pingInterval"`
	WriteTimeout     time.Duration `yaml:"writeTimeout"`
	OutboxSize       int           `yaml:"outboxSize"`
	MaxMessageBytes  int64         `yaml:"maxMessageBytes"`
	MaxViolations    int           `yaml:"maxViolations"`
	MaxConnections   int           `yaml:"maxConnections"`
	AutoPause        bool          `yaml:"autoPause"`
}

// Normalized fills unset fields with defaults. MaxConnections of zero means
// unlimited.
func (cfg Config) Normalized() Config {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.PingInterval >= cfg.IdleTimeout {
		cfg.PingInterval = cfg.IdleTimeout / 2
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = DefaultOutboxSize
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if cfg.MaxViolations <= 0 {
		cfg.MaxViolations = DefaultMaxViolations
	}
	if cfg.MaxConnections < 0 {
		cfg.MaxConnections = 0
	}
	return cfg
}

// Engine is the scheduler surface the handler talks to; *sim.Loop
// satisfies it.
type Engine interface {
	Enqueue(cmd sim.Command) (bool, string)
	EnqueueReliable(cmd sim.Command)
	ForgetActor(actorID uint32)
	Tick() uint64
	Pause()
	Unpause()
}

// Deps carries shared infrastructure for the handler.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	// NextID allocates player ids; it must be safe for concurrent use.
	NextID func() uint32
}

type Handler struct {
	engine    Engine
	registry  *Registry
	cfg       Config
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
	nextID    func() uint32
	upgrader  websocket.Upgrader
}

func NewHandler(engine Engine, cfg Config, deps Deps) *Handler {
	cfg = cfg.Normalized()
	logger := telemetry.OrDiscard(deps.Logger)
	metrics := telemetry.MetricsOrNop(deps.Metrics)
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	nextID := deps.NextID
	if nextID == nil {
		var counter atomic.Uint32
		nextID = func() uint32 { return counter.Add(1) }
	}
	return &Handler{
		engine:    engine,
		registry:  NewRegistry(engine, cfg.AutoPause, logger, metrics),
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		publisher: publisher,
		nextID:    nextID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) Registry() *Registry { return h.registry }

func (h *Handler) Config() Config { return h.cfg }

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	if h.cfg.MaxConnections > 0 && h.registry.Len() >= h.cfg.MaxConnections {
		nethttp.Error(w, "server full", nethttp.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[ws] upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	conn.SetReadLimit(h.cfg.MaxMessageBytes)

	if err := h.handshake(conn); err != nil {
		h.logger.Printf("[ws] handshake with %s failed: %v", r.RemoteAddr, err)
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "handshake")
		conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(h.cfg.WriteTimeout))
		conn.Close()
		return
	}

	session := newSession(h.nextID(), conn, r.RemoteAddr, h.cfg, h.metrics)
	go session.writePump()
	h.registry.Add(session)
	h.engine.EnqueueReliable(sim.Command{
		ActorID:  session.ID(),
		Type:     sim.CommandJoin,
		IssuedAt: time.Now(),
		Join: &sim.JoinCommand{
			Conn:     session,
			Human:    true,
			Remote:   session.Remote(),
			OnJoined: session.bindPlayer,
		},
	})
	h.logger.Printf("[ws] session %d opened from %s", session.ID(), session.Remote())

	reason := h.readLoop(session)
	h.disconnect(session, reason)
}

// handshake expects a protocol version frame then a handshake key frame,
// both within HandshakeTimeout.
func (h *Handler) handshake(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(h.cfg.HandshakeTimeout))
	version, err := readClientFrame(conn)
	if err != nil {
		return err
	}
	v, ok := version.(proto.ProtocolVersion)
	if !ok || v.Version == 0 {
		return fmt.Errorf("%w: expected protocol version, got %T", errHandshake, version)
	}
	key, err := readClientFrame(conn)
	if err != nil {
		return err
	}
	if _, ok := key.(proto.HandshakeKey); !ok {
		return fmt.Errorf("%w: expected handshake key, got %T", errHandshake, key)
	}
	return nil
}

func readClientFrame(conn *websocket.Conn) (proto.Message, error) {
	kind, payload, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if kind != websocket.BinaryMessage {
		return nil, fmt.Errorf("%w: non-binary frame", errHandshake)
	}
	return proto.DecodeClient(payload)
}

func (h *Handler) readLoop(session *Session) string {
	conn := session.conn
	extend := func() {
		conn.SetReadDeadline(time.Now().Add(h.cfg.IdleTimeout))
	}
	extend()
	conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	ctx := intake.CommandContext{Engine: h.engine, Tick: h.engine.Tick}
	violations := 0
	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			if session.Closed() {
				_, reason := session.CloseStatus()
				if reason != "" {
					return reason
				}
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "client closed"
			}
			return "read error"
		}
		extend()

		var msg proto.Message
		if kind != websocket.BinaryMessage {
			err = fmt.Errorf("unexpected frame type %d", kind)
		} else {
			msg, err = proto.DecodeClient(payload)
		}
		if err != nil {
			violations++
			h.reportViolation(session, payload, err, violations)
			if violations >= h.cfg.MaxViolations {
				session.CloseWith(websocket.ClosePolicyViolation, "protocol violation")
				return "protocol violation"
			}
			continue
		}
		if _, ok := msg.(proto.HandshakeKey); ok {
			continue
		}
		_, ok, reason := intake.StageClientCommand(ctx, session.ID(), msg)
		switch {
		case ok:
		case reason == intake.RejectInvalidMessage:
			h.logger.Printf("[ws] session %d sent %T outside the handshake", session.ID(), msg)
		default:
			network.CommandDropped(context.Background(), h.publisher, h.engine.Tick(), sessionRef(session), network.CommandDroppedPayload{
				Command: fmt.Sprintf("%T", msg),
				Reason:  reason,
			})
		}
	}
}

func (h *Handler) reportViolation(session *Session, payload []byte, err error, violations int) {
	h.metrics.Add(violationMetricKey, 1)
	opcode := -1
	if len(payload) > 0 {
		opcode = int(payload[0])
	}
	network.ProtocolViolation(context.Background(), h.publisher, h.engine.Tick(), sessionRef(session), network.ProtocolViolationPayload{
		Opcode:     opcode,
		Length:     len(payload),
		Error:      err.Error(),
		Violations: violations,
	}, nil)
}

// disconnect detaches the player immediately so it stops steering, then
// queues the leave that removes its cells on the next tick.
func (h *Handler) disconnect(session *Session, reason string) {
	session.CloseWith(websocket.CloseNormalClosure, "")
	if p := session.Player(); p != nil {
		p.Detach()
	}
	h.engine.EnqueueReliable(sim.Command{
		ActorID:  session.ID(),
		Type:     sim.CommandLeave,
		IssuedAt: time.Now(),
		Leave:    &sim.LeaveCommand{Reason: reason},
	})
	h.engine.ForgetActor(session.ID())
	h.registry.Remove(session.ID())

	duration := time.Since(session.opened)
	h.logger.Printf("[ws] session %d closed after %s: %s", session.ID(), duration.Round(time.Millisecond), reason)
	network.SessionClosed(context.Background(), h.publisher, h.engine.Tick(), sessionRef(session), network.SessionClosedPayload{
		Reason:        reason,
		DurationMilli: duration.Milliseconds(),
	}, nil)
}

func sessionRef(s *Session) logging.EntityRef {
	return logging.EntityRef{ID: fmt.Sprintf("session-%d", s.ID()), Kind: logging.EntityKindSession}
}

var _ sim.Conn = (*Session)(nil)

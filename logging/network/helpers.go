package network

import (
	"context"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging"
)

const (
	// EventProtocolViolation is emitted when a client message cannot be decoded.
	EventProtocolViolation logging.EventType = "network.protocol_violation"
	// EventSessionClosed is emitted when a websocket session ends.
	EventSessionClosed logging.EventType = "network.session_closed"
	// EventCommandDropped is emitted when the command queue rejects client input.
	EventCommandDropped logging.EventType = "network.command_dropped"
)

// ProtocolViolationPayload captures the decode failure.
type ProtocolViolationPayload struct {
	Opcode     int    `json:"opcode"`
	Length     int    `json:"length"`
	Error      string `json:"error"`
	Violations int    `json:"violations"`
}

// SessionClosedPayload captures why and after how long a session ended.
type SessionClosedPayload struct {
	Reason        string `json:"reason"`
	DurationMilli int64  `json:"durationMillis"`
}

// CommandDroppedPayload names the command and reject reason.
type CommandDroppedPayload struct {
	Command string `json:"command"`
	Reason  string `json:"reason"`
}

// ProtocolViolation publishes a warning for a dropped client message.
func ProtocolViolation(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ProtocolViolationPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventProtocolViolation,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: "network",
		Payload:  payload,
		Extra:    extra,
	})
}

// SessionClosed publishes an info event when a session ends.
func SessionClosed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SessionClosedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionClosed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "network",
		Payload:  payload,
		Extra:    extra,
	})
}

// CommandDropped publishes a debug event for a rejected command.
func CommandDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CommandDroppedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCommandDropped,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: "network",
		Payload:  payload,
	})
}

package gameplay

import (
	"context"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging"
)

const (
	// EventCellEaten is emitted for every resolved eat, before the prey is removed.
	EventCellEaten logging.EventType = "gameplay.cell_eaten"
	// EventSizeClamped is emitted when the size guard replaces a non-finite or non-positive size.
	EventSizeClamped logging.EventType = "gameplay.size_clamped"
	// EventModeHookFailed is emitted when a game-mode hook panics and is skipped.
	EventModeHookFailed logging.EventType = "gameplay.mode_hook_failed"
	// EventResolveFailed is emitted when a single interaction pair panics.
	EventResolveFailed logging.EventType = "gameplay.resolve_failed"
)

// CellEatenPayload describes both sides of an eat at the instant it resolved.
type CellEatenPayload struct {
	EaterKind string  `json:"eaterKind"`
	EatenKind string  `json:"eatenKind"`
	EaterSize float64 `json:"eaterSize"`
	EatenSize float64 `json:"eatenSize"`
}

// SizeClampedPayload records the value the guard rejected.
type SizeClampedPayload struct {
	Kind      string  `json:"kind"`
	Attempted float64 `json:"attempted"`
	Applied   float64 `json:"applied"`
}

// HookFailurePayload names the failing hook and the recovered value.
type HookFailurePayload struct {
	Mode  string `json:"mode"`
	Hook  string `json:"hook"`
	Panic string `json:"panic"`
}

// CellEaten publishes a debug event for an eat.
func CellEaten(ctx context.Context, pub logging.Publisher, tick uint64, eater logging.EntityRef, eaten logging.EntityRef, payload CellEatenPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCellEaten,
		Tick:     tick,
		Actor:    eater,
		Targets:  []logging.EntityRef{eaten},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// SizeClamped publishes a warning when numeric corruption was corrected.
func SizeClamped(ctx context.Context, pub logging.Publisher, tick uint64, cell logging.EntityRef, payload SizeClampedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSizeClamped,
		Tick:     tick,
		Actor:    cell,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// ModeHookFailed publishes an error when a mode hook had to be recovered.
func ModeHookFailed(ctx context.Context, pub logging.Publisher, tick uint64, payload HookFailurePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventModeHookFailed,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: payload.Mode, Kind: logging.EntityKindWorld},
		Severity: logging.SeverityError,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// ResolveFailed publishes an error when one interaction pair was skipped.
func ResolveFailed(ctx context.Context, pub logging.Publisher, tick uint64, eater logging.EntityRef, prey logging.EntityRef, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventResolveFailed,
		Tick:     tick,
		Actor:    eater,
		Targets:  []logging.EntityRef{prey},
		Severity: logging.SeverityError,
		Category: logging.CategoryGameplay,
		Payload:  map[string]string{"panic": reason},
	})
}

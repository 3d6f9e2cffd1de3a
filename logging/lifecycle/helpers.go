package lifecycle

import (
	"context"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging"
)

const (
	// EventPlayerJoined is emitted when a connection is admitted as a player.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerDisconnected is emitted when a player leaves the world.
	EventPlayerDisconnected logging.EventType = "lifecycle.player_disconnected"
	// EventPlayerSpawned is emitted when a player enters the arena with a fresh cell.
	EventPlayerSpawned logging.EventType = "lifecycle.player_spawned"
	// EventPlayerDied is emitted when a player's last cell is eaten.
	EventPlayerDied logging.EventType = "lifecycle.player_died"
	// EventLoopPaused is emitted when the scheduler changes between running and paused.
	EventLoopPaused logging.EventType = "lifecycle.loop_paused"
)

// PlayerJoinedPayload captures connection metadata for a new player.
type PlayerJoinedPayload struct {
	Human  bool   `json:"human"`
	Remote string `json:"remote,omitempty"`
}

// PlayerDisconnectedPayload captures the reason a player left.
type PlayerDisconnectedPayload struct {
	Reason string `json:"reason"`
	Cells  int    `json:"cells"`
}

// PlayerSpawnedPayload captures spawn metadata.
type PlayerSpawnedPayload struct {
	Name   string  `json:"name"`
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
	Mass   float64 `json:"mass"`
}

// PlayerDiedPayload names the player whose last cell was eaten.
type PlayerDiedPayload struct {
	Name string `json:"name"`
}

// LoopPausedPayload records the new scheduler state.
type LoopPausedPayload struct {
	Paused bool `json:"paused"`
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = "lifecycle"
	pub.Publish(ctx, event)
}

// PlayerJoined publishes a player join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{Type: EventPlayerJoined, Tick: tick, Actor: actor, Severity: logging.SeverityInfo, Payload: payload, Extra: extra})
}

// PlayerDisconnected publishes a player disconnect event.
func PlayerDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerDisconnectedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{Type: EventPlayerDisconnected, Tick: tick, Actor: actor, Severity: logging.SeverityInfo, Payload: payload, Extra: extra})
}

// PlayerSpawned publishes a spawn event.
func PlayerSpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerSpawnedPayload) {
	publish(ctx, pub, logging.Event{Type: EventPlayerSpawned, Tick: tick, Actor: actor, Severity: logging.SeverityInfo, Payload: payload})
}

// PlayerDied publishes a death event.
func PlayerDied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerDiedPayload) {
	publish(ctx, pub, logging.Event{Type: EventPlayerDied, Tick: tick, Actor: actor, Severity: logging.SeverityInfo, Payload: payload})
}

// LoopPaused publishes a scheduler state change.
func LoopPaused(ctx context.Context, pub logging.Publisher, tick uint64, paused bool) {
	publish(ctx, pub, logging.Event{
		Type:     EventLoopPaused,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: "loop", Kind: logging.EntityKindWorld},
		Severity: logging.SeverityInfo,
		Payload:  LoopPausedPayload{Paused: paused},
	})
}

// Package intake turns decoded client frames into simulation commands.
package intake

import (
	"time"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/net/proto"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/sim"
)

const (
	// RejectInvalidMessage marks frames that carry no gameplay command.
	RejectInvalidMessage = "invalid_message"
	// RejectUnknownActor marks commands from a session without a player.
	RejectUnknownActor = "unknown_actor"
)

// Enqueuer accepts staged commands; *sim.Loop satisfies it.
type Enqueuer interface {
	Enqueue(cmd sim.Command) (bool, string)
}

type CommandContext struct {
	Engine    Enqueuer
	HasPlayer func(uint32) bool
	Tick      func() uint64
	Now       func() time.Time
}

// ClientCommand maps a decoded client message onto its command. Handshake
// frames and anything else without gameplay meaning report false.
func ClientCommand(msg proto.Message) (sim.Command, bool) {
	switch m := msg.(type) {
	case proto.Mouse:
		return sim.Command{
			Type:  sim.CommandMouse,
			Mouse: &sim.MouseCommand{X: float64(m.X), Y: float64(m.Y)},
		}, true
	case proto.Split:
		return sim.Command{Type: sim.CommandSplit}, true
	case proto.Eject:
		return sim.Command{Type: sim.CommandEject}, true
	case proto.Spawn:
		return sim.Command{
			Type:  sim.CommandSpawn,
			Spawn: &sim.SpawnCommand{Name: m.Name, Skin: m.Skin},
		}, true
	case proto.Spectate:
		return sim.Command{Type: sim.CommandSpectate}, true
	case proto.Roam:
		return sim.Command{Type: sim.CommandRoam}, true
	case proto.ChatSend:
		if m.Text == "" {
			return sim.Command{}, false
		}
		return sim.Command{
			Type: sim.CommandChat,
			Chat: &sim.ChatCommand{Flags: m.Flags, Text: m.Text},
		}, true
	default:
		return sim.Command{}, false
	}
}

// StageClientCommand validates msg for actorID and enqueues the resulting
// command. On rejection it returns the reason.
func StageClientCommand(ctx CommandContext, actorID uint32, msg proto.Message) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := ClientCommand(msg)
	if !ok {
		return zero, false, RejectInvalidMessage
	}
	if ctx.HasPlayer != nil && !ctx.HasPlayer(actorID) {
		return zero, false, RejectUnknownActor
	}

	command.ActorID = actorID
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Engine == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Engine.Enqueue(command); !ok {
		return zero, false, reason
	}
	return command, true, ""
}

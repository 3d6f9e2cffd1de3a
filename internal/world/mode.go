package world

import "github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"

// Mode is a game-mode strategy. Every hook runs on the simulation goroutine
// inside a recover guard; a panicking hook is logged and skipped.
type Mode interface {
	// ID is the game type sent to clients in the border packet.
	ID() uint32
	Name() string
	OnStart(w *World)
	OnTick(w *World)
	OnSecond(w *World)
	// OnPlayerSpawn runs before the player's first cell is created so the
	// mode can assign a team or colour.
	OnPlayerSpawn(w *World, p *entity.Player)
}

// EatFilter lets a mode veto an eat that kind and size rules would allow.
type EatFilter interface {
	CanEat(eater, prey *entity.Cell) bool
}

// LeaderboardBuilder lets a mode replace the default ranked leaderboard.
type LeaderboardBuilder interface {
	BuildLeaderboard(w *World) Leaderboard
}

// baseMode is plain free-for-all with no hooks.
type baseMode struct{}

func (baseMode) ID() uint32                           { return 0 }
func (baseMode) Name() string                         { return "Free For All" }
func (baseMode) OnStart(*World)                       {}
func (baseMode) OnTick(*World)                        {}
func (baseMode) OnSecond(*World)                      {}
func (baseMode) OnPlayerSpawn(*World, *entity.Player) {}

package game

import (
	"time"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/telemetry"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world"
)

// Diagnostics is a copy of the coordinator state taken after every tick.
type Diagnostics struct {
	Tick          uint64              `json:"tick"`
	Paused        bool                `json:"paused"`
	UptimeSeconds float64             `json:"uptimeSeconds"`
	Clients       int                 `json:"clients"`
	World         world.Stats         `json:"world"`
	Leaderboard   world.Leaderboard   `json:"leaderboard"`
	Perf          telemetry.PerfStats `json:"perf"`
	CapturedAt    time.Time           `json:"capturedAt"`
}

func (g *Game) refreshDiagnostics() {
	board := g.world.Leaderboard()
	board.Entries = append(board.Entries[:0:0], board.Entries...)
	board.Lines = append(board.Lines[:0:0], board.Lines...)
	board.Fractions = append(board.Fractions[:0:0], board.Fractions...)
	now := g.clock.Now()
	snapshot := Diagnostics{
		Tick:          g.world.Tick(),
		Paused:        g.Paused(),
		UptimeSeconds: now.Sub(g.started).Seconds(),
		Clients:       len(g.clients),
		World:         g.world.Stats(),
		Leaderboard:   board,
		Perf:          g.perf.Stats(),
		CapturedAt:    now,
	}
	g.diagMu.Lock()
	g.diagnostics = snapshot
	g.diagMu.Unlock()
}

// Diagnostics returns the snapshot taken after the last tick. Safe from any
// goroutine; Paused is read live.
func (g *Game) Diagnostics() Diagnostics {
	g.diagMu.RLock()
	snapshot := g.diagnostics
	g.diagMu.RUnlock()
	snapshot.Paused = g.Paused()
	return snapshot
}

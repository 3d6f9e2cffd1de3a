package modes

import (
	"fmt"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world"
)

// Experimental is free-for-all with the configured number of mothercells
// kept on the map.
type Experimental struct{}

func NewExperimental() *Experimental { return &Experimental{} }

func (e *Experimental) ID() uint32                                 { return 2 }
func (e *Experimental) Name() string                               { return "Experimental" }
func (e *Experimental) OnTick(*world.World)                        {}
func (e *Experimental) OnPlayerSpawn(*world.World, *entity.Player) {}

func (e *Experimental) OnStart(w *world.World) {
	e.maintain(w)
}

func (e *Experimental) OnSecond(w *world.World) {
	e.maintain(w)
}

func (e *Experimental) maintain(w *world.World) {
	if missing := w.Config().Mothercell.Amount - len(w.Cells(entity.KindMothercell)); missing > 0 {
		w.SpawnMothercells(missing)
	}
}

// BuildLeaderboard renders the ranked players as text lines.
func (e *Experimental) BuildLeaderboard(w *world.World) world.Leaderboard {
	ranked := world.RankedLeaderboard(w.Players(), w.Config().LeaderboardSize)
	lines := make([]string, 0, len(ranked.Entries)+1)
	lines = append(lines, e.Name())
	for i, entry := range ranked.Entries {
		lines = append(lines, fmt.Sprintf("%d. %s (%.0f)", i+1, entry.Name, entry.Score))
	}
	return world.Leaderboard{Kind: world.LeaderboardText, Lines: lines}
}

var _ world.LeaderboardBuilder = (*Experimental)(nil)

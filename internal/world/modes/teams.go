package modes

import (
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world"
)

// Teams splits players into fixed teams. Team-mates cannot eat each other's
// cells and the leaderboard shows each team's share of the total mass.
type Teams struct {
	count int
	hues  []float64
}

// NewTeams spaces team hues evenly around the colour wheel.
func NewTeams(count int) *Teams {
	if count < 2 {
		count = 2
	}
	hues := make([]float64, count)
	for i := range hues {
		hues[i] = float64(i) * 360 / float64(count)
	}
	return &Teams{count: count, hues: hues}
}

func (t *Teams) ID() uint32            { return 1 }
func (t *Teams) Name() string          { return "Teams" }
func (t *Teams) OnStart(*world.World)  {}
func (t *Teams) OnTick(*world.World)   {}
func (t *Teams) OnSecond(*world.World) {}

// OnPlayerSpawn puts the player on the team with the fewest alive members
// and paints it a jittered team colour.
func (t *Teams) OnPlayerSpawn(w *world.World, p *entity.Player) {
	sizes := make([]int, t.count)
	for _, other := range w.Players() {
		if other != p && other.State() == entity.StateAlive && other.Team >= 0 && other.Team < t.count {
			sizes[other.Team]++
		}
	}
	team := 0
	for i := 1; i < t.count; i++ {
		if sizes[i] < sizes[team] {
			team = i
		}
	}
	p.Team = team
	p.SetColor(t.Color(team, w))
}

// Color returns a team colour with a little random variance so members stay
// distinguishable.
func (t *Teams) Color(team int, w *world.World) entity.Color {
	rng := w.Rand()
	hue := t.hues[team%t.count] + (world.RandomFloat(rng)-0.5)*20
	if hue < 0 {
		hue += 360
	}
	return world.HSVColor(hue, 0.75+world.RandomFloat(rng)*0.25, 0.8+world.RandomFloat(rng)*0.2)
}

// CanEat forbids eating a team-mate's player cells.
func (t *Teams) CanEat(eater, prey *entity.Cell) bool {
	if eater.Owner == nil || prey.Owner == nil || prey.Kind != entity.KindPlayer {
		return true
	}
	return eater.Owner.Team != prey.Owner.Team
}

// BuildLeaderboard reports each team's fraction of the total player mass.
func (t *Teams) BuildLeaderboard(w *world.World) world.Leaderboard {
	masses := make([]float64, t.count)
	var total float64
	for _, c := range w.Cells(entity.KindPlayer) {
		if c.Owner == nil || c.Owner.Team < 0 || c.Owner.Team >= t.count {
			continue
		}
		masses[c.Owner.Team] += c.Mass()
		total += c.Mass()
	}
	fractions := make([]float64, t.count)
	for i, mass := range masses {
		if total > 0 {
			fractions[i] = mass / total
		}
	}
	return world.Leaderboard{Kind: world.LeaderboardPie, Fractions: fractions}
}

var (
	_ world.EatFilter          = (*Teams)(nil)
	_ world.LeaderboardBuilder = (*Teams)(nil)
)

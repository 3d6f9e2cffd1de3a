package modes

import (
	"errors"
	"math"
	"testing"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/sinks"
)

func newModeWorld(t *testing.T, mode world.Mode, mutate func(*world.Config)) *world.World {
	t.Helper()
	cfg := world.DefaultConfig()
	cfg.Width, cfg.Height = 4000, 4000
	cfg.Food.StartAmount, cfg.Food.MaxAmount, cfg.Food.SpawnPerSecond = 0, 0, 0
	cfg.Virus.MinAmount, cfg.Virus.MaxAmount = 0, 0
	cfg.Mothercell.Amount = 0
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := world.New(cfg, mode, world.Deps{Publisher: sinks.NewMemorySink()})
	if err != nil {
		t.Fatalf("world.New returned error: %v", err)
	}
	return w
}

func placeCell(w *world.World, p *entity.Player, x, y, size float64) *entity.Cell {
	c := w.NewCell(entity.KindPlayer, x, y, size)
	p.AddCell(c)
	p.SetState(entity.StateAlive)
	p.SetMouse(x, y)
	return c
}

func TestNewResolvesModes(t *testing.T) {
	cases := map[string]uint32{
		"":             0,
		"ffa":          0,
		"Teams":        1,
		"experimental": 2,
		"3":            3,
		" rainbow ":    3,
	}
	for name, id := range cases {
		mode, err := New(name, Options{})
		if err != nil {
			t.Fatalf("New(%q) returned error: %v", name, err)
		}
		if mode.ID() != id {
			t.Fatalf("New(%q) id = %d, want %d", name, mode.ID(), id)
		}
	}
	if _, err := New("battle royale", Options{}); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestTeamsForbidTeamMates(t *testing.T) {
	teams := NewTeams(3)
	w := newModeWorld(t, teams, nil)
	big := w.AddPlayer(1, true)
	small := w.AddPlayer(2, true)
	big.Team, small.Team = 0, 0
	placeCell(w, big, 0, 0, 50)
	prey := placeCell(w, small, 0, 0, 40)

	w.Step()
	if prey.Eaten() || prey.Removed() {
		t.Fatalf("team-mate cell was eaten")
	}
	w.EndTick()

	small.Team = 1
	w.Step()
	if !prey.Removed() || prey.EatenBy == nil {
		t.Fatalf("opponent cell survived: removed=%v", prey.Removed())
	}
}

func TestTeamsAllowFeedingTeamMates(t *testing.T) {
	teams := NewTeams(2)
	eater := entity.NewPlayer(1, true)
	feeder := entity.NewPlayer(2, true)
	ejected := &entity.Cell{Kind: entity.KindEjected, Source: feeder}
	cell := &entity.Cell{Kind: entity.KindPlayer, Owner: eater}
	if !teams.CanEat(cell, ejected) {
		t.Fatalf("ejected mass from a team-mate should be edible")
	}
}

func TestTeamsBalanceSpawnsAndReportShares(t *testing.T) {
	teams := NewTeams(3)
	w := newModeWorld(t, teams, nil)
	seen := make(map[int]bool)
	for id := entity.PlayerID(1); id <= 3; id++ {
		p := w.AddPlayer(id, true)
		if w.SpawnPlayer(p, "p", "") == nil {
			t.Fatalf("player %d did not spawn", id)
		}
		seen[p.Team] = true
		if p.Cells()[0].Color() != p.Color() {
			t.Fatalf("cell colour %v does not match team colour %v", p.Cells()[0].Color(), p.Color())
		}
	}
	if len(seen) != 3 {
		t.Fatalf("expected one player per team, got teams %v", seen)
	}

	board := teams.BuildLeaderboard(w)
	if board.Kind != world.LeaderboardPie || len(board.Fractions) != 3 {
		t.Fatalf("unexpected leaderboard %+v", board)
	}
	var sum float64
	for _, f := range board.Fractions {
		sum += f
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("team fractions sum to %v, want 1", sum)
	}
}

func TestExperimentalMaintainsMothercells(t *testing.T) {
	w := newModeWorld(t, NewExperimental(), func(cfg *world.Config) {
		cfg.Mothercell.Amount = 3
	})
	w.Start()
	if got := len(w.Cells(entity.KindMothercell)); got != 3 {
		t.Fatalf("expected 3 mothercells after start, got %d", got)
	}

	w.RemoveCell(w.Cells(entity.KindMothercell)[0])
	w.Mode().OnSecond(w)
	if got := len(w.Cells(entity.KindMothercell)); got != 3 {
		t.Fatalf("expected mothercells topped up to 3, got %d", got)
	}

	board := w.Leaderboard()
	if board.Kind != world.LeaderboardText || len(board.Lines) == 0 || board.Lines[0] != "Experimental" {
		t.Fatalf("unexpected leaderboard %+v", board)
	}
}

func TestRainbowRecoloursInChunks(t *testing.T) {
	rainbow := NewRainbow(4, 30)
	w := newModeWorld(t, rainbow, func(cfg *world.Config) {
		cfg.Food.StartAmount, cfg.Food.MaxAmount = 10, 10
		cfg.Food.RandomizeColors = false
	})
	w.Start()
	pellets := w.Cells(entity.KindPellet)
	if len(pellets) != 10 {
		t.Fatalf("expected 10 pellets, got %d", len(pellets))
	}
	before := make([]entity.Color, len(pellets))
	for i, c := range pellets {
		before[i] = c.Color()
	}

	rainbow.OnTick(w)
	if rainbow.Cursor() != 4 {
		t.Fatalf("cursor = %d, want 4", rainbow.Cursor())
	}
	for i, c := range pellets {
		changed := c.Color() != before[i]
		if changed != (i < 4) {
			t.Fatalf("pellet %d changed=%v after first chunk", i, changed)
		}
	}

	rainbow.OnTick(w)
	rainbow.OnTick(w)
	if rainbow.Cursor() != 2 {
		t.Fatalf("cursor = %d after wrapping, want 2", rainbow.Cursor())
	}
}

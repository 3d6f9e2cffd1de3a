package world

import (
	"math"
	"math/rand"
	"testing"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/gameplay"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/lifecycle"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/sinks"
)

func newTestWorld(t *testing.T, mutate func(*Config)) (*World, *sinks.MemorySink) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 4000, 4000
	cfg.Food.StartAmount, cfg.Food.MaxAmount, cfg.Food.SpawnPerSecond = 0, 0, 0
	cfg.Virus.MinAmount, cfg.Virus.MaxAmount = 0, 0
	cfg.Mothercell.Amount = 0
	cfg.Player.DecayRatePerSec = 0
	if mutate != nil {
		mutate(&cfg)
	}
	memory := sinks.NewMemorySink()
	w, err := New(cfg, nil, Deps{Publisher: memory})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return w, memory
}

// placePlayerCell gives p an alive cell at (x, y) and parks the mouse on it
// so the cell does not steer.
func placePlayerCell(t *testing.T, w *World, p *entity.Player, x, y, size float64) *entity.Cell {
	t.Helper()
	c := w.NewCell(entity.KindPlayer, x, y, size)
	p.AddCell(c)
	p.SetState(entity.StateAlive)
	p.SetMouse(x, y)
	return c
}

func assertWorldConsistent(t *testing.T, w *World) {
	t.Helper()
	if w.IndexLen() != w.CellCount() {
		t.Fatalf("index holds %d cells, collections hold %d", w.IndexLen(), w.CellCount())
	}
	for kind := entity.Kind(0); kind < entity.KindCount; kind++ {
		for i, c := range w.Cells(kind) {
			if c.Slot != i {
				t.Fatalf("%s %d has slot %d, stored at %d", kind, c.ID, c.Slot, i)
			}
			if c.Removed() || !w.index.Has(c) {
				t.Fatalf("%s %d is live but removed=%v indexed=%v", kind, c.ID, c.Removed(), w.index.Has(c))
			}
			size := c.Size()
			if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
				t.Fatalf("%s %d has invalid size %v", kind, c.ID, size)
			}
			if diff := math.Abs(c.Mass() - size*size/100); diff > 1e-6*math.Max(1, c.Mass()) {
				t.Fatalf("%s %d mass %v does not match size %v", kind, c.ID, c.Mass(), size)
			}
		}
	}
	for _, p := range w.Players() {
		if p.CellCount() > w.Config().Player.MaxCells {
			t.Fatalf("player %d owns %d cells, cap %d", p.ID, p.CellCount(), w.Config().Player.MaxCells)
		}
		for _, c := range p.Cells() {
			if c.Removed() || c.Owner != p {
				t.Fatalf("player %d owns stale cell %d", p.ID, c.ID)
			}
		}
	}
}

func TestNewNormalizesConfigAndSeedsRNG(t *testing.T) {
	w, err := New(Config{}, nil, Deps{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	normalized := (Config{}).normalized()
	if got := w.Config(); got != normalized {
		t.Fatalf("Config not normalized: got %+v want %+v", got, normalized)
	}
	if got := w.Seed(); got != normalized.Seed {
		t.Fatalf("Seed mismatch: got %q want %q", got, normalized.Seed)
	}
	expected := NewDeterministicRNG(normalized.Seed, "world")
	if diff := math.Abs(w.Rand().Float64() - expected.Float64()); diff > 1e-9 {
		t.Fatalf("world RNG not seeded deterministically: diff=%f", diff)
	}
	sub := w.SubsystemRNG("test")
	wantSub := NewDeterministicRNG(normalized.Seed, "test")
	if diff := math.Abs(sub.Float64() - wantSub.Float64()); diff > 1e-9 {
		t.Fatalf("subsystem RNG mismatch: diff=%f", diff)
	}
	if w.Mode().Name() == "" {
		t.Fatalf("expected a default mode")
	}
}

func TestNewUsesInjectedRNGFactory(t *testing.T) {
	calls := 0
	factory := func(rootSeed, label string) *rand.Rand {
		calls++
		return rand.New(rand.NewSource(123))
	}
	w, err := New(Config{Seed: "custom"}, nil, Deps{RNG: factory})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected factory to be invoked once for world RNG, got %d", calls)
	}
	_ = w.SubsystemRNG("other")
	if calls != 2 {
		t.Fatalf("expected factory to be reused for subsystem RNG, got %d calls", calls)
	}
}

func TestStartSeedsFoodAndViruses(t *testing.T) {
	w, _ := newTestWorld(t, func(cfg *Config) {
		cfg.Food.StartAmount, cfg.Food.MaxAmount = 120, 150
		cfg.Virus.MinAmount, cfg.Virus.MaxAmount = 6, 10
	})
	w.Start()
	w.Start()
	if got := len(w.Cells(entity.KindPellet)); got != 120 {
		t.Fatalf("expected 120 pellets, got %d", got)
	}
	if got := len(w.Cells(entity.KindVirus)); got != 6 {
		t.Fatalf("expected 6 viruses, got %d", got)
	}
	assertWorldConsistent(t, w)
}

func TestSpawnPlayerSanitizesName(t *testing.T) {
	w, memory := newTestWorld(t, func(cfg *Config) {
		cfg.Player.MaxNameLength = 5
	})
	p := w.AddPlayer(1, true)
	c := w.SpawnPlayer(p, "  abcdefgh\x00 ", "skin")
	if c == nil {
		t.Fatalf("expected spawn to create a cell")
	}
	if p.Name() != "abcde" || c.Name() != "abcde" {
		t.Fatalf("expected truncated name, got %q / %q", p.Name(), c.Name())
	}
	if p.State() != entity.StateAlive || p.CellCount() != 1 {
		t.Fatalf("expected alive player with one cell, got %s/%d", p.State(), p.CellCount())
	}
	if w.SpawnPlayer(p, "again", "") != nil {
		t.Fatalf("expected second spawn while alive to be ignored")
	}
	if len(memory.EventsOfType(lifecycle.EventPlayerSpawned)) != 1 {
		t.Fatalf("expected one spawn event")
	}

	q := w.AddPlayer(2, false)
	w.SpawnPlayer(q, "   ", "")
	if q.Name() != w.Config().Player.DefaultPlayerName {
		t.Fatalf("expected default name, got %q", q.Name())
	}
}

func TestRemovePlayerRemovesOwnedCells(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	p := w.AddPlayer(7, true)
	placePlayerCell(t, w, p, 0, 0, 50)
	placePlayerCell(t, w, p, 300, 0, 50)
	removed, ok := w.RemovePlayer(7)
	if !ok || removed != 2 {
		t.Fatalf("expected two removed cells, got %d ok=%v", removed, ok)
	}
	if w.Player(7) != nil || len(w.Players()) != 0 {
		t.Fatalf("expected player to be gone")
	}
	if len(w.Removed()) != 2 || w.CellCount() != 0 {
		t.Fatalf("expected removals to be recorded, removed=%d cells=%d", len(w.Removed()), w.CellCount())
	}
	w.EndTick()
	if len(w.Removed()) != 0 {
		t.Fatalf("expected EndTick to clear removals")
	}
	assertWorldConsistent(t, w)
}

func TestSizeGuardReportsClamp(t *testing.T) {
	w, memory := newTestWorld(t, nil)
	mother := w.NewCell(entity.KindMothercell, 0, 0, 149)
	w.setMass(mother, -5)
	if size := mother.Size(); math.IsNaN(size) || size != 149 {
		t.Fatalf("expected clamp to the default size, got %v", size)
	}
	if mother.Mass() < 0 {
		t.Fatalf("expected non-negative mass, got %v", mother.Mass())
	}
	if w.Stats().Clamps != 1 {
		t.Fatalf("expected one clamp, got %d", w.Stats().Clamps)
	}
	if len(memory.EventsOfType(gameplay.EventSizeClamped)) != 1 {
		t.Fatalf("expected a size_clamped event")
	}
	assertWorldConsistent(t, w)
}

type panicMode struct{ baseMode }

func (panicMode) Name() string    { return "panic" }
func (panicMode) OnTick(w *World) { panic("boom") }

func TestModeHookPanicIsRecovered(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := DefaultConfig()
	cfg.Food.StartAmount, cfg.Virus.MinAmount = 0, 0
	w, err := New(cfg, panicMode{}, Deps{Publisher: memory})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	w.Step()
	w.Step()
	if w.Tick() != 2 {
		t.Fatalf("expected ticks to keep advancing, got %d", w.Tick())
	}
	events := memory.EventsOfType(gameplay.EventModeHookFailed)
	if len(events) != 2 {
		t.Fatalf("expected two hook failure events, got %d", len(events))
	}
	payload, ok := events[0].Payload.(gameplay.HookFailurePayload)
	if !ok || payload.Hook != "OnTick" || payload.Panic != "boom" {
		t.Fatalf("unexpected payload %+v", events[0].Payload)
	}
}

type recordingSnapshots struct {
	ticks   []uint64
	players int
}

func (r *recordingSnapshots) OnSnapshot(tick uint64, players []PlayerSample) {
	r.ticks = append(r.ticks, tick)
	r.players = len(players)
}

func TestSnapshotObserverRunsEveryTick(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	obs := &recordingSnapshots{}
	w.AddSnapshotObserver(obs)
	w.AddPlayer(1, true)
	w.AddPlayer(2, false)
	for i := 0; i < 3; i++ {
		w.Step()
	}
	if len(obs.ticks) != 3 || obs.ticks[2] != 3 || obs.players != 2 {
		t.Fatalf("unexpected snapshots ticks=%v players=%d", obs.ticks, obs.players)
	}
}

func TestRandomSimulationKeepsWorldConsistent(t *testing.T) {
	w, _ := newTestWorld(t, func(cfg *Config) {
		cfg.Width, cfg.Height = 1500, 1500
		cfg.Food.StartAmount, cfg.Food.MaxAmount, cfg.Food.SpawnPerSecond = 200, 300, 30
		cfg.Virus.MinAmount, cfg.Virus.MaxAmount = 4, 8
		cfg.Player.StartMass = 60
		cfg.Player.RecombineTicks = 40
		cfg.Player.DecayRatePerSec = 0.01
		cfg.Player.DecayMinMass = 200
	})
	w.Start()
	for i := entity.PlayerID(1); i <= 4; i++ {
		w.SpawnPlayer(w.AddPlayer(i, i%2 == 0), "p", "")
	}
	w.SpawnMothercells(2)
	rng := rand.New(rand.NewSource(99))
	for tick := 0; tick < 400; tick++ {
		for _, p := range w.Players() {
			if p.State() != entity.StateAlive {
				w.SpawnPlayer(p, "again", "")
				continue
			}
			x, y := p.Mouse()
			p.SetMouse(x+rng.Float64()*400-200, y+rng.Float64()*400-200)
			switch rng.Intn(20) {
			case 0:
				w.Split(p)
			case 1:
				w.Eject(p)
			}
		}
		w.Step()
		assertWorldConsistent(t, w)
		w.EndTick()
	}
	if w.Tick() != 400 {
		t.Fatalf("expected 400 ticks, got %d", w.Tick())
	}
}

func TestLeaderboardRanksAlivePlayers(t *testing.T) {
	w, _ := newTestWorld(t, func(cfg *Config) { cfg.LeaderboardSize = 2 })
	small := w.AddPlayer(1, true)
	big := w.AddPlayer(2, true)
	tie := w.AddPlayer(3, true)
	w.AddPlayer(4, true)
	placePlayerCell(t, w, small, -1000, 0, 40)
	placePlayerCell(t, w, big, 0, 1000, 100)
	placePlayerCell(t, w, tie, 1000, 0, 40)
	w.compileLeaderboard()
	board := w.Leaderboard()
	if board.Kind != LeaderboardRanked || len(board.Entries) != 2 {
		t.Fatalf("unexpected leaderboard %+v", board)
	}
	if board.Entries[0].PlayerID != 2 || board.Entries[1].PlayerID != 1 {
		t.Fatalf("unexpected order %+v", board.Entries)
	}
	if w.Leader() != big {
		t.Fatalf("expected the biggest player to lead")
	}
}

func TestSpectatorFollowsLeader(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	leader := w.AddPlayer(1, true)
	placePlayerCell(t, w, leader, 500, -200, 60)
	watcher := w.AddPlayer(2, true)
	if !w.Spectate(watcher) {
		t.Fatalf("expected idle player to spectate")
	}
	if w.Spectate(leader) {
		t.Fatalf("alive players cannot spectate")
	}
	w.Step()
	w.Step()
	view := watcher.View()
	if view.CenterX != 500 || view.CenterY != -200 {
		t.Fatalf("expected spectator to follow leader, got %+v", view)
	}
	if !w.ToggleRoam(watcher) || watcher.State() != entity.StateRoaming {
		t.Fatalf("expected roam toggle")
	}
	watcher.SetMouse(500, 1000)
	w.Step()
	if got := watcher.View(); got.CenterY <= -200 || got.Scale != roamScale {
		t.Fatalf("expected roaming camera to move toward the mouse, got %+v", got)
	}
}

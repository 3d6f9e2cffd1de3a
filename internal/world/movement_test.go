package world

import (
	"math"
	"testing"
	"time"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/sim"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging"
)

func TestSpeedShrinksWithSize(t *testing.T) {
	if Speed(88, 0) != 0 {
		t.Fatalf("expected zero speed for zero size")
	}
	small, big := Speed(88, 30), Speed(88, 300)
	if !(small > big) || big <= 0 {
		t.Fatalf("expected speed to fall with size: %v vs %v", small, big)
	}
}

func TestSteerDoesNotOvershoot(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	p := w.AddPlayer(1, true)
	c := placePlayerCell(t, w, p, 0, 0, 32)
	p.SetMouse(5, 0)
	w.Step()
	if c.X() != 5 || c.Y() != 0 {
		t.Fatalf("expected cell to stop on the mouse, got (%v, %v)", c.X(), c.Y())
	}
	p.SetMouse(1000, 0)
	w.Step()
	if got, want := c.X()-5, Speed(w.Config().Player.SpeedFactor, c.Size()); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected a capped step of %v, got %v", want, got)
	}
}

func TestDetachedPlayerStopsSteering(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	p := w.AddPlayer(1, true)
	c := placePlayerCell(t, w, p, 0, 0, 32)
	p.SetMouse(500, 0)
	p.Detach()
	w.Step()
	if c.X() != 0 {
		t.Fatalf("detached cells must not steer, moved to %v", c.X())
	}
}

func TestBoostDecaysGeometrically(t *testing.T) {
	w, _ := newTestWorld(t, func(cfg *Config) { cfg.BoostDecay = 0.15 })
	c := w.NewCell(entity.KindEjected, 0, 0, sizeForMass(13))
	c.Boost = entity.Boost{DX: 1, Distance: 100}
	w.Step()
	if math.Abs(c.X()-15) > 1e-9 || math.Abs(c.Boost.Distance-85) > 1e-9 {
		t.Fatalf("expected x=15 remaining=85, got x=%v remaining=%v", c.X(), c.Boost.Distance)
	}
	for i := 0; i < 200 && c.Boost.Active(); i++ {
		w.Step()
	}
	if c.Boost.Active() {
		t.Fatalf("expected the boost to run out")
	}
	if math.Abs(c.X()-100) > 1 {
		t.Fatalf("expected total travel close to the boost distance, got %v", c.X())
	}
}

func TestBorderClampInsetsBySize(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	c := w.NewCell(entity.KindEjected, 1990, 0, sizeForMass(13))
	c.Boost = entity.Boost{DX: 1, Distance: 1000}
	w.Step()
	limit := w.Border().MaxX - c.Size()/2
	if c.X() > limit+1e-9 {
		t.Fatalf("expected clamp to %v, got %v", limit, c.X())
	}
	assertWorldConsistent(t, w)
}

func TestDecayBleedsLargeCells(t *testing.T) {
	w, _ := newTestWorld(t, func(cfg *Config) {
		cfg.TickRate = 1
		cfg.Player.DecayRatePerSec = 0.1
		cfg.Player.DecayMinMass = 100
	})
	p := w.AddPlayer(1, true)
	big := placePlayerCell(t, w, p, 0, 0, sizeForMass(200))
	small := placePlayerCell(t, w, p, 1000, 0, sizeForMass(50))
	w.Step()
	if math.Abs(big.Mass()-180) > 1e-6 {
		t.Fatalf("expected decay to 180, got %v", big.Mass())
	}
	if math.Abs(small.Mass()-50) > 1e-6 {
		t.Fatalf("small cells must not decay, got %v", small.Mass())
	}
}

type worldCore struct{ w *World }

func (c worldCore) Apply([]sim.Command) error { return nil }
func (c worldCore) Step()                     { c.w.Step(); c.w.EndTick() }
func (c worldCore) Tick() uint64              { return c.w.Tick() }

func TestPausedLoopFreezesWorld(t *testing.T) {
	w, _ := newTestWorld(t, func(cfg *Config) {
		cfg.Food.StartAmount, cfg.Food.MaxAmount, cfg.Food.SpawnPerSecond = 50, 500, 100
	})
	w.Start()
	p := w.AddPlayer(1, true)
	c := placePlayerCell(t, w, p, 0, 0, 40)
	p.SetMouse(1000, 0)

	now := time.Unix(1_700_000_000, 0)
	clock := logging.ClockFunc(func() time.Time { return now })
	loop := sim.NewLoop(worldCore{w: w}, sim.LoopConfig{TickRate: 25}, sim.Deps{Clock: clock}, sim.LoopHooks{})
	interval := loop.Config().Interval()

	loop.Poll(now)
	now = now.Add(interval)
	loop.Poll(now)
	if w.Tick() != 1 {
		t.Fatalf("expected one tick before pausing, got %d", w.Tick())
	}

	loop.Pause()
	tick, cells, x := w.Tick(), w.CellCount(), c.X()
	for i := 0; i < 100; i++ {
		now = now.Add(interval)
		loop.Poll(now)
	}
	if w.Tick() != tick || w.CellCount() != cells || c.X() != x {
		t.Fatalf("paused world changed: tick %d->%d cells %d->%d x %v->%v", tick, w.Tick(), cells, w.CellCount(), x, c.X())
	}

	loop.Unpause()
	now = now.Add(interval)
	loop.Poll(now)
	now = now.Add(interval)
	loop.Poll(now)
	if w.Tick() != tick+1 {
		t.Fatalf("expected exactly one tick after resuming, got %d", w.Tick()-tick)
	}
	if c.X() <= x {
		t.Fatalf("expected movement to resume")
	}
}

package world

import (
	"math"
	"testing"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/lifecycle"
)

func TestCanEatThreshold(t *testing.T) {
	cases := []struct {
		name  string
		eater float64
		prey  float64
		want  bool
	}{
		{name: "clearly smaller", eater: 50, prey: 40, want: true},
		{name: "just too big", eater: 50, prey: 46, want: false},
		{name: "exact threshold", eater: 55, prey: 50, want: true},
		{name: "equal", eater: 50, prey: 50, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanEat(tc.eater, tc.prey, 1.1); got != tc.want {
				t.Fatalf("CanEat(%v, %v, 1.1) = %v, want %v", tc.eater, tc.prey, got, tc.want)
			}
		})
	}
}

type recordedEat struct {
	eaterSize float64
	eatenSize float64
	removed   bool
}

type recordingEats struct {
	calls []recordedEat
}

func (r *recordingEats) OnEat(eaten, eater *entity.Cell) {
	r.calls = append(r.calls, recordedEat{eaterSize: eater.Size(), eatenSize: eaten.Size(), removed: eaten.Removed()})
}

func TestResolverEatScenario(t *testing.T) {
	t.Run("prey 40 is eaten", func(t *testing.T) {
		w, memory := newTestWorld(t, func(cfg *Config) { cfg.EatMultiplier = 1.1 })
		obs := &recordingEats{}
		w.AddEatObserver(obs)
		hunter := w.AddPlayer(1, true)
		victim := w.AddPlayer(2, true)
		eater := placePlayerCell(t, w, hunter, 0, 0, 50)
		prey := placePlayerCell(t, w, victim, 5, 0, 40)

		w.Step()

		if !prey.Removed() || prey.EatenBy != eater {
			t.Fatalf("expected prey to be eaten by the hunter")
		}
		if got := eater.SquareSize(); math.Abs(got-4100) > 1e-6 {
			t.Fatalf("expected eater square size 4100, got %v", got)
		}
		if len(obs.calls) != 1 || obs.calls[0].eaterSize != 50 || obs.calls[0].removed {
			t.Fatalf("expected one observer call before mutation, got %+v", obs.calls)
		}
		eats := w.Eats()
		if len(eats) != 1 || eats[0].Eater != eater || eats[0].Eaten != prey || eats[0].Merge {
			t.Fatalf("unexpected eat records %+v", eats)
		}
		if victim.State() != entity.StateIdle {
			t.Fatalf("expected victim to return to idle, got %s", victim.State())
		}
		if len(memory.EventsOfType(lifecycle.EventPlayerDied)) != 1 {
			t.Fatalf("expected a death event")
		}
		assertWorldConsistent(t, w)
	})

	t.Run("prey 46 survives", func(t *testing.T) {
		w, _ := newTestWorld(t, func(cfg *Config) { cfg.EatMultiplier = 1.1 })
		hunter := w.AddPlayer(1, true)
		victim := w.AddPlayer(2, true)
		eater := placePlayerCell(t, w, hunter, 0, 0, 50)
		prey := placePlayerCell(t, w, victim, 5, 0, 46)

		w.Step()

		if prey.Removed() || eater.Removed() {
			t.Fatalf("expected neither cell to be eaten")
		}
		if eater.Size() != 50 || prey.Size() != 46 {
			t.Fatalf("sizes changed: eater %v prey %v", eater.Size(), prey.Size())
		}
		if len(w.Eats()) != 0 {
			t.Fatalf("expected no eat records")
		}
	})
}

func TestResolverRequiresOverlap(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	hunter := w.AddPlayer(1, true)
	victim := w.AddPlayer(2, true)
	eater := placePlayerCell(t, w, hunter, 0, 0, 100)
	// eatOverlap 0.4: reach is 100 - 20*0.4 = 92.
	prey := placePlayerCell(t, w, victim, 95, 0, 20)
	w.Step()
	if prey.Removed() {
		t.Fatalf("prey outside reach was eaten")
	}
	victim.SetMouse(90, 0)
	prey.SetPosition(90, 0)
	w.relocate(prey)
	w.Step()
	if !prey.Removed() || eater.Removed() {
		t.Fatalf("prey inside reach survived")
	}
}

func TestMergeAfterRecombine(t *testing.T) {
	w, _ := newTestWorld(t, func(cfg *Config) { cfg.Player.RecombineTicks = 1 })
	obs := &recordingEats{}
	w.AddEatObserver(obs)
	p := w.AddPlayer(1, true)
	big := placePlayerCell(t, w, p, 0, 0, 40)
	small := placePlayerCell(t, w, p, 5, 0, 20)
	p.SetMouse(0, 0)

	w.Step()

	if !small.Removed() || big.Removed() {
		t.Fatalf("expected the small cell to merge into the big one")
	}
	if got := big.SquareSize(); math.Abs(got-2000) > 1e-6 {
		t.Fatalf("expected merged square size 2000, got %v", got)
	}
	if p.CellCount() != 1 {
		t.Fatalf("expected one remaining cell, got %d", p.CellCount())
	}
	if len(obs.calls) != 0 {
		t.Fatalf("merges must not notify eat observers")
	}
	if eats := w.Eats(); len(eats) != 1 || !eats[0].Merge {
		t.Fatalf("expected a merge record, got %+v", eats)
	}
}

func TestSiblingsPushApartBeforeRecombine(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	p := w.AddPlayer(1, true)
	a := placePlayerCell(t, w, p, 0, 0, 40)
	b := placePlayerCell(t, w, p, 10, 0, 30)
	p.SetMouse(5, 0)

	w.Step()

	if a.Removed() || b.Removed() {
		t.Fatalf("siblings must not merge before their timers elapse")
	}
	if dist := a.DistanceTo(b); dist < a.Size()+b.Size()-1e-6 {
		t.Fatalf("expected siblings to be separated, dist=%v", dist)
	}
	assertWorldConsistent(t, w)
}

func TestSiblingsIgnoringCollisionOverlap(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	p := w.AddPlayer(1, true)
	a := placePlayerCell(t, w, p, 0, 0, 40)
	b := placePlayerCell(t, w, p, 10, 0, 30)
	p.SetMouse(5, 0)
	b.IgnoreCollision = true
	b.RestoreCollisionTicks = 5

	w.Step()

	if a.DistanceTo(b) >= a.Size()+b.Size() {
		t.Fatalf("expected collision-ignoring siblings to keep overlapping")
	}
	if b.RestoreCollisionTicks != 4 {
		t.Fatalf("expected restore countdown, got %d", b.RestoreCollisionTicks)
	}
}

func TestEatingVirusPopsPlayer(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	p := w.AddPlayer(1, true)
	cell := placePlayerCell(t, w, p, 0, 0, sizeForMass(500))
	virus := w.NewCell(entity.KindVirus, 10, 0, 100)

	w.Step()

	if !virus.Removed() {
		t.Fatalf("expected virus to be eaten")
	}
	if cell.Removed() {
		t.Fatalf("popped cell must survive")
	}
	maxCells := w.Config().Player.MaxCells
	if p.CellCount() < 2 || p.CellCount() > maxCells {
		t.Fatalf("expected pop into 2..%d cells, got %d", maxCells, p.CellCount())
	}
	if got := p.Score(); math.Abs(got-600) > 1e-6 {
		t.Fatalf("expected popped mass 600, got %v", got)
	}
	for _, c := range p.Cells() {
		if c.Mass() < w.Config().Virus.PopMinMass-1e-9 {
			t.Fatalf("piece below pop minimum: %v", c.Mass())
		}
		if !c.IgnoreCollision {
			t.Fatalf("expected popped pieces to ignore sibling collision")
		}
	}
	assertWorldConsistent(t, w)
}

func TestVirusFeedingShootsVirus(t *testing.T) {
	w, _ := newTestWorld(t, func(cfg *Config) {
		cfg.Virus.StartMass = 100
		cfg.Virus.MaxMass = 120
		cfg.Player.EjectMass = 13
	})
	source := w.AddPlayer(1, true)
	virus := w.NewCell(entity.KindVirus, 0, 0, 100)
	for i := 0; i < 2; i++ {
		ejected := w.NewCell(entity.KindEjected, 5, 0, sizeForMass(13))
		ejected.Source = source
		ejected.Boost = entity.Boost{DX: 1, DY: 0, Distance: 0.5}
		w.Step()
	}
	viruses := w.Cells(entity.KindVirus)
	if len(viruses) != 2 {
		t.Fatalf("expected a shot virus, have %d viruses", len(viruses))
	}
	if math.Abs(virus.Size()-100) > 1e-9 {
		t.Fatalf("expected fed virus to reset to start size, got %v", virus.Size())
	}
	var shot *entity.Cell
	for _, v := range viruses {
		if v != virus {
			shot = v
		}
	}
	if shot.Source != source {
		t.Fatalf("expected the shot virus to be attributed to the ejector")
	}
	if !shot.Boost.Active() || shot.Boost.DX != 1 || shot.Boost.DY != 0 {
		t.Fatalf("expected the shot virus to travel along the ejected boost, got %+v", shot.Boost)
	}
}

type noEatMode struct{ baseMode }

func (noEatMode) CanEat(eater, prey *entity.Cell) bool { return false }

func TestModeEatFilterVetoes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Food.StartAmount, cfg.Virus.MinAmount = 0, 0
	w, err := New(cfg, noEatMode{}, Deps{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	hunter := w.AddPlayer(1, true)
	victim := w.AddPlayer(2, true)
	placePlayerCell(t, w, hunter, 0, 0, 100)
	prey := placePlayerCell(t, w, victim, 5, 0, 20)
	w.Step()
	if prey.Removed() {
		t.Fatalf("mode filter did not veto the eat")
	}
}

func TestPopRespectsCellCap(t *testing.T) {
	cases := []struct {
		name      string
		owned     int
		wantCells int
		wantMass  float64
	}{
		{name: "one below cap", owned: 2, wantCells: 3, wantMass: 650},
		{name: "at cap", owned: 3, wantCells: 3, wantMass: 700},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := newTestWorld(t, func(cfg *Config) {
				cfg.Player.MaxCells = 3
			})
			p := w.AddPlayer(1, true)
			for i := 1; i < tc.owned; i++ {
				placePlayerCell(t, w, p, float64(1000*i), 1000, sizeForMass(50))
			}
			cell := placePlayerCell(t, w, p, 0, 0, sizeForMass(500))
			virus := w.NewCell(entity.KindVirus, 10, 0, 100)

			w.Step()

			if !virus.Removed() {
				t.Fatalf("expected virus to be eaten")
			}
			if cell.Removed() {
				t.Fatalf("eater must survive the pop")
			}
			if got := p.CellCount(); got != tc.wantCells {
				t.Fatalf("expected %d cells, got %d", tc.wantCells, got)
			}
			if got := p.Score(); math.Abs(got-tc.wantMass) > 1e-6 {
				t.Fatalf("expected mass %v to be conserved, got %v", tc.wantMass, got)
			}
			assertWorldConsistent(t, w)
		})
	}
}

func TestEatingMothercellPopsPlayer(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	p := w.AddPlayer(1, true)
	cell := placePlayerCell(t, w, p, 0, 0, sizeForMass(1000))
	mother := w.NewCell(entity.KindMothercell, 10, 0, w.Config().Mothercell.Size)
	want := cell.Mass() + mother.Mass()

	w.Step()

	if !mother.Removed() {
		t.Fatalf("expected mothercell to be eaten")
	}
	if cell.Removed() {
		t.Fatalf("eater must survive the pop")
	}
	maxCells := w.Config().Player.MaxCells
	if p.CellCount() < 2 || p.CellCount() > maxCells {
		t.Fatalf("expected pop into 2..%d cells, got %d", maxCells, p.CellCount())
	}
	if got := p.Score(); math.Abs(got-want) > 1e-6 {
		t.Fatalf("expected popped mass %v, got %v", want, got)
	}
	for _, c := range p.Cells() {
		if c.Mass() < w.Config().Virus.PopMinMass-1e-9 {
			t.Fatalf("piece below pop minimum: %v", c.Mass())
		}
	}
	assertWorldConsistent(t, w)
}

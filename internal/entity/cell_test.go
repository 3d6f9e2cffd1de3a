package entity

import (
	"math"
	"math/rand"
	"testing"
)

type fakeEnv struct {
	tick    uint64
	rng     *rand.Rand
	tuning  Tuning
	pellets []*Cell
	pops    []*Cell
	shots   int
	clamps  int
	nextID  CellID
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		rng: rand.New(rand.NewSource(1)),
		tuning: Tuning{
			VirusStartSize:           100,
			VirusMaxSize:             140,
			MothercellSize:           149,
			MothercellPelletsPerTick: 2,
			MothercellSpawnChance:    1,
			FoodLimit:                10,
		},
	}
}

func (e *fakeEnv) Tick() uint64     { return e.tick }
func (e *fakeEnv) Rand() *rand.Rand { return e.rng }
func (e *fakeEnv) Tuning() Tuning   { return e.tuning }
func (e *fakeEnv) PelletCount() int { return len(e.pellets) }
func (e *fakeEnv) RequestPop(c *Cell) {
	e.pops = append(e.pops, c)
}
func (e *fakeEnv) ReportClamp(*Cell, float64) { e.clamps++ }
func (e *fakeEnv) ShootVirus(*Cell, float64, float64, *Player) {
	e.shots++
}
func (e *fakeEnv) SpawnPellet(x, y float64, boost Boost) *Cell {
	e.nextID++
	p := NewCell(e.nextID, KindPellet, x, y, 10, e.tick)
	p.Boost = boost
	e.pellets = append(e.pellets, p)
	return p
}

func assertMassInvariant(t *testing.T, c *Cell) {
	t.Helper()
	size := c.Size()
	if math.IsNaN(size) || size <= 0 {
		t.Fatalf("cell %d has invalid size %v", c.ID, size)
	}
	if diff := math.Abs(c.Mass() - size*size/100); diff > 1e-9 {
		t.Fatalf("cell %d mass %v does not match size %v", c.ID, c.Mass(), size)
	}
}

func TestSetMassRoundTrip(t *testing.T) {
	c := NewCell(1, KindPlayer, 0, 0, 10, 0)
	for _, mass := range []float64{0.01, 1, 10, 400, 22500} {
		if !c.SetMass(mass) {
			t.Fatalf("expected mass %v to be accepted", mass)
		}
		if math.Abs(c.Mass()-mass) > 1e-9 {
			t.Fatalf("expected mass %v, got %v", mass, c.Mass())
		}
		assertMassInvariant(t, c)
	}
}

func TestSizeGuardClampsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		apply func(c *Cell) bool
	}{
		{"negative mass", func(c *Cell) bool { return c.SetMass(-5) }},
		{"zero mass", func(c *Cell) bool { return c.SetMass(0) }},
		{"nan size", func(c *Cell) bool { return c.SetSize(math.NaN()) }},
		{"infinite size", func(c *Cell) bool { return c.SetSize(math.Inf(1)) }},
		{"negative square", func(c *Cell) bool { return c.SetSquareSize(-1) }},
		{"negative size", func(c *Cell) bool { return c.SetSize(-3) }},
	}
	for kind := KindPlayer; kind < KindCount; kind++ {
		for _, tc := range cases {
			t.Run(kind.String()+"/"+tc.name, func(t *testing.T) {
				c := NewCell(1, kind, 0, 0, 60, 0)
				if tc.apply(c) {
					t.Fatalf("expected guard to report a correction")
				}
				if c.Size() != kind.DefaultSize() {
					t.Fatalf("expected default size %v, got %v", kind.DefaultSize(), c.Size())
				}
				assertMassInvariant(t, c)
			})
		}
	}
}

func TestMothercellNegativeMassClampsToDefault(t *testing.T) {
	c := NewCell(7, KindMothercell, 0, 0, 149, 0)
	c.SetMass(-5)
	if math.IsNaN(c.Size()) || c.Size() <= 0 {
		t.Fatalf("expected a positive finite size, got %v", c.Size())
	}
	if c.Size() != 149 {
		t.Fatalf("expected mothercell default size 149, got %v", c.Size())
	}
}

func TestNewCellIsFullyDirty(t *testing.T) {
	c := NewCell(3, KindPellet, 5, 5, 10, 2)
	if c.Dirty() != DirtyAll {
		t.Fatalf("expected all fields dirty on creation, got %b", c.Dirty())
	}
	c.ClearDirty()
	c.SetPosition(5, 5)
	if c.Dirty() != 0 {
		t.Fatalf("expected unchanged position to stay clean")
	}
	c.SetPosition(6, 5)
	c.SetName("x")
	if c.Dirty() != DirtyPosition|DirtyName {
		t.Fatalf("expected position and name dirty, got %b", c.Dirty())
	}
}

func TestSetPositionIgnoresNonFinite(t *testing.T) {
	c := NewCell(1, KindPlayer, 1, 2, 30, 0)
	c.SetPosition(math.NaN(), 4)
	c.SetPosition(3, math.Inf(-1))
	if x, y := c.Position(); x != 1 || y != 2 {
		t.Fatalf("expected position unchanged, got (%v, %v)", x, y)
	}
}

func TestIDSourceSkipsZero(t *testing.T) {
	var ids IDSource
	ids.next.Store(math.MaxUint32 - 1)
	first := ids.Next()
	second := ids.Next()
	if first != math.MaxUint32 {
		t.Fatalf("expected max id first, got %d", first)
	}
	if second != 1 {
		t.Fatalf("expected wraparound to skip zero, got %d", second)
	}
}

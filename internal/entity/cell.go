package entity

import (
	"math"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/spatial"
)

// CellID identifies a cell on the wire. Zero is reserved as the record
// terminator and is never assigned.
type CellID uint32

// Color is an RGB triple.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// Dirty records which mutable fields changed since the last broadcast.
type Dirty uint8

const (
	DirtyPosition Dirty = 1 << iota
	DirtySize
	DirtyColor
	DirtyName
	DirtySkin

	DirtyAll = DirtyPosition | DirtySize | DirtyColor | DirtyName | DirtySkin
)

// Boost is a decaying impulse: a unit direction and the distance still to
// travel along it.
type Boost struct {
	DX       float64
	DY       float64
	Distance float64
}

// Active reports whether any boost distance remains.
func (b Boost) Active() bool {
	return b.Distance > 0
}

// Cell is the single concrete record for every simulated object. Mass and
// square size are views over size; the only way to change any of them is
// through SetSize, SetMass or SetSquareSize, which share one guard.
type Cell struct {
	ID        CellID
	Kind      Kind
	BirthTick uint64

	// Owner is set once when a player cell spawns and is nil for every
	// other kind.
	Owner *Player
	// Source attributes ejected mass and shot viruses to a player without
	// making them owned.
	Source *Player

	Boost                 Boost
	IgnoreCollision       bool
	RestoreCollisionTicks int
	EatenBy               *Cell

	// Slot is the cell's index in the world's per-kind collection. Only the
	// world writes it.
	Slot int

	x       float64
	y       float64
	size    float64
	color   Color
	name    string
	skin    string
	dirty   Dirty
	removed bool
}

// NewCell constructs a cell with every field marked dirty so the first
// broadcast carries the full record.
func NewCell(id CellID, kind Kind, x, y, size float64, tick uint64) *Cell {
	c := &Cell{ID: id, Kind: kind, BirthTick: tick, Slot: -1}
	c.x, c.y = finite(x), finite(y)
	c.size = kind.DefaultSize()
	c.SetSize(size)
	c.dirty = DirtyAll
	return c
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func validSize(size float64) bool {
	return size > 0 && !math.IsInf(size, 0)
}

// Size returns the canonical scale of the cell.
func (c *Cell) Size() float64 { return c.size }

// SquareSize returns size², the quantity that eating adds.
func (c *Cell) SquareSize() float64 { return c.size * c.size }

// Mass returns size²/100.
func (c *Cell) Mass() float64 { return c.size * c.size / 100 }

// SetSize assigns a new size. Non-finite or non-positive values are replaced
// with the kind's default size; the return value is false when that happened.
func (c *Cell) SetSize(size float64) bool {
	ok := validSize(size)
	if !ok {
		size = c.Kind.DefaultSize()
	}
	if size != c.size {
		c.size = size
		c.dirty |= DirtySize
	}
	return ok
}

// SetSquareSize assigns size² and reports whether the guard had to step in.
func (c *Cell) SetSquareSize(square float64) bool {
	if !(square > 0) {
		return c.SetSize(math.NaN())
	}
	return c.SetSize(math.Sqrt(square))
}

// SetMass assigns mass and reports whether the guard had to step in.
func (c *Cell) SetMass(mass float64) bool {
	if !(mass > 0) {
		return c.SetSize(math.NaN())
	}
	return c.SetSize(math.Sqrt(mass * 100))
}

// Position returns the cell centre.
func (c *Cell) Position() (float64, float64) { return c.x, c.y }

func (c *Cell) X() float64 { return c.x }
func (c *Cell) Y() float64 { return c.y }

// SetPosition moves the cell. Non-finite coordinates are ignored.
func (c *Cell) SetPosition(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return
	}
	if x == c.x && y == c.y {
		return
	}
	c.x, c.y = x, y
	c.dirty |= DirtyPosition
}

// Bounds returns the bounding box of the cell's circle.
func (c *Cell) Bounds() spatial.Rect {
	return spatial.RectAround(c.x, c.y, c.size, c.size)
}

func (c *Cell) Color() Color { return c.color }

func (c *Cell) SetColor(color Color) {
	if color == c.color {
		return
	}
	c.color = color
	c.dirty |= DirtyColor
}

func (c *Cell) Name() string { return c.name }

func (c *Cell) SetName(name string) {
	if name == c.name {
		return
	}
	c.name = name
	c.dirty |= DirtyName
}

func (c *Cell) Skin() string { return c.skin }

func (c *Cell) SetSkin(skin string) {
	if skin == c.skin {
		return
	}
	c.skin = skin
	c.dirty |= DirtySkin
}

// Dirty returns the pending change set.
func (c *Cell) Dirty() Dirty { return c.dirty }

// ClearDirty resets the change set after a broadcast.
func (c *Cell) ClearDirty() { c.dirty = 0 }

// Removed reports whether the world has dropped the cell.
func (c *Cell) Removed() bool { return c.removed }

// MarkRemoved flags the cell as gone. It is called by the world only.
func (c *Cell) MarkRemoved() { c.removed = true }

// Eaten reports whether the cell was consumed during the current pass.
func (c *Cell) Eaten() bool { return c.EatenBy != nil }

// DistanceTo returns the centre distance between two cells.
func (c *Cell) DistanceTo(other *Cell) float64 {
	return math.Hypot(other.x-c.x, other.y-c.y)
}

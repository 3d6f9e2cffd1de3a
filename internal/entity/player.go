package entity

import (
	"math"
	"sync/atomic"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/spatial"
)

// PlayerID identifies a player (and its connection) for the process lifetime.
type PlayerID uint32

// PlayerState is the closed set of player lifecycle states.
type PlayerState uint8

const (
	StateIdle PlayerState = iota
	StateAlive
	StateSpectating
	StateRoaming
)

func (s PlayerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAlive:
		return "alive"
	case StateSpectating:
		return "spectating"
	case StateRoaming:
		return "roaming"
	default:
		return "unknown"
	}
}

// View is the camera derived for a player each tick.
type View struct {
	CenterX float64
	CenterY float64
	Scale   float64
	Area    spatial.Rect
}

// Player groups the cells one controller owns. All fields except the
// detached flag belong to the simulation goroutine.
type Player struct {
	ID    PlayerID
	Human bool
	Team  int

	// NoRecombine freezes recombine timers (admin toggle).
	NoRecombine bool

	state         PlayerState
	name          string
	skin          string
	color         Color
	cells         []*Cell
	recombine     map[CellID]int
	eatMultiplier float64
	mouseX        float64
	mouseY        float64
	view          View
	detached      atomic.Bool
}

// NewPlayer constructs an idle player.
func NewPlayer(id PlayerID, human bool) *Player {
	return &Player{
		ID:            id,
		Human:         human,
		recombine:     make(map[CellID]int),
		eatMultiplier: 1,
		view:          View{Scale: 1},
	}
}

func (p *Player) State() PlayerState { return p.state }

func (p *Player) SetState(state PlayerState) { p.state = state }

func (p *Player) Name() string { return p.name }

func (p *Player) SetName(name string) { p.name = name }

func (p *Player) Skin() string { return p.skin }

func (p *Player) SetSkin(skin string) { p.skin = skin }

func (p *Player) Color() Color { return p.color }

// SetColor recolours the player and every owned cell.
func (p *Player) SetColor(color Color) {
	p.color = color
	for _, c := range p.cells {
		c.SetColor(color)
	}
}

// Cells returns the owned cells. The slice is owned by the player and must
// not be retained across ticks.
func (p *Player) Cells() []*Cell { return p.cells }

func (p *Player) CellCount() int { return len(p.cells) }

// Score is the summed mass of every owned cell.
func (p *Player) Score() float64 {
	var total float64
	for _, c := range p.cells {
		total += c.Mass()
	}
	return total
}

// EatMultiplier scales mass gained from eating. Anti-abuse collaborators
// lower it; it defaults to 1.
func (p *Player) EatMultiplier() float64 { return p.eatMultiplier }

// SetEatMultiplier accepts finite non-negative values and ignores the rest.
func (p *Player) SetEatMultiplier(m float64) {
	if math.IsNaN(m) || math.IsInf(m, 0) || m < 0 {
		return
	}
	p.eatMultiplier = m
}

// Mouse returns the actuation target.
func (p *Player) Mouse() (float64, float64) { return p.mouseX, p.mouseY }

// SetMouse updates the actuation target, ignoring non-finite coordinates.
func (p *Player) SetMouse(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return
	}
	p.mouseX, p.mouseY = x, y
}

func (p *Player) View() View { return p.view }

func (p *Player) SetView(view View) { p.view = view }

// Detach stops actuation immediately. It is safe to call from any goroutine.
func (p *Player) Detach() { p.detached.Store(true) }

// Detached reports whether the controlling connection has gone away.
func (p *Player) Detached() bool { return p.detached.Load() }

// AddCell takes ownership of c and starts its recombine timer at zero.
func (p *Player) AddCell(c *Cell) {
	c.Owner = p
	p.cells = append(p.cells, c)
	p.recombine[c.ID] = 0
}

// RemoveCell drops c from the owned set. It reports whether c was owned.
func (p *Player) RemoveCell(c *Cell) bool {
	for i, owned := range p.cells {
		if owned != c {
			continue
		}
		copy(p.cells[i:], p.cells[i+1:])
		p.cells[len(p.cells)-1] = nil
		p.cells = p.cells[:len(p.cells)-1]
		delete(p.recombine, c.ID)
		return true
	}
	return false
}

// RecombineTicks returns how long the cell has been eligible to age.
func (p *Player) RecombineTicks(id CellID) int { return p.recombine[id] }

// ResetRecombine restarts the timer for a freshly split cell.
func (p *Player) ResetRecombine(id CellID) {
	if _, ok := p.recombine[id]; ok {
		p.recombine[id] = 0
	}
}

// AdvanceRecombine ages every timer by one tick while the player owns more
// than one cell. With exactly one cell left every timer returns to zero.
func (p *Player) AdvanceRecombine() {
	if len(p.cells) <= 1 {
		for id := range p.recombine {
			p.recombine[id] = 0
		}
		return
	}
	if p.NoRecombine {
		return
	}
	for id := range p.recombine {
		p.recombine[id]++
	}
}

// CanRecombine reports whether the cell's timer has reached threshold.
func (p *Player) CanRecombine(id CellID, threshold int) bool {
	if p.NoRecombine {
		return false
	}
	return p.recombine[id] >= threshold
}

// Center returns the size-weighted centre of the owned cells.
func (p *Player) Center() (float64, float64, bool) {
	var sx, sy, total float64
	for _, c := range p.cells {
		sx += c.X() * c.Size()
		sy += c.Y() * c.Size()
		total += c.Size()
	}
	if total <= 0 {
		return 0, 0, false
	}
	return sx / total, sy / total, true
}

// TotalSize sums the sizes of the owned cells.
func (p *Player) TotalSize() float64 {
	var total float64
	for _, c := range p.cells {
		total += c.Size()
	}
	return total
}

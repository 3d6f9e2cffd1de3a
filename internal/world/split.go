package world

import (
	"math"
	"math/rand"
	"sort"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
)

// SplitMasses distributes mass into at most budget+1 pieces by repeatedly
// halving the largest piece while its half stays at or above minMass. The
// pieces always sum to mass.
func SplitMasses(mass float64, budget int, minMass float64) []float64 {
	pieces := []float64{mass}
	if budget <= 0 || !(mass > 0) || math.IsInf(mass, 0) {
		return pieces
	}
	for len(pieces)-1 < budget {
		largest := 0
		for i := 1; i < len(pieces); i++ {
			if pieces[i] > pieces[largest] {
				largest = i
			}
		}
		half := pieces[largest] / 2
		if half < minMass {
			break
		}
		pieces[largest] = half
		pieces = append(pieces, half)
	}
	return pieces
}

// Split halves every owned cell heavy enough, largest first, until the
// player reaches its cell cap. It returns the number of new cells.
func (w *World) Split(p *entity.Player) int {
	if p == nil || p.State() != entity.StateAlive {
		return 0
	}
	cfg := w.config.Player
	cells := append([]*entity.Cell(nil), p.Cells()...)
	sort.SliceStable(cells, func(i, j int) bool { return cells[i].Size() > cells[j].Size() })
	mx, my := p.Mouse()
	made := 0
	for _, c := range cells {
		if p.CellCount() >= cfg.MaxCells {
			break
		}
		if c.Removed() || c.Mass() < 2*cfg.MinSplitMass {
			continue
		}
		pieces := SplitMasses(c.Mass(), 1, cfg.MinSplitMass)
		if len(pieces) < 2 {
			continue
		}
		dx, dy := w.directionTo(c, mx, my)
		w.setMass(c, pieces[0])
		w.spawnSibling(c, pieces[1], dx, dy, cfg.SplitBoost)
		made++
	}
	return made
}

// Eject sheds EjectMassLoss from every owned cell heavy enough and launches
// an ejected cell of EjectMass toward the mouse.
func (w *World) Eject(p *entity.Player) int {
	if p == nil || p.State() != entity.StateAlive {
		return 0
	}
	cfg := w.config.Player
	mx, my := p.Mouse()
	cells := append([]*entity.Cell(nil), p.Cells()...)
	made := 0
	for _, c := range cells {
		if c.Removed() || c.Mass() < cfg.MinEjectMass || c.Mass() <= cfg.EjectMassLoss {
			continue
		}
		dx, dy := w.directionTo(c, mx, my)
		dx, dy = rotate(dx, dy, (RandomFloat(w.rng)-0.5)*0.4)
		w.setMass(c, c.Mass()-cfg.EjectMassLoss)
		x, y := c.Position()
		ejected := w.NewCell(entity.KindEjected, x+dx*c.Size(), y+dy*c.Size(), sizeForMass(cfg.EjectMass))
		ejected.SetColor(c.Color())
		ejected.Source = p
		ejected.Boost = entity.Boost{DX: dx, DY: dy, Distance: cfg.EjectBoost}
		made++
	}
	return made
}

// pop bursts a player cell that ate a virus or mothercell into as many
// pieces as the cell cap allows, spread on evenly spaced angles.
func (w *World) pop(c *entity.Cell) {
	p := c.Owner
	if p == nil || c.Removed() || c.Eaten() {
		return
	}
	budget := w.config.Player.MaxCells - p.CellCount()
	if budget <= 0 {
		return
	}
	pieces := SplitMasses(c.Mass(), budget, w.config.Virus.PopMinMass)
	if len(pieces) < 2 {
		return
	}
	w.setMass(c, pieces[0])
	phase := RandomAngle(w.rng)
	step := 2 * math.Pi / float64(len(pieces)-1)
	for i, mass := range pieces[1:] {
		angle := phase + step*float64(i)
		w.spawnSibling(c, mass, math.Cos(angle), math.Sin(angle), w.config.Virus.PopBoost)
	}
}

// spawnSibling creates a new cell for origin's owner at origin's position,
// flying out along (dx, dy). Both cells ignore sibling collision for a while
// and restart their recombine timers.
func (w *World) spawnSibling(origin *entity.Cell, mass, dx, dy, boost float64) *entity.Cell {
	p := origin.Owner
	restore := w.config.Player.CollisionRestore
	x, y := origin.Position()
	sibling := w.NewCell(entity.KindPlayer, x, y, sizeForMass(mass))
	sibling.SetColor(origin.Color())
	sibling.SetName(origin.Name())
	sibling.SetSkin(origin.Skin())
	sibling.Boost = entity.Boost{DX: dx, DY: dy, Distance: boost}
	sibling.IgnoreCollision = true
	sibling.RestoreCollisionTicks = restore
	origin.IgnoreCollision = true
	origin.RestoreCollisionTicks = restore
	p.AddCell(sibling)
	p.ResetRecombine(origin.ID)
	return sibling
}

// ForceMerge absorbs every owned cell into the largest one.
func (w *World) ForceMerge(p *entity.Player) {
	if p == nil || p.CellCount() < 2 {
		return
	}
	cells := append([]*entity.Cell(nil), p.Cells()...)
	sort.SliceStable(cells, func(i, j int) bool { return cells[i].Size() > cells[j].Size() })
	big := cells[0]
	for _, small := range cells[1:] {
		entity.Absorb(big, small, w)
		small.EatenBy = big
		w.eats = append(w.eats, EatEvent{Eater: big, Eaten: small, Merge: true})
		w.RemoveCell(small)
	}
	w.relocate(big)
}

// SetPlayerMass sets every owned cell to mass.
func (w *World) SetPlayerMass(p *entity.Player, mass float64) {
	if p == nil {
		return
	}
	for _, c := range p.Cells() {
		w.setMass(c, mass)
	}
}

// directionTo returns the unit vector from c toward (x, y). A target inside
// the cell's centre picks a random direction.
func (w *World) directionTo(c *entity.Cell, x, y float64) (float64, float64) {
	cx, cy := c.Position()
	return unitOrRandom(x-cx, y-cy, w.rng)
}

func unitOrRandom(dx, dy float64, rng *rand.Rand) (float64, float64) {
	d := math.Hypot(dx, dy)
	if d < 1e-9 || math.IsNaN(d) || math.IsInf(d, 0) {
		angle := RandomAngle(rng)
		return math.Cos(angle), math.Sin(angle)
	}
	return dx / d, dy / d
}

func rotate(dx, dy, angle float64) (float64, float64) {
	sin, cos := math.Sincos(angle)
	return dx*cos - dy*sin, dx*sin + dy*cos
}

package world

import (
	"math"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
)

// Speed is the per-tick travel of a steered player cell. Bigger cells are
// slower.
func Speed(speedFactor, size float64) float64 {
	if size <= 0 {
		return 0
	}
	return speedFactor * math.Pow(size, -0.439)
}

// move runs every cell's passive hook and integrates its motion, then ages
// recombine timers. It finishes before the resolver sees any cell.
func (w *World) move() {
	for kind := entity.Kind(0); kind < entity.KindCount; kind++ {
		w.eaterScratch = append(w.eaterScratch[:0], w.cells[kind]...)
		for _, c := range w.eaterScratch {
			if c.Removed() {
				continue
			}
			entity.Tick(c, w)
			w.moveCell(c)
		}
	}
	clear(w.eaterScratch)
	for _, p := range w.players {
		p.AdvanceRecombine()
	}
}

func (w *World) moveCell(c *entity.Cell) {
	if c.Kind == entity.KindPlayer && c.Owner != nil && !c.Owner.Detached() && c.Owner.State() == entity.StateAlive {
		w.steer(c)
	}
	if c.Boost.Active() {
		w.applyBoost(c)
	}
	if c.RestoreCollisionTicks > 0 {
		c.RestoreCollisionTicks--
		if c.RestoreCollisionTicks == 0 {
			c.IgnoreCollision = false
		}
	}
	if c.Dirty()&(entity.DirtyPosition|entity.DirtySize) == 0 {
		return
	}
	c.SetPosition(w.border.ClampPoint(c.X(), c.Y(), c.Size()/2))
	w.relocate(c)
}

// steer moves c toward its owner's mouse, never overshooting the target.
func (w *World) steer(c *entity.Cell) {
	mx, my := c.Owner.Mouse()
	x, y := c.Position()
	dx, dy := mx-x, my-y
	dist := math.Hypot(dx, dy)
	if dist < 1 {
		return
	}
	step := math.Min(Speed(w.config.Player.SpeedFactor, c.Size()), dist)
	c.SetPosition(x+dx/dist*step, y+dy/dist*step)
}

// applyBoost travels a fixed fraction of the remaining boost distance and
// decays it geometrically, stopping once less than one unit is left. The
// direction is kept so a virus fed by this cell can shoot along it.
func (w *World) applyBoost(c *entity.Cell) {
	decay := w.config.BoostDecay
	step := c.Boost.Distance * decay
	x, y := c.Position()
	c.SetPosition(x+c.Boost.DX*step, y+c.Boost.DY*step)
	c.Boost.Distance *= 1 - decay
	if c.Boost.Distance < 1 {
		c.Boost.Distance = 0
	}
}

// decay bleeds mass from large player cells once per second.
func (w *World) decay() {
	rate := w.config.Player.DecayRatePerSec
	if rate <= 0 {
		return
	}
	for _, c := range w.cells[entity.KindPlayer] {
		if mass := c.Mass(); mass > w.config.Player.DecayMinMass {
			w.setMass(c, mass*(1-rate))
		}
	}
}

package world

import (
	"context"
	"fmt"
	"math"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/gameplay"
)

// CanEat reports whether a cell of eaterSize is large enough to consume a
// cell of preySize under multiplier.
func CanEat(eaterSize, preySize, multiplier float64) bool {
	return eaterSize >= preySize*multiplier
}

// resolve runs one interaction pass. Every eater-capable cell queries the
// index with its bounds and resolves each candidate pair; pops and removals
// are deferred until the pass completes.
func (w *World) resolve() {
	for kind := entity.Kind(0); kind < entity.KindCount; kind++ {
		if !entity.IsEater(kind) {
			continue
		}
		w.eaterScratch = append(w.eaterScratch[:0], w.cells[kind]...)
		for _, eater := range w.eaterScratch {
			if eater.Removed() || eater.Eaten() {
				continue
			}
			w.candidateScratch = w.index.Collect(eater.Bounds(), w.candidateScratch[:0])
			for _, other := range w.candidateScratch {
				if eater.Eaten() {
					break
				}
				w.resolvePair(eater, other)
			}
		}
	}
	clear(w.eaterScratch)
	clear(w.candidateScratch)

	for _, c := range w.pops {
		w.pop(c)
	}
	clear(w.pops)
	w.pops = w.pops[:0]

	for _, c := range w.eaten {
		w.RemoveCell(c)
	}
	clear(w.eaten)
	w.eaten = w.eaten[:0]
}

func (w *World) resolvePair(a, b *entity.Cell) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Printf("[resolve] pair %d/%d panicked at tick %d: %v", a.ID, b.ID, w.tick, r)
			gameplay.ResolveFailed(context.Background(), w.publisher, w.tick, cellRef(a), cellRef(b), fmt.Sprint(r))
		}
	}()
	if a == b || b.Removed() || b.Eaten() {
		return
	}
	if a.Kind == entity.KindPlayer && b.Kind == entity.KindPlayer && a.Owner != nil && a.Owner == b.Owner {
		w.resolveSiblings(a, b)
		return
	}
	if filter, ok := w.mode.(EatFilter); ok && !filter.CanEat(a, b) {
		return
	}
	if !entity.CanEatKind(a.Kind, b.Kind) {
		return
	}
	if !CanEat(a.Size(), b.Size(), w.config.EatMultiplier) {
		return
	}
	if a.DistanceTo(b) > a.Size()-b.Size()*w.config.EatOverlap {
		return
	}
	w.eat(a, b)
}

func (w *World) eat(eater, prey *entity.Cell) {
	for _, o := range w.eatObservers {
		o.OnEat(prey, eater)
	}
	entity.Eat(eater, prey, w)
	if prey.EatenBy == nil {
		prey.EatenBy = eater
	}
	w.eats = append(w.eats, EatEvent{Eater: eater, Eaten: prey})
	w.eaten = append(w.eaten, prey)
	w.relocate(eater)
}

// resolveSiblings merges two cells of one player once both recombine timers
// have elapsed and they overlap far enough. Before that they push apart
// unless one of them is still flying out of a split.
func (w *World) resolveSiblings(a, b *entity.Cell) {
	owner := a.Owner
	threshold := w.config.Player.RecombineTicks
	if owner.CanRecombine(a.ID, threshold) && owner.CanRecombine(b.ID, threshold) {
		big, small := a, b
		if small.Size() > big.Size() {
			big, small = small, big
		}
		if big.DistanceTo(small) <= big.Size()-small.Size()/2 {
			w.merge(big, small)
		}
		return
	}
	if a.IgnoreCollision || b.IgnoreCollision {
		return
	}
	w.pushApart(a, b)
}

func (w *World) merge(big, small *entity.Cell) {
	entity.Absorb(big, small, w)
	small.EatenBy = big
	w.eats = append(w.eats, EatEvent{Eater: big, Eaten: small, Merge: true})
	w.eaten = append(w.eaten, small)
	w.relocate(big)
}

// pushApart separates two overlapping circles, moving each in proportion to
// the other's size so the smaller cell gives way more.
func (w *World) pushApart(a, b *entity.Cell) {
	ax, ay := a.Position()
	bx, by := b.Position()
	dx, dy := bx-ax, by-ay
	dist := math.Hypot(dx, dy)
	overlap := a.Size() + b.Size() - dist
	if overlap <= 0 {
		return
	}
	if dist < 1e-9 {
		angle := RandomAngle(w.rng)
		dx, dy = math.Cos(angle), math.Sin(angle)
	} else {
		dx, dy = dx/dist, dy/dist
	}
	total := a.Size() + b.Size()
	shareA := overlap * b.Size() / total
	shareB := overlap * a.Size() / total
	a.SetPosition(w.border.ClampPoint(ax-dx*shareA, ay-dy*shareA, a.Size()/2))
	b.SetPosition(w.border.ClampPoint(bx+dx*shareB, by+dy*shareB, b.Size()/2))
	w.relocate(a)
	w.relocate(b)
}

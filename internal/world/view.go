package world

import (
	"math"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/spatial"
)

const roamScale = 0.25

// ViewScale shrinks the camera as the player's summed size grows.
func ViewScale(totalSize float64) float64 {
	if totalSize <= 0 {
		return 1
	}
	return math.Pow(math.Min(64/totalSize, 1), 0.4)
}

func (w *World) updateViews() {
	leader := w.Leader()
	for _, p := range w.players {
		view := p.View()
		switch p.State() {
		case entity.StateAlive:
			x, y, ok := p.Center()
			if !ok {
				continue
			}
			view.CenterX, view.CenterY = x, y
			view.Scale = ViewScale(p.TotalSize())
		case entity.StateSpectating:
			if leader == nil {
				view.Scale = roamScale
				break
			}
			view = leader.View()
		case entity.StateRoaming:
			mx, my := p.Mouse()
			dx, dy := mx-view.CenterX, my-view.CenterY
			if dist := math.Hypot(dx, dy); dist > 1 {
				step := math.Min(w.config.Player.RoamSpeed, dist)
				view.CenterX += dx / dist * step
				view.CenterY += dy / dist * step
			}
			view.CenterX, view.CenterY = w.border.ClampPoint(view.CenterX, view.CenterY, 0)
			view.Scale = roamScale
		default:
			continue
		}
		halfW := w.config.Player.ViewBaseWidth / 2 / view.Scale
		halfH := w.config.Player.ViewBaseHeight / 2 / view.Scale
		view.Area = spatial.RectAround(view.CenterX, view.CenterY, halfW, halfH)
		p.SetView(view)
	}
}

// Spectate switches a player that is not alive to following the leader.
func (w *World) Spectate(p *entity.Player) bool {
	if p == nil || p.State() == entity.StateAlive {
		return false
	}
	p.SetState(entity.StateSpectating)
	return true
}

// ToggleRoam flips a spectator between following the leader and a free
// camera steered by the mouse.
func (w *World) ToggleRoam(p *entity.Player) bool {
	if p == nil {
		return false
	}
	switch p.State() {
	case entity.StateSpectating:
		p.SetState(entity.StateRoaming)
	case entity.StateRoaming:
		p.SetState(entity.StateSpectating)
	default:
		return false
	}
	return true
}

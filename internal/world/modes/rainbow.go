package modes

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world"
)

// Rainbow is free-for-all where every cell slowly cycles through the hue
// wheel. Each tick recolours at most chunk cells, resuming from a cursor, so
// the cost per tick stays bounded however large the world grows.
type Rainbow struct {
	chunk  int
	speed  float64
	cursor int
}

func NewRainbow(chunk int, speed float64) *Rainbow {
	if chunk <= 0 {
		chunk = 1
	}
	return &Rainbow{chunk: chunk, speed: speed}
}

func (r *Rainbow) ID() uint32                                 { return 3 }
func (r *Rainbow) Name() string                               { return "Rainbow FFA" }
func (r *Rainbow) OnStart(*world.World)                       {}
func (r *Rainbow) OnSecond(*world.World)                      {}
func (r *Rainbow) OnPlayerSpawn(*world.World, *entity.Player) {}

// Cursor reports the flattened index the next tick starts from.
func (r *Rainbow) Cursor() int { return r.cursor }

func (r *Rainbow) OnTick(w *world.World) {
	total := w.CellCount()
	if total == 0 {
		r.cursor = 0
		return
	}
	if r.cursor >= total {
		r.cursor = 0
	}
	for n := min(r.chunk, total); n > 0; n-- {
		if c := cellAt(w, r.cursor); c != nil {
			c.SetColor(r.next(c.Color()))
		}
		r.cursor = (r.cursor + 1) % total
	}
}

func (r *Rainbow) next(current entity.Color) entity.Color {
	h, s, v := colorful.Color{
		R: float64(current.R) / 255,
		G: float64(current.G) / 255,
		B: float64(current.B) / 255,
	}.Hsv()
	if math.IsNaN(h) {
		h = 0
	}
	s = math.Max(s, 0.7)
	v = math.Max(v, 0.85)
	return world.HSVColor(math.Mod(h+r.speed, 360), s, v)
}

// cellAt maps a flattened index over every kind collection to a cell.
func cellAt(w *world.World, idx int) *entity.Cell {
	for kind := entity.Kind(0); kind < entity.KindCount; kind++ {
		cells := w.Cells(kind)
		if idx < len(cells) {
			return cells[idx]
		}
		idx -= len(cells)
	}
	return nil
}

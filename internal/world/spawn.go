package world

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/spatial"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/lifecycle"
)

var (
	virusColor         = entity.Color{R: 51, G: 255, B: 51}
	mothercellColor    = entity.Color{R: 206, G: 99, B: 99}
	defaultPelletColor = entity.Color{R: 80, G: 170, B: 240}
)

// SpawnPlayer gives an idle, spectating or roaming player a fresh cell at a
// position clear of larger cells. It returns nil when the player is already
// alive.
func (w *World) SpawnPlayer(p *entity.Player, name, skin string) *entity.Cell {
	if p == nil || (p.State() == entity.StateAlive && p.CellCount() > 0) {
		return nil
	}
	cfg := w.config.Player
	p.SetName(w.sanitizeName(name))
	p.SetSkin(strings.TrimSpace(skin))
	p.SetColor(RandomColor(w.rng))
	w.runModeHook("OnPlayerSpawn", func() { w.mode.OnPlayerSpawn(w, p) })

	size := sizeForMass(cfg.StartMass)
	x, y := w.findSpawnPosition(size, func(other *entity.Cell) bool {
		return other.Kind != entity.KindPellet && other.Kind != entity.KindEjected && other.Size() > size
	})
	c := w.NewCell(entity.KindPlayer, x, y, size)
	c.SetColor(p.Color())
	c.SetName(p.Name())
	c.SetSkin(p.Skin())
	p.AddCell(c)
	p.SetMouse(x, y)
	p.SetState(entity.StateAlive)

	lifecycle.PlayerSpawned(context.Background(), w.publisher, w.tick, playerRef(p), lifecycle.PlayerSpawnedPayload{
		Name:   p.Name(),
		SpawnX: x,
		SpawnY: y,
		Mass:   c.Mass(),
	})
	return c
}

func (w *World) sanitizeName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\x00", ""))
	if limit := w.config.Player.MaxNameLength; utf8.RuneCountInString(name) > limit {
		name = string([]rune(name)[:limit])
	}
	if name == "" {
		name = w.config.Player.DefaultPlayerName
	}
	return name
}

// findSpawnPosition samples random positions until one is not overlapped by
// any cell blocked reports true for. After SpawnAttempts misses it returns
// the last sample.
func (w *World) findSpawnPosition(size float64, blocked func(*entity.Cell) bool) (float64, float64) {
	var x, y float64
	for attempt := 0; attempt < w.config.Player.SpawnAttempts; attempt++ {
		x, y = RandomPointIn(w.rng, w.border, size)
		free := true
		w.Query(spatial.RectAround(x, y, size, size), func(other *entity.Cell) bool {
			if blocked(other) && math.Hypot(other.X()-x, other.Y()-y) < size+other.Size() {
				free = false
				return false
			}
			return true
		})
		if free {
			return x, y
		}
	}
	return x, y
}

func (w *World) pelletColor() entity.Color {
	if w.config.Food.RandomizeColors {
		return RandomColor(w.rng)
	}
	return defaultPelletColor
}

// SpawnFood places up to n pellets at random positions, respecting the food
// cap. It returns the number placed.
func (w *World) SpawnFood(n int) int {
	placed := 0
	size := sizeForMass(w.config.Food.Mass)
	for ; placed < n && w.PelletCount() < w.config.Food.MaxAmount; placed++ {
		x, y := RandomPointIn(w.rng, w.border, size)
		w.SpawnPellet(x, y, entity.Boost{})
	}
	return placed
}

// SpawnViruses places n viruses away from player cells, ignoring the
// configured maximum. Admin tooling uses it directly.
func (w *World) SpawnViruses(n int) int {
	size := w.tuning.VirusStartSize
	for i := 0; i < n; i++ {
		x, y := w.findSpawnPosition(size, func(other *entity.Cell) bool {
			return other.Kind == entity.KindPlayer || other.Kind == entity.KindVirus || other.Kind == entity.KindMothercell
		})
		virus := w.NewCell(entity.KindVirus, x, y, size)
		virus.SetColor(virusColor)
	}
	return n
}

// SpawnMothercells places n mothercells away from other cells.
func (w *World) SpawnMothercells(n int) int {
	size := w.config.Mothercell.Size
	for i := 0; i < n; i++ {
		x, y := w.findSpawnPosition(size, func(other *entity.Cell) bool {
			return other.Kind != entity.KindPellet && other.Kind != entity.KindEjected
		})
		mother := w.NewCell(entity.KindMothercell, x, y, size)
		mother.SetColor(mothercellColor)
	}
	return n
}

// maintainViruses tops viruses up to the configured minimum.
func (w *World) maintainViruses() {
	if missing := w.config.Virus.MinAmount - len(w.cells[entity.KindVirus]); missing > 0 {
		w.SpawnViruses(missing)
	}
}

// spawnTick regenerates food and viruses once per second.
func (w *World) spawnTick() {
	w.SpawnFood(w.config.Food.SpawnPerSecond)
	w.maintainViruses()
}

package world

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/spatial"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/telemetry"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/gameplay"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/lifecycle"
)

// Deps bundles runtime dependencies required to construct a World instance.
type Deps struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
	// IDs may be shared between worlds so cell ids stay unique per process.
	IDs *entity.IDSource
	RNG RNGFactory
	// Phases, when set, is told as Step enters each phase.
	Phases PhaseTimer
}

// PhaseTimer receives phase boundaries; *telemetry.PerfCollector satisfies it.
type PhaseTimer interface {
	StartPhase(phase string)
}

// EatEvent records one consumption for the tick's outbound delta. Merges
// between a player's own cells are recorded too, flagged with Merge.
type EatEvent struct {
	Eater *entity.Cell
	Eaten *entity.Cell
	Merge bool
}

// EatObserver is notified synchronously before an eat mutates either cell.
type EatObserver interface {
	OnEat(eaten, eater *entity.Cell)
}

// SnapshotObserver receives a per-player summary once per tick.
type SnapshotObserver interface {
	OnSnapshot(tick uint64, players []PlayerSample)
}

// PlayerSample is the per-tick summary handed to snapshot observers.
type PlayerSample struct {
	ID    uint32  `json:"id" msgpack:"id"`
	Name  string  `json:"name" msgpack:"name"`
	State string  `json:"state" msgpack:"state"`
	Team  int     `json:"team" msgpack:"team"`
	Cells int     `json:"cells" msgpack:"cells"`
	Score float64 `json:"score" msgpack:"score"`
	X     float64 `json:"x" msgpack:"x"`
	Y     float64 `json:"y" msgpack:"y"`
}

// Stats is a cheap summary used by diagnostics and the server-info packet.
type Stats struct {
	Tick        uint64          `json:"tick"`
	Players     int             `json:"players"`
	Humans      int             `json:"humans"`
	Alive       int             `json:"alive"`
	Spectators  int             `json:"spectators"`
	Cells       int             `json:"cells"`
	CellsByKind map[string]int  `json:"cellsByKind"`
	Clamps      uint64          `json:"sizeClamps"`
	Mode        string          `json:"mode"`
	Leaderboard LeaderboardKind `json:"leaderboardKind"`
	Border      spatial.Rect    `json:"border"`
}

// World owns every cell and player. All methods must be called from the
// simulation goroutine.
type World struct {
	config Config
	seed   string
	border spatial.Rect
	tuning entity.Tuning

	logger     telemetry.Logger
	publisher  logging.Publisher
	rngFactory RNGFactory
	rng        *rand.Rand
	ids        *entity.IDSource
	phases     PhaseTimer

	index   *spatial.QuadTree[*entity.Cell]
	cells   [entity.KindCount][]*entity.Cell
	players []*entity.Player
	byID    map[entity.PlayerID]*entity.Player

	mode    Mode
	tick    uint64
	started bool

	eatObservers      []EatObserver
	snapshotObservers []SnapshotObserver

	eats    []EatEvent
	removed []*entity.Cell
	eaten   []*entity.Cell
	pops    []*entity.Cell

	leaderboard Leaderboard
	clamps      uint64

	eaterScratch     []*entity.Cell
	candidateScratch []*entity.Cell
	sampleScratch    []PlayerSample
}

// New constructs a world instance with normalized configuration and seeded
// RNG. A nil mode runs plain free-for-all rules.
func New(cfg Config, mode Mode, deps Deps) (*World, error) {
	normalized := cfg.normalized()

	factory := deps.RNG
	if factory == nil {
		factory = NewDeterministicRNG
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	ids := deps.IDs
	if ids == nil {
		ids = &entity.IDSource{}
	}
	if mode == nil {
		mode = baseMode{}
	}

	border := normalized.Border()
	if border.Width() <= 0 || border.Height() <= 0 {
		return nil, fmt.Errorf("world: invalid border %+v", border)
	}

	w := &World{
		config:     normalized,
		seed:       normalized.Seed,
		border:     border,
		logger:     telemetry.OrDiscard(deps.Logger),
		publisher:  publisher,
		rngFactory: factory,
		rng:        factory(normalized.Seed, "world"),
		ids:        ids,
		phases:     deps.Phases,
		index:      spatial.NewQuadTree[*entity.Cell](border, normalized.IndexMaxItems, normalized.IndexMaxDepth),
		byID:       make(map[entity.PlayerID]*entity.Player),
		mode:       mode,
		tuning: entity.Tuning{
			VirusStartSize:           sizeForMass(normalized.Virus.StartMass),
			VirusMaxSize:             sizeForMass(normalized.Virus.MaxMass),
			VirusShotBoost:           normalized.Virus.ShotBoost,
			MothercellSize:           normalized.Mothercell.Size,
			MothercellPelletsPerTick: normalized.Mothercell.PelletsPerTick,
			MothercellSpawnChance:    normalized.Mothercell.SpawnChance,
			MothercellPelletBoost:    normalized.Mothercell.PelletBoost,
			FoodLimit:                normalized.Food.MaxAmount,
		},
	}
	return w, nil
}

func sizeForMass(mass float64) float64 {
	return math.Sqrt(mass * 100)
}

// Start seeds the initial food and viruses and runs the mode's start hook.
// Calling it again is a no-op.
func (w *World) Start() {
	if w == nil || w.started {
		return
	}
	w.started = true
	w.SpawnFood(w.config.Food.StartAmount)
	w.maintainViruses()
	w.runModeHook("OnStart", func() { w.mode.OnStart(w) })
	w.compileLeaderboard()
	w.logger.Printf("[world] started mode=%s border=%.0fx%.0f pellets=%d viruses=%d",
		w.mode.Name(), w.border.Width(), w.border.Height(),
		len(w.cells[entity.KindPellet]), len(w.cells[entity.KindVirus]))
}

// Config returns the normalized configuration captured at construction time.
func (w *World) Config() Config {
	if w == nil {
		return Config{}
	}
	return w.config
}

// Seed reports the deterministic seed applied to the world RNG hierarchy.
func (w *World) Seed() string {
	if w == nil {
		return ""
	}
	return w.seed
}

// SubsystemRNG returns a deterministic RNG derived from the world seed.
func (w *World) SubsystemRNG(label string) *rand.Rand {
	if w == nil || w.rngFactory == nil {
		return NewDeterministicRNG(DefaultSeed, label)
	}
	return w.rngFactory(w.seed, label)
}

func (w *World) Border() spatial.Rect { return w.border }

func (w *World) Mode() Mode { return w.mode }

func (w *World) Logger() telemetry.Logger { return w.logger }

func (w *World) Publisher() logging.Publisher { return w.publisher }

// AddEatObserver registers o for every resolved eat.
func (w *World) AddEatObserver(o EatObserver) {
	if o != nil {
		w.eatObservers = append(w.eatObservers, o)
	}
}

// AddSnapshotObserver registers o for the per-tick player summary.
func (w *World) AddSnapshotObserver(o SnapshotObserver) {
	if o != nil {
		w.snapshotObservers = append(w.snapshotObservers, o)
	}
}

// Step advances the world by one tick: movement, interaction resolution,
// mode hooks, then the once-per-second housekeeping and view updates.
func (w *World) Step() {
	if w == nil {
		return
	}
	w.tick++
	w.phase(telemetry.PhaseMovement)
	w.move()
	w.phase(telemetry.PhaseResolve)
	w.resolve()
	w.retirePlayers()
	w.phase(telemetry.PhaseMode)
	w.runModeHook("OnTick", func() { w.mode.OnTick(w) })
	if w.tick%uint64(w.config.TickRate) == 0 {
		w.spawnTick()
		w.decay()
		w.runModeHook("OnSecond", func() { w.mode.OnSecond(w) })
		w.compileLeaderboard()
	}
	w.updateViews()
	w.notifySnapshot()
}

func (w *World) phase(name string) {
	if w.phases != nil {
		w.phases.StartPhase(name)
	}
}

// EndTick forgets the tick's eat and removal records and clears every dirty
// flag. The coordinator calls it after broadcasting.
func (w *World) EndTick() {
	if w == nil {
		return
	}
	for kind := range w.cells {
		for _, c := range w.cells[kind] {
			c.ClearDirty()
		}
	}
	clear(w.eats)
	w.eats = w.eats[:0]
	clear(w.removed)
	w.removed = w.removed[:0]
}

// Eats returns the tick's eat records. The slice is reused after EndTick.
func (w *World) Eats() []EatEvent { return w.eats }

// Removed returns every cell removed this tick for any reason.
func (w *World) Removed() []*entity.Cell { return w.removed }

// Cells returns the live cells of one kind. The slice must not be modified
// or retained.
func (w *World) Cells(kind entity.Kind) []*entity.Cell {
	if !kind.Valid() {
		return nil
	}
	return w.cells[kind]
}

// CellCount reports the number of live cells of every kind.
func (w *World) CellCount() int {
	total := 0
	for kind := range w.cells {
		total += len(w.cells[kind])
	}
	return total
}

// Query visits every live cell whose bounds intersect area.
func (w *World) Query(area spatial.Rect, visit func(*entity.Cell) bool) {
	w.index.Query(area, func(c *entity.Cell, _ spatial.Rect) bool {
		return visit(c)
	})
}

// IndexLen reports the spatial index population. It equals CellCount.
func (w *World) IndexLen() int { return w.index.Len() }

// NewCell creates a cell of kind at (x, y) and indexes it.
func (w *World) NewCell(kind entity.Kind, x, y, size float64) *entity.Cell {
	x, y = w.border.ClampPoint(x, y, 0)
	c := entity.NewCell(w.ids.Next(), kind, x, y, size, w.tick)
	w.addCell(c)
	return c
}

func (w *World) addCell(c *entity.Cell) {
	list := w.cells[c.Kind]
	c.Slot = len(list)
	w.cells[c.Kind] = append(list, c)
	w.index.Insert(c, c.Bounds())
}

// RemoveCell takes c out of the index, its kind collection and its owner.
func (w *World) RemoveCell(c *entity.Cell) {
	if c == nil || c.Removed() {
		return
	}
	c.MarkRemoved()
	w.index.Remove(c)
	list := w.cells[c.Kind]
	last := len(list) - 1
	if c.Slot >= 0 && c.Slot <= last && list[c.Slot] == c {
		moved := list[last]
		list[c.Slot] = moved
		moved.Slot = c.Slot
		list[last] = nil
		w.cells[c.Kind] = list[:last]
	}
	c.Slot = -1
	if c.Owner != nil {
		c.Owner.RemoveCell(c)
	}
	w.removed = append(w.removed, c)
}

// relocate re-indexes c after a position or size change.
func (w *World) relocate(c *entity.Cell) {
	if c.Removed() {
		return
	}
	w.index.Update(c, c.Bounds())
}

func (w *World) setMass(c *entity.Cell, mass float64) {
	if !c.SetMass(mass) {
		w.ReportClamp(c, mass*100)
	}
	w.relocate(c)
}

// Players returns every player in join order.
func (w *World) Players() []*entity.Player { return w.players }

// Player looks up a player by id.
func (w *World) Player(id entity.PlayerID) *entity.Player { return w.byID[id] }

// AddPlayer registers an idle player. An existing id is returned unchanged.
func (w *World) AddPlayer(id entity.PlayerID, human bool) *entity.Player {
	if p, ok := w.byID[id]; ok {
		return p
	}
	p := entity.NewPlayer(id, human)
	p.SetColor(RandomColor(w.rng))
	w.players = append(w.players, p)
	w.byID[id] = p
	return p
}

// RemovePlayer removes the player and every cell it owns. It returns the
// number of cells removed.
func (w *World) RemovePlayer(id entity.PlayerID) (int, bool) {
	p, ok := w.byID[id]
	if !ok {
		return 0, false
	}
	removed := w.KillPlayer(p)
	delete(w.byID, id)
	for i, candidate := range w.players {
		if candidate == p {
			w.players = append(w.players[:i], w.players[i+1:]...)
			break
		}
	}
	p.SetState(entity.StateIdle)
	return removed, true
}

// KillPlayer removes every cell the player owns. The player returns to idle
// on the next retire pass.
func (w *World) KillPlayer(p *entity.Player) int {
	if p == nil {
		return 0
	}
	owned := append([]*entity.Cell(nil), p.Cells()...)
	for _, c := range owned {
		w.RemoveCell(c)
	}
	return len(owned)
}

// retirePlayers moves alive players without cells back to idle.
func (w *World) retirePlayers() {
	for _, p := range w.players {
		if p.State() != entity.StateAlive || p.CellCount() > 0 {
			continue
		}
		p.SetState(entity.StateIdle)
		lifecycle.PlayerDied(context.Background(), w.publisher, w.tick, playerRef(p), lifecycle.PlayerDiedPayload{Name: p.Name()})
	}
}

// Stats summarises the world for diagnostics.
func (w *World) Stats() Stats {
	stats := Stats{
		Tick:        w.tick,
		Players:     len(w.players),
		Cells:       w.CellCount(),
		CellsByKind: make(map[string]int, entity.KindCount),
		Clamps:      w.clamps,
		Mode:        w.mode.Name(),
		Leaderboard: w.leaderboard.Kind,
		Border:      w.border,
	}
	for kind := range w.cells {
		stats.CellsByKind[entity.Kind(kind).String()] = len(w.cells[kind])
	}
	for _, p := range w.players {
		if p.Human {
			stats.Humans++
		}
		switch p.State() {
		case entity.StateAlive:
			stats.Alive++
		case entity.StateSpectating, entity.StateRoaming:
			stats.Spectators++
		}
	}
	return stats
}

func (w *World) notifySnapshot() {
	if len(w.snapshotObservers) == 0 {
		return
	}
	samples := w.sampleScratch[:0]
	for _, p := range w.players {
		x, y, _ := p.Center()
		samples = append(samples, PlayerSample{
			ID:    uint32(p.ID),
			Name:  p.Name(),
			State: p.State().String(),
			Team:  p.Team,
			Cells: p.CellCount(),
			Score: p.Score(),
			X:     x,
			Y:     y,
		})
	}
	w.sampleScratch = samples
	for _, o := range w.snapshotObservers {
		o.OnSnapshot(w.tick, samples)
	}
}

func (w *World) runModeHook(hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Printf("[mode] %s.%s panicked at tick %d: %v", w.mode.Name(), hook, w.tick, r)
			gameplay.ModeHookFailed(context.Background(), w.publisher, w.tick, gameplay.HookFailurePayload{
				Mode:  w.mode.Name(),
				Hook:  hook,
				Panic: fmt.Sprint(r),
			})
		}
	}()
	fn()
}

func playerRef(p *entity.Player) logging.EntityRef {
	return logging.EntityRef{ID: fmt.Sprintf("player-%d", p.ID), Kind: logging.EntityKindPlayer}
}

func cellRef(c *entity.Cell) logging.EntityRef {
	return logging.EntityRef{ID: fmt.Sprintf("%s-%d", c.Kind, c.ID), Kind: logging.EntityKindCell}
}

// The methods below implement entity.Env.

func (w *World) Tick() uint64 { return w.tick }

func (w *World) Rand() *rand.Rand { return w.rng }

func (w *World) Tuning() entity.Tuning { return w.tuning }

func (w *World) PelletCount() int { return len(w.cells[entity.KindPellet]) }

func (w *World) SpawnPellet(x, y float64, boost entity.Boost) *entity.Cell {
	pellet := w.NewCell(entity.KindPellet, x, y, sizeForMass(w.config.Food.Mass))
	pellet.SetColor(w.pelletColor())
	pellet.Boost = boost
	return pellet
}

func (w *World) ShootVirus(origin *entity.Cell, dx, dy float64, source *entity.Player) {
	dx, dy = unitOrRandom(dx, dy, w.rng)
	x, y := origin.Position()
	virus := w.NewCell(entity.KindVirus, x, y, w.tuning.VirusStartSize)
	virus.SetColor(virusColor)
	virus.Source = source
	virus.Boost = entity.Boost{DX: dx, DY: dy, Distance: w.tuning.VirusShotBoost}
}

func (w *World) RequestPop(c *entity.Cell) {
	w.pops = append(w.pops, c)
}

func (w *World) ReportClamp(c *entity.Cell, attempted float64) {
	w.clamps++
	if n := w.clamps; n&(n-1) == 0 {
		w.logger.Printf("[world] size guard corrected %s %d (attempted square size %v, total %d)", c.Kind, c.ID, attempted, n)
	}
	gameplay.SizeClamped(context.Background(), w.publisher, w.tick, cellRef(c), gameplay.SizeClampedPayload{
		Kind:      c.Kind.String(),
		Attempted: attempted,
		Applied:   c.SquareSize(),
	})
}

var _ entity.Env = (*World)(nil)

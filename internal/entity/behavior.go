package entity

import (
	"math"
	"math/rand"
)

// Tuning carries the constants the per-kind hooks read.
type Tuning struct {
	VirusStartSize           float64
	VirusMaxSize             float64
	VirusShotBoost           float64
	MothercellSize           float64
	MothercellPelletsPerTick int
	MothercellSpawnChance    float64
	MothercellPelletBoost    float64
	FoodLimit                int
}

// Env is what the per-kind hooks may touch. The world implements it; hooks
// never reach global state.
type Env interface {
	Tick() uint64
	Rand() *rand.Rand
	Tuning() Tuning
	PelletCount() int
	// SpawnPellet places a pellet at (x, y) with the supplied boost. It
	// returns nil when the pellet could not be created.
	SpawnPellet(x, y float64, boost Boost) *Cell
	// ShootVirus launches a new virus from origin along (dx, dy).
	ShootVirus(origin *Cell, dx, dy float64, source *Player)
	// RequestPop schedules the player cell to burst after the current
	// resolution pass.
	RequestPop(c *Cell)
	// ReportClamp records that the size guard replaced an invalid size.
	ReportClamp(c *Cell, attempted float64)
}

type behavior struct {
	prey        [KindCount]bool
	onTick      func(c *Cell, env Env)
	whenAte     func(eater, prey *Cell, env Env)
	whenEatenBy func(prey, eater *Cell, env Env)
}

var behaviors = [KindCount]behavior{
	KindPlayer: {
		prey:        preySet(KindPlayer, KindPellet, KindVirus, KindEjected, KindMothercell),
		whenAte:     absorb,
		whenEatenBy: markEaten,
	},
	KindPellet: {
		whenAte:     absorb,
		whenEatenBy: markEaten,
	},
	KindVirus: {
		prey:        preySet(KindEjected),
		whenAte:     virusFeed,
		whenEatenBy: popEater,
	},
	KindEjected: {
		whenAte:     absorb,
		whenEatenBy: markEaten,
	},
	KindMothercell: {
		prey:        preySet(KindPlayer, KindEjected),
		onTick:      mothercellTick,
		whenAte:     absorb,
		whenEatenBy: popEater,
	},
}

func preySet(kinds ...Kind) [KindCount]bool {
	var set [KindCount]bool
	for _, k := range kinds {
		set[k] = true
	}
	return set
}

// CanEatKind reports whether a cell of kind eater may ever consume a cell of
// kind prey, regardless of size.
func CanEatKind(eater, prey Kind) bool {
	if !eater.Valid() || !prey.Valid() {
		return false
	}
	return behaviors[eater].prey[prey]
}

// IsEater reports whether the kind can consume anything at all.
func IsEater(k Kind) bool {
	if !k.Valid() {
		return false
	}
	for _, ok := range behaviors[k].prey {
		if ok {
			return true
		}
	}
	return false
}

// Tick runs the kind's passive per-tick behaviour.
func Tick(c *Cell, env Env) {
	if c == nil || !c.Kind.Valid() {
		return
	}
	if fn := behaviors[c.Kind].onTick; fn != nil {
		fn(c, env)
	}
}

// Eat applies the eater's whenAte hook followed by the prey's whenEatenBy
// hook. Removal is left to the caller.
func Eat(eater, prey *Cell, env Env) {
	if eater == nil || prey == nil || !eater.Kind.Valid() || !prey.Kind.Valid() {
		return
	}
	behaviors[eater.Kind].whenAte(eater, prey, env)
	behaviors[prey.Kind].whenEatenBy(prey, eater, env)
}

// Absorb adds prey's square size to eater without any multiplier. Merges
// between a player's own cells use it.
func Absorb(eater, prey *Cell, env Env) {
	setSquare(eater, eater.SquareSize()+prey.SquareSize(), env)
}

func absorb(eater, prey *Cell, env Env) {
	gain := prey.SquareSize()
	if eater.Owner != nil {
		gain *= eater.Owner.EatMultiplier()
	}
	setSquare(eater, eater.SquareSize()+gain, env)
}

func markEaten(prey, eater *Cell, _ Env) {
	prey.EatenBy = eater
}

func popEater(prey, eater *Cell, env Env) {
	prey.EatenBy = eater
	if eater.Kind == KindPlayer {
		env.RequestPop(eater)
	}
}

func virusFeed(virus, prey *Cell, env Env) {
	absorb(virus, prey, env)
	tuning := env.Tuning()
	if tuning.VirusMaxSize <= 0 || virus.Size() < tuning.VirusMaxSize {
		return
	}
	setSize(virus, tuning.VirusStartSize, env)
	env.ShootVirus(virus, prey.Boost.DX, prey.Boost.DY, prey.Source)
}

// mothercellTick sheds size above the resting size as pellets. At rest it
// occasionally emits a free pellet while the food cap allows.
func mothercellTick(c *Cell, env Env) {
	tuning := env.Tuning()
	rest := tuning.MothercellSize
	if rest <= 0 {
		rest = KindMothercell.DefaultSize()
	}
	if c.Size() > rest {
		for i := 0; i < tuning.MothercellPelletsPerTick && c.Size() > rest; i++ {
			pellet := emitPellet(c, env, tuning.MothercellPelletBoost)
			if pellet == nil {
				break
			}
			setSquare(c, c.SquareSize()-pellet.SquareSize(), env)
			if c.Size() < rest {
				setSize(c, rest, env)
			}
		}
		return
	}
	if env.PelletCount() >= tuning.FoodLimit {
		return
	}
	if env.Rand().Float64() < tuning.MothercellSpawnChance {
		emitPellet(c, env, tuning.MothercellPelletBoost)
	}
}

func emitPellet(c *Cell, env Env, boost float64) *Cell {
	angle := env.Rand().Float64() * 2 * math.Pi
	dx, dy := math.Cos(angle), math.Sin(angle)
	x, y := c.Position()
	return env.SpawnPellet(x+dx*c.Size(), y+dy*c.Size(), Boost{DX: dx, DY: dy, Distance: boost})
}

func setSquare(c *Cell, square float64, env Env) {
	if !c.SetSquareSize(square) {
		env.ReportClamp(c, square)
	}
}

func setSize(c *Cell, size float64, env Env) {
	if !c.SetSize(size) {
		env.ReportClamp(c, size*size)
	}
}

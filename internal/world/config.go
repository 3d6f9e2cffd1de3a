package world

import (
	"math"
	"strings"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/spatial"
)

const (
	DefaultSeed     = "arena"
	DefaultWidth    = 14142.0
	DefaultHeight   = 14142.0
	DefaultTickRate = 25
	DefaultMode     = "ffa"
)

// Config holds every tunable the simulation reads. The zero value is not
// usable; call Normalized or start from DefaultConfig.
type Config struct {
	Seed     string  `json:"seed" yaml:"seed"`
	Width    float64 `json:"width" yaml:"width"`
	Height   float64 `json:"height" yaml:"height"`
	TickRate int     `json:"tickRate" yaml:"tickRate"`
	Mode     string  `json:"mode" yaml:"mode"`

	EatMultiplier   float64 `json:"eatMultiplier" yaml:"eatMultiplier"`
	EatOverlap      float64 `json:"eatOverlap" yaml:"eatOverlap"`
	BoostDecay      float64 `json:"boostDecay" yaml:"boostDecay"`
	LeaderboardSize int     `json:"leaderboardSize" yaml:"leaderboardSize"`
	IndexMaxItems   int     `json:"indexMaxItems" yaml:"indexMaxItems"`
	IndexMaxDepth   int     `json:"indexMaxDepth" yaml:"indexMaxDepth"`

	Player     PlayerConfig     `json:"player" yaml:"player"`
	Food       FoodConfig       `json:"food" yaml:"food"`
	Virus      VirusConfig      `json:"virus" yaml:"virus"`
	Mothercell MothercellConfig `json:"mothercell" yaml:"mothercell"`
}

// PlayerConfig tunes player cells, splitting and ejecting.
type PlayerConfig struct {
	StartMass         float64 `json:"startMass" yaml:"startMass"`
	MaxCells          int     `json:"maxCells" yaml:"maxCells"`
	MinSplitMass      float64 `json:"minSplitMass" yaml:"minSplitMass"`
	MinEjectMass      float64 `json:"minEjectMass" yaml:"minEjectMass"`
	EjectMass         float64 `json:"ejectMass" yaml:"ejectMass"`
	EjectMassLoss     float64 `json:"ejectMassLoss" yaml:"ejectMassLoss"`
	EjectBoost        float64 `json:"ejectBoost" yaml:"ejectBoost"`
	SplitBoost        float64 `json:"splitBoost" yaml:"splitBoost"`
	SpeedFactor       float64 `json:"speedFactor" yaml:"speedFactor"`
	RecombineTicks    int     `json:"recombineTicks" yaml:"recombineTicks"`
	CollisionRestore  int     `json:"collisionRestoreTicks" yaml:"collisionRestoreTicks"`
	MaxNameLength     int     `json:"maxNameLength" yaml:"maxNameLength"`
	ViewBaseWidth     float64 `json:"viewBaseWidth" yaml:"viewBaseWidth"`
	ViewBaseHeight    float64 `json:"viewBaseHeight" yaml:"viewBaseHeight"`
	RoamSpeed         float64 `json:"roamSpeed" yaml:"roamSpeed"`
	SpawnAttempts     int     `json:"spawnAttempts" yaml:"spawnAttempts"`
	DecayRatePerSec   float64 `json:"decayRatePerSecond" yaml:"decayRatePerSecond"`
	DecayMinMass      float64 `json:"decayMinMass" yaml:"decayMinMass"`
	DefaultPlayerName string  `json:"defaultName" yaml:"defaultName"`
}

// FoodConfig tunes pellet regeneration.
type FoodConfig struct {
	Mass            float64 `json:"mass" yaml:"mass"`
	StartAmount     int     `json:"startAmount" yaml:"startAmount"`
	MaxAmount       int     `json:"maxAmount" yaml:"maxAmount"`
	SpawnPerSecond  int     `json:"spawnPerSecond" yaml:"spawnPerSecond"`
	BoostDistance   float64 `json:"boostDistance" yaml:"boostDistance"`
	RandomizeColors bool    `json:"randomizeColors" yaml:"randomizeColors"`
}

// VirusConfig tunes virus maintenance and shooting.
type VirusConfig struct {
	StartMass  float64 `json:"startMass" yaml:"startMass"`
	MaxMass    float64 `json:"maxMass" yaml:"maxMass"`
	MinAmount  int     `json:"minAmount" yaml:"minAmount"`
	MaxAmount  int     `json:"maxAmount" yaml:"maxAmount"`
	ShotBoost  float64 `json:"shotBoost" yaml:"shotBoost"`
	PopBoost   float64 `json:"popBoost" yaml:"popBoost"`
	PopMinMass float64 `json:"popMinMass" yaml:"popMinMass"`
}

// MothercellConfig tunes the pellet-emitting mothercells.
type MothercellConfig struct {
	Size           float64 `json:"size" yaml:"size"`
	Amount         int     `json:"amount" yaml:"amount"`
	PelletsPerTick int     `json:"pelletsPerTick" yaml:"pelletsPerTick"`
	SpawnChance    float64 `json:"spawnChance" yaml:"spawnChance"`
	PelletBoost    float64 `json:"pelletBoost" yaml:"pelletBoost"`
}

func positiveOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fallback
	}
	return v
}

func positiveIntOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func nonNegativeInt(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func (cfg Config) normalized() Config {
	def := DefaultConfig()
	n := cfg
	n.Seed = strings.TrimSpace(n.Seed)
	if n.Seed == "" {
		n.Seed = def.Seed
	}
	n.Mode = strings.ToLower(strings.TrimSpace(n.Mode))
	if n.Mode == "" {
		n.Mode = def.Mode
	}
	n.Width = positiveOr(n.Width, def.Width)
	n.Height = positiveOr(n.Height, def.Height)
	n.TickRate = positiveIntOr(n.TickRate, def.TickRate)
	if !(n.EatMultiplier > 1) || math.IsInf(n.EatMultiplier, 0) {
		n.EatMultiplier = def.EatMultiplier
	}
	if n.EatOverlap < 0 || n.EatOverlap > 1 || math.IsNaN(n.EatOverlap) {
		n.EatOverlap = def.EatOverlap
	}
	if !(n.BoostDecay > 0 && n.BoostDecay < 1) {
		n.BoostDecay = def.BoostDecay
	}
	n.LeaderboardSize = positiveIntOr(n.LeaderboardSize, def.LeaderboardSize)
	n.IndexMaxItems = positiveIntOr(n.IndexMaxItems, def.IndexMaxItems)
	n.IndexMaxDepth = positiveIntOr(n.IndexMaxDepth, def.IndexMaxDepth)

	p, dp := &n.Player, def.Player
	p.StartMass = positiveOr(p.StartMass, dp.StartMass)
	p.MaxCells = positiveIntOr(p.MaxCells, dp.MaxCells)
	p.MinSplitMass = positiveOr(p.MinSplitMass, dp.MinSplitMass)
	p.MinEjectMass = positiveOr(p.MinEjectMass, dp.MinEjectMass)
	p.EjectMass = positiveOr(p.EjectMass, dp.EjectMass)
	p.EjectMassLoss = positiveOr(p.EjectMassLoss, dp.EjectMassLoss)
	if p.EjectMassLoss < p.EjectMass {
		p.EjectMassLoss = p.EjectMass
	}
	p.EjectBoost = positiveOr(p.EjectBoost, dp.EjectBoost)
	p.SplitBoost = positiveOr(p.SplitBoost, dp.SplitBoost)
	p.SpeedFactor = positiveOr(p.SpeedFactor, dp.SpeedFactor)
	p.RecombineTicks = positiveIntOr(p.RecombineTicks, dp.RecombineTicks)
	p.CollisionRestore = positiveIntOr(p.CollisionRestore, dp.CollisionRestore)
	p.MaxNameLength = positiveIntOr(p.MaxNameLength, dp.MaxNameLength)
	p.ViewBaseWidth = positiveOr(p.ViewBaseWidth, dp.ViewBaseWidth)
	p.ViewBaseHeight = positiveOr(p.ViewBaseHeight, dp.ViewBaseHeight)
	p.RoamSpeed = positiveOr(p.RoamSpeed, dp.RoamSpeed)
	p.SpawnAttempts = positiveIntOr(p.SpawnAttempts, dp.SpawnAttempts)
	if p.DecayRatePerSec < 0 || p.DecayRatePerSec >= 1 || math.IsNaN(p.DecayRatePerSec) {
		p.DecayRatePerSec = 0
	}
	p.DecayMinMass = positiveOr(p.DecayMinMass, dp.DecayMinMass)
	p.DefaultPlayerName = strings.TrimSpace(p.DefaultPlayerName)

	f, df := &n.Food, def.Food
	f.Mass = positiveOr(f.Mass, df.Mass)
	f.StartAmount = nonNegativeInt(f.StartAmount)
	f.MaxAmount = nonNegativeInt(f.MaxAmount)
	if f.StartAmount > f.MaxAmount {
		f.StartAmount = f.MaxAmount
	}
	f.SpawnPerSecond = nonNegativeInt(f.SpawnPerSecond)
	f.BoostDistance = positiveOr(f.BoostDistance, df.BoostDistance)

	v, dv := &n.Virus, def.Virus
	v.StartMass = positiveOr(v.StartMass, dv.StartMass)
	v.MaxMass = positiveOr(v.MaxMass, dv.MaxMass)
	if v.MaxMass < v.StartMass {
		v.MaxMass = v.StartMass
	}
	v.MinAmount = nonNegativeInt(v.MinAmount)
	v.MaxAmount = nonNegativeInt(v.MaxAmount)
	if v.MaxAmount < v.MinAmount {
		v.MaxAmount = v.MinAmount
	}
	v.ShotBoost = positiveOr(v.ShotBoost, dv.ShotBoost)
	v.PopBoost = positiveOr(v.PopBoost, dv.PopBoost)
	v.PopMinMass = positiveOr(v.PopMinMass, dv.PopMinMass)

	m, dm := &n.Mothercell, def.Mothercell
	m.Size = positiveOr(m.Size, dm.Size)
	m.Amount = nonNegativeInt(m.Amount)
	m.PelletsPerTick = nonNegativeInt(m.PelletsPerTick)
	if m.SpawnChance < 0 || math.IsNaN(m.SpawnChance) {
		m.SpawnChance = 0
	}
	m.PelletBoost = positiveOr(m.PelletBoost, dm.PelletBoost)
	return n
}

// Normalized returns a copy with defaults filled in and invalid values reset.
func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

// Border returns the world rectangle centred on the origin.
func (cfg Config) Border() spatial.Rect {
	return spatial.Rect{MinX: -cfg.Width / 2, MinY: -cfg.Height / 2, MaxX: cfg.Width / 2, MaxY: cfg.Height / 2}
}

// DefaultConfig mirrors the classic free-for-all tuning.
func DefaultConfig() Config {
	return Config{
		Seed:            DefaultSeed,
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		TickRate:        DefaultTickRate,
		Mode:            DefaultMode,
		EatMultiplier:   1.15,
		EatOverlap:      0.4,
		BoostDecay:      0.15,
		LeaderboardSize: 10,
		IndexMaxItems:   16,
		IndexMaxDepth:   12,
		Player: PlayerConfig{
			StartMass:         10,
			MaxCells:          16,
			MinSplitMass:      18,
			MinEjectMass:      32,
			EjectMass:         13,
			EjectMassLoss:     16,
			EjectBoost:        780,
			SplitBoost:        780,
			SpeedFactor:       88,
			RecombineTicks:    750,
			CollisionRestore:  13,
			MaxNameLength:     15,
			ViewBaseWidth:     1920,
			ViewBaseHeight:    1080,
			RoamSpeed:         32,
			SpawnAttempts:     10,
			DecayRatePerSec:   0.002,
			DecayMinMass:      1000,
			DefaultPlayerName: "An unnamed cell",
		},
		Food: FoodConfig{
			Mass:            1,
			StartAmount:     1000,
			MaxAmount:       2000,
			SpawnPerSecond:  40,
			BoostDistance:   320,
			RandomizeColors: true,
		},
		Virus: VirusConfig{
			StartMass:  100,
			MaxMass:    200,
			MinAmount:  50,
			MaxAmount:  100,
			ShotBoost:  780,
			PopBoost:   780,
			PopMinMass: 16,
		},
		Mothercell: MothercellConfig{
			Size:           149,
			Amount:         20,
			PelletsPerTick: 2,
			SpawnChance:    0.02,
			PelletBoost:    90,
		},
	}
}

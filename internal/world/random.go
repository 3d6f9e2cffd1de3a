package world

import (
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/spatial"
)

// RNGFactory produces deterministic RNG instances for world subsystems.
type RNGFactory func(rootSeed, label string) *rand.Rand

func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(DeterministicSeedValue(rootSeed, label)))
}

func RandomFloat(rng *rand.Rand) float64 {
	if rng == nil {
		return NewDeterministicRNG(DefaultSeed, "world").Float64()
	}
	return rng.Float64()
}

func RandomAngle(rng *rand.Rand) float64 {
	return RandomFloat(rng) * 2 * math.Pi
}

// RandomPointIn picks a uniform point inside bounds shrunk by margin on every
// side. A margin larger than half the extent pins that axis to the centre.
func RandomPointIn(rng *rand.Rand, bounds spatial.Rect, margin float64) (float64, float64) {
	minX, maxX := bounds.MinX+margin, bounds.MaxX-margin
	minY, maxY := bounds.MinY+margin, bounds.MaxY-margin
	cx, cy := bounds.Center()
	x, y := cx, cy
	if maxX > minX {
		x = minX + RandomFloat(rng)*(maxX-minX)
	}
	if maxY > minY {
		y = minY + RandomFloat(rng)*(maxY-minY)
	}
	return x, y
}

// HSVColor converts a hue in degrees plus saturation and value in [0, 1].
func HSVColor(h, s, v float64) entity.Color {
	r, g, b := colorful.Hsv(math.Mod(h, 360), s, v).Clamped().RGB255()
	return entity.Color{R: r, G: g, B: b}
}

// RandomColor returns a saturated, bright colour so cells stay readable on
// the dark board.
func RandomColor(rng *rand.Rand) entity.Color {
	return HSVColor(RandomFloat(rng)*360, 0.65+RandomFloat(rng)*0.35, 0.85+RandomFloat(rng)*0.15)
}

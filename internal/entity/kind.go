package entity

import "math"

// Kind tags every simulated cell. The set is closed; per-kind behaviour is
// looked up in the behaviours table rather than through embedding.
type Kind uint8

const (
	KindPlayer Kind = iota
	KindPellet
	KindVirus
	KindEjected
	KindMothercell

	// KindCount is the number of kinds and sizes per-kind tables.
	KindCount
)

var kindNames = [KindCount]string{
	KindPlayer:     "player",
	KindPellet:     "pellet",
	KindVirus:      "virus",
	KindEjected:    "ejected",
	KindMothercell: "mothercell",
}

// String returns the lowercase kind label used in logs and events.
func (k Kind) String() string {
	if k >= KindCount {
		return "unknown"
	}
	return kindNames[k]
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k < KindCount
}

// defaultSizes are the fallback sizes the size guard substitutes when a
// computed size is not finite and positive.
var defaultSizes = [KindCount]float64{
	KindPlayer:     math.Sqrt(10 * 100),
	KindPellet:     10,
	KindVirus:      100,
	KindEjected:    math.Sqrt(13 * 100),
	KindMothercell: 149,
}

// DefaultSize returns the safe size for the kind.
func (k Kind) DefaultSize() float64 {
	if k >= KindCount {
		return 1
	}
	return defaultSizes[k]
}

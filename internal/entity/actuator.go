package entity

import "sync/atomic"

// Actuator is the control surface shared by human connections and bots.
type Actuator interface {
	SetMouseTarget(x, y float64)
	RequestSplit()
	RequestEject()
	RequestSpawn(name, skin string)
	RequestSpectate()
}

// IDSource hands out cell ids. Several worlds may share one source so ids
// stay unique across the process.
type IDSource struct {
	next atomic.Uint32
}

// Next returns the next id, skipping the reserved zero value on wraparound.
func (s *IDSource) Next() CellID {
	for {
		id := CellID(s.next.Add(1))
		if id != 0 {
			return id
		}
	}
}

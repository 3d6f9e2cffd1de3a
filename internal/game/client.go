package game

import (
	"sort"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/net/proto"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/sim"
)

// client tracks what one connection has been told so far.
type client struct {
	id     uint32
	player *entity.Player
	conn   sim.Conn
	remote string

	visible map[entity.CellID]*entity.Cell
	next    map[entity.CellID]*entity.Cell
	owned   map[entity.CellID]struct{}
}

func newClient(id uint32, p *entity.Player, conn sim.Conn, remote string) *client {
	return &client{
		id:      id,
		player:  p,
		conn:    conn,
		remote:  remote,
		visible: make(map[entity.CellID]*entity.Cell),
		next:    make(map[entity.CellID]*entity.Cell),
		owned:   make(map[entity.CellID]struct{}),
	}
}

func (c *client) resetOwned() {
	clear(c.owned)
}

// newlyOwned returns the player's cells not yet announced with AddNode and
// forgets cells the player no longer owns.
func (c *client) newlyOwned() []uint32 {
	var fresh []uint32
	current := c.player.Cells()
	for _, cell := range current {
		if _, ok := c.owned[cell.ID]; !ok {
			c.owned[cell.ID] = struct{}{}
			fresh = append(fresh, uint32(cell.ID))
		}
	}
	if len(c.owned) > len(current) {
		keep := make(map[entity.CellID]bool, len(current))
		for _, cell := range current {
			keep[cell.ID] = true
		}
		for id := range c.owned {
			if !keep[id] {
				delete(c.owned, id)
			}
		}
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i] < fresh[j] })
	return fresh
}

// nodeRecord builds the wire record for cell. Optional fields are present
// when the client has never seen the cell or they changed this tick.
func nodeRecord(cell *entity.Cell, full bool) proto.NodeRecord {
	rec := proto.NodeRecord{
		ID:   uint32(cell.ID),
		X:    int32(cell.X()),
		Y:    int32(cell.Y()),
		Size: sizeOnWire(cell.Size()),
	}
	switch cell.Kind {
	case entity.KindVirus:
		rec.Flags |= proto.NodeVirus
	case entity.KindMothercell:
		rec.Flags |= proto.NodeAgitated
	case entity.KindEjected:
		rec.Flags |= proto.NodeEjected
	}
	dirty := cell.Dirty()
	if full || dirty&entity.DirtyColor != 0 {
		color := cell.Color()
		rec.Flags |= proto.NodeColor
		rec.R, rec.G, rec.B = color.R, color.G, color.B
	}
	if skin := cell.Skin(); skin != "" && (full || dirty&entity.DirtySkin != 0) {
		rec.Flags |= proto.NodeSkin
		rec.Skin = skin
	}
	if name := cell.Name(); name != "" && (full || dirty&entity.DirtyName != 0) {
		rec.Flags |= proto.NodeName
		rec.Name = name
	}
	return rec
}

func sizeOnWire(size float64) uint16 {
	switch {
	case size <= 0:
		return 0
	case size >= 65535:
		return 65535
	default:
		return uint16(size + 0.5)
	}
}

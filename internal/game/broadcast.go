package game

import (
	"sort"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/net/proto"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world"
)

func (g *Game) sendUpdates() {
	tick := g.world.Tick()
	rate := uint64(g.world.Config().TickRate)
	leaderboardDue := tick%rate == 0
	infoDue := tick%(rate*uint64(g.config.ServerInfoSeconds)) == 0

	var info []byte
	if infoDue {
		info = g.encodeServerInfo()
	}
	for _, id := range g.order {
		c := g.clients[id]
		g.sendNodes(c)
		if leaderboardDue {
			g.sendLeaderboard(c)
		}
		if info != nil {
			g.sendRaw(c, info)
		}
	}
}

// sendNodes diffs the cells inside the client's view against what it saw
// last tick. Cells that were eaten go out as eat records, cells that left
// the view or the world as removals.
func (g *Game) sendNodes(c *client) {
	p := c.player
	view := p.View()

	clear(c.next)
	if !view.Area.Empty() {
		g.world.Query(view.Area, func(cell *entity.Cell) bool {
			c.next[cell.ID] = cell
			return true
		})
	}
	for _, cell := range p.Cells() {
		c.next[cell.ID] = cell
	}

	var msg proto.UpdateNodes
	eaten := make(map[entity.CellID]bool)
	for _, ev := range g.world.Eats() {
		if _, seen := c.visible[ev.Eaten.ID]; !seen {
			continue
		}
		eaten[ev.Eaten.ID] = true
		msg.Eats = append(msg.Eats, proto.EatRecord{Eater: uint32(ev.Eater.ID), Eaten: uint32(ev.Eaten.ID)})
	}
	for id, cell := range c.next {
		_, seen := c.visible[id]
		if seen && cell.Dirty() == 0 {
			continue
		}
		msg.Nodes = append(msg.Nodes, nodeRecord(cell, !seen))
	}
	for id := range c.visible {
		if _, still := c.next[id]; still || eaten[id] {
			continue
		}
		msg.Removals = append(msg.Removals, uint32(id))
	}
	sort.Slice(msg.Nodes, func(i, j int) bool { return msg.Nodes[i].ID < msg.Nodes[j].ID })
	sort.Slice(msg.Removals, func(i, j int) bool { return msg.Removals[i] < msg.Removals[j] })

	c.visible, c.next = c.next, c.visible

	for _, id := range c.newlyOwned() {
		g.send(c, proto.AddNode{ID: id})
	}
	if len(msg.Eats) > 0 || len(msg.Nodes) > 0 || len(msg.Removals) > 0 {
		g.send(c, msg)
	}
	if state := p.State(); state == entity.StateSpectating || state == entity.StateRoaming {
		g.send(c, proto.UpdatePosition{
			X:     float32(view.CenterX),
			Y:     float32(view.CenterY),
			Scale: float32(view.Scale),
		})
	}
}

func (g *Game) sendLeaderboard(c *client) {
	board := g.world.Leaderboard()
	switch board.Kind {
	case world.LeaderboardText:
		g.send(c, proto.LeaderboardText{Lines: board.Lines})
	case world.LeaderboardPie:
		fractions := make([]float32, len(board.Fractions))
		for i, f := range board.Fractions {
			fractions[i] = float32(f)
		}
		g.send(c, proto.LeaderboardPie{Fractions: fractions})
	default:
		entries := make([]proto.RankedEntry, len(board.Entries))
		for i, e := range board.Entries {
			entries[i].Name = e.Name
			if e.PlayerID == c.player.ID {
				entries[i].Highlight = c.id
			}
		}
		g.send(c, proto.LeaderboardRanked{Entries: entries})
	}
}

func (g *Game) encodeServerInfo() []byte {
	stats := g.world.Stats()
	payload, err := proto.Encode(proto.ServerInfo{
		UptimeSeconds: uint32(g.clock.Now().Sub(g.started).Seconds()),
		Players:       clampU16(stats.Players),
		Alive:         clampU16(stats.Alive),
		Spectators:    clampU16(stats.Spectators),
		Tick:          uint32(stats.Tick),
		UpdateMillis:  float32(g.perf.Stats().MeanMillis),
		Mode:          stats.Mode,
	})
	if err != nil {
		g.logger.Printf("[game] encoding server info: %v", err)
		return nil
	}
	return payload
}

func clampU16(n int) uint16 {
	if n > 65535 {
		return 65535
	}
	if n < 0 {
		return 0
	}
	return uint16(n)
}

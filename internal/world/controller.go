package world

import "github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"

// Controller binds an entity.Actuator to one player so connections and bots
// drive the world through the same calls.
type Controller struct {
	world  *World
	player *entity.Player
}

// Controller returns the actuator for p.
func (w *World) Controller(p *entity.Player) *Controller {
	return &Controller{world: w, player: p}
}

func (c *Controller) Player() *entity.Player { return c.player }

func (c *Controller) SetMouseTarget(x, y float64) {
	c.player.SetMouse(x, y)
}

func (c *Controller) RequestSplit() {
	c.world.Split(c.player)
}

func (c *Controller) RequestEject() {
	c.world.Eject(c.player)
}

func (c *Controller) RequestSpawn(name, skin string) {
	c.world.SpawnPlayer(c.player, name, skin)
}

func (c *Controller) RequestSpectate() {
	c.world.Spectate(c.player)
}

// ToggleRoam is the free-camera key, outside the shared actuator surface.
func (c *Controller) ToggleRoam() {
	c.world.ToggleRoam(c.player)
}

var _ entity.Actuator = (*Controller)(nil)

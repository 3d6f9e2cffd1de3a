package game

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/admin"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/net/proto"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/sim"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/telemetry"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/lifecycle"
)

const (
	DefaultServerName        = "Cell Arena"
	DefaultServerInfoSeconds = 2
	DefaultPerfWindow        = 125

	serverChatName = "SERVER"
)

var (
	ErrUnknownCommand = errors.New("unknown command type")
	ErrMissingPayload = errors.New("command payload missing")
)

var serverChatColor = entity.Color{R: 255, G: 64, B: 64}

// Config tunes the coordinator.
type Config struct {
	ServerName        string `json:"serverName" yaml:"serverName"`
	ServerInfoSeconds int    `json:"serverInfoSeconds" yaml:"serverInfoSeconds"`
	AdminPassword     string `json:"-" yaml:"adminPassword"`
	PerfWindow        int    `json:"perfWindow" yaml:"perfWindow"`
}

// Normalized fills unset fields with defaults.
func (cfg Config) Normalized() Config {
	if cfg.ServerName == "" {
		cfg.ServerName = DefaultServerName
	}
	if cfg.ServerInfoSeconds <= 0 {
		cfg.ServerInfoSeconds = DefaultServerInfoSeconds
	}
	if cfg.PerfWindow <= 0 {
		cfg.PerfWindow = DefaultPerfWindow
	}
	return cfg
}

// Scheduler is the loop driving the game.
type Scheduler interface {
	Pause()
	Unpause()
	Paused() bool
	EnqueueReliable(sim.Command)
}

// Deps bundles runtime dependencies.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	Clock     logging.Clock
	// Perf is shared with the world so it can mark its own phases.
	Perf   *telemetry.PerfCollector
	Output *telemetry.Output
}

// Game is the simulation core the loop drives. It applies staged commands,
// steps the world and sends every connected client its view delta.
type Game struct {
	world     *world.World
	table     *admin.Table
	config    Config
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
	clock     logging.Clock
	perf      *telemetry.PerfCollector
	output    *telemetry.Output
	scheduler Scheduler

	clients map[uint32]*client
	order   []uint32
	started time.Time
	nextID  atomic.Uint32

	diagMu      deadlock.RWMutex
	diagnostics Diagnostics
}

// New wraps w. The world should already be started.
func New(w *world.World, cfg Config, deps Deps) (*Game, error) {
	if w == nil {
		return nil, errors.New("game: nil world")
	}
	cfg = cfg.Normalized()
	clock := deps.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	perf := deps.Perf
	if perf == nil {
		perf = telemetry.NewPerfCollector(cfg.PerfWindow)
	}
	g := &Game{
		world:     w,
		config:    cfg,
		logger:    telemetry.OrDiscard(deps.Logger),
		metrics:   telemetry.MetricsOrNop(deps.Metrics),
		publisher: publisher,
		clock:     clock,
		perf:      perf,
		output:    deps.Output,
		clients:   make(map[uint32]*client),
		started:   clock.Now(),
	}
	g.table = admin.NewTable(g, cfg.AdminPassword, g.logger)
	g.refreshDiagnostics()
	return g, nil
}

// SetScheduler attaches the loop. It must be called before the loop runs.
func (g *Game) SetScheduler(s Scheduler) {
	g.scheduler = s
}

// NextPlayerID hands out player ids. Safe from any goroutine.
func (g *Game) NextPlayerID() uint32 {
	return g.nextID.Add(1)
}

// World exposes the simulated world. Only the simulation goroutine may use it.
func (g *Game) World() *world.World { return g.world }

// Admin returns the command table.
func (g *Game) Admin() *admin.Table { return g.table }

// Config returns the normalized configuration.
func (g *Game) Config() Config { return g.config }

// Tick reports the world tick.
func (g *Game) Tick() uint64 { return g.world.Tick() }

func (g *Game) Pause() {
	if g.scheduler != nil {
		g.scheduler.Pause()
	}
}

func (g *Game) Unpause() {
	if g.scheduler != nil {
		g.scheduler.Unpause()
	}
}

func (g *Game) Paused() bool {
	return g.scheduler != nil && g.scheduler.Paused()
}

// Kick tells the client why and closes its connection. The session's
// disconnect path then removes the player.
func (g *Game) Kick(id uint32, reason string) bool {
	c, ok := g.clients[id]
	if !ok {
		return false
	}
	g.sendServerChat(c, "you were kicked: "+reason)
	if err := c.conn.Close(); err != nil {
		g.logger.Printf("[game] closing kicked player %d: %v", id, err)
	}
	g.logger.Printf("[game] kicked player %d: %s", id, reason)
	return true
}

// Console runs an operator line. Scheduler control commands run at once so
// they work while the loop is paused; everything else is queued for the
// simulation goroutine, with done called after the line was handled.
func (g *Game) Console(line string, reply func(string), done func()) {
	if ran, err := g.table.ExecControl(line, reply); ran {
		if err != nil {
			g.logger.Printf("[console] %s: %v", line, err)
		}
		if done != nil {
			done()
		}
		return
	}
	if g.scheduler == nil {
		if done != nil {
			done()
		}
		return
	}
	g.scheduler.EnqueueReliable(sim.Command{
		Type:     sim.CommandConsole,
		IssuedAt: g.clock.Now(),
		Console:  &sim.ConsoleCommand{Line: line, Reply: reply, Done: done},
	})
}

// Apply executes staged commands in order. A failing command does not stop
// the rest.
func (g *Game) Apply(cmds []sim.Command) error {
	g.perf.StartTick()
	g.perf.StartPhase(telemetry.PhaseCommands)
	var errs []error
	for _, cmd := range cmds {
		if err := g.apply(cmd); err != nil {
			errs = append(errs, fmt.Errorf("%s from %d: %w", cmd.Type, cmd.ActorID, err))
		}
	}
	return errors.Join(errs...)
}

func (g *Game) apply(cmd sim.Command) error {
	switch cmd.Type {
	case sim.CommandJoin:
		if cmd.Join == nil {
			return ErrMissingPayload
		}
		g.join(cmd.ActorID, cmd.Join)
		return nil
	case sim.CommandLeave:
		reason := "left"
		if cmd.Leave != nil && cmd.Leave.Reason != "" {
			reason = cmd.Leave.Reason
		}
		g.leave(cmd.ActorID, reason)
		return nil
	case sim.CommandConsole:
		if cmd.Console == nil {
			return ErrMissingPayload
		}
		err := g.table.ExecConsole(cmd.Console.Line, cmd.Console.Reply)
		if cmd.Console.Done != nil {
			cmd.Console.Done()
		}
		if errors.Is(err, admin.ErrUnknownCommand) || errors.Is(err, admin.ErrUsage) {
			return nil
		}
		return err
	}

	c, ok := g.clients[cmd.ActorID]
	if !ok {
		return nil
	}
	p := c.player
	switch cmd.Type {
	case sim.CommandMouse:
		if cmd.Mouse == nil {
			return ErrMissingPayload
		}
		g.world.Controller(p).SetMouseTarget(cmd.Mouse.X, cmd.Mouse.Y)
	case sim.CommandSplit:
		g.world.Controller(p).RequestSplit()
	case sim.CommandEject:
		g.world.Controller(p).RequestEject()
	case sim.CommandSpawn:
		if cmd.Spawn == nil {
			return ErrMissingPayload
		}
		if p.State() == entity.StateAlive {
			return nil
		}
		g.world.Controller(p).RequestSpawn(cmd.Spawn.Name, cmd.Spawn.Skin)
		if p.State() == entity.StateAlive {
			c.resetOwned()
			g.send(c, proto.ClearOwned{})
		}
	case sim.CommandSpectate:
		g.world.Controller(p).RequestSpectate()
	case sim.CommandRoam:
		g.world.Controller(p).ToggleRoam()
	case sim.CommandChat:
		if cmd.Chat == nil {
			return ErrMissingPayload
		}
		g.chat(c, cmd.Chat)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	return nil
}

func (g *Game) join(id uint32, join *sim.JoinCommand) {
	if _, exists := g.clients[id]; exists {
		return
	}
	p := g.world.AddPlayer(entity.PlayerID(id), join.Human)
	c := newClient(id, p, join.Conn, join.Remote)
	g.clients[id] = c
	g.order = append(g.order, id)
	if join.OnJoined != nil {
		join.OnJoined(p)
	}

	border := g.world.Border()
	g.send(c, proto.ClearAll{})
	g.send(c, proto.SetBorder{
		MinX:       border.MinX,
		MinY:       border.MinY,
		MaxX:       border.MaxX,
		MaxY:       border.MaxY,
		GameType:   g.world.Mode().ID(),
		ServerName: g.config.ServerName,
	})
	g.metrics.Store("game_clients", uint64(len(g.clients)))
	lifecycle.PlayerJoined(context.Background(), g.publisher, g.world.Tick(), playerRef(id), lifecycle.PlayerJoinedPayload{
		Human:  join.Human,
		Remote: join.Remote,
	}, nil)
}

func (g *Game) leave(id uint32, reason string) {
	cells, ok := g.world.RemovePlayer(entity.PlayerID(id))
	if _, known := g.clients[id]; known {
		delete(g.clients, id)
		for i, candidate := range g.order {
			if candidate == id {
				g.order = append(g.order[:i], g.order[i+1:]...)
				break
			}
		}
	}
	g.table.Logout(id)
	if !ok {
		return
	}
	g.metrics.Store("game_clients", uint64(len(g.clients)))
	lifecycle.PlayerDisconnected(context.Background(), g.publisher, g.world.Tick(), playerRef(id), lifecycle.PlayerDisconnectedPayload{
		Reason: reason,
		Cells:  cells,
	}, nil)
}

func (g *Game) chat(c *client, msg *sim.ChatCommand) {
	if msg.Text == "" {
		return
	}
	if msg.Text[0] == '/' {
		reply := func(line string) { g.sendServerChat(c, line) }
		if err := g.table.ExecChat(c.id, msg.Text, reply); err != nil {
			g.logger.Printf("[admin] player %d: %v", c.id, err)
		}
		return
	}
	color := c.player.Color()
	g.broadcast(proto.ChatMessage{
		Flags: msg.Flags,
		R:     color.R,
		G:     color.G,
		B:     color.B,
		Name:  c.player.Name(),
		Text:  msg.Text,
	})
}

func (g *Game) sendServerChat(c *client, text string) {
	g.send(c, proto.ChatMessage{
		R:    serverChatColor.R,
		G:    serverChatColor.G,
		B:    serverChatColor.B,
		Name: serverChatName,
		Text: text,
	})
}

// Step advances the world one tick and sends every client its delta.
func (g *Game) Step() {
	g.world.Step()
	g.perf.StartPhase(telemetry.PhaseBroadcast)
	g.sendUpdates()
	g.world.EndTick()
	g.perf.EndTick()
	g.flushPerf()
	g.refreshDiagnostics()
}

func (g *Game) flushPerf() {
	if g.output == nil || !g.perf.WindowFull() {
		return
	}
	stats := g.world.Stats()
	record := telemetry.NewPerfRecord(stats.Tick, stats.Players, stats.Cells, g.perf.Stats())
	if err := g.output.WritePerf(record); err != nil {
		g.logger.Printf("[perf] writing record: %v", err)
	}
}

func (g *Game) send(c *client, msg proto.Message) {
	payload, err := proto.Encode(msg)
	if err != nil {
		g.logger.Printf("[game] encoding opcode %d for player %d: %v", msg.Opcode(), c.id, err)
		return
	}
	g.sendRaw(c, payload)
}

func (g *Game) sendRaw(c *client, payload []byte) {
	if c.conn == nil {
		return
	}
	if err := c.conn.Send(payload); err != nil {
		g.metrics.Add("game_send_failed_total", 1)
	}
}

func (g *Game) broadcast(msg proto.Message) {
	payload, err := proto.Encode(msg)
	if err != nil {
		g.logger.Printf("[game] encoding broadcast opcode %d: %v", msg.Opcode(), err)
		return
	}
	for _, id := range g.order {
		g.sendRaw(g.clients[id], payload)
	}
}

func playerRef(id uint32) logging.EntityRef {
	return logging.EntityRef{ID: fmt.Sprintf("player-%d", id), Kind: logging.EntityKindPlayer}
}

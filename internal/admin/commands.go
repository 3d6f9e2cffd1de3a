package admin

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world"
)

const maxSpawnBatch = 1000

func defaultCommands() []Command {
	return []Command{
		{Name: "help", Usage: "help", Run: runHelp},
		{Name: "login", Usage: "login <password>", Run: runLogin},
		{Name: "status", Usage: "status", Run: runStatus},
		{Name: "playerlist", Usage: "playerlist", Privileged: true, Run: runPlayerList},
		{Name: "pause", Usage: "pause", Privileged: true, Control: true, Run: runPause},
		{Name: "unpause", Usage: "unpause", Privileged: true, Control: true, Run: runUnpause},
		{Name: "kill", Usage: "kill <player id>", Privileged: true, Run: runKill},
		{Name: "killall", Usage: "killall", Privileged: true, Run: runKillAll},
		{Name: "mass", Usage: "mass <player id> <mass>", Privileged: true, Run: runMass},
		{Name: "merge", Usage: "merge <player id>", Privileged: true, Run: runMerge},
		{Name: "nomerge", Usage: "nomerge <player id>", Privileged: true, Run: runNoMerge},
		{Name: "food", Usage: "food <count>", Privileged: true, Run: spawner(func(w *world.World, n int) int { return w.SpawnFood(n) })},
		{Name: "virus", Usage: "virus <count>", Privileged: true, Run: spawner(func(w *world.World, n int) int { return w.SpawnViruses(n) })},
		{Name: "mothercell", Usage: "mothercell <count>", Privileged: true, Run: spawner(func(w *world.World, n int) int { return w.SpawnMothercells(n) })},
		{Name: "kick", Usage: "kick <player id> [reason]", Privileged: true, Run: runKick},
	}
}

func runHelp(ctx *Context, _ []string) error {
	privileged := ctx.Table.RequireAdmin(ctx.Invocation) == nil
	for _, cmd := range ctx.Table.Commands() {
		if cmd.Privileged && !privileged {
			continue
		}
		ctx.Printf("%s", cmd.Usage)
	}
	return nil
}

func runLogin(ctx *Context, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	return ctx.Table.login(ctx.Invocation, args[0])
}

func runStatus(ctx *Context, _ []string) error {
	stats := ctx.Server.World().Stats()
	ctx.Printf("tick %d, mode %s, paused %t", stats.Tick, stats.Mode, ctx.Server.Paused())
	ctx.Printf("players %d (%d human), alive %d, spectating %d", stats.Players, stats.Humans, stats.Alive, stats.Spectators)
	ctx.Printf("cells %d, size clamps %d", stats.Cells, stats.Clamps)
	return nil
}

func runPlayerList(ctx *Context, _ []string) error {
	players := ctx.Server.World().Players()
	if len(players) == 0 {
		ctx.Printf("no players")
		return nil
	}
	for _, p := range players {
		kind := "bot"
		if p.Human {
			kind = "human"
		}
		ctx.Printf("%d %q %s %s cells=%d score=%.0f", p.ID, p.Name(), kind, p.State(), p.CellCount(), p.Score())
	}
	return nil
}

func runPause(ctx *Context, _ []string) error {
	ctx.Server.Pause()
	ctx.Printf("paused")
	return nil
}

func runUnpause(ctx *Context, _ []string) error {
	ctx.Server.Unpause()
	ctx.Printf("running")
	return nil
}

func runKill(ctx *Context, args []string) error {
	p, err := playerArg(ctx, args, 1)
	if err != nil {
		return err
	}
	n := ctx.Server.World().KillPlayer(p)
	ctx.Printf("removed %d cells of player %d", n, p.ID)
	return nil
}

func runKillAll(ctx *Context, _ []string) error {
	w := ctx.Server.World()
	total := 0
	for _, p := range w.Players() {
		total += w.KillPlayer(p)
	}
	ctx.Printf("removed %d player cells", total)
	return nil
}

func runMass(ctx *Context, args []string) error {
	p, err := playerArg(ctx, args, 2)
	if err != nil {
		return err
	}
	mass, err := strconv.ParseFloat(args[1], 64)
	if err != nil || mass <= 0 || math.IsInf(mass, 0) || math.IsNaN(mass) {
		return ErrUsage
	}
	ctx.Server.World().SetPlayerMass(p, mass)
	ctx.Printf("set mass of player %d to %.0f", p.ID, mass)
	return nil
}

func runMerge(ctx *Context, args []string) error {
	p, err := playerArg(ctx, args, 1)
	if err != nil {
		return err
	}
	ctx.Server.World().ForceMerge(p)
	ctx.Printf("merged player %d", p.ID)
	return nil
}

func runNoMerge(ctx *Context, args []string) error {
	p, err := playerArg(ctx, args, 1)
	if err != nil {
		return err
	}
	p.NoRecombine = !p.NoRecombine
	ctx.Printf("player %d recombine frozen: %t", p.ID, p.NoRecombine)
	return nil
}

func runKick(ctx *Context, args []string) error {
	if len(args) < 1 {
		return ErrUsage
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return ErrUsage
	}
	reason := "kicked"
	if len(args) > 1 {
		reason = strings.Join(args[1:], " ")
	}
	if !ctx.Server.Kick(uint32(id), reason) {
		return fmt.Errorf("%w: %d", ErrNoSuchPlayer, id)
	}
	ctx.Printf("kicked player %d", id)
	return nil
}

func spawner(spawn func(w *world.World, n int) int) func(*Context, []string) error {
	return func(ctx *Context, args []string) error {
		if len(args) != 1 {
			return ErrUsage
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 || n > maxSpawnBatch {
			return ErrUsage
		}
		placed := spawn(ctx.Server.World(), n)
		ctx.Printf("spawned %d", placed)
		return nil
	}
}

func playerArg(ctx *Context, args []string, want int) (*entity.Player, error) {
	if len(args) != want {
		return nil, ErrUsage
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return nil, ErrUsage
	}
	p := ctx.Server.World().Player(entity.PlayerID(id))
	if p == nil {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchPlayer, id)
	}
	return p, nil
}

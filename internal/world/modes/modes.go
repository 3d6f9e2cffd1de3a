// Package modes holds the game-mode strategies the world can run.
package modes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world"
)

// ErrUnknownMode is returned by New for a name no mode answers to.
var ErrUnknownMode = errors.New("modes: unknown mode")

// Options tunes the modes that have knobs.
type Options struct {
	Teams        int     `json:"teams" yaml:"teams"`
	RainbowChunk int     `json:"rainbowChunk" yaml:"rainbowChunk"`
	RainbowSpeed float64 `json:"rainbowSpeed" yaml:"rainbowSpeed"`
}

// DefaultOptions mirrors the classic server defaults.
func DefaultOptions() Options {
	return Options{Teams: 3, RainbowChunk: 200, RainbowSpeed: 12}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.Teams < 2 {
		o.Teams = def.Teams
	}
	if o.RainbowChunk <= 0 {
		o.RainbowChunk = def.RainbowChunk
	}
	if o.RainbowSpeed <= 0 {
		o.RainbowSpeed = def.RainbowSpeed
	}
	return o
}

// New resolves a mode by name or numeric id.
func New(name string, opts Options) (world.Mode, error) {
	opts = opts.normalized()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ffa", "0", "free for all":
		return FFA{}, nil
	case "teams", "1":
		return NewTeams(opts.Teams), nil
	case "experimental", "2":
		return NewExperimental(), nil
	case "rainbow", "3":
		return NewRainbow(opts.RainbowChunk, opts.RainbowSpeed), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// FFA is every cell for itself with a ranked leaderboard.
type FFA struct{}

func (FFA) ID() uint32                                 { return 0 }
func (FFA) Name() string                               { return "Free For All" }
func (FFA) OnStart(*world.World)                       {}
func (FFA) OnTick(*world.World)                        {}
func (FFA) OnSecond(*world.World)                      {}
func (FFA) OnPlayerSpawn(*world.World, *entity.Player) {}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/game"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/net/ws"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/sim"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/telemetry"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world/modes"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Environment overrides read by ApplyEnv.
const (
	EnvAddr          = "ARENA_ADDR"
	EnvTickRate      = "ARENA_TICK_RATE"
	EnvMode          = "ARENA_MODE"
	EnvAdminPassword = "ARENA_ADMIN_PASSWORD"
	EnvPprof         = "ENABLE_PPROF_TRACE"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	World     world.Config    `yaml:"world"`
	Modes     modes.Options   `yaml:"modes"`
	Game      game.Config     `yaml:"game"`
	Loop      sim.LoopConfig  `yaml:"loop"`
	WebSocket ws.Config       `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	ClientDir string `yaml:"clientDir"`
	// Console reads operator commands from stdin.
	Console     bool `yaml:"console"`
	EnablePprof bool `yaml:"enablePprof"`
}

type LoggingConfig struct {
	Sinks           []string `yaml:"sinks"`
	MinimumSeverity string   `yaml:"minimumSeverity"`
	BufferSize      int      `yaml:"bufferSize"`
	JSONPath        string   `yaml:"jsonPath"`
	Color           bool     `yaml:"color"`
}

type TelemetryConfig struct {
	// OutputDir enables perf.csv when set.
	OutputDir         string `yaml:"outputDir"`
	ObserveEveryTicks int    `yaml:"observeEveryTicks"`
}

// Load parses the embedded defaults, then overlays the file at path when
// one is given. Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.finalize()
	return cfg, nil
}

// LoadEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables already set. Missing files are
// skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	present := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("checking %s: %w", file, err)
		}
		present = append(present, file)
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables. Invalid values are
// logged and ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool), logger telemetry.Logger) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	logger = telemetry.OrDiscard(logger)
	if raw, ok := lookup(EnvAddr); ok && raw != "" {
		c.Server.Addr = raw
	}
	if raw, ok := lookup(EnvTickRate); ok && raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			c.World.TickRate = value
		} else {
			logger.Printf("invalid %s=%q", EnvTickRate, raw)
		}
	}
	if raw, ok := lookup(EnvMode); ok && raw != "" {
		if _, err := modes.New(raw, c.Modes); err == nil {
			c.World.Mode = raw
		} else {
			logger.Printf("invalid %s=%q: %v", EnvMode, raw, err)
		}
	}
	if raw, ok := lookup(EnvAdminPassword); ok {
		c.Game.AdminPassword = raw
	}
	if raw, ok := lookup(EnvPprof); ok && raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			c.Server.EnablePprof = value
		} else {
			logger.Printf("invalid %s=%q: %v", EnvPprof, raw, err)
		}
	}
	c.finalize()
}

// LoggingRouterConfig translates the logging section for logging.NewRouter.
func (c *Config) LoggingRouterConfig() (logging.Config, error) {
	out := logging.DefaultConfig()
	if len(c.Logging.Sinks) > 0 {
		out.EnabledSinks = append([]string(nil), c.Logging.Sinks...)
	}
	if c.Logging.BufferSize > 0 {
		out.BufferSize = c.Logging.BufferSize
	}
	severity, err := logging.ParseSeverity(c.Logging.MinimumSeverity)
	if err != nil {
		return out, fmt.Errorf("logging.minimumSeverity: %w", err)
	}
	out.MinimumSeverity = severity
	out.JSON.FilePath = c.Logging.JSONPath
	out.Console.UseColor = c.Logging.Color
	out.Fields = map[string]any{"mode": c.World.Mode, "server": c.Game.ServerName}
	if err := out.Validate(); err != nil {
		return out, fmt.Errorf("logging: %w", err)
	}
	return out, nil
}

func (c *Config) finalize() {
	c.World.Mode = strings.ToLower(strings.TrimSpace(c.World.Mode))
	c.World = c.World.Normalized()
	c.Loop.TickRate = c.World.TickRate
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Telemetry.ObserveEveryTicks <= 0 {
		c.Telemetry.ObserveEveryTicks = 1
	}
}

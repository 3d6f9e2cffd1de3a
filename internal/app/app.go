package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/config"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/game"
	servernet "github.com/Emupedia/emupedia-game-agar.io-sub000/internal/net"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/net/ws"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/observability"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/observe"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/sim"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/telemetry"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world/modes"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging"
	loggingSinks "github.com/Emupedia/emupedia-game-agar.io-sub000/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Logger telemetry.Logger
	// ConfigPath is an optional YAML file layered over the embedded defaults.
	ConfigPath string
	// EnvFiles are loaded before environment overrides are read.
	EnvFiles []string
	// Console replaces stdin as the operator console source.
	Console io.Reader
}

func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	if err := config.LoadEnv(cfg.EnvFiles...); err != nil {
		return err
	}
	serverCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return err
	}
	serverCfg.ApplyEnv(nil, telemetryLogger)

	logConfig, err := serverCfg.LoggingRouterConfig()
	if err != nil {
		return err
	}
	namedSinks := []logging.NamedSink{}
	if logConfig.HasSink(logging.SinkConsole) {
		namedSinks = append(namedSinks, logging.NamedSink{Name: logging.SinkConsole, Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console)})
	}
	if logConfig.HasSink(logging.SinkJSON) {
		jsonSink, err := loggingSinks.OpenJSONFile(logConfig.JSON.FilePath, logConfig.JSON.FlushInterval)
		if err != nil {
			return fmt.Errorf("failed to open json log sink: %w", err)
		}
		namedSinks = append(namedSinks, logging.NamedSink{Name: logging.SinkJSON, Sink: jsonSink})
	}

	metrics := &logging.Metrics{}
	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, namedSinks,
		logging.WithFallbackLogger(fallbackLogger),
		logging.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()
	telemetryMetrics := telemetry.WrapMetrics(metrics)

	mode, err := modes.New(serverCfg.World.Mode, serverCfg.Modes)
	if err != nil {
		return err
	}
	perf := telemetry.NewPerfCollector(serverCfg.Game.PerfWindow)
	arena, err := world.New(serverCfg.World, mode, world.Deps{
		Logger:    telemetryLogger,
		Publisher: router,
		Phases:    perf,
	})
	if err != nil {
		return fmt.Errorf("failed to construct world: %w", err)
	}

	feed := observe.NewFeed(serverCfg.Telemetry.ObserveEveryTicks, logging.SystemClock{}, telemetryLogger)
	arena.AddEatObserver(observe.NewEventObserver(router, arena))
	arena.AddSnapshotObserver(feed)
	arena.Start()

	output, err := telemetry.NewOutput(serverCfg.Telemetry.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to open telemetry output: %w", err)
	}
	defer func() {
		if cerr := output.Close(); cerr != nil {
			telemetryLogger.Printf("failed to close telemetry output: %v", cerr)
		}
	}()

	g, err := game.New(arena, serverCfg.Game, game.Deps{
		Logger:    telemetryLogger,
		Metrics:   telemetryMetrics,
		Publisher: router,
		Perf:      perf,
		Output:    output,
	})
	if err != nil {
		return fmt.Errorf("failed to construct game: %w", err)
	}

	loop := sim.NewLoop(g, serverCfg.Loop, sim.Deps{
		Logger:    telemetryLogger,
		Metrics:   telemetryMetrics,
		Publisher: router,
	}, sim.LoopHooks{
		OnPauseChange: func(paused bool) {
			telemetryLogger.Printf("[loop] paused=%t", paused)
		},
	})
	g.SetScheduler(loop)

	wsHandler := ws.NewHandler(loop, serverCfg.WebSocket, ws.Deps{
		Logger:    telemetryLogger,
		Metrics:   telemetryMetrics,
		Publisher: router,
		NextID:    g.NextPlayerID,
	})

	handler := servernet.NewHTTPHandler(g, servernet.HTTPHandlerConfig{
		ClientDir:     serverCfg.Server.ClientDir,
		Logger:        telemetryLogger,
		Observability: observability.Config{EnablePprofTrace: serverCfg.Server.EnablePprof},
		AdminPassword: serverCfg.Game.AdminPassword,
		WebSocket:     http.HandlerFunc(wsHandler.Handle),
		Observe:       feed,
		Router:        router,
		Metrics:       metrics,
		Sessions:      wsHandler.Registry().Len,
	})

	stop := make(chan struct{})
	startLoop(loop, serverCfg.WebSocket.AutoPause, stop)
	defer close(stop)

	if serverCfg.Server.Console {
		source := cfg.Console
		if source == nil {
			source = os.Stdin
		}
		go runConsole(source, g, telemetryLogger)
	}

	srv := &http.Server{Addr: serverCfg.Server.Addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		telemetryLogger.Printf("server listening on %s (mode %s, %d ticks/s)", srv.Addr, mode.Name(), serverCfg.World.TickRate)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	telemetryLogger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// startLoop runs the scheduler until stop closes. With autoPause the world
// stays frozen until the first session connects.
func startLoop(loop *sim.Loop, autoPause bool, stop <-chan struct{}) {
	if autoPause {
		loop.Pause()
	}
	go loop.Run(stop)
}

// runConsole forwards operator lines to the game until source is exhausted.
func runConsole(source io.Reader, g *game.Game, logger telemetry.Logger) {
	scanner := bufio.NewScanner(source)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		g.Console(line, func(text string) {
			logger.Printf("[console] %s", text)
		}, nil)
	}
	if err := scanner.Err(); err != nil {
		logger.Printf("[console] stdin closed: %v", err)
	}
}

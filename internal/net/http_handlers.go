package net

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	nethttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/game"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/observability"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/telemetry"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging"
)

const (
	// AdminHeader carries the admin password for /console.
	AdminHeader           = "X-Arena-Admin"
	DefaultConsoleTimeout = 2 * time.Second
	maxConsoleBody        = 1024
)

// Game is the part of the coordinator the HTTP surface reads.
type Game interface {
	Diagnostics() game.Diagnostics
	Console(line string, reply func(string), done func())
}

type HTTPHandlerConfig struct {
	ClientDir     string
	Logger        telemetry.Logger
	Observability observability.Config
	// AdminPassword guards /console; empty disables the endpoint.
	AdminPassword  string
	ConsoleTimeout time.Duration

	WebSocket nethttp.Handler
	Observe   nethttp.Handler
	Router    *logging.Router
	Metrics   *logging.Metrics
	Sessions  func() int
}

type diagnosticsResponse struct {
	Status     string              `json:"status"`
	ServerTime int64               `json:"serverTime"`
	Sessions   int                 `json:"sessions"`
	Game       game.Diagnostics    `json:"game"`
	Logging    logging.RouterStats `json:"logging"`
	Telemetry  map[string]uint64   `json:"telemetry,omitempty"`
}

type consoleResponse struct {
	Output []string `json:"output"`
	Queued bool     `json:"queued,omitempty"`
}

func NewHTTPHandler(g Game, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := telemetry.OrDiscard(cfg.Logger)
	timeout := cfg.ConsoleTimeout
	if timeout <= 0 {
		timeout = DefaultConsoleTimeout
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		payload := diagnosticsResponse{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Game:       g.Diagnostics(),
			Logging:    cfg.Router.Stats(),
		}
		if cfg.Sessions != nil {
			payload.Sessions = cfg.Sessions()
		}
		if cfg.Metrics != nil {
			payload.Telemetry = cfg.Metrics.Snapshot()
		}
		writeJSON(w, logger, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/console", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if cfg.AdminPassword == "" {
			httpError(w, "console disabled", nethttp.StatusNotFound)
			return
		}
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		supplied := r.Header.Get(AdminHeader)
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(cfg.AdminPassword)) != 1 {
			logger.Printf("[console] rejected request from %s", r.RemoteAddr)
			httpError(w, "forbidden", nethttp.StatusForbidden)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxConsoleBody))
		if err != nil {
			httpError(w, "failed to read body", nethttp.StatusBadRequest)
			return
		}
		line := strings.TrimSpace(string(body))
		if line == "" {
			httpError(w, "empty command", nethttp.StatusBadRequest)
			return
		}

		var (
			mu     sync.Mutex
			output []string
		)
		done := make(chan struct{})
		var once sync.Once
		g.Console(line, func(text string) {
			mu.Lock()
			output = append(output, text)
			mu.Unlock()
		}, func() { once.Do(func() { close(done) }) })

		resp := consoleResponse{}
		status := nethttp.StatusOK
		select {
		case <-done:
		case <-time.After(timeout):
			resp.Queued = true
			status = nethttp.StatusAccepted
		case <-r.Context().Done():
			return
		}
		mu.Lock()
		resp.Output = append([]string{}, output...)
		mu.Unlock()
		logger.Printf("[console] %s ran %q", r.RemoteAddr, line)
		writeJSON(w, logger, status, resp)
	})

	if cfg.WebSocket != nil {
		mux.Handle("/ws", cfg.WebSocket)
	}
	if cfg.Observe != nil {
		mux.Handle("/observe", cfg.Observe)
	}

	cfg.Observability.Register(mux, logger)

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, logger telemetry.Logger, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Printf("failed to write response: %v", err)
	}
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}

package net

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/game"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/observability"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging"
)

type fakeGame struct {
	mu       sync.Mutex
	lines    []string
	diag     game.Diagnostics
	reply    []string
	complete bool
}

func (f *fakeGame) Diagnostics() game.Diagnostics { return f.diag }

func (f *fakeGame) Console(line string, reply func(string), done func()) {
	f.mu.Lock()
	f.lines = append(f.lines, line)
	f.mu.Unlock()
	for _, text := range f.reply {
		reply(text)
	}
	if f.complete {
		done()
	}
}

func (f *fakeGame) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func consoleRequest(password, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/console", strings.NewReader(body))
	if password != "" {
		req.Header.Set(AdminHeader, password)
	}
	return req
}

func TestHealthReportsOK(t *testing.T) {
	handler := NewHTTPHandler(&fakeGame{}, HTTPHandlerConfig{})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if body := resp.Body.String(); body != "ok" {
		t.Fatalf("expected body ok, got %q", body)
	}
}

func TestDiagnosticsReturnsGameAndTelemetry(t *testing.T) {
	g := &fakeGame{diag: game.Diagnostics{Tick: 42, Clients: 3}}
	metrics := &logging.Metrics{}
	metrics.TelemetryAdd("game_send_failed_total", 2)

	handler := NewHTTPHandler(g, HTTPHandlerConfig{
		Metrics:  metrics,
		Sessions: func() int { return 5 },
	})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}

	var payload diagnosticsResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics payload: %v", err)
	}
	if payload.Status != "ok" || payload.Sessions != 5 {
		t.Fatalf("unexpected diagnostics header fields %+v", payload)
	}
	if payload.Game.Tick != 42 || payload.Game.Clients != 3 {
		t.Fatalf("expected game diagnostics to pass through, got %+v", payload.Game)
	}
	if payload.Telemetry["game_send_failed_total"] != 2 {
		t.Fatalf("expected telemetry counters, got %v", payload.Telemetry)
	}

	post := httptest.NewRecorder()
	handler.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/diagnostics", nil))
	if post.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", post.Code)
	}
}

func TestConsoleEndpoint(t *testing.T) {
	t.Run("disabled without password", func(t *testing.T) {
		g := &fakeGame{complete: true}
		handler := NewHTTPHandler(g, HTTPHandlerConfig{})
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, consoleRequest("anything", "status"))
		if resp.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.Code)
		}
		if len(g.received()) != 0 {
			t.Fatalf("disabled console must not forward commands")
		}
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		g := &fakeGame{complete: true}
		handler := NewHTTPHandler(g, HTTPHandlerConfig{AdminPassword: "hunter2"})
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, consoleRequest("hunter3", "status"))
		if resp.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", resp.Code)
		}
		if len(g.received()) != 0 {
			t.Fatalf("forbidden console must not forward commands")
		}
	})

	t.Run("rejects empty body", func(t *testing.T) {
		handler := NewHTTPHandler(&fakeGame{complete: true}, HTTPHandlerConfig{AdminPassword: "hunter2"})
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, consoleRequest("hunter2", "   "))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.Code)
		}
	})

	t.Run("returns output when the command completes", func(t *testing.T) {
		g := &fakeGame{complete: true, reply: []string{"tick 10", "players 2"}}
		handler := NewHTTPHandler(g, HTTPHandlerConfig{AdminPassword: "hunter2"})
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, consoleRequest("hunter2", "  status \n"))

		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
		if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
			t.Fatalf("expected Content-Type application/json, got %q", contentType)
		}
		var payload consoleResponse
		if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
			t.Fatalf("failed to decode console payload: %v", err)
		}
		if payload.Queued || len(payload.Output) != 2 || payload.Output[1] != "players 2" {
			t.Fatalf("unexpected console payload %+v", payload)
		}
		if lines := g.received(); len(lines) != 1 || lines[0] != "status" {
			t.Fatalf("expected trimmed line to be forwarded, got %v", lines)
		}
	})

	t.Run("reports queued commands after the timeout", func(t *testing.T) {
		g := &fakeGame{reply: []string{"partial"}}
		handler := NewHTTPHandler(g, HTTPHandlerConfig{
			AdminPassword:  "hunter2",
			ConsoleTimeout: 10 * time.Millisecond,
		})
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, consoleRequest("hunter2", "killall"))

		if resp.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", resp.Code)
		}
		var payload consoleResponse
		if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
			t.Fatalf("failed to decode console payload: %v", err)
		}
		if !payload.Queued || len(payload.Output) != 1 {
			t.Fatalf("expected queued payload with partial output, got %+v", payload)
		}
	})
}

func TestOptionalMounts(t *testing.T) {
	observe := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	bare := NewHTTPHandler(&fakeGame{}, HTTPHandlerConfig{})
	for _, path := range []string{"/observe", "/ws", observability.PprofPrefix} {
		resp := httptest.NewRecorder()
		bare.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusNotFound {
			t.Fatalf("expected %s to be unmounted, got %d", path, resp.Code)
		}
	}

	full := NewHTTPHandler(&fakeGame{}, HTTPHandlerConfig{
		Observe:       observe,
		Observability: observability.Config{EnablePprofTrace: true},
	})

	resp := httptest.NewRecorder()
	full.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/observe", nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected observe handler to answer, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	full.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, observability.PprofPrefix, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pprof index when enabled, got %d", resp.Code)
	}
}

package telemetry

import (
	"bytes"
	"log"
	"testing"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging"
)

func TestWrapLogger(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		logger := WrapLogger(nil)
		logger.Printf("ignored %d", 42)
	})

	t.Run("forwards to logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WrapLogger(log.New(&buf, "", 0))
		logger.Printf("[tick] %s", "overrun")
		if got := buf.String(); got != "[tick] overrun\n" {
			t.Fatalf("unexpected log output: %q", got)
		}
	})

	t.Run("nil falls back to discard", func(t *testing.T) {
		OrDiscard(nil).Printf("dropped")
	})
}

func TestWrapMetrics(t *testing.T) {
	metrics := logging.Metrics{}
	adapter := WrapMetrics(&metrics)

	adapter.Add("ws_sessions_total", 2)
	adapter.Store("ws_sessions_total", 5)
	adapter.Add("ws_sessions_total", 3)

	if got := metrics.Snapshot()["ws_sessions_total"]; got != 8 {
		t.Fatalf("unexpected metric value: %d", got)
	}

	var nilAdapter Metrics = WrapMetrics(nil)
	nilAdapter.Add("ignored", 1)
	nilAdapter.Store("ignored", 1)
	MetricsOrNop(nil).Add("ignored", 1)
}

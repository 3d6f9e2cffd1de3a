package observability

import (
	"net/http"
	"net/http/pprof"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/telemetry"
)

// PprofPrefix is where the profiling endpoints are mounted.
const PprofPrefix = "/debug/pprof/"

// Config captures opt-in observability toggles that wire into the server.
type Config struct {
	EnablePprofTrace bool
}

// Register mounts the enabled endpoints on mux and reports whether anything
// was added.
func (c Config) Register(mux *http.ServeMux, logger telemetry.Logger) bool {
	if mux == nil || !c.EnablePprofTrace {
		return false
	}
	mux.HandleFunc(PprofPrefix, pprof.Index)
	mux.HandleFunc(PprofPrefix+"cmdline", pprof.Cmdline)
	mux.HandleFunc(PprofPrefix+"profile", pprof.Profile)
	mux.HandleFunc(PprofPrefix+"symbol", pprof.Symbol)
	mux.HandleFunc(PprofPrefix+"trace", pprof.Trace)
	telemetry.OrDiscard(logger).Printf("pprof endpoints enabled under %s", PprofPrefix)
	return true
}

package ws

import (
	"sort"

	"github.com/sasha-s/go-deadlock"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/telemetry"
)

const activeSessionsMetricKey = "ws_sessions_active"

// Pauser is the scheduler surface the registry drives when auto-pause is on.
type Pauser interface {
	Pause()
	Unpause()
}

// Registry tracks live sessions. With auto-pause enabled it pauses the
// simulation when the last session leaves and resumes it when one arrives.
type Registry struct {
	mu        deadlock.Mutex
	sessions  map[uint32]*Session
	pauser    Pauser
	autoPause bool
	logger    telemetry.Logger
	metrics   telemetry.Metrics
}

func NewRegistry(pauser Pauser, autoPause bool, logger telemetry.Logger, metrics telemetry.Metrics) *Registry {
	return &Registry{
		sessions:  make(map[uint32]*Session),
		pauser:    pauser,
		autoPause: autoPause,
		logger:    telemetry.OrDiscard(logger),
		metrics:   telemetry.MetricsOrNop(metrics),
	}
}

// Add registers s and returns the number of live sessions.
func (r *Registry) Add(s *Session) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
	count := len(r.sessions)
	r.metrics.Store(activeSessionsMetricKey, uint64(count))
	if count == 1 && r.autoPause && r.pauser != nil {
		r.logger.Printf("[ws] first session connected, resuming simulation")
		r.pauser.Unpause()
	}
	return count
}

// Remove drops the session with id and returns the number left.
func (r *Registry) Remove(id uint32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return len(r.sessions)
	}
	delete(r.sessions, id)
	count := len(r.sessions)
	r.metrics.Store(activeSessionsMetricKey, uint64(count))
	if count == 0 && r.autoPause && r.pauser != nil {
		r.logger.Printf("[ws] last session closed, pausing simulation")
		r.pauser.Pause()
	}
	return count
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sessions returns the live sessions ordered by id.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// CloseAll ends every live session with code and reason.
func (r *Registry) CloseAll(code int, reason string) {
	for _, s := range r.Sessions() {
		s.CloseWith(code, reason)
	}
}

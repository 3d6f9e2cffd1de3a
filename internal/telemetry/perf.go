package telemetry

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase names for one simulation tick.
const (
	PhaseCommands  = "commands"
	PhaseMovement  = "movement"
	PhaseResolve   = "resolve"
	PhaseMode      = "mode"
	PhaseBroadcast = "broadcast"
)

// PerfSample holds timing data for a single tick.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector keeps a rolling window of tick timings. It belongs to the
// simulation goroutine.
type PerfCollector struct {
	windowSize  int
	samples     []PerfSample
	writeIndex  int
	sampleCount int
	recorded    uint64

	clock         func() time.Time
	currentPhases map[string]time.Duration
	tickStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a collector averaging over windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 125
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]PerfSample, windowSize),
		clock:      time.Now,
	}
}

// StartTick begins timing a new tick.
func (p *PerfCollector) StartTick() {
	if p == nil {
		return
	}
	p.tickStart = p.clock()
	p.currentPhases = make(map[string]time.Duration, 5)
	p.lastPhase = ""
}

// StartPhase closes the running phase and opens the next one.
func (p *PerfCollector) StartPhase(phase string) {
	if p == nil {
		return
	}
	now := p.clock()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndTick records the sample for the tick that just finished.
func (p *PerfCollector) EndTick() {
	if p == nil {
		return
	}
	now := p.clock()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.record(PerfSample{TickDuration: now.Sub(p.tickStart), Phases: p.currentPhases})
	p.lastPhase = ""
}

// Record appends an externally timed sample.
func (p *PerfCollector) Record(duration time.Duration) {
	if p == nil {
		return
	}
	p.record(PerfSample{TickDuration: duration})
}

func (p *PerfCollector) record(sample PerfSample) {
	p.samples[p.writeIndex] = sample
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.recorded++
}

// WindowFull reports whether a complete, fresh window has been recorded
// since the last call that returned true.
func (p *PerfCollector) WindowFull() bool {
	if p == nil || p.recorded < uint64(p.windowSize) {
		return false
	}
	p.recorded = 0
	return true
}

// PerfStats summarises the current window.
type PerfStats struct {
	Samples      int                `json:"samples"`
	MeanMillis   float64            `json:"meanMillis"`
	StdDevMillis float64            `json:"stdDevMillis"`
	P95Millis    float64            `json:"p95Millis"`
	MaxMillis    float64            `json:"maxMillis"`
	PhaseMillis  map[string]float64 `json:"phaseMillis,omitempty"`
}

// Stats computes mean, standard deviation, 95th percentile and max tick
// duration over the window, plus mean time per phase.
func (p *PerfCollector) Stats() PerfStats {
	if p == nil || p.sampleCount == 0 {
		return PerfStats{}
	}
	durations := make([]float64, 0, p.sampleCount)
	totals := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		durations = append(durations, float64(s.TickDuration)/float64(time.Millisecond))
		for phase, d := range s.Phases {
			totals[phase] += d
		}
	}
	sort.Float64s(durations)

	stats := PerfStats{
		Samples:    len(durations),
		MeanMillis: stat.Mean(durations, nil),
		P95Millis:  stat.Quantile(0.95, stat.Empirical, durations, nil),
		MaxMillis:  durations[len(durations)-1],
	}
	if len(durations) > 1 {
		stats.StdDevMillis = stat.StdDev(durations, nil)
	}
	if len(totals) > 0 {
		stats.PhaseMillis = make(map[string]float64, len(totals))
		for phase, total := range totals {
			stats.PhaseMillis[phase] = float64(total) / float64(time.Millisecond) / float64(p.sampleCount)
		}
	}
	return stats
}

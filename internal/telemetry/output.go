package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"
)

// PerfRecord is one row of perf.csv.
type PerfRecord struct {
	Tick         uint64  `csv:"tick"`
	Players      int     `csv:"players"`
	Cells        int     `csv:"cells"`
	Samples      int     `csv:"samples"`
	MeanMillis   float64 `csv:"mean_ms"`
	StdDevMillis float64 `csv:"stddev_ms"`
	P95Millis    float64 `csv:"p95_ms"`
	MaxMillis    float64 `csv:"max_ms"`
	MovementMs   float64 `csv:"movement_ms"`
	ResolveMs    float64 `csv:"resolve_ms"`
	BroadcastMs  float64 `csv:"broadcast_ms"`
}

// NewPerfRecord flattens stats into a CSV row.
func NewPerfRecord(tick uint64, players, cells int, stats PerfStats) PerfRecord {
	return PerfRecord{
		Tick:         tick,
		Players:      players,
		Cells:        cells,
		Samples:      stats.Samples,
		MeanMillis:   stats.MeanMillis,
		StdDevMillis: stats.StdDevMillis,
		P95Millis:    stats.P95Millis,
		MaxMillis:    stats.MaxMillis,
		MovementMs:   stats.PhaseMillis[PhaseMovement],
		ResolveMs:    stats.PhaseMillis[PhaseResolve],
		BroadcastMs:  stats.PhaseMillis[PhaseBroadcast],
	}
}

// Output appends perf rows to <dir>/perf.csv. A nil *Output is a valid
// disabled output.
type Output struct {
	mu            sync.Mutex
	file          *os.File
	headerWritten bool
}

// NewOutput opens the output directory. It returns nil when dir is empty.
func NewOutput(dir string) (*Output, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	return &Output{file: f}, nil
}

// WritePerf appends a row, writing the header before the first one.
func (o *Output) WritePerf(record PerfRecord) error {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	records := []PerfRecord{record}
	if !o.headerWritten {
		if err := gocsv.Marshal(records, o.file); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		o.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, o.file); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (o *Output) Close() error {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.file.Close()
}

package observe

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sasha-s/go-deadlock"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/telemetry"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/gameplay"
)

const ContentType = "application/msgpack"

// TickSource reports the tick an observation belongs to.
type TickSource interface {
	Tick() uint64
}

// EventObserver publishes a debug event for every eat.
type EventObserver struct {
	publisher logging.Publisher
	ticks     TickSource
}

func NewEventObserver(publisher logging.Publisher, ticks TickSource) *EventObserver {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &EventObserver{publisher: publisher, ticks: ticks}
}

// OnEat runs before either cell is mutated, so sizes are the pre-eat values.
func (o *EventObserver) OnEat(eaten, eater *entity.Cell) {
	var tick uint64
	if o.ticks != nil {
		tick = o.ticks.Tick()
	}
	gameplay.CellEaten(context.Background(), o.publisher, tick, cellRef(eater), cellRef(eaten), gameplay.CellEatenPayload{
		EaterKind: eater.Kind.String(),
		EatenKind: eaten.Kind.String(),
		EaterSize: eater.Size(),
		EatenSize: eaten.Size(),
	})
}

func cellRef(c *entity.Cell) logging.EntityRef {
	return logging.EntityRef{ID: fmt.Sprintf("%s-%d", c.Kind, c.ID), Kind: logging.EntityKindCell}
}

// Snapshot is the document served on the observation endpoint.
type Snapshot struct {
	Tick       uint64               `msgpack:"tick"`
	CapturedAt int64                `msgpack:"capturedAt"`
	Players    []world.PlayerSample `msgpack:"players"`
}

// Feed keeps the latest snapshot encoded with msgpack. OnSnapshot runs on
// the simulation goroutine; readers may be anywhere.
type Feed struct {
	every  uint64
	clock  logging.Clock
	logger telemetry.Logger

	mu      deadlock.RWMutex
	payload []byte
	tick    uint64
}

// NewFeed encodes one snapshot every `every` ticks.
func NewFeed(every int, clock logging.Clock, logger telemetry.Logger) *Feed {
	if every < 1 {
		every = 1
	}
	if clock == nil {
		clock = logging.SystemClock{}
	}
	return &Feed{every: uint64(every), clock: clock, logger: telemetry.OrDiscard(logger)}
}

func (f *Feed) OnSnapshot(tick uint64, players []world.PlayerSample) {
	if tick%f.every != 0 {
		return
	}
	payload, err := msgpack.Marshal(&Snapshot{
		Tick:       tick,
		CapturedAt: f.clock.Now().UnixMilli(),
		Players:    players,
	})
	if err != nil {
		f.logger.Printf("[observe] encoding snapshot at tick %d: %v", tick, err)
		return
	}
	f.mu.Lock()
	f.payload = payload
	f.tick = tick
	f.mu.Unlock()
}

// Latest returns the last encoded snapshot and its tick. The bytes must not
// be modified.
func (f *Feed) Latest() ([]byte, uint64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.payload, f.tick
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	payload, tick := f.Latest()
	if payload == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Arena-Tick", strconv.FormatUint(tick, 10))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(payload); err != nil {
		f.logger.Printf("[observe] writing snapshot: %v", err)
	}
}

// DecodeSnapshot parses a payload produced by the feed.
func DecodeSnapshot(payload []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := msgpack.Unmarshal(payload, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snapshot, nil
}

var (
	_ world.EatObserver      = (*EventObserver)(nil)
	_ world.SnapshotObserver = (*Feed)(nil)
)

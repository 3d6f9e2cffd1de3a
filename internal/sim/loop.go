package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/telemetry"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/lifecycle"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/logging/simulation"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
)

const (
	DefaultTickRate        = 25
	DefaultCatchupMaxTicks = 5
	DefaultCommandCapacity = 4096
	DefaultPerActorLimit   = 64
	DefaultMinDelay        = time.Millisecond
)

// LoopConfig tunes the command buffer and tick scheduling.
type LoopConfig struct {
	TickRate        int           `yaml:"-"`
	CatchupMaxTicks int           `yaml:"catchupMaxTicks"`
	CommandCapacity int           `yaml:"commandCapacity"`
	PerActorLimit   int           `yaml:"perActorLimit"`
	WarningStep     int           `yaml:"warningStep"`
	MinDelay        time.Duration `yaml:"minDelay"`
}

// Normalized fills unset fields with defaults.
func (cfg LoopConfig) Normalized() LoopConfig {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	if cfg.CatchupMaxTicks <= 0 {
		cfg.CatchupMaxTicks = DefaultCatchupMaxTicks
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = DefaultCommandCapacity
	}
	if cfg.PerActorLimit < 0 {
		cfg.PerActorLimit = 0
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = DefaultMinDelay
	}
	return cfg
}

// Interval is the duration of one tick.
func (cfg LoopConfig) Interval() time.Duration {
	return time.Second / time.Duration(cfg.Normalized().TickRate)
}

// Loop is the fixed-timestep scheduler. Producers on any goroutine stage
// commands; the loop goroutine drains them at the start of each tick, applies
// them to the core and steps it. Elapsed wall time accumulates and a tick runs
// only once a full interval has built up, with backlog capped at
// CatchupMaxTicks intervals.
type Loop struct {
	core      EngineCore
	buffer    *CommandBuffer
	hooks     LoopHooks
	config    LoopConfig
	interval  time.Duration
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
	clock     logging.Clock

	queueMu       sync.Mutex
	perActorCount map[uint32]int
	dropCounts    map[uint32]uint64
	overflow      []Command

	paused   atomic.Bool
	resync   atomic.Bool
	lastTick atomic.Uint64
	last     time.Time
	acc      time.Duration
	streak   uint64
	scratch  []Command
}

// NewLoop wraps core with a ring-buffer queue and scheduler.
func NewLoop(core EngineCore, cfg LoopConfig, deps Deps, hooks LoopHooks) *Loop {
	if core == nil {
		return nil
	}
	cfg = cfg.Normalized()
	clock := deps.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	metrics := telemetry.MetricsOrNop(deps.Metrics)
	loop := &Loop{
		core:          core,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, metrics),
		hooks:         hooks,
		config:        cfg,
		interval:      cfg.Interval(),
		logger:        telemetry.OrDiscard(deps.Logger),
		metrics:       metrics,
		publisher:     publisher,
		clock:         clock,
		perActorCount: make(map[uint32]int),
		dropCounts:    make(map[uint32]uint64),
	}
	loop.resync.Store(true)
	return loop
}

// Config returns the normalized loop configuration.
func (l *Loop) Config() LoopConfig {
	if l == nil {
		return LoopConfig{}
	}
	return l.config
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	l.queueMu.Lock()
	overflow := len(l.overflow)
	l.queueMu.Unlock()
	return l.buffer.Len() + overflow
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	warnAt := 0
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != 0 {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if len(l.overflow) > 0 || !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else if l.config.WarningStep > 0 {
			length := l.buffer.Len()
			if length >= l.config.WarningStep && length%l.config.WarningStep == 0 {
				warnAt = length
			}
		}
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	if warnAt > 0 && l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(warnAt)
	}
	return true, ""
}

// EnqueueReliable stages a command that must not be dropped, such as a
// connection joining or leaving. It bypasses throttling and spills into an
// unbounded overflow list when the ring is full; while the overflow holds
// anything, ordinary commands are rejected so ordering is kept.
func (l *Loop) EnqueueReliable(cmd Command) {
	if l == nil {
		return
	}
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	if len(l.overflow) == 0 && l.buffer.Push(cmd) {
		return
	}
	l.overflow = append(l.overflow, cmd)
}

// Pause stops tick execution. Commands keep queueing.
func (l *Loop) Pause() {
	if l == nil || !l.paused.CompareAndSwap(false, true) {
		return
	}
	tick := l.lastTick.Load()
	l.logger.Printf("[loop] paused at tick %d", tick)
	lifecycle.LoopPaused(context.Background(), l.publisher, tick, true)
	if l.hooks.OnPauseChange != nil {
		l.hooks.OnPauseChange(true)
	}
}

// Unpause resumes tick execution. Time spent paused is not caught up.
func (l *Loop) Unpause() {
	if l == nil || !l.paused.CompareAndSwap(true, false) {
		return
	}
	l.resync.Store(true)
	tick := l.lastTick.Load()
	l.logger.Printf("[loop] resumed at tick %d", tick)
	lifecycle.LoopPaused(context.Background(), l.publisher, tick, false)
	if l.hooks.OnPauseChange != nil {
		l.hooks.OnPauseChange(false)
	}
}

// Tick reports the tick of the last executed step. Safe from any goroutine.
func (l *Loop) Tick() uint64 {
	if l == nil {
		return 0
	}
	return l.lastTick.Load()
}

// Paused reports the scheduling state.
func (l *Loop) Paused() bool {
	return l != nil && l.paused.Load()
}

// Poll advances the accumulator to now and executes every tick that became
// due, up to CatchupMaxTicks. It returns the number of ticks executed. While
// paused it neither drains commands nor steps the core.
func (l *Loop) Poll(now time.Time) int {
	if l == nil {
		return 0
	}
	if l.paused.Load() {
		return 0
	}
	if l.resync.Swap(false) {
		l.last = now
		l.acc = 0
		return 0
	}
	elapsed := now.Sub(l.last)
	l.last = now
	if elapsed > 0 {
		l.acc += elapsed
	}
	limit := l.interval * time.Duration(l.config.CatchupMaxTicks)
	if l.acc > limit {
		dropped := l.acc - limit
		l.acc = limit
		simulation.CatchupClamped(context.Background(), l.publisher, l.core.Tick(), simulation.CatchupClampedPayload{
			DroppedMillis: dropped.Milliseconds(),
			MaxTicks:      l.config.CatchupMaxTicks,
		})
	}
	steps := 0
	for l.acc >= l.interval {
		l.acc -= l.interval
		l.step(now, steps > 0)
		steps++
	}
	return steps
}

// NextDelay reports how long the loop should sleep before polling again.
func (l *Loop) NextDelay() time.Duration {
	if l == nil {
		return DefaultMinDelay
	}
	if l.paused.Load() {
		return l.interval
	}
	delay := l.interval - l.acc
	if delay < l.config.MinDelay {
		delay = l.config.MinDelay
	}
	return delay
}

// Run polls until stop closes, sleeping between polls for the time left in
// the current interval.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			l.Poll(l.clock.Now())
			timer.Reset(l.NextDelay())
		}
	}
}

// Advance executes exactly one tick regardless of the accumulator. Tests and
// admin tooling use it to single-step a paused world.
func (l *Loop) Advance(now time.Time) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	return l.step(now, false)
}

func (l *Loop) step(now time.Time, catchUp bool) LoopStepResult {
	commands := l.drainCommands()
	start := l.clock.Now()
	if err := l.core.Apply(commands); err != nil {
		l.logger.Printf("[loop] apply failed at tick %d: %v", l.core.Tick(), err)
	}
	l.core.Step()
	duration := l.clock.Now().Sub(start)
	for i := range commands {
		commands[i] = Command{}
	}
	l.scratch = commands[:0]

	l.lastTick.Store(l.core.Tick())
	result := LoopStepResult{
		Tick:     l.lastTick.Load(),
		Now:      now,
		Commands: len(commands),
		Duration: duration,
		Budget:   l.interval,
		CatchUp:  catchUp,
	}
	l.checkBudget(result)
	if l.hooks.AfterStep != nil {
		l.hooks.AfterStep(result)
	}
	return result
}

func (l *Loop) checkBudget(result LoopStepResult) {
	if result.Duration <= result.Budget {
		l.streak = 0
		return
	}
	l.streak++
	ratio := float64(result.Duration) / float64(result.Budget)
	simulation.TickBudgetOverrun(context.Background(), l.publisher, result.Tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          ratio,
		Streak:         l.streak,
	}, nil)
	if l.streak&(l.streak-1) == 0 {
		l.logger.Printf("[tick] %d took %s (budget %s, streak %d)", result.Tick, result.Duration, result.Budget, l.streak)
	}
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.DrainInto(l.scratch[:0])
	if len(l.overflow) > 0 {
		commands = append(commands, l.overflow...)
		l.overflow = nil
	}
	if len(l.perActorCount) > 0 {
		clear(l.perActorCount)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID uint32) uint64 {
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

// ForgetActor drops throttling state for an actor that has left.
func (l *Loop) ForgetActor(actorID uint32) {
	if l == nil {
		return
	}
	l.queueMu.Lock()
	delete(l.dropCounts, actorID)
	delete(l.perActorCount, actorID)
	l.queueMu.Unlock()
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	l.metrics.Add("sim_command_dropped_total", 1)
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if count > 0 && count&(count-1) == 0 {
		l.logger.Printf(
			"[backpressure] dropping command actor=%d type=%s reason=%s count=%d limit=%d",
			cmd.ActorID,
			cmd.Type,
			reason,
			count,
			l.config.PerActorLimit,
		)
	}
}

package sim

import "time"

// EngineCore is the simulation the loop drives. Apply and Step are only ever
// called from the loop goroutine.
type EngineCore interface {
	Apply([]Command) error
	Step()
	Tick() uint64
}

// LoopHooks lets callers observe the loop without wrapping it.
type LoopHooks struct {
	AfterStep      func(LoopStepResult)
	OnCommandDrop  func(reason string, cmd Command)
	OnQueueWarning func(length int)
	OnPauseChange  func(paused bool)
}

// LoopStepResult describes one executed tick.
type LoopStepResult struct {
	Tick     uint64
	Now      time.Time
	Commands int
	Duration time.Duration
	Budget   time.Duration
	// CatchUp is true when the step ran to work off accumulated backlog.
	CatchUp bool
}

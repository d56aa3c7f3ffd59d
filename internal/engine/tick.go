package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Calendar: one economy tick is one sim-day.
const (
	TicksPerSeason = 30
	TicksPerYear   = 4 * TicksPerSeason
)

// Engine is the host loop. It feeds frame time to the scheduler and runs
// queued commands between frames, so callers on other goroutines never
// touch scheduler state directly.
type Engine struct {
	Sched     *Scheduler
	Speed     float64       // Multiplier: 1.0 = real-time, 0 = paused
	FrameRate time.Duration // Host frame interval (default 50ms)

	commands chan func(*Scheduler)
	running  atomic.Bool
	stop     chan struct{}
}

// NewEngine wraps a scheduler with default frame settings.
func NewEngine(s *Scheduler) *Engine {
	return &Engine{
		Sched:     s,
		Speed:     1.0,
		FrameRate: 50 * time.Millisecond,
		commands:  make(chan func(*Scheduler), 64),
		stop:      make(chan struct{}),
	}
}

// Run drives the scheduler until ctx is cancelled or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("economy engine started", "tick", e.Sched.Tick(), "speed", e.Speed, "interval", e.Sched.Settings().TickInterval)

	frame := time.NewTicker(e.FrameRate)
	defer frame.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			slog.Info("economy engine stopped", "tick", e.Sched.Tick(), "reason", ctx.Err())
			return
		case <-e.stop:
			slog.Info("economy engine stopped", "tick", e.Sched.Tick())
			return
		case fn := <-e.commands:
			fn(e.Sched)
		case now := <-frame.C:
			elapsed := now.Sub(last)
			last = now
			if e.Speed <= 0 {
				continue
			}
			e.Sched.Advance(time.Duration(float64(elapsed) * e.Speed))
		}
	}
}

// Stop halts the loop. Safe to call once.
func (e *Engine) Stop() {
	close(e.stop)
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Submit queues fn to run on the loop goroutine between frames.
func (e *Engine) Submit(fn func(*Scheduler)) {
	e.commands <- fn
}

// Call runs fn on the loop goroutine and waits for its result.
func (e *Engine) Call(ctx context.Context, fn func(*Scheduler) error) error {
	done := make(chan error, 1)
	select {
	case e.commands <- func(s *Scheduler) { done <- fn(s) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SimTime returns a human-readable calendar date for a tick number.
func SimTime(tick int64) string {
	if tick < 0 {
		tick = 0
	}
	day := tick%TicksPerSeason + 1
	season := (tick / TicksPerSeason) % 4
	year := tick/TicksPerYear + 1

	seasonNames := [4]string{"Spring", "Summer", "Autumn", "Winter"}

	return fmt.Sprintf("%s Day %d, Year %d", seasonNames[season], day, year)
}

// Package engine provides the weekly tick loop that drives a trading
// session forward in real time.
// See design doc Section 3.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// WeeksPerYear matches the seasonal price cycle.
const WeeksPerYear = 52

// autosaveEvery is how many weeks pass between automatic saves.
const autosaveEvery = 4

// Engine advances the simulation one week per interval. The tick loop and
// the admin control plane touch it from different goroutines; all counter
// and speed access goes through the mutex-guarded accessors.
type Engine struct {
	mu      sync.Mutex
	week    int
	speed   float64 // Multiplier: 1.0 = real-time, 0 = paused
	running bool

	Interval time.Duration // Base week interval, fixed before Run.

	// Callbacks populated during setup, invoked outside the engine lock.
	OnWeek     func(week int)
	OnAutosave func(week int)
}

// NewEngine creates an engine with default settings.
func NewEngine(interval time.Duration) *Engine {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Engine{
		speed:    1.0,
		Interval: interval,
	}
}

// Week returns the engine's week counter.
func (e *Engine) Week() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.week
}

// SetWeek aligns the counter with a restored session.
func (e *Engine) SetWeek(week int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.week = week
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. 0 pauses the loop.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = speed
}

// Running reports whether the tick loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run starts the tick loop. Blocks until Stop() is called.
func (e *Engine) Run() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	slog.Info("engine started", "week", e.Week(), "speed", e.Speed(), "interval", e.Interval)

	for e.Running() {
		speed := e.Speed()
		if speed <= 0 {
			// Paused. Sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.Advance()

		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("engine stopped", "week", e.Week())
}

// Stop halts the tick loop after the current step.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
}

// Advance steps the simulation by one week. Called by the tick loop and by
// the admin advance endpoint, so manual advances keep the week counter and
// the autosave cadence in step with the session.
func (e *Engine) Advance() {
	e.mu.Lock()
	e.week++
	week := e.week
	onWeek, onAutosave := e.OnWeek, e.OnAutosave
	e.mu.Unlock()

	if onWeek != nil {
		onWeek(week)
	}
	if week%autosaveEvery == 0 && onAutosave != nil {
		onAutosave(week)
	}
}

// WeekLabel returns a human-readable label for a week number.
func WeekLabel(week int) string {
	if week <= 0 {
		return "Year 1, Week 0"
	}
	year := (week-1)/WeeksPerYear + 1
	w := (week-1)%WeeksPerYear + 1
	return fmt.Sprintf("Year %d, Week %d", year, w)
}

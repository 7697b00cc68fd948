package pipeline

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// StallWatchdog fires a callback when no frame has arrived for a full
// timeout interval. The owner's callback typically resets the session; the
// watchdog itself only detects the stall.
type StallWatchdog struct {
	clk     clock.Clock
	timeout time.Duration
	onStall func()

	mu      sync.Mutex
	timer   *clock.Timer
	stopped bool
}

// NewStallWatchdog builds a stopped watchdog; Start arms it.
func NewStallWatchdog(clk clock.Clock, timeout time.Duration, onStall func()) *StallWatchdog {
	return &StallWatchdog{clk: clk, timeout: timeout, onStall: onStall, stopped: true}
}

// Start arms the watchdog. The stall callback runs on the clock's timer
// goroutine.
func (w *StallWatchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		return
	}
	w.stopped = false
	w.timer = w.clk.AfterFunc(w.timeout, w.fire)
}

// Kick pushes the stall deadline out by one full timeout.
func (w *StallWatchdog) Kick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.timer.Reset(w.timeout)
}

// Stop disarms the watchdog. A stall callback already in flight may still
// run.
func (w *StallWatchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	w.timer.Stop()
}

func (w *StallWatchdog) fire() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	// Re-arm so a stall that persists through a failed recovery fires again.
	w.timer.Reset(w.timeout)
	w.mu.Unlock()
	w.onStall()
}

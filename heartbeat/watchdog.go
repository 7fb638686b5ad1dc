package heartbeat

import (
	"sync"
	"time"

	"github.com/blindftp/blindftp/logger"
)

// pollInterval is how often the watchdog goroutine wakes to check
// staleness, mirroring asprocess.CheckParentInterval's 1-second cadence.
const pollInterval = time.Second

// Watchdog escalates warnings the longer a heartbeat is overdue, ported
// from asprocess.WatchParent's for{ check; sleep } shape: instead of
// exiting the process on a missing parent, it calls back with an
// escalating severity level so the receiver can log increasingly loud
// warnings without ever terminating on a missed heartbeat.
type Watchdog struct {
	timeout  time.Duration
	onLevel  func(elapsed time.Duration, level int)

	mu       sync.Mutex
	lastSeen time.Time
	level    int
}

// NewWatchdog builds a watchdog that considers the sender overdue after
// timeout has elapsed since the last Touch. While it stays overdue, each
// check whose count of whole elapsed timeouts exceeds the last reported
// level calls onLevel once with that count as the new level, so levels
// may skip values when timeout is shorter than the poll interval.
func NewWatchdog(timeout time.Duration, onLevel func(elapsed time.Duration, level int)) *Watchdog {
	return &Watchdog{timeout: timeout, onLevel: onLevel, lastSeen: time.Now()}
}

// Touch records that a heartbeat just arrived, resetting escalation.
func (w *Watchdog) Touch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastSeen = time.Now()
	w.level = 0
}

// Start runs the poll loop until stop is closed.
func (w *Watchdog) Start(lctx logger.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.check(lctx)
		}
	}
}

func (w *Watchdog) check(lctx logger.Context) {
	w.mu.Lock()
	elapsed := time.Since(w.lastSeen)
	overdueSteps := int(elapsed / w.timeout)
	fire := overdueSteps > w.level
	if fire {
		w.level = overdueSteps
	}
	level := w.level
	w.mu.Unlock()

	if fire {
		logger.W(lctx, "heartbeat overdue by", elapsed, "level", level)
		if w.onLevel != nil {
			w.onLevel(elapsed, level)
		}
	}
}

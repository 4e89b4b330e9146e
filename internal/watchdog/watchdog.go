// Package watchdog is a small time.Timer-backed keepalive helper for the
// example binaries under cmd/. It is not part of the core library's
// contract — an Instance never starts or stops a timer itself, it only
// calls the TimeoutPat/TimeoutStop functions a host supplies (see
// yamc.Handlers) — this is one way a host can implement them.
package watchdog

import (
	"sync"
	"time"
)

// Watchdog calls fired once if it is not Pat-ed again or stopped within
// period of the previous Pat.
type Watchdog struct {
	period time.Duration
	fired  func()

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a Watchdog that calls fired after period of inactivity.
// fired runs on the timer's own goroutine, exactly as time.AfterFunc
// would — the caller is responsible for any synchronization fired needs.
func New(period time.Duration, fired func()) *Watchdog {
	return &Watchdog{period: period, fired: fired}
}

// Pat (re)starts the timer, stopping any timer already running. Safe to call as the package's TimeoutPat handler.
func (w *Watchdog) Pat() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.period, w.fired)
}

// Stop cancels the timer without firing it. Safe to call as the package's
// TimeoutStop handler, and safe to call when no timer is running.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

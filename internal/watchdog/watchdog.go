// Package watchdog tracks process liveness across restarts. A timestamp is
// written at every cold start and refreshed periodically; finding a marker
// left over from a prior session means that session never closed cleanly:
// the OS killed the process rather than the user logging out (logout purges
// the prefs store, marker included).
package watchdog

import (
	"context"
	"time"

	"fieldagent/internal/common"
	"fieldagent/internal/logging"
	"fieldagent/internal/prefs"
)

// Watchdog maintains the liveness record in the prefs store.
type Watchdog struct {
	prefs    prefs.Store
	log      logging.Logger
	interval time.Duration
	now      func() time.Time

	initialized bool
	prevMarker  int64
}

func New(p prefs.Store, interval time.Duration, log logging.Logger) *Watchdog {
	return &Watchdog{prefs: p, log: log, interval: interval, now: time.Now}
}

// Initialize records the pre-existing marker, if any, then writes a fresh
// one. Call once per process start, before Start.
func (w *Watchdog) Initialize(ctx context.Context) error {
	prev, ok, err := w.prefs.GetInt64(ctx, common.PrefKeyLastAlive)
	if err != nil {
		return err
	}
	if ok {
		w.prevMarker = prev
	}
	w.initialized = true
	return w.MarkAlive(ctx)
}

// MarkAlive writes the current timestamp to the liveness record.
func (w *Watchdog) MarkAlive(ctx context.Context) error {
	return w.prefs.SetInt64(ctx, common.PrefKeyLastAlive, w.now().UnixMilli())
}

// WasDead reports whether a liveness marker from a prior session survived
// until this start. True means the previous process was killed without a
// clean logout, so background monitoring was interrupted. Only meaningful
// after Initialize.
func (w *Watchdog) WasDead() bool {
	return w.initialized && w.prevMarker > 0
}

// PreviousMarker returns the marker found at Initialize, zero when none.
func (w *Watchdog) PreviousMarker() time.Time {
	if w.prevMarker == 0 {
		return time.Time{}
	}
	return time.UnixMilli(w.prevMarker)
}

// Start arms the periodic liveness refresh for the rest of the session.
// It blocks until ctx is cancelled; run it on its own goroutine.
func (w *Watchdog) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.MarkAlive(ctx); err != nil {
				w.log.Warn(ctx, "liveness refresh failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

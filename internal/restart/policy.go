// Package restart decides whether the background worker comes back after the
// OS reports the app was removed from the recent-tasks view. The hook runs in
// its own short-lived process with no shared memory with the agent; all it
// may consult is the persisted plaintext state, and all it may do is invoke
// one start primitive and exit.
package restart

import "time"

// ShouldRestart is the policy itself: a pure decision over already-available
// local state. It must stay free of I/O; task-removal hooks are expected to
// complete quickly.
//
// The disable flag is honored only within window of its timestamp; past that
// it is stale and ignored even if still present, so a leftover flag from an
// unrelated earlier event cannot suppress restarts forever.
func ShouldRestart(permanentlyDisabled bool, disableTimestamp time.Time, now time.Time, isLoggedIn bool, window time.Duration) bool {
	if permanentlyDisabled && now.Sub(disableTimestamp) < window {
		return false
	}
	if !isLoggedIn {
		return false
	}
	return true
}

package restart

import (
	"context"
	"time"

	"fieldagent/internal/common"
	"fieldagent/internal/logging"
	"fieldagent/internal/prefs"
)

// ServiceStarter is the platform primitive that brings the background worker
// back. The hook owns the decision; the starter owns the mechanism.
type ServiceStarter interface {
	StartWorker(ctx context.Context) error
}

// Hook gathers the policy inputs from the plaintext store and acts on the
// decision. It deliberately has no access to the encrypted backend and does
// no token validation: a lightweight best-effort login check is all a
// foreign-process hook gets.
type Hook struct {
	prefs   prefs.Store
	starter ServiceStarter
	window  time.Duration
	log     logging.Logger
	now     func() time.Time
}

func NewHook(p prefs.Store, starter ServiceStarter, window time.Duration, log logging.Logger) *Hook {
	return &Hook{prefs: p, starter: starter, window: window, log: log, now: time.Now}
}

// Run evaluates the policy and starts the worker when it says so. It never
// fails on store reads: ambiguity about the login state counts as logged out
// (restart is withheld), while ambiguity about the disable flag counts as
// not disabled (restart proceeds). Restarting is reversible, silently
// leaving the user unmonitored is not.
func (h *Hook) Run(ctx context.Context) (restarted bool, err error) {
	disabled, ok, err := h.prefs.GetBool(ctx, common.PrefKeyServiceDisabled)
	if err != nil || !ok {
		disabled = false
	}
	var disabledAt time.Time
	if ts, ok, err := h.prefs.GetInt64(ctx, common.PrefKeyDisableTimestamp); err == nil && ok {
		disabledAt = time.UnixMilli(ts)
	}

	token, ok, err := h.prefs.GetString(ctx, common.PrefKeyToken)
	if err != nil || !ok {
		token = ""
	}
	code, ok, err := h.prefs.GetString(ctx, common.PrefKeyDeploymentCode)
	if err != nil || !ok {
		code = ""
	}
	isLoggedIn := token != "" && code != ""

	if !ShouldRestart(disabled, disabledAt, h.now(), isLoggedIn, h.window) {
		h.log.Info(ctx, "restart suppressed",
			"disabled", disabled, "logged_in", isLoggedIn)
		return false, nil
	}

	if err := h.starter.StartWorker(ctx); err != nil {
		return false, err
	}
	h.log.Info(ctx, "background worker restarted")
	return true, nil
}

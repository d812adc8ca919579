// Package deploycheck implements the debounced deployment-code validator.
// The backend enforces at most one active device per code; this component
// asks it whether the entered code is already in use, while keeping pace
// with a user still typing. One cancellable timer exists per validator:
// re-arming always cancels the previous one, and every completed check is
// discarded unless the input still matches what was checked.
package deploycheck

import (
	"context"
	"sync"
	"time"

	"fieldagent/internal/logging"
)

// Status classifies the last deployment-code check.
type Status int

const (
	// StatusUnknown means no result is cached for the current code.
	StatusUnknown Status = iota
	// StatusChecking means a remote check is in flight.
	StatusChecking
	// StatusAvailable means the code is free and login is permitted.
	StatusAvailable
	// StatusInUse means another device currently holds the code.
	StatusInUse
	// StatusIndeterminate means the remote check failed; login stays blocked
	// until a later check succeeds. There is no automatic retry: the next
	// attempt happens when the user edits the field again.
	StatusIndeterminate
)

func (s Status) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusAvailable:
		return "available"
	case StatusInUse:
		return "in_use"
	case StatusIndeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// MinCodeLength is the shortest code worth a remote round-trip. Callers use
// it to reject shorter codes inline instead of waiting out the debounce.
const MinCodeLength = 3

// checkTimeout bounds a single remote check.
const checkTimeout = 10 * time.Second

// Checker is the remote collaborator; api.Client satisfies it.
type Checker interface {
	CheckDeploymentCode(ctx context.Context, token, code string) (inUse bool, err error)
}

// State is a snapshot of the validator, scoped to one login screen session.
type State struct {
	LastCheckedCode string
	Status          Status
	// Valid is true only when the cached result authorizes a login for
	// LastCheckedCode.
	Valid   bool
	Message string
}

// Validator debounces input edits and runs at most one remote check per
// quiescence window.
type Validator struct {
	checker  Checker
	log      logging.Logger
	debounce time.Duration
	ctx      context.Context

	mu           sync.Mutex
	timer        *time.Timer
	timerPending bool
	gen          uint64
	token        string
	code         string
	inFlight     bool
	state        State
}

// New creates a validator. ctx scopes the remote checks to the owning
// session; cancelling it stops any in-flight check.
func New(ctx context.Context, checker Checker, debounce time.Duration, log logging.Logger) *Validator {
	return &Validator{
		checker:  checker,
		log:      log,
		debounce: debounce,
		ctx:      ctx,
		state:    State{Status: StatusUnknown},
	}
}

// ScheduleCheck records the current input and re-arms the debounce timer.
// Any cached result for a different code is invalidated immediately, before
// the new timer starts, so a stale "available" can never authorize a login
// against an unchecked code. The remote check fires only if the input stays
// unchanged for the full debounce window, the token is non-empty and the
// code has at least three characters.
func (v *Validator) ScheduleCheck(token, code string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if code != v.code {
		v.state = State{Status: StatusUnknown}
	}
	v.token = token
	v.code = code
	v.gen++

	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.timerPending = false

	if token == "" || len(code) < MinCodeLength {
		return
	}

	gen := v.gen
	v.timerPending = true
	v.timer = time.AfterFunc(v.debounce, func() { v.fire(gen) })
}

// fire runs the remote check armed for generation gen.
func (v *Validator) fire(gen uint64) {
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	token, code := v.token, v.code
	v.timerPending = false
	v.inFlight = true
	v.state.Status = StatusChecking
	v.state.Valid = false
	v.mu.Unlock()

	ctx, cancel := context.WithTimeout(v.ctx, checkTimeout)
	inUse, err := v.checker.CheckDeploymentCode(ctx, token, code)
	cancel()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.inFlight = false

	// The field may have changed while the request was on the wire; a result
	// for a code that no longer matches the input is dropped.
	if gen != v.gen || code != v.code {
		v.log.Debug(v.ctx, "discarding stale deployment-code check", "code", code)
		return
	}

	switch {
	case err != nil:
		v.log.Warn(v.ctx, "deployment-code check failed", "error", err)
		v.state = State{LastCheckedCode: code, Status: StatusIndeterminate, Message: "could not verify code"}
	case inUse:
		v.state = State{LastCheckedCode: code, Status: StatusInUse, Message: "code is in use on another device"}
	default:
		v.state = State{LastCheckedCode: code, Status: StatusAvailable, Valid: true, Message: "code available"}
	}
}

// State returns a snapshot of the current validation state.
func (v *Validator) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// CanLogin reports whether login is permitted: token and code present, the
// cached result is an Available for the exact current code, and no check is
// pending or in flight.
func (v *Validator) CanLogin() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.token != "" &&
		v.code != "" &&
		v.state.Valid &&
		v.state.Status == StatusAvailable &&
		v.state.LastCheckedCode == v.code &&
		!v.inFlight &&
		!v.timerPending
}

// Close cancels any pending timer. In-flight checks are abandoned by their
// generation guard.
func (v *Validator) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.timerPending = false
	v.gen++
}

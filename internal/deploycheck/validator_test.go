package deploycheck

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fieldagent/internal/logging"
)

const testDebounce = 20 * time.Millisecond

// fakeChecker counts calls and can block until released.
type fakeChecker struct {
	mu      sync.Mutex
	calls   int32
	inUse   bool
	err     error
	started chan string // receives the code when a check begins, if set
	release chan struct{}
}

func (f *fakeChecker) CheckDeploymentCode(ctx context.Context, token, code string) (bool, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.started != nil {
		f.started <- code
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inUse, f.err
}

func (f *fakeChecker) callCount() int32 { return atomic.LoadInt32(&f.calls) }

func newValidator(t *testing.T, checker Checker) *Validator {
	t.Helper()
	v := New(context.Background(), checker, testDebounce, logging.NewNopLogger())
	t.Cleanup(v.Close)
	return v
}

func waitForStatus(t *testing.T, v *Validator, want Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return v.State().Status == want
	}, time.Second, time.Millisecond, "expected status %v, got %v", want, v.State().Status)
}

func TestValidator_FiresOncePerQuiescence(t *testing.T) {
	f := &fakeChecker{}
	v := newValidator(t, f)

	// a user typing: each edit re-arms the timer
	v.ScheduleCheck("AAAAAAAAAA", "XYZ")
	v.ScheduleCheck("AAAAAAAAAA", "XYZ1")
	v.ScheduleCheck("AAAAAAAAAA", "XYZ12")

	waitForStatus(t, v, StatusAvailable)
	require.Equal(t, int32(1), f.callCount())
	require.Equal(t, "XYZ12", v.State().LastCheckedCode)
	require.True(t, v.CanLogin())
}

func TestValidator_PreconditionsBlockCheck(t *testing.T) {
	f := &fakeChecker{}
	v := newValidator(t, f)

	v.ScheduleCheck("", "XYZ1")         // no token
	v.ScheduleCheck("AAAAAAAAAA", "")   // no code
	v.ScheduleCheck("AAAAAAAAAA", "XY") // too short

	time.Sleep(4 * testDebounce)
	require.Zero(t, f.callCount())
	require.Equal(t, StatusUnknown, v.State().Status)
	require.False(t, v.CanLogin())
}

func TestValidator_EditInvalidatesCachedResultImmediately(t *testing.T) {
	f := &fakeChecker{}
	v := newValidator(t, f)

	v.ScheduleCheck("AAAAAAAAAA", "XYZ1")
	waitForStatus(t, v, StatusAvailable)
	require.True(t, v.CanLogin())

	// The reset happens synchronously, before any new debounce timer fires.
	v.ScheduleCheck("AAAAAAAAAA", "XYZ2")
	require.Equal(t, StatusUnknown, v.State().Status)
	require.False(t, v.State().Valid)
	require.False(t, v.CanLogin())
}

func TestValidator_StaleInFlightResultIsDiscarded(t *testing.T) {
	f := &fakeChecker{
		started: make(chan string, 2),
		release: make(chan struct{}),
	}
	v := newValidator(t, f)

	v.ScheduleCheck("AAAAAAAAAA", "ABC")
	require.Equal(t, "ABC", <-f.started) // check for ABC is now on the wire

	// field now reads ABD before the ABC response arrives
	v.ScheduleCheck("AAAAAAAAAA", "ABD")
	close(f.release)

	require.Equal(t, "ABD", <-f.started)
	waitForStatus(t, v, StatusAvailable)
	require.Equal(t, "ABD", v.State().LastCheckedCode)
	require.Equal(t, int32(2), f.callCount())
}

func TestValidator_InUseBlocksLogin(t *testing.T) {
	f := &fakeChecker{inUse: true}
	v := newValidator(t, f)

	v.ScheduleCheck("AAAAAAAAAA", "XYZ1")
	waitForStatus(t, v, StatusInUse)
	require.False(t, v.CanLogin())
	require.False(t, v.State().Valid)
}

func TestValidator_FailureIsIndeterminateAndRetriesOnlyOnEdit(t *testing.T) {
	f := &fakeChecker{err: errors.New("network down")}
	v := newValidator(t, f)

	v.ScheduleCheck("AAAAAAAAAA", "XYZ1")
	waitForStatus(t, v, StatusIndeterminate)
	require.False(t, v.CanLogin())
	require.Equal(t, int32(1), f.callCount())

	// no automatic background retry
	time.Sleep(4 * testDebounce)
	require.Equal(t, int32(1), f.callCount())

	// the user editing the field triggers a fresh check
	f.mu.Lock()
	f.err = nil
	f.mu.Unlock()
	v.ScheduleCheck("AAAAAAAAAA", "XYZ12")
	waitForStatus(t, v, StatusAvailable)
	require.True(t, v.CanLogin())
}

func TestValidator_CanLoginFalseWhileTimerPending(t *testing.T) {
	f := &fakeChecker{}
	v := newValidator(t, f)

	v.ScheduleCheck("AAAAAAAAAA", "XYZ1")
	waitForStatus(t, v, StatusAvailable)

	// same code, new token: cached result survives but a re-check is pending
	v.ScheduleCheck("BBBBBBBBBB", "XYZ1")
	require.False(t, v.CanLogin())

	waitForStatus(t, v, StatusAvailable)
	require.True(t, v.CanLogin())
}

func TestValidator_CloseStopsPendingCheck(t *testing.T) {
	f := &fakeChecker{}
	v := New(context.Background(), f, testDebounce, logging.NewNopLogger())

	v.ScheduleCheck("AAAAAAAAAA", "XYZ1")
	v.Close()

	time.Sleep(4 * testDebounce)
	require.Zero(t, f.callCount())
}

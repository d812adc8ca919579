package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldagent/internal/api"
	"fieldagent/internal/common"
	"fieldagent/internal/credentials"
	"fieldagent/internal/deploycheck"
)

// checkWaitSlack bounds how long Login waits for the deployment-code check
// on top of the debounce window.
const checkWaitSlack = 15 * time.Second

// Login runs the interactive authentication flow: token and deployment code
// are read from the terminal, the code is verified against the backend, the
// backend login is attempted and on success (online or offline) the
// credentials are persisted and the token field locked.
func (a *App) Login(ctx context.Context) error {
	rec, err := a.creds.Load(ctx)
	if err != nil {
		if !errors.Is(err, common.ErrCredentialsCorrupted) {
			return err
		}
		a.printf("Stored credentials were corrupted and have been cleared. Please log in again.")
	}
	if rec != nil {
		a.printf("Already logged in with deployment code %q. Log out first to switch devices.", rec.DeploymentCode)
		return nil
	}

	tokenBytes, err := GetToken(a.out)
	if err != nil {
		return err
	}
	a.purger.RegisterSensitive(tokenBytes)
	defer common.WipeByteArray(tokenBytes)

	token, err := credentials.ValidateToken(string(tokenBytes))
	if err != nil {
		return fmt.Errorf("token rejected: %w", err)
	}

	code, err := GetSimpleText(a.reader, "Enter deployment code", a.out)
	if err != nil {
		return err
	}
	// Too-short codes never arm the validator timer; reject them inline
	// instead of waiting out the check budget.
	if len(code) < deploycheck.MinCodeLength {
		return fmt.Errorf("deployment code must be at least %d characters", deploycheck.MinCodeLength)
	}

	validator := deploycheck.New(ctx, a.client, a.cfg.DebounceInterval, a.log)
	defer validator.Close()

	a.printf("Checking deployment code...")
	validator.ScheduleCheck(token, code)
	state, err := a.waitForCheck(ctx, validator)
	if err != nil {
		return err
	}
	if !validator.CanLogin() {
		return fmt.Errorf("deployment code %q not usable: %s", code, state.Message)
	}

	result, err := a.client.Login(ctx, token, code)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case api.LoginFailure:
		return fmt.Errorf("login rejected: %s", result.Message)
	case api.LoginOffline:
		a.printf("Backend unreachable. Credentials accepted locally and will be used once the connection returns.")
	default:
		a.printf("Login successful.")
	}

	if err := a.creds.Save(ctx, token, code); err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	if err := a.creds.Lock(ctx); err != nil {
		return fmt.Errorf("lock token field: %w", err)
	}

	// A stale disable flag from an earlier logout must not suppress restarts
	// of the session that just started.
	if err := a.prefs.Delete(ctx, common.PrefKeyServiceDisabled); err != nil {
		return err
	}
	if err := a.prefs.Delete(ctx, common.PrefKeyDisableTimestamp); err != nil {
		return err
	}

	return a.wd.MarkAlive(ctx)
}

// waitForCheck polls the validator until the scheduled check settles or the
// wait budget runs out.
func (a *App) waitForCheck(ctx context.Context, v *deploycheck.Validator) (deploycheck.State, error) {
	deadline := time.NewTimer(a.cfg.DebounceInterval + checkWaitSlack)
	defer deadline.Stop()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return deploycheck.State{}, ctx.Err()
		case <-deadline.C:
			return deploycheck.State{}, fmt.Errorf("deployment code check timed out")
		case <-ticker.C:
			st := v.State()
			switch st.Status {
			case deploycheck.StatusAvailable, deploycheck.StatusInUse, deploycheck.StatusIndeterminate:
				return st, nil
			}
		}
	}
}

package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"fieldagent/internal/common"
)

// maskToken hides all but the last four characters of a token.
func maskToken(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}

// Status prints the local agent state: credentials, lock flag, liveness
// marker and the number of buffered fixes awaiting upload.
func (a *App) Status(ctx context.Context) error {
	rec, err := a.creds.Load(ctx)
	if err != nil {
		if errors.Is(err, common.ErrCredentialsCorrupted) {
			a.printf("Credentials: corrupted (cleared, re-authentication required)")
			return nil
		}
		return err
	}

	if rec == nil {
		a.printf("Credentials: none (not logged in)")
	} else {
		a.printf("Credentials: token %s, deployment code %s", maskToken(rec.Token), rec.DeploymentCode)
		a.printf("Token field locked: %v", a.creds.IsLocked(ctx))
	}

	if last, ok, err := a.prefs.GetInt64(ctx, common.PrefKeyLastAlive); err == nil && ok {
		a.printf("Last alive: %s", time.UnixMilli(last).Format(time.RFC3339))
	} else {
		a.printf("Last alive: never")
	}

	pending, err := a.repo.CountPending(ctx)
	if err != nil {
		return err
	}
	a.printf("Buffered fixes pending upload: %d", pending)

	// Absent means the user never touched the preference; installs default on.
	autoUpdate, ok, err := a.prefs.GetBool(ctx, common.PrefKeyAutoUpdateInstall)
	if err == nil && !ok {
		autoUpdate = true
	}
	a.printf("Auto-update install: %v", autoUpdate)
	return nil
}

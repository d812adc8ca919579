package agent

import (
	"context"
	"fmt"

	"fieldagent/internal/common"
)

// Logout disables the background worker and purges all locally held state.
// The disable flag and its timestamp are written first so the OS task-removal
// hook, which may fire while the purge is still running, sees a deliberate
// stop and does not resurrect the worker.
func (a *App) Logout(ctx context.Context) error {
	if err := a.prefs.SetBool(ctx, common.PrefKeyServiceDisabled, true); err != nil {
		return fmt.Errorf("set disable flag: %w", err)
	}
	if err := a.prefs.SetInt64(ctx, common.PrefKeyDisableTimestamp, nowUnixMilli()); err != nil {
		return fmt.Errorf("set disable timestamp: %w", err)
	}

	// The buffer database must be closed before the sweep removes its file.
	if err := a.Close(); err != nil {
		a.log.Warn(ctx, "closing track buffer before purge failed", "error", err)
	}

	if err := a.purger.PurgeAll(ctx); err != nil {
		return err
	}

	report, err := a.purger.Verify(ctx)
	if err != nil {
		a.log.Warn(ctx, "post-purge verification failed", "error", err)
	} else {
		a.log.Info(ctx, "post-purge verification",
			"prefs_empty", report.PrefsEmpty,
			"prefs_residue", report.PrefsResidue,
			"dirs_empty", report.DirsEmpty)
	}

	a.printf("Logged out. Local data has been removed.")
	return nil
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldagent/internal/api"
	"fieldagent/internal/common"
	"fieldagent/internal/reporter"
	"fieldagent/internal/trackbuf"
)

func nowUnixMilli() int64 { return time.Now().UnixMilli() }

// apiUploader adapts the API client to the reporter's Uploader contract,
// resolving credentials per drain so a mid-session repair is picked up.
type apiUploader struct {
	app *App
}

func (u *apiUploader) Upload(ctx context.Context, fixes []trackbuf.Fix) error {
	rec, err := u.app.creds.Load(ctx)
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.New("not logged in")
	}

	payload := make([]api.FixUpload, 0, len(fixes))
	for _, f := range fixes {
		payload = append(payload, api.FixUpload{
			ID:         f.ID,
			Lat:        f.Lat,
			Lon:        f.Lon,
			Accuracy:   f.Accuracy,
			RecordedAt: f.RecordedAt,
		})
	}
	return u.app.client.UploadFixes(ctx, rec.Token, rec.DeploymentCode, payload)
}

// Run starts the background worker: watchdog refresh plus the periodic
// sample-and-upload loop. It blocks until ctx is cancelled. Only one worker
// may run per data directory; a second invocation fails fast.
func (a *App) Run(ctx context.Context) error {
	locked, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return errors.New("another agent instance is already running")
	}
	defer func() { _ = a.lock.Unlock() }()

	rec, err := a.creds.Load(ctx)
	if err != nil {
		if errors.Is(err, common.ErrCredentialsCorrupted) {
			return errors.New("stored credentials were corrupted and have been cleared; log in again")
		}
		return err
	}
	if rec == nil {
		return errors.New("not logged in")
	}

	if a.wd.WasDead() {
		a.log.Warn(ctx, "previous session ended without a clean logout, monitoring was interrupted",
			"last_alive", a.wd.PreviousMarker())
	}
	go a.wd.Start(ctx)

	rep := reporter.New(
		a.repo,
		reporter.NewGeoIPSampler(a.cfg.GeoEndpoint),
		&apiUploader{app: a},
		a.cfg.ReportInterval,
		a.cfg.UploadBatchSize,
		a.log,
	)

	a.log.Info(ctx, "background worker started", "deployment_code", rec.DeploymentCode)
	if err := rep.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.log.Info(ctx, "background worker stopped")
	return nil
}

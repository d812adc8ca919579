// Package reporter runs the background tracking worker: it samples location
// fixes on an interval, buffers them locally, and drains the buffer to the
// backend. Fixes stay buffered across restarts and offline stretches; a row
// is marked uploaded only after the backend accepted its batch.
package reporter

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"fieldagent/internal/common"
	"fieldagent/internal/logging"
	"fieldagent/internal/trackbuf"
)

// uploadedRetention is how long accepted fixes are kept before pruning.
const uploadedRetention = 24 * time.Hour

// Uploader ships a batch to the backend; the agent wires it to the API
// client with the stored credentials attached.
type Uploader interface {
	Upload(ctx context.Context, fixes []trackbuf.Fix) error
}

// Reporter is the background worker the watchdog protects.
type Reporter struct {
	repo      trackbuf.Repository
	sampler   Sampler
	uploader  Uploader
	interval  time.Duration
	batchSize int
	log       logging.Logger
}

func New(repo trackbuf.Repository, sampler Sampler, uploader Uploader, interval time.Duration, batchSize int, log logging.Logger) *Reporter {
	return &Reporter{
		repo:      repo,
		sampler:   sampler,
		uploader:  uploader,
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// Run samples and drains until ctx is cancelled. Sampling failures are
// logged and skipped; the drain still runs so earlier fixes keep flowing.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info(ctx, "reporter started", "interval", r.interval)

	for {
		select {
		case <-ticker.C:
			r.tick(ctx)
		case <-ctx.Done():
			r.log.Info(ctx, "reporter stopped")
			return ctx.Err()
		}
	}
}

func (r *Reporter) tick(ctx context.Context) {
	fix, err := r.sampler.Sample(ctx)
	if err != nil {
		r.log.Warn(ctx, "location sample failed", "error", err)
	} else if err := r.repo.Add(ctx, fix); err != nil {
		r.log.Error(ctx, "buffering fix failed", "error", err)
	}

	if err := r.Drain(ctx); err != nil {
		r.log.Warn(ctx, "drain incomplete, fixes stay buffered", "error", err)
	}
}

// Drain uploads pending fixes batch by batch until the buffer is empty.
// Each batch gets a short fibonacci backoff; when the backend still refuses,
// the remaining fixes wait for the next tick. A rejected token is not
// retried at all: backing off cannot fix stale credentials.
func (r *Reporter) Drain(ctx context.Context) error {
	for {
		pending, err := r.repo.ListPending(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))
		err = retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := r.uploader.Upload(ctx, pending); err != nil {
				if errors.Is(err, common.ErrUnauthorized) {
					return err
				}
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		ids := make([]string, len(pending))
		for i, fix := range pending {
			ids[i] = fix.ID
		}
		pruned, err := r.repo.CompleteBatch(ctx, ids, time.Now().Add(-uploadedRetention))
		if err != nil {
			return err
		}
		r.log.Debug(ctx, "batch uploaded", "count", len(ids), "pruned", pruned)
	}
}

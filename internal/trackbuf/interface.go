package trackbuf

import (
	"context"
	"time"
)

type Repository interface {
	// Add buffers a fix.
	Add(ctx context.Context, fix *Fix) error

	// ListPending returns up to limit not-yet-uploaded fixes, oldest first.
	ListPending(ctx context.Context, limit int) ([]Fix, error)

	// CompleteBatch flags the given fixes as accepted by the backend and
	// prunes uploaded fixes recorded before the cutoff, atomically. It
	// returns how many rows the prune removed.
	CompleteBatch(ctx context.Context, ids []string, pruneBefore time.Time) (int64, error)

	// CountPending reports the backlog size.
	CountPending(ctx context.Context) (int64, error)
}

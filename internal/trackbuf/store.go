package trackbuf

import (
	"context"
	"database/sql"
	"time"

	"fieldagent/internal/dbx"
)

// SQLiteStore is the pool-level Repository implementation. Single statements
// run directly on the pool; the post-upload bookkeeping pair (mark accepted
// rows, prune expired ones) commits in one transaction so readers never see
// a batch half-bookkept.
type SQLiteStore struct {
	db   *sql.DB
	base *SQLiteRepository
}

var _ Repository = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, base: NewSQLiteRepository(db)}
}

func (s *SQLiteStore) Add(ctx context.Context, fix *Fix) error {
	return s.base.Add(ctx, fix)
}

func (s *SQLiteStore) ListPending(ctx context.Context, limit int) ([]Fix, error) {
	return s.base.ListPending(ctx, limit)
}

func (s *SQLiteStore) CountPending(ctx context.Context) (int64, error) {
	return s.base.CountPending(ctx)
}

func (s *SQLiteStore) CompleteBatch(ctx context.Context, ids []string, pruneBefore time.Time) (int64, error) {
	var pruned int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if err := repo.MarkUploaded(ctx, ids); err != nil {
			return err
		}
		var err error
		pruned, err = repo.PruneUploaded(ctx, pruneBefore)
		return err
	})
	return pruned, err
}

package trackbuf

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDatabase(context.Background(), "file:trackbuf_"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newFix(recordedAt time.Time) *Fix {
	return &Fix{
		ID:         uuid.NewString(),
		Lat:        56.9496,
		Lon:        24.1052,
		Accuracy:   12.5,
		RecordedAt: recordedAt,
	}
}

func TestSQLiteRepository_AddAndListPending(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	base := time.Now().Truncate(time.Millisecond)
	newer := newFix(base)
	older := newFix(base.Add(-time.Minute))

	require.NoError(t, repo.Add(ctx, newer))
	require.NoError(t, repo.Add(ctx, older))

	pending, err := repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	// oldest first
	require.Equal(t, older.ID, pending[0].ID)
	require.Equal(t, newer.ID, pending[1].ID)
	require.Equal(t, older.RecordedAt.UnixMilli(), pending[0].RecordedAt.UnixMilli())

	shortList, err := repo.ListPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, shortList, 1)
}

func TestSQLiteRepository_MarkUploaded(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	a := newFix(time.Now())
	b := newFix(time.Now())
	require.NoError(t, repo.Add(ctx, a))
	require.NoError(t, repo.Add(ctx, b))

	require.NoError(t, repo.MarkUploaded(ctx, []string{a.ID}))

	pending, err := repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, b.ID, pending[0].ID)

	count, err := repo.CountPending(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	// empty id list is a no-op
	require.NoError(t, repo.MarkUploaded(ctx, nil))
}

func TestSQLiteRepository_PruneUploaded(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	old := newFix(time.Now().Add(-48 * time.Hour))
	fresh := newFix(time.Now())
	stillPending := newFix(time.Now().Add(-48 * time.Hour))

	require.NoError(t, repo.Add(ctx, old))
	require.NoError(t, repo.Add(ctx, fresh))
	require.NoError(t, repo.Add(ctx, stillPending))
	require.NoError(t, repo.MarkUploaded(ctx, []string{old.ID, fresh.ID}))

	pruned, err := repo.PruneUploaded(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), pruned)

	// pending rows are never pruned, whatever their age
	count, err := repo.CountPending(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestSQLiteStore_CompleteBatch(t *testing.T) {
	store := NewSQLiteStore(setupDB(t))
	ctx := context.Background()

	old := newFix(time.Now().Add(-48 * time.Hour))
	fresh := newFix(time.Now())
	untouched := newFix(time.Now())

	require.NoError(t, store.Add(ctx, old))
	require.NoError(t, store.Add(ctx, fresh))
	require.NoError(t, store.Add(ctx, untouched))

	pruned, err := store.CompleteBatch(ctx, []string{old.ID, fresh.ID}, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), pruned, "the old uploaded fix is pruned in the same call")

	pending, err := store.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, untouched.ID, pending[0].ID)
}

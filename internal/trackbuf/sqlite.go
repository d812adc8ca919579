package trackbuf

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fieldagent/internal/dbx"
)

// SQLiteRepository runs single statements against a DBTX (either *sql.DB or
// *sql.Tx). SQLiteStore wraps it with the transactional Repository surface.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, fix *Fix) error {
	query := `INSERT INTO fixes (id, lat, lon, accuracy, recorded_at, uploaded)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		fix.ID, fix.Lat, fix.Lon, fix.Accuracy, fix.RecordedAt.UnixMilli(), fix.Uploaded)
	if err != nil {
		return fmt.Errorf("failed to insert fix: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context, limit int) ([]Fix, error) {
	query := `SELECT id, lat, lon, accuracy, recorded_at FROM fixes
		WHERE uploaded = 0 ORDER BY recorded_at ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending fixes: %w", err)
	}
	defer rows.Close()

	var result []Fix
	for rows.Next() {
		var item Fix
		var recordedAt int64
		if err := rows.Scan(&item.ID, &item.Lat, &item.Lon, &item.Accuracy, &recordedAt); err != nil {
			return nil, err
		}
		item.RecordedAt = time.UnixMilli(recordedAt)
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkUploaded(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := fmt.Sprintf(`UPDATE fixes SET uploaded = 1 WHERE id IN (%s)`, placeholders)

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark fixes uploaded: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) PruneUploaded(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM fixes WHERE uploaded = 1 AND recorded_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune fixes: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fixes WHERE uploaded = 0`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending fixes: %w", err)
	}
	return count, nil
}

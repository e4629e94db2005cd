package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/semanadefe/semanadefe/internal/db"
)

// TaskCountStore keeps one non-negative selection counter per task.
type TaskCountStore struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewTaskCountStore(d *sql.DB, dialect db.Dialect) *TaskCountStore {
	return &TaskCountStore{db: d, dialect: dialect}
}

// Increment adds delta to the counter for taskID, creating it on first use,
// and returns the stored value. The result is clamped at zero. The
// read-modify-write happens in one upsert statement inside a transaction, so
// concurrent callers on the same task never lose updates.
func (s *TaskCountStore) Increment(ctx context.Context, taskID string, delta int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin counter transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful Commit is a no-op returning ErrTxDone.
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			slog.Error("failed to roll back counter transaction", "task_id", taskID, "error", rerr)
		}
	}()

	query := rebind(s.dialect, fmt.Sprintf(`
		INSERT INTO task_counts (task_id, count, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (task_id) DO UPDATE
		SET count = %s(0, task_counts.count + ?), updated_at = excluded.updated_at
		RETURNING count
	`, greatest(s.dialect)))

	initial := delta
	if initial < 0 {
		initial = 0
	}

	var count int64
	if err := tx.QueryRowContext(ctx, query, taskID, initial, time.Now().UnixMicro(), delta).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment task count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit task count: %w", err)
	}
	return count, nil
}

// GetAll returns every stored counter keyed by task ID.
func (s *TaskCountStore) GetAll(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT task_id, count FROM task_counts`)
	if err != nil {
		return nil, fmt.Errorf("failed to list task counts: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			taskID string
			count  int64
		)
		if err := rows.Scan(&taskID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan task count: %w", err)
		}
		counts[taskID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task counts: %w", err)
	}
	return counts, nil
}

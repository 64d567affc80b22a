package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jask/tealens/internal/database"
)

// SnapshotRepo handles persisted state snapshots, one per key.
type SnapshotRepo struct {
	db *sql.DB
}

func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

func (r *SnapshotRepo) Upsert(ctx context.Context, key, body string) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO snapshots(key, body, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
	 body=excluded.body,
	 updated_at=excluded.updated_at;
	`, key, body, database.Now())
	return err
}

// Get returns the snapshot stored under key; ok is false when there is none.
func (r *SnapshotRepo) Get(ctx context.Context, key string) (s Snapshot, ok bool, err error) {
	row := r.db.QueryRowContext(ctx, `SELECT key, body, updated_at FROM snapshots WHERE key = ?`, key)
	if err := row.Scan(&s.Key, &s.Body, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	return s, true, nil
}

func (r *SnapshotRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key)
	return err
}

func (r *SnapshotRepo) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, body, updated_at FROM snapshots ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.Key, &s.Body, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

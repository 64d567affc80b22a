package snapshot

import (
	"context"
	"database/sql"
	"time"

	"github.com/jask/tealens/internal/database"
	"github.com/jask/tealens/internal/database/repository"
)

// DefaultKey is the row key the application state is stored under.
const DefaultKey = "state"

// SQLSource stores one snapshot in a sqlite snapshots table. It does not
// observe writes made by other processes, so Watch never fires.
type SQLSource struct {
	db      *sql.DB
	repo    *repository.SnapshotRepo
	key     string
	timeout time.Duration
}

// OpenSQL opens (and migrates) the database at path.
func OpenSQL(path, key string) (*SQLSource, error) {
	db, err := database.OpenMigrated(path)
	if err != nil {
		return nil, err
	}
	if key == "" {
		key = DefaultKey
	}
	return &SQLSource{db: db, repo: repository.NewSnapshotRepo(db), key: key, timeout: 5 * time.Second}, nil
}

func (s *SQLSource) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Load implements extsync.Source.
func (s *SQLSource) Load() (string, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	snap, ok, err := s.repo.Get(ctx, s.key)
	if err != nil || !ok {
		return "", ok, err
	}
	return snap.Body, true, nil
}

// Store implements extsync.Source.
func (s *SQLSource) Store(body string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.repo.Upsert(ctx, s.key, body)
}

// Watch implements extsync.Source.
func (s *SQLSource) Watch(func(string)) func() { return func() {} }

// Reset deletes the stored snapshot.
func (s *SQLSource) Reset() error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.repo.Delete(ctx, s.key)
}

// Close closes the database.
func (s *SQLSource) Close() error { return s.db.Close() }

package service

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/tealens/internal/database"
	"github.com/jask/tealens/internal/database/repository"
	"github.com/jask/tealens/internal/lifecycle"
	"github.com/jask/tealens/internal/store"
)

func TestStateLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	st := store.New(map[string]int{"a": 1})

	svc := StateLogger[map[string]int](log)
	require.Equal(t, "state-logger", svc.Name())
	td, err := svc.Start(st, lifecycle.Launch{})
	require.NoError(t, err)

	st.Set(map[string]int{"a": 2})
	require.Contains(t, buf.String(), `{\"a\":2}`)

	td()
	buf.Reset()
	st.Set(map[string]int{"a": 3})
	require.Empty(t, buf.String())
}

func TestMaintenanceReset(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := repository.NewSnapshotRepo(db)
	require.NoError(t, repo.Upsert(ctx, "state", "{}"))
	require.NoError(t, repo.Upsert(ctx, "other", "{}"))

	svc := &MaintenanceService{DB: db}
	n, err := svc.Reset(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	_, err = (&MaintenanceService{}).Reset(ctx)
	require.Error(t, err)
}

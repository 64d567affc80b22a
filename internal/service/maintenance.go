package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/tealens/internal/database"
)

// MaintenanceService houses destructive/ops actions surfaced through the CLI.
type MaintenanceService struct {
	DB *sql.DB
}

// Reset wipes every stored snapshot. It keeps the schema intact so the app
// starts from its default state next time.
func (s *MaintenanceService) Reset(ctx context.Context) (int64, error) {
	if s.DB == nil {
		return 0, fmt.Errorf("maintenance: db not configured")
	}
	var n int64
	if err := database.WithTx(s.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM snapshots")
		if err != nil {
			return fmt.Errorf("reset snapshots: %w", err)
		}
		n, _ = res.RowsAffected()
		return nil
	}); err != nil {
		return 0, err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return n, nil
}

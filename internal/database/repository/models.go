package repository

import "time"

// Snapshot represents a snapshots row.
type Snapshot struct {
	Key       string
	Body      string
	UpdatedAt time.Time
}

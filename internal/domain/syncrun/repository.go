package syncrun

import (
	"context"
	"time"

	"fieldstock/internal/core/id"
)

// Repository defines storage operations for sync runs.
type Repository interface {
	// Create persists a new run record
	Create(ctx context.Context, r *SyncRun) error

	// GetByID retrieves a run with its counts
	GetByID(ctx context.Context, runID id.ID) (*SyncRun, error)

	// Update persists counts, status and end time
	Update(ctx context.Context, r *SyncRun) error

	// List retrieves runs with filtering, newest-first
	List(ctx context.Context, filter ListFilter) ([]SyncRun, error)
}

// ListFilter filters run listings.
type ListFilter struct {
	Source   string
	Status   *Status
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

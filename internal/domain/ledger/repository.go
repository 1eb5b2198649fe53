package ledger

import (
	"context"
	"time"

	"fieldstock/internal/core/types"
)

// Repository defines storage operations for the ledger and its summaries.
type Repository interface {
	// Movement operations

	// InsertMovement appends one immutable ledger entry
	InsertMovement(ctx context.Context, m Movement) error

	// InsertMovements batch appends entries (used during checkout posting)
	InsertMovements(ctx context.Context, movements []Movement) error

	// MovementsBySKU returns entries newest-first
	MovementsBySKU(ctx context.Context, sku string, filter MovementFilter) ([]Movement, error)

	// Replay recomputes IN/OUT/ADJUST totals from the full ledger for a SKU
	Replay(ctx context.Context, sku string) (Replay, error)

	// Summary operations

	// GetSummary returns the stored summary; NotFound when the SKU was never touched
	GetSummary(ctx context.Context, sku string) (Summary, error)

	// ApplyDelta atomically increments summary fields with a single statement,
	// creating the row on first touch. When allowNegative is false the
	// statement refuses to drive available below zero and an
	// INSUFFICIENT_STOCK error is returned instead.
	ApplyDelta(ctx context.Context, sku string, delta SummaryDelta, allowNegative bool) (Summary, error)

	// SaveSummary overwrites the stored summary (used by rebuild)
	SaveSummary(ctx context.Context, s Summary) error

	// ListSummaries returns stored summaries with filtering
	ListSummaries(ctx context.Context, filter SummaryFilter) ([]Summary, error)
}

// MovementFilter filters movement history queries.
type MovementFilter struct {
	Type     *MovementType
	RefType  *string
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// SummaryFilter filters summary listings.
type SummaryFilter struct {
	SKUs         []string
	LowStockOnly bool
	Limit        int
	Offset       int
}

// Replay holds totals recomputed from the full ledger of one SKU.
type Replay struct {
	TotalIn   types.Quantity `db:"total_in"`
	TotalOut  types.Quantity `db:"total_out"`
	AdjustNet types.Quantity `db:"adjust_net"`
	Count     int64          `db:"movement_count"`
}

// Available returns the replayed available quantity:
// totalIn - totalOut with adjustments folded in.
func (r Replay) Available() types.Quantity {
	return r.TotalIn - r.TotalOut + r.AdjustNet
}

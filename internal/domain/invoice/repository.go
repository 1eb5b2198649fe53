package invoice

import (
	"context"
	"time"
)

// Repository defines storage operations for ingested invoices.
type Repository interface {
	// Upsert inserts or overwrites an invoice by its natural key.
	// Overwrites replace payload fields only; locally-set processing flags
	// (stock_processed) are preserved.
	Upsert(ctx context.Context, inv *Invoice) (UpsertOutcome, error)

	// GetByNumber retrieves an invoice by its document number
	GetByNumber(ctx context.Context, number string) (*Invoice, error)

	// GetByExternalID retrieves an invoice by (source, externalID)
	GetByExternalID(ctx context.Context, source, externalID string) (*Invoice, error)

	// MarkStockProcessed flags invoices whose movements were reconciled
	MarkStockProcessed(ctx context.Context, numbers []string) error

	// List retrieves invoices with filtering
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
}

// ListFilter filters invoice listings.
type ListFilter struct {
	Source         string
	StockProcessed *bool
	FromDate       *time.Time
	ToDate         *time.Time
	Limit          int
	Offset         int
}

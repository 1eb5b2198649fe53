package discrepancy

import (
	"context"
	"time"

	"fieldstock/internal/core/id"
)

// Repository defines storage operations for discrepancy reports.
type Repository interface {
	// Create persists a new report
	Create(ctx context.Context, d *Discrepancy) error

	// GetByID retrieves a report
	GetByID(ctx context.Context, reportID id.ID) (*Discrepancy, error)

	// Update persists report fields and resolution state
	Update(ctx context.Context, d *Discrepancy) error

	// List retrieves reports with filtering
	List(ctx context.Context, filter ListFilter) ([]Discrepancy, error)
}

// ListFilter filters report listings.
type ListFilter struct {
	Status     *Status
	Type       *Type
	InvoiceRef string
	ReportedBy string
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

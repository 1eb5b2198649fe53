package checkout

import (
	"context"
	"time"

	"fieldstock/internal/core/id"
)

// Repository defines storage operations for checkouts.
type Repository interface {
	// Create persists a new checkout with its items
	Create(ctx context.Context, c *Checkout) error

	// GetByID retrieves a checkout with items, invoice links and tally
	GetByID(ctx context.Context, checkoutID id.ID) (*Checkout, error)

	// Update persists status, tally and lifecycle timestamps
	Update(ctx context.Context, c *Checkout) error

	// LinkInvoices attaches invoice numbers to a checkout. A unique
	// constraint on the invoice number across non-cancelled checkouts backs
	// the caller's pre-check; violations surface as INTEGRITY_CONFLICT.
	LinkInvoices(ctx context.Context, checkoutID id.ID, numbers []string) error

	// FindActiveInvoiceLinks returns existing links for the given numbers on
	// checkouts in {checked_out, completed}
	FindActiveInvoiceLinks(ctx context.Context, numbers []string) ([]InvoiceLink, error)

	// ClaimStockProcessing flips the one-shot gate with a compare-and-set
	// (UPDATE ... WHERE stock_processed = false). Returns false when another
	// caller already claimed it.
	ClaimStockProcessing(ctx context.Context, checkoutID id.ID, at time.Time) (bool, error)

	// List retrieves checkouts with filtering
	List(ctx context.Context, filter ListFilter) ([]Checkout, error)
}

// InvoiceLink is an invoice number attached to a checkout.
type InvoiceLink struct {
	InvoiceNumber string `db:"invoice_number"`
	CheckoutID    id.ID  `db:"checkout_id"`
	Status        Status `db:"status"`
}

// ListFilter filters checkout listings.
type ListFilter struct {
	Status       *Status
	EmployeeName string
	FromDate     *time.Time
	ToDate       *time.Time
	Limit        int
	Offset       int
}

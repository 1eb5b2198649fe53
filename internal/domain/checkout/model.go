// Package checkout provides the field checkout lifecycle: items taken from
// stock for field work, later reconciled against actual sales.
package checkout

import (
	"strings"
	"time"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/core/types"
)

// Status represents the checkout lifecycle state.
type Status string

const (
	// StatusCheckedOut: items posted OUT, awaiting invoice links
	StatusCheckedOut Status = "checked_out"
	// StatusCompleted: linked to invoice numbers, eligible for tally
	StatusCompleted Status = "completed"
	// StatusCancelled is terminal; checkout-time OUT movements stay in place
	StatusCancelled Status = "cancelled"
)

// TakenItem is one line of items removed at checkout time.
type TakenItem struct {
	Name string         `json:"name"`
	SKU  string         `json:"sku,omitempty"`
	Qty  types.Quantity `json:"qty"`
}

// Key returns the reconciliation grouping key: SKU when present, else name.
func (t TakenItem) Key() string {
	if s := strings.TrimSpace(t.SKU); s != "" {
		return s
	}
	return strings.TrimSpace(t.Name)
}

// Checkout records items removed from inventory for field use.
type Checkout struct {
	ID id.ID `db:"id" json:"id"`

	EmployeeName string `db:"employee_name" json:"employeeName"`
	TruckID      string `db:"truck_id" json:"truckId,omitempty"`

	ItemsTaken []TakenItem `db:"-" json:"itemsTaken"`

	Status Status `db:"status" json:"status"`

	// InvoiceNumbers linked at completion; each number belongs to at most
	// one active checkout.
	InvoiceNumbers []string `db:"-" json:"invoiceNumbers"`

	// Tally is the latest sold-vs-taken comparison; re-running a tally
	// overwrites it.
	Tally *TallyResult `db:"-" json:"tallyResults,omitempty"`

	// StockProcessed is a one-shot gate: compensating movements are posted
	// exactly once per checkout.
	StockProcessed   bool       `db:"stock_processed" json:"stockProcessed"`
	StockProcessedAt *time.Time `db:"stock_processed_at" json:"stockProcessedAt,omitempty"`

	CancelReason string     `db:"cancel_reason" json:"cancelReason,omitempty"`
	CompletedAt  *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CancelledAt  *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates a checkout in the checked_out state.
func New(employeeName, truckID string, items []TakenItem) *Checkout {
	now := time.Now().UTC()
	return &Checkout{
		ID:           id.New(),
		EmployeeName: employeeName,
		TruckID:      truckID,
		ItemsTaken:   items,
		Status:       StatusCheckedOut,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks checkout invariants.
func (c *Checkout) Validate() error {
	if strings.TrimSpace(c.EmployeeName) == "" {
		return apperror.NewValidation("employee name is required").
			WithDetail("field", "employeeName")
	}
	if len(c.ItemsTaken) == 0 {
		return apperror.NewValidation("at least one item is required").
			WithDetail("field", "itemsTaken")
	}
	for i, item := range c.ItemsTaken {
		if item.Key() == "" {
			return apperror.NewValidation("item requires a name or sku").
				WithDetail("field", "itemsTaken").
				WithDetail("lineNo", i+1)
		}
		if !item.Qty.IsPositive() {
			return apperror.NewValidation("item quantity must be positive").
				WithDetail("field", "itemsTaken").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// MarkCompleted transitions checked_out -> completed with the given invoice links.
func (c *Checkout) MarkCompleted(invoiceNumbers []string) error {
	if c.Status != StatusCheckedOut {
		return apperror.NewStateConflict("checkout can only be completed from checked_out").
			WithDetail("checkout_id", c.ID.String()).
			WithDetail("status", string(c.Status))
	}
	now := time.Now().UTC()
	c.Status = StatusCompleted
	c.InvoiceNumbers = invoiceNumbers
	c.CompletedAt = &now
	c.UpdatedAt = now
	return nil
}

// MarkCancelled transitions checked_out -> cancelled. Terminal; earlier OUT
// movements are intentionally not reversed.
func (c *Checkout) MarkCancelled(reason string) error {
	if c.Status != StatusCheckedOut {
		return apperror.NewStateConflict("checkout can only be cancelled from checked_out").
			WithDetail("checkout_id", c.ID.String()).
			WithDetail("status", string(c.Status))
	}
	now := time.Now().UTC()
	c.Status = StatusCancelled
	c.CancelReason = reason
	c.CancelledAt = &now
	c.UpdatedAt = now
	return nil
}

// CanTally checks whether a tally may run.
func (c *Checkout) CanTally() error {
	if c.Status != StatusCompleted {
		return apperror.NewStateConflict("tally requires a completed checkout").
			WithDetail("checkout_id", c.ID.String()).
			WithDetail("status", string(c.Status))
	}
	return nil
}

// CanProcessStock checks whether compensating movements may be posted.
func (c *Checkout) CanProcessStock() error {
	if c.Status != StatusCompleted {
		return apperror.NewStateConflict("stock processing requires a completed checkout").
			WithDetail("checkout_id", c.ID.String()).
			WithDetail("status", string(c.Status))
	}
	if c.Tally == nil {
		return apperror.NewStateConflict("stock processing requires a prior tally").
			WithDetail("checkout_id", c.ID.String())
	}
	if c.StockProcessed {
		return apperror.NewStateConflict("stock already processed for this checkout").
			WithDetail("checkout_id", c.ID.String())
	}
	return nil
}

// TallyLineStatus classifies one reconciled key.
type TallyLineStatus string

const (
	// TallyMatched: taken equals sold
	TallyMatched TallyLineStatus = "matched"
	// TallyExcess: more taken than sold (returned stock)
	TallyExcess TallyLineStatus = "excess"
	// TallyShortage: sold more than taken (potential loss/theft signal)
	TallyShortage TallyLineStatus = "shortage"
)

// TallyItem is one grouped quantity on either side of the comparison.
type TallyItem struct {
	Key  string         `json:"key"`
	Name string         `json:"name,omitempty"`
	SKU  string         `json:"sku,omitempty"`
	Qty  types.Quantity `json:"qty"`
}

// TallyLine is one reconciled key: the union of taken and sold.
type TallyLine struct {
	Key            string          `json:"key"`
	Name           string          `json:"name,omitempty"`
	SKU            string          `json:"sku,omitempty"`
	QuantityTaken  types.Quantity  `json:"quantityTaken"`
	QuantitySold   types.Quantity  `json:"quantitySold"`
	Difference     types.Quantity  `json:"difference"`
	Status         TallyLineStatus `json:"status"`
}

// TallyResult is the computed taken-vs-sold comparison for a checkout.
type TallyResult struct {
	ItemsTaken    []TallyItem `json:"itemsTaken"`
	ItemsSold     []TallyItem `json:"itemsSold"`
	Discrepancies []TallyLine `json:"discrepancies"`
	ComputedAt    time.Time   `json:"computedAt"`
}

// Package invoice provides the store of normalized invoice records produced
// by external ingestion.
package invoice

import (
	"strings"
	"time"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/core/types"
)

// Invoice is a normalized external sales record. The payload fields are
// overwritten on every ingestion run; locally-set processing flags are not.
type Invoice struct {
	ID id.ID `db:"id" json:"id"`

	// Upsert natural key: (Source, ExternalID), falling back to Number.
	Source     string `db:"source" json:"source"`
	ExternalID string `db:"external_id" json:"externalId"`
	Number     string `db:"number" json:"number"`

	IssuedAt     time.Time `db:"issued_at" json:"issuedAt"`
	CustomerName string    `db:"customer_name" json:"customerName"`

	Lines []Line `db:"-" json:"lines"`

	Subtotal types.Money `db:"subtotal" json:"subtotal"`
	Tax      types.Money `db:"tax" json:"tax"`
	Total    types.Money `db:"total" json:"total"`

	Status string `db:"status" json:"status"`

	// StockProcessed is set locally once ledger movements for this invoice
	// have been reconciled. Ingestion upserts must never clear it.
	StockProcessed bool `db:"stock_processed" json:"stockProcessed"`

	FetchedAt time.Time `db:"fetched_at" json:"fetchedAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Line is one normalized invoice line item.
type Line struct {
	Name      string         `json:"name"`
	SKU       string         `json:"sku,omitempty"`
	Qty       types.Quantity `json:"qty"`
	UnitPrice types.Money    `json:"unitPrice"`
	LineTotal types.Money    `json:"lineTotal"`
}

// Key returns the grouping key for reconciliation: SKU when present,
// otherwise the item name.
func (l Line) Key() string {
	if s := strings.TrimSpace(l.SKU); s != "" {
		return s
	}
	return strings.TrimSpace(l.Name)
}

// Validate normalizes and checks the record at the ingestion boundary.
// External payloads are duck-typed; nothing past this point may assume a
// field it did not verify here.
func (inv *Invoice) Validate() error {
	inv.Number = strings.TrimSpace(inv.Number)
	inv.ExternalID = strings.TrimSpace(inv.ExternalID)
	inv.Source = strings.TrimSpace(inv.Source)

	if inv.Number == "" && inv.ExternalID == "" {
		return apperror.NewValidation("invoice requires a number or external id")
	}
	if inv.ExternalID != "" && inv.Source == "" {
		return apperror.NewValidation("invoice with external id requires a source").
			WithDetail("externalId", inv.ExternalID)
	}

	for i, line := range inv.Lines {
		if line.Key() == "" {
			return apperror.NewValidation("invoice line requires a name or sku").
				WithDetail("invoice", inv.Number).
				WithDetail("lineNo", i+1)
		}
		if !line.Qty.IsPositive() {
			return apperror.NewValidation("invoice line quantity must be positive").
				WithDetail("invoice", inv.Number).
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// UpsertOutcome reports what an upsert did.
type UpsertOutcome string

const (
	UpsertInserted UpsertOutcome = "inserted"
	UpsertUpdated  UpsertOutcome = "updated"
)

// Details is the resolver contract shape: what an external invoice-detail
// fetch returns for a single invoice number.
type Details struct {
	Number   string      `json:"number"`
	Customer string      `json:"customer"`
	Items    []Line      `json:"items"`
	Total    types.Money `json:"total"`
}

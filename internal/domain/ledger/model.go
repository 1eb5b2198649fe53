// Package ledger provides the append-only stock movement ledger and its
// derived per-SKU summary.
package ledger

import (
	"time"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/core/types"
)

// MovementType defines the direction of a ledger entry.
// Direction is encoded by type, never by the sign of the quantity.
type MovementType string

const (
	// MovementIn increases available stock
	MovementIn MovementType = "IN"
	// MovementOut decreases available stock
	MovementOut MovementType = "OUT"
	// MovementAdjust is a manual correction; its direction is carried by AdjustSign
	MovementAdjust MovementType = "ADJUST"
)

// Reference types identifying what produced a movement.
const (
	RefTypeCheckout       = "CHECKOUT"
	RefTypeReconciliation = "RECONCILIATION"
	RefTypeSale           = "SALE"
	RefTypeManual         = "MANUAL"
)

// Movement is one immutable ledger entry. Movements are never updated or
// deleted in normal operation; corrections are new ADJUST entries.
type Movement struct {
	ID id.ID `db:"id" json:"id"`

	SKU string `db:"sku" json:"sku"`

	Type MovementType `db:"movement_type" json:"type"`

	// Quantity is a magnitude, always > 0.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// AdjustSign is +1 or -1 for ADJUST movements, 0 otherwise.
	AdjustSign int16 `db:"adjust_sign" json:"adjustSign,omitempty"`

	// RefType and RefID identify the originating record (checkout, invoice, ...)
	RefType string `db:"ref_type" json:"refType"`
	RefID   string `db:"ref_id" json:"refId"`

	// SourceRef is a free-form external reference (invoice number, truck, ...)
	SourceRef string `db:"source_ref" json:"sourceRef,omitempty"`

	// OccurredAt is the business timestamp of the movement
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`

	Notes string `db:"notes" json:"notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// SignedQuantity returns the quantity with direction applied.
func (m *Movement) SignedQuantity() types.Quantity {
	switch m.Type {
	case MovementOut:
		return m.Quantity.Neg()
	case MovementAdjust:
		if m.AdjustSign < 0 {
			return m.Quantity.Neg()
		}
		return m.Quantity
	default:
		return m.Quantity
	}
}

// SummaryDelta returns the per-field summary change this movement implies.
func (m *Movement) SummaryDelta() SummaryDelta {
	switch m.Type {
	case MovementIn:
		return SummaryDelta{Available: m.Quantity, TotalIn: m.Quantity}
	case MovementOut:
		return SummaryDelta{Available: m.Quantity.Neg(), TotalOut: m.Quantity}
	default:
		return SummaryDelta{Available: m.SignedQuantity()}
	}
}

// DefaultLowStockThreshold is reporting metadata only; no gating behavior.
var DefaultLowStockThreshold = types.NewQuantityFromInt(10)

// Summary is the materialized per-SKU aggregate derived from the ledger.
// Invariant: AvailableQty always equals a replay of the ledger for that SKU.
type Summary struct {
	SKU string `db:"sku" json:"sku"`

	AvailableQty types.Quantity `db:"available_qty" json:"availableQty"`
	ReservedQty  types.Quantity `db:"reserved_qty" json:"reservedQty"`
	TotalInQty   types.Quantity `db:"total_in_qty" json:"totalInQty"`
	TotalOutQty  types.Quantity `db:"total_out_qty" json:"totalOutQty"`

	LowStockThreshold types.Quantity `db:"low_stock_threshold" json:"lowStockThreshold"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewSummary returns a zeroed summary for a SKU not yet touched by the ledger.
func NewSummary(sku string) Summary {
	return Summary{
		SKU:               sku,
		LowStockThreshold: DefaultLowStockThreshold,
	}
}

// IsLowStock reports whether available stock is at or below the threshold.
func (s Summary) IsLowStock() bool {
	return s.AvailableQty <= s.LowStockThreshold
}

// SummaryDelta is an atomic increment applied to a summary row.
type SummaryDelta struct {
	Available types.Quantity
	TotalIn   types.Quantity
	TotalOut  types.Quantity
}

// PostInput describes a ledger post request.
type PostInput struct {
	SKU        string
	Type       MovementType
	Quantity   types.Quantity
	AdjustSign int16
	RefType    string
	RefID      string
	SourceRef  string
	OccurredAt time.Time
	Notes      string

	// AllowNegative permits the post to drive available stock below zero.
	// Reconciliation compensations set it: the physical outcome is already
	// decided and the ledger must record it.
	AllowNegative bool
}

// Validate checks post invariants.
func (in *PostInput) Validate() error {
	if in.SKU == "" {
		return apperror.NewValidation("sku is required").WithDetail("field", "sku")
	}
	if !in.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("sku", in.SKU)
	}
	switch in.Type {
	case MovementIn, MovementOut:
		// direction fully encoded by type
	case MovementAdjust:
		if in.AdjustSign != 1 && in.AdjustSign != -1 {
			return apperror.NewValidation("adjust movements require a +1 or -1 sign").
				WithDetail("field", "adjustSign")
		}
	default:
		return apperror.NewValidation("unknown movement type").
			WithDetail("field", "type").
			WithDetail("value", string(in.Type))
	}
	if in.RefType == "" {
		return apperror.NewValidation("ref type is required").WithDetail("field", "refType")
	}
	return nil
}

// Movement materializes the input into an immutable ledger entry.
func (in *PostInput) Movement() Movement {
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	sign := in.AdjustSign
	if in.Type != MovementAdjust {
		sign = 0
	}
	return Movement{
		ID:         id.New(),
		SKU:        in.SKU,
		Type:       in.Type,
		Quantity:   in.Quantity,
		AdjustSign: sign,
		RefType:    in.RefType,
		RefID:      in.RefID,
		SourceRef:  in.SourceRef,
		OccurredAt: occurredAt,
		Notes:      in.Notes,
		CreatedAt:  time.Now().UTC(),
	}
}

// Package discrepancy tracks human-reported physical-vs-system count
// variances through an approval workflow.
package discrepancy

import (
	"strings"
	"time"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/core/types"
)

// Type classifies a reported variance.
type Type string

const (
	// TypeOverage and TypeShortage are derivable from the sign of the difference
	TypeOverage  Type = "Overage"
	TypeShortage Type = "Shortage"
	// TypeDamage and TypeMissing carry information the sign cannot; they must
	// be supplied explicitly by the reporter
	TypeDamage  Type = "Damage"
	TypeMissing Type = "Missing"
)

// Status is the workflow state of a report.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
	StatusResolved Status = "Resolved"
)

// Discrepancy is one reported count variance.
type Discrepancy struct {
	ID id.ID `db:"id" json:"id"`

	InvoiceRef string `db:"invoice_ref" json:"invoiceRef,omitempty"`
	ItemName   string `db:"item_name" json:"itemName"`
	SKU        string `db:"sku" json:"sku,omitempty"`

	SystemQuantity types.Quantity `db:"system_quantity" json:"systemQuantity"`
	ActualQuantity types.Quantity `db:"actual_quantity" json:"actualQuantity"`

	// Difference is always server-computed as actual - system; a
	// caller-supplied value is never trusted.
	Difference types.Quantity `db:"difference" json:"difference"`

	Type   Type   `db:"discrepancy_type" json:"discrepancyType"`
	Status Status `db:"status" json:"status"`

	ReportedBy string `db:"reported_by" json:"reportedBy"`
	Reason     string `db:"reason" json:"reason,omitempty"`
	Notes      string `db:"notes" json:"notes,omitempty"`

	ResolvedBy      string     `db:"resolved_by" json:"resolvedBy,omitempty"`
	ResolvedAt      *time.Time `db:"resolved_at" json:"resolvedAt,omitempty"`
	ResolutionNotes string     `db:"resolution_notes" json:"resolutionNotes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Recalculate recomputes the difference and, when no explicit type was
// given, derives it from the sign.
func (d *Discrepancy) Recalculate() error {
	d.Difference = d.ActualQuantity - d.SystemQuantity

	switch d.Type {
	case TypeDamage, TypeMissing:
		// explicit types are kept as reported
		return nil
	case TypeOverage, TypeShortage, "":
		switch {
		case d.Difference.IsPositive():
			d.Type = TypeOverage
		case d.Difference.IsNegative():
			d.Type = TypeShortage
		default:
			return apperror.NewValidation("zero difference requires an explicit discrepancy type").
				WithDetail("field", "discrepancyType")
		}
		return nil
	default:
		return apperror.NewValidation("unknown discrepancy type").
			WithDetail("field", "discrepancyType").
			WithDetail("value", string(d.Type))
	}
}

// Validate checks report invariants.
func (d *Discrepancy) Validate() error {
	if strings.TrimSpace(d.ItemName) == "" && strings.TrimSpace(d.SKU) == "" {
		return apperror.NewValidation("item name or sku is required")
	}
	if strings.TrimSpace(d.ReportedBy) == "" {
		return apperror.NewValidation("reporter is required").
			WithDetail("field", "reportedBy")
	}
	if d.SystemQuantity.IsNegative() || d.ActualQuantity.IsNegative() {
		return apperror.NewValidation("quantities must not be negative")
	}
	return nil
}

// CanMutate gates every mutation on Pending status.
func (d *Discrepancy) CanMutate() error {
	if d.Status != StatusPending {
		return apperror.NewStateConflict("discrepancy is no longer pending").
			WithDetail("discrepancy_id", d.ID.String()).
			WithDetail("status", string(d.Status))
	}
	return nil
}

// resolve applies a terminal transition.
func (d *Discrepancy) resolve(to Status, userID, notes string) error {
	if err := d.CanMutate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	d.Status = to
	d.ResolvedBy = userID
	d.ResolvedAt = &now
	d.ResolutionNotes = notes
	d.UpdatedAt = now
	return nil
}

// Approve transitions Pending -> Approved. One-way.
func (d *Discrepancy) Approve(userID, notes string) error {
	return d.resolve(StatusApproved, userID, notes)
}

// Reject transitions Pending -> Rejected. One-way.
func (d *Discrepancy) Reject(userID, notes string) error {
	return d.resolve(StatusRejected, userID, notes)
}

package dto

import (
	"fieldstock/internal/core/types"
	"fieldstock/internal/domain/discrepancy"
)

// CreateDiscrepancyRequest records a new report. The difference is computed
// server-side; a client-provided value is ignored.
type CreateDiscrepancyRequest struct {
	InvoiceRef     string         `json:"invoiceRef,omitempty"`
	ItemName       string         `json:"itemName" binding:"required"`
	SKU            string         `json:"sku,omitempty"`
	SystemQuantity types.Quantity `json:"systemQuantity"`
	ActualQuantity types.Quantity `json:"actualQuantity"`
	Type           string         `json:"discrepancyType,omitempty"`
	ReportedBy     string         `json:"reportedBy" binding:"required"`
	Reason         string         `json:"reason,omitempty"`
	Notes          string         `json:"notes,omitempty"`
}

// ToCreateInput converts the request into a service input.
func (r *CreateDiscrepancyRequest) ToCreateInput() discrepancy.CreateInput {
	return discrepancy.CreateInput{
		InvoiceRef:     r.InvoiceRef,
		ItemName:       r.ItemName,
		SKU:            r.SKU,
		SystemQuantity: r.SystemQuantity,
		ActualQuantity: r.ActualQuantity,
		Type:           discrepancy.Type(r.Type),
		ReportedBy:     r.ReportedBy,
		Reason:         r.Reason,
		Notes:          r.Notes,
	}
}

// UpdateDiscrepancyRequest modifies a pending report.
type UpdateDiscrepancyRequest struct {
	SystemQuantity *types.Quantity `json:"systemQuantity,omitempty"`
	ActualQuantity *types.Quantity `json:"actualQuantity,omitempty"`
	Type           *string         `json:"discrepancyType,omitempty"`
	Reason         *string         `json:"reason,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
}

// ToUpdateInput converts the request into a service input.
func (r *UpdateDiscrepancyRequest) ToUpdateInput() discrepancy.UpdateInput {
	in := discrepancy.UpdateInput{
		SystemQuantity: r.SystemQuantity,
		ActualQuantity: r.ActualQuantity,
		Reason:         r.Reason,
		Notes:          r.Notes,
	}
	if r.Type != nil {
		t := discrepancy.Type(*r.Type)
		in.Type = &t
	}
	return in
}

// ResolveDiscrepancyRequest approves or rejects a report.
type ResolveDiscrepancyRequest struct {
	ResolvedBy string `json:"resolvedBy" binding:"required"`
	Notes      string `json:"notes,omitempty"`
}

// BulkApproveRequest approves every pending report matching the filter.
type BulkApproveRequest struct {
	ResolvedBy string `json:"resolvedBy" binding:"required"`
	Notes      string `json:"notes,omitempty"`
	InvoiceRef string `json:"invoiceRef,omitempty"`
	Type       string `json:"discrepancyType,omitempty"`
}

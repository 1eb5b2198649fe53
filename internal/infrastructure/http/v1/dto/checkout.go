package dto

import (
	"fieldstock/internal/core/types"
	"fieldstock/internal/domain/checkout"
)

// CheckoutItemRequest is one line of items taken.
type CheckoutItemRequest struct {
	Name     string         `json:"name" binding:"required"`
	SKU      string         `json:"sku,omitempty"`
	Quantity types.Quantity `json:"quantity" binding:"required"`
}

// CreateCheckoutRequest opens a checkout.
type CreateCheckoutRequest struct {
	EmployeeName string                `json:"employeeName" binding:"required"`
	TruckID      string                `json:"truckId,omitempty"`
	Items        []CheckoutItemRequest `json:"items" binding:"required,min=1"`
}

// ToCreateInput converts the request into a service input.
func (r *CreateCheckoutRequest) ToCreateInput() checkout.CreateInput {
	items := make([]checkout.TakenItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, checkout.TakenItem{
			Name: it.Name,
			SKU:  it.SKU,
			Qty:  it.Quantity,
		})
	}
	return checkout.CreateInput{
		EmployeeName: r.EmployeeName,
		TruckID:      r.TruckID,
		Items:        items,
	}
}

// CompleteCheckoutRequest links invoice numbers to a checkout.
type CompleteCheckoutRequest struct {
	InvoiceNumbers []string `json:"invoiceNumbers" binding:"required,min=1"`
}

// CancelCheckoutRequest voids a checkout.
type CancelCheckoutRequest struct {
	Reason string `json:"reason" binding:"required"`
}

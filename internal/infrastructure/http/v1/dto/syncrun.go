package dto

import (
	"time"

	"fieldstock/internal/core/id"
	"fieldstock/internal/core/types"
	"fieldstock/internal/domain/invoice"
)

// StartRunRequest opens an ingestion session.
type StartRunRequest struct {
	Source string `json:"source" binding:"required"`
	Kind   string `json:"kind" binding:"required"`
	Params string `json:"params,omitempty"`
}

// InvoiceLineRequest is one invoice line in an ingestion payload.
type InvoiceLineRequest struct {
	Name      string         `json:"name" binding:"required"`
	SKU       string         `json:"sku,omitempty"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	UnitPrice types.Money    `json:"unitPrice"`
	LineTotal types.Money    `json:"lineTotal"`
}

// InvoiceRecordRequest is one normalized invoice in an ingestion payload.
type InvoiceRecordRequest struct {
	ExternalID   string               `json:"externalId" binding:"required"`
	Number       string               `json:"number" binding:"required"`
	IssuedAt     time.Time            `json:"issuedAt"`
	CustomerName string               `json:"customerName,omitempty"`
	Lines        []InvoiceLineRequest `json:"lines"`
	Subtotal     types.Money          `json:"subtotal"`
	Tax          types.Money          `json:"tax"`
	Total        types.Money          `json:"total"`
	Status       string               `json:"status,omitempty"`
}

// IngestRequest submits a batch of fetched records to an open run.
type IngestRequest struct {
	Records []InvoiceRecordRequest `json:"records" binding:"required"`
}

// ToInvoices converts the payload into domain invoices for the given source.
func (r *IngestRequest) ToInvoices(source string) []invoice.Invoice {
	now := time.Now().UTC()
	records := make([]invoice.Invoice, 0, len(r.Records))
	for _, rec := range r.Records {
		lines := make([]invoice.Line, 0, len(rec.Lines))
		for _, l := range rec.Lines {
			lines = append(lines, invoice.Line{
				Name:      l.Name,
				SKU:       l.SKU,
				Qty:       l.Quantity,
				UnitPrice: l.UnitPrice,
				LineTotal: l.LineTotal,
			})
		}
		records = append(records, invoice.Invoice{
			ID:           id.New(),
			Source:       source,
			ExternalID:   rec.ExternalID,
			Number:       rec.Number,
			IssuedAt:     rec.IssuedAt,
			CustomerName: rec.CustomerName,
			Lines:        lines,
			Subtotal:     rec.Subtotal,
			Tax:          rec.Tax,
			Total:        rec.Total,
			Status:       rec.Status,
			FetchedAt:    now,
		})
	}
	return records
}

// CompleteRunRequest closes an ingestion session.
type CompleteRunRequest struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

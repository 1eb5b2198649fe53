package discrepancy

import (
	"context"
	"fmt"
	"time"

	"fieldstock/internal/core/id"
	"fieldstock/internal/core/types"
	"fieldstock/pkg/logger"
)

// Service provides business operations for discrepancy reports.
type Service struct {
	repo Repository
}

// NewService creates a new discrepancy service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput describes a new discrepancy report.
type CreateInput struct {
	InvoiceRef     string
	ItemName       string
	SKU            string
	SystemQuantity types.Quantity
	ActualQuantity types.Quantity
	// Type may be empty; Overage/Shortage are derived from the sign of the
	// difference. Damage/Missing must be supplied.
	Type       Type
	ReportedBy string
	Reason     string
	Notes      string
}

// Create records a new report. The difference is always computed here,
// never taken from the caller.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Discrepancy, error) {
	now := time.Now().UTC()
	d := &Discrepancy{
		ID:             id.New(),
		InvoiceRef:     in.InvoiceRef,
		ItemName:       in.ItemName,
		SKU:            in.SKU,
		SystemQuantity: in.SystemQuantity,
		ActualQuantity: in.ActualQuantity,
		Type:           in.Type,
		Status:         StatusPending,
		ReportedBy:     in.ReportedBy,
		Reason:         in.Reason,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := d.Recalculate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create discrepancy: %w", err)
	}

	logger.Info(ctx, "discrepancy reported",
		"discrepancy_id", d.ID,
		"item", d.ItemName,
		"type", string(d.Type),
		"difference", d.Difference.Float64(),
	)
	return d, nil
}

// UpdateInput carries mutable report fields. Mutations are gated on Pending.
type UpdateInput struct {
	SystemQuantity *types.Quantity
	ActualQuantity *types.Quantity
	Type           *Type
	Reason         *string
	Notes          *string
}

// Update modifies a pending report, recomputing difference and derived type.
func (s *Service) Update(ctx context.Context, reportID id.ID, in UpdateInput) (*Discrepancy, error) {
	d, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := d.CanMutate(); err != nil {
		return nil, err
	}

	if in.SystemQuantity != nil {
		d.SystemQuantity = *in.SystemQuantity
	}
	if in.ActualQuantity != nil {
		d.ActualQuantity = *in.ActualQuantity
	}
	if in.Type != nil {
		d.Type = *in.Type
	}
	if in.Reason != nil {
		d.Reason = *in.Reason
	}
	if in.Notes != nil {
		d.Notes = *in.Notes
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := d.Recalculate(); err != nil {
		return nil, err
	}
	d.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("update discrepancy: %w", err)
	}
	return d, nil
}

// Approve resolves a pending report as approved.
func (s *Service) Approve(ctx context.Context, reportID id.ID, userID, notes string) (*Discrepancy, error) {
	return s.transition(ctx, reportID, userID, notes, (*Discrepancy).Approve)
}

// Reject resolves a pending report as rejected.
func (s *Service) Reject(ctx context.Context, reportID id.ID, userID, notes string) (*Discrepancy, error) {
	return s.transition(ctx, reportID, userID, notes, (*Discrepancy).Reject)
}

func (s *Service) transition(
	ctx context.Context,
	reportID id.ID,
	userID, notes string,
	apply func(*Discrepancy, string, string) error,
) (*Discrepancy, error) {
	d, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := apply(d, userID, notes); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("update discrepancy: %w", err)
	}

	logger.Info(ctx, "discrepancy resolved",
		"discrepancy_id", d.ID,
		"status", string(d.Status),
		"resolved_by", userID,
	)
	return d, nil
}

// BulkFailure records one failed item of a bulk operation.
type BulkFailure struct {
	ID    id.ID  `json:"id"`
	Error string `json:"error"`
}

// BulkResult summarizes a best-effort bulk operation.
type BulkResult struct {
	Approved int           `json:"approved"`
	Failures []BulkFailure `json:"failures,omitempty"`
}

// BulkApprove approves every pending report matching the filter, item by
// item. Best-effort: a failure on one item never rolls back the others.
func (s *Service) BulkApprove(ctx context.Context, filter ListFilter, userID, notes string) (*BulkResult, error) {
	pending := StatusPending
	filter.Status = &pending

	reports, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list discrepancies: %w", err)
	}

	result := &BulkResult{}
	for i := range reports {
		if _, err := s.Approve(ctx, reports[i].ID, userID, notes); err != nil {
			result.Failures = append(result.Failures, BulkFailure{
				ID:    reports[i].ID,
				Error: err.Error(),
			})
			continue
		}
		result.Approved++
	}

	logger.Info(ctx, "bulk approve finished",
		"approved", result.Approved,
		"failed", len(result.Failures),
	)
	return result, nil
}

// GetByID retrieves a report.
func (s *Service) GetByID(ctx context.Context, reportID id.ID) (*Discrepancy, error) {
	return s.repo.GetByID(ctx, reportID)
}

// List retrieves reports with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Discrepancy, error) {
	return s.repo.List(ctx, filter)
}

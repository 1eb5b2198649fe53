// Package discrepancy_repo provides the PostgreSQL implementation of the
// discrepancy report repository.
package discrepancy_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/domain/discrepancy"
	"fieldstock/internal/infrastructure/storage/postgres"
)

const discrepanciesTable = "discrepancies"

// DiscrepancyRepo implements discrepancy.Repository.
type DiscrepancyRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewDiscrepancyRepo creates a new discrepancy repository.
func NewDiscrepancyRepo(txManager *postgres.TxManager) *DiscrepancyRepo {
	return &DiscrepancyRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var discrepancyColumns = []string{
	"id", "invoice_ref", "item_name", "sku",
	"system_quantity", "actual_quantity", "difference",
	"discrepancy_type", "status",
	"reported_by", "reason", "notes",
	"resolved_by", "resolved_at", "resolution_notes",
	"created_at", "updated_at",
}

// Create persists a new report.
func (r *DiscrepancyRepo) Create(ctx context.Context, d *discrepancy.Discrepancy) error {
	q := r.builder.Insert(discrepanciesTable).
		Columns(discrepancyColumns...).
		Values(
			d.ID, d.InvoiceRef, d.ItemName, d.SKU,
			d.SystemQuantity, d.ActualQuantity, d.Difference,
			d.Type, d.Status,
			d.ReportedBy, d.Reason, d.Notes,
			d.ResolvedBy, d.ResolvedAt, d.ResolutionNotes,
			d.CreatedAt, d.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert discrepancy: %w", err)
	}

	return nil
}

// GetByID retrieves a report.
func (r *DiscrepancyRepo) GetByID(ctx context.Context, reportID id.ID) (*discrepancy.Discrepancy, error) {
	q := r.builder.Select(discrepancyColumns...).
		From(discrepanciesTable).
		Where(squirrel.Eq{"id": reportID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var d discrepancy.Discrepancy
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &d, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("discrepancy", reportID.String())
		}
		return nil, fmt.Errorf("get discrepancy: %w", err)
	}

	return &d, nil
}

// Update persists report fields and resolution state.
func (r *DiscrepancyRepo) Update(ctx context.Context, d *discrepancy.Discrepancy) error {
	q := r.builder.Update(discrepanciesTable).
		Set("invoice_ref", d.InvoiceRef).
		Set("item_name", d.ItemName).
		Set("sku", d.SKU).
		Set("system_quantity", d.SystemQuantity).
		Set("actual_quantity", d.ActualQuantity).
		Set("difference", d.Difference).
		Set("discrepancy_type", d.Type).
		Set("status", d.Status).
		Set("reason", d.Reason).
		Set("notes", d.Notes).
		Set("resolved_by", d.ResolvedBy).
		Set("resolved_at", d.ResolvedAt).
		Set("resolution_notes", d.ResolutionNotes).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": d.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update discrepancy: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("discrepancy", d.ID.String())
	}

	return nil
}

// List retrieves reports with filtering.
func (r *DiscrepancyRepo) List(ctx context.Context, filter discrepancy.ListFilter) ([]discrepancy.Discrepancy, error) {
	q := r.builder.Select(discrepancyColumns...).From(discrepanciesTable)

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"discrepancy_type": *filter.Type})
	}
	if filter.InvoiceRef != "" {
		q = q.Where(squirrel.Eq{"invoice_ref": filter.InvoiceRef})
	}
	if filter.ReportedBy != "" {
		q = q.Where(squirrel.Eq{"reported_by": filter.ReportedBy})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var reports []discrepancy.Discrepancy
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &reports, sql, args...); err != nil {
		return nil, fmt.Errorf("select discrepancies: %w", err)
	}

	return reports, nil
}

// Ensure interface compliance.
var _ discrepancy.Repository = (*DiscrepancyRepo)(nil)

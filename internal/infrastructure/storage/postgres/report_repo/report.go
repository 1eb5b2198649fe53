// Package report_repo provides PostgreSQL-backed aggregate queries.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fieldstock/internal/domain/reports"
	"fieldstock/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// DiscrepancyStats aggregates reports by (status, type) over a range.
func (r *ReportRepo) DiscrepancyStats(ctx context.Context, rng reports.DateRange) ([]reports.DiscrepancyStatsRow, error) {
	q := r.builder.Select(
		"status",
		"discrepancy_type",
		"COUNT(*) AS row_count",
		"COALESCE(SUM(difference), 0) AS total_difference",
	).From("discrepancies")

	if !rng.From.IsZero() {
		q = q.Where(squirrel.GtOrEq{"created_at": rng.From})
	}
	if !rng.To.IsZero() {
		q = q.Where(squirrel.Lt{"created_at": rng.To})
	}

	q = q.GroupBy("status", "discrepancy_type").
		OrderBy("status", "discrepancy_type")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reports.DiscrepancyStatsRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select discrepancy stats: %w", err)
	}

	return rows, nil
}

// CheckoutStats aggregates checkouts by (employee, status) over a range.
func (r *ReportRepo) CheckoutStats(ctx context.Context, rng reports.DateRange) ([]reports.CheckoutStatsRow, error) {
	q := r.builder.Select(
		"employee_name",
		"status",
		"COUNT(*) AS row_count",
	).From("checkouts")

	if !rng.From.IsZero() {
		q = q.Where(squirrel.GtOrEq{"created_at": rng.From})
	}
	if !rng.To.IsZero() {
		q = q.Where(squirrel.Lt{"created_at": rng.To})
	}

	q = q.GroupBy("employee_name", "status").
		OrderBy("employee_name", "status")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reports.CheckoutStatsRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select checkout stats: %w", err)
	}

	return rows, nil
}

// MovementTurnover sums ledger quantities per movement type for one SKU.
func (r *ReportRepo) MovementTurnover(ctx context.Context, sku string, rng reports.DateRange) ([]reports.MovementTurnoverRow, error) {
	q := r.builder.Select(
		"movement_type",
		"COALESCE(SUM(quantity), 0) AS total_quantity",
		"COUNT(*) AS row_count",
	).From("ledger_movements").
		Where(squirrel.Eq{"sku": sku})

	if !rng.From.IsZero() {
		q = q.Where(squirrel.GtOrEq{"occurred_at": rng.From})
	}
	if !rng.To.IsZero() {
		q = q.Where(squirrel.Lt{"occurred_at": rng.To})
	}

	q = q.GroupBy("movement_type").
		OrderBy("movement_type")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reports.MovementTurnoverRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select movement turnover: %w", err)
	}

	return rows, nil
}

// Ensure interface compliance.
var _ reports.Repository = (*ReportRepo)(nil)

// Package ledger_repo provides the PostgreSQL implementation of the
// stock ledger repository.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/types"
	"fieldstock/internal/domain/ledger"
	"fieldstock/internal/infrastructure/storage/postgres"
)

const (
	movementsTable = "ledger_movements"
	summariesTable = "ledger_summaries"
)

// copyThreshold switches batch inserts to the COPY protocol.
const copyThreshold = 50

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var movementColumns = []string{
	"id", "sku", "movement_type", "quantity", "adjust_sign",
	"ref_type", "ref_id", "source_ref", "occurred_at", "notes", "created_at",
}

func movementValues(m ledger.Movement) []any {
	return []any{
		m.ID, m.SKU, m.Type, m.Quantity, m.AdjustSign,
		m.RefType, m.RefID, m.SourceRef, m.OccurredAt, m.Notes, m.CreatedAt,
	}
}

// InsertMovement appends one ledger entry.
func (r *LedgerRepo) InsertMovement(ctx context.Context, m ledger.Movement) error {
	q := r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(movementValues(m)...)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	return nil
}

// InsertMovements batch appends entries.
func (r *LedgerRepo) InsertMovements(ctx context.Context, movements []ledger.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	// Fast path: COPY for large batches inside a transaction.
	if len(movements) >= copyThreshold && r.txManager.GetTx(ctx) != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, movementValues(m))
		}
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(movementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(movementValues(m)...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}

	return nil
}

// MovementsBySKU returns entries newest-first.
func (r *LedgerRepo) MovementsBySKU(ctx context.Context, sku string, filter ledger.MovementFilter) ([]ledger.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"sku": sku})

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.Type})
	}
	if filter.RefType != nil {
		q = q.Where(squirrel.Eq{"ref_type": *filter.RefType})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"occurred_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"occurred_at": *filter.ToDate})
	}

	q = q.OrderBy("occurred_at DESC", "created_at DESC")

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

	var movements []ledger.Movement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

// Replay recomputes totals from the full ledger for a SKU.
func (r *LedgerRepo) Replay(ctx context.Context, sku string) (ledger.Replay, error) {
	sql := `
		SELECT
			COALESCE(SUM(CASE WHEN movement_type = 'IN' THEN quantity ELSE 0 END), 0) AS total_in,
			COALESCE(SUM(CASE WHEN movement_type = 'OUT' THEN quantity ELSE 0 END), 0) AS total_out,
			COALESCE(SUM(CASE WHEN movement_type = 'ADJUST' THEN quantity * adjust_sign ELSE 0 END), 0) AS adjust_net,
			COUNT(*) AS movement_count
		FROM ledger_movements
		WHERE sku = $1
	`

	var replay ledger.Replay
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &replay, sql, sku); err != nil {
		return replay, fmt.Errorf("replay ledger: %w", err)
	}

	return replay, nil
}

var summaryColumns = []string{
	"sku", "available_qty", "reserved_qty", "total_in_qty", "total_out_qty",
	"low_stock_threshold", "updated_at",
}

// GetSummary returns the stored summary for a SKU.
func (r *LedgerRepo) GetSummary(ctx context.Context, sku string) (ledger.Summary, error) {
	var summary ledger.Summary

	q := r.builder.Select(summaryColumns...).
		From(summariesTable).
		Where(squirrel.Eq{"sku": sku}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return summary, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &summary, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return summary, apperror.NewNotFound("summary", sku)
		}
		return summary, fmt.Errorf("get summary: %w", err)
	}

	return summary, nil
}

// ApplyDelta atomically increments summary fields in a single statement.
// The row is created on first touch. When allowNegative is false the
// statement refuses to drive available_qty below zero.
func (r *LedgerRepo) ApplyDelta(ctx context.Context, sku string, delta ledger.SummaryDelta, allowNegative bool) (ledger.Summary, error) {
	var summary ledger.Summary
	querier := r.txManager.GetQuerier(ctx)

	if !allowNegative && delta.Available.IsNegative() {
		// Guarded decrement: a plain UPDATE with the non-negativity check in
		// the WHERE clause. No matching row means either a missing summary
		// or insufficient stock; both read as insufficient.
		sql := `
			UPDATE ledger_summaries SET
				available_qty = available_qty + $2,
				total_in_qty = total_in_qty + $3,
				total_out_qty = total_out_qty + $4,
				updated_at = now()
			WHERE sku = $1 AND available_qty + $2 >= 0
			RETURNING sku, available_qty, reserved_qty, total_in_qty, total_out_qty, low_stock_threshold, updated_at
		`
		err := pgxscan.Get(ctx, querier, &summary, sql, sku,
			delta.Available, delta.TotalIn, delta.TotalOut)
		if err != nil {
			if pgxscan.NotFound(err) {
				available, availErr := r.currentAvailable(ctx, sku)
				if availErr != nil {
					return summary, availErr
				}
				return summary, apperror.NewInsufficientStock(sku,
					delta.Available.Neg().Float64(), available.Float64())
			}
			return summary, fmt.Errorf("apply delta: %w", err)
		}
		return summary, nil
	}

	sql := `
		INSERT INTO ledger_summaries (
			sku, available_qty, reserved_qty, total_in_qty, total_out_qty,
			low_stock_threshold, updated_at
		)
		VALUES ($1, $2, 0, $3, $4, $5, now())
		ON CONFLICT (sku) DO UPDATE SET
			available_qty = ledger_summaries.available_qty + EXCLUDED.available_qty,
			total_in_qty = ledger_summaries.total_in_qty + EXCLUDED.total_in_qty,
			total_out_qty = ledger_summaries.total_out_qty + EXCLUDED.total_out_qty,
			updated_at = now()
		RETURNING sku, available_qty, reserved_qty, total_in_qty, total_out_qty, low_stock_threshold, updated_at
	`
	err := pgxscan.Get(ctx, querier, &summary, sql, sku,
		delta.Available, delta.TotalIn, delta.TotalOut, ledger.DefaultLowStockThreshold)
	if err != nil {
		return summary, fmt.Errorf("apply delta: %w", err)
	}

	return summary, nil
}

// currentAvailable reads available_qty for error reporting, zero when absent.
func (r *LedgerRepo) currentAvailable(ctx context.Context, sku string) (types.Quantity, error) {
	sql := `SELECT COALESCE((SELECT available_qty FROM ledger_summaries WHERE sku = $1), 0)`

	var scaled int64
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, sku).Scan(&scaled); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("get available: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(scaled), nil
}

// SaveSummary overwrites the stored summary.
func (r *LedgerRepo) SaveSummary(ctx context.Context, s ledger.Summary) error {
	sql := `
		INSERT INTO ledger_summaries (
			sku, available_qty, reserved_qty, total_in_qty, total_out_qty,
			low_stock_threshold, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (sku) DO UPDATE SET
			available_qty = EXCLUDED.available_qty,
			reserved_qty = EXCLUDED.reserved_qty,
			total_in_qty = EXCLUDED.total_in_qty,
			total_out_qty = EXCLUDED.total_out_qty,
			low_stock_threshold = EXCLUDED.low_stock_threshold,
			updated_at = now()
	`

	querier := r.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		s.SKU, s.AvailableQty, s.ReservedQty, s.TotalInQty, s.TotalOutQty, s.LowStockThreshold)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}

	return nil
}

// ListSummaries returns stored summaries with filtering.
func (r *LedgerRepo) ListSummaries(ctx context.Context, filter ledger.SummaryFilter) ([]ledger.Summary, error) {
	q := r.builder.Select(summaryColumns...).From(summariesTable)

	if len(filter.SKUs) > 0 {
		q = q.Where(squirrel.Eq{"sku": filter.SKUs})
	}
	if filter.LowStockOnly {
		q = q.Where("available_qty <= low_stock_threshold")
	}

	q = q.OrderBy("sku")

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

	var summaries []ledger.Summary
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &summaries, sql, args...); err != nil {
		return nil, fmt.Errorf("select summaries: %w", err)
	}

	return summaries, nil
}

// Ensure interface compliance.
var _ ledger.Repository = (*LedgerRepo)(nil)

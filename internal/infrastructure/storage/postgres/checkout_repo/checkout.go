// Package checkout_repo provides the PostgreSQL implementation of the
// checkout repository.
package checkout_repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/domain/checkout"
	"fieldstock/internal/infrastructure/storage/postgres"
)

const (
	checkoutsTable = "checkouts"
	linksTable     = "checkout_invoices"
)

// CheckoutRepo implements checkout.Repository.
type CheckoutRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewCheckoutRepo creates a new checkout repository.
func NewCheckoutRepo(txManager *postgres.TxManager) *CheckoutRepo {
	return &CheckoutRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// checkoutRow is the flat storage shape; items and tally live in JSONB.
type checkoutRow struct {
	ID               id.ID           `db:"id"`
	EmployeeName     string          `db:"employee_name"`
	TruckID          string          `db:"truck_id"`
	ItemsTaken       []byte          `db:"items_taken"`
	Status           checkout.Status `db:"status"`
	Tally            []byte          `db:"tally"`
	StockProcessed   bool            `db:"stock_processed"`
	StockProcessedAt *time.Time      `db:"stock_processed_at"`
	CancelReason     string          `db:"cancel_reason"`
	CompletedAt      *time.Time      `db:"completed_at"`
	CancelledAt      *time.Time      `db:"cancelled_at"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

var checkoutColumns = []string{
	"id", "employee_name", "truck_id", "items_taken", "status", "tally",
	"stock_processed", "stock_processed_at", "cancel_reason",
	"completed_at", "cancelled_at", "created_at", "updated_at",
}

func toRow(c *checkout.Checkout) (checkoutRow, error) {
	items, err := json.Marshal(c.ItemsTaken)
	if err != nil {
		return checkoutRow{}, fmt.Errorf("marshal items: %w", err)
	}

	var tally []byte
	if c.Tally != nil {
		tally, err = json.Marshal(c.Tally)
		if err != nil {
			return checkoutRow{}, fmt.Errorf("marshal tally: %w", err)
		}
	}

	return checkoutRow{
		ID:               c.ID,
		EmployeeName:     c.EmployeeName,
		TruckID:          c.TruckID,
		ItemsTaken:       items,
		Status:           c.Status,
		Tally:            tally,
		StockProcessed:   c.StockProcessed,
		StockProcessedAt: c.StockProcessedAt,
		CancelReason:     c.CancelReason,
		CompletedAt:      c.CompletedAt,
		CancelledAt:      c.CancelledAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}, nil
}

func (row *checkoutRow) toDomain() (*checkout.Checkout, error) {
	c := &checkout.Checkout{
		ID:               row.ID,
		EmployeeName:     row.EmployeeName,
		TruckID:          row.TruckID,
		Status:           row.Status,
		StockProcessed:   row.StockProcessed,
		StockProcessedAt: row.StockProcessedAt,
		CancelReason:     row.CancelReason,
		CompletedAt:      row.CompletedAt,
		CancelledAt:      row.CancelledAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}

	if len(row.ItemsTaken) > 0 {
		if err := json.Unmarshal(row.ItemsTaken, &c.ItemsTaken); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
	}
	if len(row.Tally) > 0 {
		var tally checkout.TallyResult
		if err := json.Unmarshal(row.Tally, &tally); err != nil {
			return nil, fmt.Errorf("unmarshal tally: %w", err)
		}
		c.Tally = &tally
	}

	return c, nil
}

// Create persists a new checkout with its items.
func (r *CheckoutRepo) Create(ctx context.Context, c *checkout.Checkout) error {
	row, err := toRow(c)
	if err != nil {
		return err
	}

	q := r.builder.Insert(checkoutsTable).
		Columns(checkoutColumns...).
		Values(
			row.ID, row.EmployeeName, row.TruckID, row.ItemsTaken, row.Status, row.Tally,
			row.StockProcessed, row.StockProcessedAt, row.CancelReason,
			row.CompletedAt, row.CancelledAt, row.CreatedAt, row.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert checkout: %w", err)
	}

	return nil
}

// GetByID retrieves a checkout with items, invoice links and tally.
func (r *CheckoutRepo) GetByID(ctx context.Context, checkoutID id.ID) (*checkout.Checkout, error) {
	q := r.builder.Select(checkoutColumns...).
		From(checkoutsTable).
		Where(squirrel.Eq{"id": checkoutID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row checkoutRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("checkout", checkoutID.String())
		}
		return nil, fmt.Errorf("get checkout: %w", err)
	}

	c, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	if c.InvoiceNumbers, err = r.invoiceNumbers(ctx, checkoutID); err != nil {
		return nil, err
	}

	return c, nil
}

func (r *CheckoutRepo) invoiceNumbers(ctx context.Context, checkoutID id.ID) ([]string, error) {
	q := r.builder.Select("invoice_number").
		From(linksTable).
		Where(squirrel.Eq{"checkout_id": checkoutID}).
		OrderBy("invoice_number")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var numbers []string
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &numbers, sql, args...); err != nil {
		return nil, fmt.Errorf("select invoice links: %w", err)
	}

	return numbers, nil
}

// Update persists status, tally and lifecycle timestamps.
func (r *CheckoutRepo) Update(ctx context.Context, c *checkout.Checkout) error {
	row, err := toRow(c)
	if err != nil {
		return err
	}

	q := r.builder.Update(checkoutsTable).
		Set("status", row.Status).
		Set("tally", row.Tally).
		Set("stock_processed", row.StockProcessed).
		Set("stock_processed_at", row.StockProcessedAt).
		Set("cancel_reason", row.CancelReason).
		Set("completed_at", row.CompletedAt).
		Set("cancelled_at", row.CancelledAt).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": c.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update checkout: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("checkout", c.ID.String())
	}

	return nil
}

// LinkInvoices attaches invoice numbers to a checkout. The unique index on
// invoice_number backs the service-level pre-check against double linking.
func (r *CheckoutRepo) LinkInvoices(ctx context.Context, checkoutID id.ID, numbers []string) error {
	if len(numbers) == 0 {
		return nil
	}

	q := r.builder.Insert(linksTable).Columns("invoice_number", "checkout_id", "created_at")
	now := time.Now().UTC()
	for _, number := range numbers {
		q = q.Values(number, checkoutID, now)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewIntegrityConflict("invoice already linked to another checkout").
				WithDetail("checkoutId", checkoutID.String()).
				WithCause(err)
		}
		return fmt.Errorf("link invoices: %w", err)
	}

	return nil
}

// FindActiveInvoiceLinks returns existing links for the given numbers on
// checkouts that are not cancelled.
func (r *CheckoutRepo) FindActiveInvoiceLinks(ctx context.Context, numbers []string) ([]checkout.InvoiceLink, error) {
	if len(numbers) == 0 {
		return nil, nil
	}

	q := r.builder.Select("l.invoice_number", "l.checkout_id", "c.status").
		From(linksTable + " l").
		Join(checkoutsTable + " c ON c.id = l.checkout_id").
		Where(squirrel.Eq{"l.invoice_number": numbers}).
		Where(squirrel.NotEq{"c.status": checkout.StatusCancelled})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var links []checkout.InvoiceLink
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &links, sql, args...); err != nil {
		return nil, fmt.Errorf("select invoice links: %w", err)
	}

	return links, nil
}

// ClaimStockProcessing flips the one-shot gate with a compare-and-set.
func (r *CheckoutRepo) ClaimStockProcessing(ctx context.Context, checkoutID id.ID, at time.Time) (bool, error) {
	q := r.builder.Update(checkoutsTable).
		Set("stock_processed", true).
		Set("stock_processed_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": checkoutID}).
		Where(squirrel.Eq{"stock_processed": false})

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("claim stock processing: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// List retrieves checkouts with filtering. Invoice links are not hydrated.
func (r *CheckoutRepo) List(ctx context.Context, filter checkout.ListFilter) ([]checkout.Checkout, error) {
	q := r.builder.Select(checkoutColumns...).From(checkoutsTable)

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.EmployeeName != "" {
		q = q.Where(squirrel.Eq{"employee_name": filter.EmployeeName})
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

	var rows []checkoutRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select checkouts: %w", err)
	}

	checkouts := make([]checkout.Checkout, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		checkouts = append(checkouts, *c)
	}

	return checkouts, nil
}

// Ensure interface compliance.
var _ checkout.Repository = (*CheckoutRepo)(nil)

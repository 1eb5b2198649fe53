// Package invoice_repo provides the PostgreSQL implementation of the
// ingested-invoice repository.
package invoice_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/core/types"
	"fieldstock/internal/domain/invoice"
	"fieldstock/internal/infrastructure/storage/postgres"
)

const invoicesTable = "invoices"

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txManager *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// invoiceRow is the flat storage shape; lines live in JSONB.
type invoiceRow struct {
	ID             id.ID       `db:"id"`
	Source         string      `db:"source"`
	ExternalID     string      `db:"external_id"`
	Number         string      `db:"number"`
	IssuedAt       time.Time   `db:"issued_at"`
	CustomerName   string      `db:"customer_name"`
	Lines          []byte      `db:"lines"`
	Subtotal       types.Money `db:"subtotal"`
	Tax            types.Money `db:"tax"`
	Total          types.Money `db:"total"`
	Status         string      `db:"status"`
	StockProcessed bool        `db:"stock_processed"`
	FetchedAt      time.Time   `db:"fetched_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

var invoiceColumns = []string{
	"id", "source", "external_id", "number", "issued_at", "customer_name",
	"lines", "subtotal", "tax", "total", "status", "stock_processed",
	"fetched_at", "updated_at",
}

func (row *invoiceRow) toDomain() (*invoice.Invoice, error) {
	inv := &invoice.Invoice{
		ID:             row.ID,
		Source:         row.Source,
		ExternalID:     row.ExternalID,
		Number:         row.Number,
		IssuedAt:       row.IssuedAt,
		CustomerName:   row.CustomerName,
		Subtotal:       row.Subtotal,
		Tax:            row.Tax,
		Total:          row.Total,
		Status:         row.Status,
		StockProcessed: row.StockProcessed,
		FetchedAt:      row.FetchedAt,
		UpdatedAt:      row.UpdatedAt,
	}

	if len(row.Lines) > 0 {
		if err := json.Unmarshal(row.Lines, &inv.Lines); err != nil {
			return nil, fmt.Errorf("unmarshal lines: %w", err)
		}
	}

	return inv, nil
}

// Upsert inserts or overwrites an invoice by its natural key:
// (source, external_id) when the record carries an external id, otherwise
// the document number. A source without stable external ids would otherwise
// collapse all its records onto the key (source, ''). Backed by the partial
// unique index on (source, external_id) WHERE external_id <> '' and the
// unique index on (number). Overwrites replace payload fields only;
// stock_processed is preserved so re-ingestion never re-arms stock processing.
func (r *InvoiceRepo) Upsert(ctx context.Context, inv *invoice.Invoice) (invoice.UpsertOutcome, error) {
	lines, err := json.Marshal(inv.Lines)
	if err != nil {
		return "", fmt.Errorf("marshal lines: %w", err)
	}

	conflict := `ON CONFLICT (source, external_id) WHERE external_id <> ''`
	if inv.ExternalID == "" {
		conflict = `ON CONFLICT (number)`
	}

	// xmax = 0 only holds for freshly inserted rows, which distinguishes
	// insert from conflict-update in a single round-trip.
	sql := `
		INSERT INTO invoices (
			id, source, external_id, number, issued_at, customer_name,
			lines, subtotal, tax, total, status, stock_processed,
			fetched_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false, $12, now())
		` + conflict + ` DO UPDATE SET
			number = EXCLUDED.number,
			issued_at = EXCLUDED.issued_at,
			customer_name = EXCLUDED.customer_name,
			lines = EXCLUDED.lines,
			subtotal = EXCLUDED.subtotal,
			tax = EXCLUDED.tax,
			total = EXCLUDED.total,
			status = EXCLUDED.status,
			fetched_at = EXCLUDED.fetched_at,
			updated_at = now()
		RETURNING (xmax = 0) AS inserted
	`

	var inserted bool
	querier := r.txManager.GetQuerier(ctx)
	err = querier.QueryRow(ctx, sql,
		inv.ID, inv.Source, inv.ExternalID, inv.Number, inv.IssuedAt, inv.CustomerName,
		lines, inv.Subtotal, inv.Tax, inv.Total, inv.Status, inv.FetchedAt,
	).Scan(&inserted)
	if err != nil {
		return "", fmt.Errorf("upsert invoice: %w", err)
	}

	if inserted {
		return invoice.UpsertInserted, nil
	}
	return invoice.UpsertUpdated, nil
}

// GetByNumber retrieves an invoice by its document number.
func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	return r.getOne(ctx, squirrel.Eq{"number": number}, number)
}

// GetByExternalID retrieves an invoice by its natural key.
func (r *InvoiceRepo) GetByExternalID(ctx context.Context, source, externalID string) (*invoice.Invoice, error) {
	return r.getOne(ctx, squirrel.Eq{"source": source, "external_id": externalID}, source+"/"+externalID)
}

func (r *InvoiceRepo) getOne(ctx context.Context, where squirrel.Eq, key string) (*invoice.Invoice, error) {
	q := r.builder.Select(invoiceColumns...).
		From(invoicesTable).
		Where(where).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row invoiceRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("invoice", key)
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	return row.toDomain()
}

// MarkStockProcessed flags invoices whose movements were reconciled.
func (r *InvoiceRepo) MarkStockProcessed(ctx context.Context, numbers []string) error {
	if len(numbers) == 0 {
		return nil
	}

	q := r.builder.Update(invoicesTable).
		Set("stock_processed", true).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"number": numbers})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("mark stock processed: %w", err)
	}

	return nil
}

// List retrieves invoices with filtering.
func (r *InvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) ([]invoice.Invoice, error) {
	q := r.builder.Select(invoiceColumns...).From(invoicesTable)

	if filter.Source != "" {
		q = q.Where(squirrel.Eq{"source": filter.Source})
	}
	if filter.StockProcessed != nil {
		q = q.Where(squirrel.Eq{"stock_processed": *filter.StockProcessed})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"issued_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"issued_at": *filter.ToDate})
	}

	q = q.OrderBy("issued_at DESC")

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

	var rows []invoiceRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select invoices: %w", err)
	}

	invoices := make([]invoice.Invoice, 0, len(rows))
	for i := range rows {
		inv, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}

	return invoices, nil
}

// Ensure interface compliance.
var _ invoice.Repository = (*InvoiceRepo)(nil)

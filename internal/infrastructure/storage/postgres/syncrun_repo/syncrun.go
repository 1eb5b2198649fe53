// Package syncrun_repo provides the PostgreSQL implementation of the
// sync run repository.
package syncrun_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/domain/syncrun"
	"fieldstock/internal/infrastructure/storage/postgres"
)

const runsTable = "sync_runs"

// SyncRunRepo implements syncrun.Repository.
type SyncRunRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewSyncRunRepo creates a new sync run repository.
func NewSyncRunRepo(txManager *postgres.TxManager) *SyncRunRepo {
	return &SyncRunRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// runRow flattens counts into columns.
type runRow struct {
	ID        id.ID          `db:"id"`
	Source    string         `db:"source"`
	Kind      string         `db:"kind"`
	Params    string         `db:"params"`
	StartedAt time.Time      `db:"started_at"`
	EndedAt   *time.Time     `db:"ended_at"`
	Status    syncrun.Status `db:"status"`
	Found     int            `db:"found"`
	Inserted  int            `db:"inserted"`
	Updated   int            `db:"updated"`
	Failed    int            `db:"failed"`
	Message   string         `db:"message"`
}

var runColumns = []string{
	"id", "source", "kind", "params", "started_at", "ended_at", "status",
	"found", "inserted", "updated", "failed", "message",
}

func (row *runRow) toDomain() *syncrun.SyncRun {
	return &syncrun.SyncRun{
		ID:        row.ID,
		Source:    row.Source,
		Kind:      row.Kind,
		Params:    row.Params,
		StartedAt: row.StartedAt,
		EndedAt:   row.EndedAt,
		Status:    row.Status,
		Counts: syncrun.Counts{
			Found:    row.Found,
			Inserted: row.Inserted,
			Updated:  row.Updated,
			Failed:   row.Failed,
		},
		Message: row.Message,
	}
}

// Create persists a new run record.
func (r *SyncRunRepo) Create(ctx context.Context, run *syncrun.SyncRun) error {
	q := r.builder.Insert(runsTable).
		Columns(runColumns...).
		Values(
			run.ID, run.Source, run.Kind, run.Params, run.StartedAt, run.EndedAt, run.Status,
			run.Counts.Found, run.Counts.Inserted, run.Counts.Updated, run.Counts.Failed,
			run.Message,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}

	return nil
}

// GetByID retrieves a run with its counts.
func (r *SyncRunRepo) GetByID(ctx context.Context, runID id.ID) (*syncrun.SyncRun, error) {
	q := r.builder.Select(runColumns...).
		From(runsTable).
		Where(squirrel.Eq{"id": runID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row runRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sync run", runID.String())
		}
		return nil, fmt.Errorf("get sync run: %w", err)
	}

	return row.toDomain(), nil
}

// Update persists counts, status and end time.
func (r *SyncRunRepo) Update(ctx context.Context, run *syncrun.SyncRun) error {
	q := r.builder.Update(runsTable).
		Set("ended_at", run.EndedAt).
		Set("status", run.Status).
		Set("found", run.Counts.Found).
		Set("inserted", run.Counts.Inserted).
		Set("updated", run.Counts.Updated).
		Set("failed", run.Counts.Failed).
		Set("message", run.Message).
		Where(squirrel.Eq{"id": run.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update sync run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("sync run", run.ID.String())
	}

	return nil
}

// List retrieves runs with filtering, newest-first.
func (r *SyncRunRepo) List(ctx context.Context, filter syncrun.ListFilter) ([]syncrun.SyncRun, error) {
	q := r.builder.Select(runColumns...).From(runsTable)

	if filter.Source != "" {
		q = q.Where(squirrel.Eq{"source": filter.Source})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"started_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"started_at": *filter.ToDate})
	}

	q = q.OrderBy("started_at DESC")

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

	var rows []runRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select sync runs: %w", err)
	}

	runs := make([]syncrun.SyncRun, 0, len(rows))
	for i := range rows {
		runs = append(runs, *rows[i].toDomain())
	}

	return runs, nil
}

// Ensure interface compliance.
var _ syncrun.Repository = (*SyncRunRepo)(nil)

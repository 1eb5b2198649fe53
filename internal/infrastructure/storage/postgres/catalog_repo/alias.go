// Package catalog_repo provides the PostgreSQL implementation of the
// item alias repository.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/domain/catalog"
	"fieldstock/internal/infrastructure/storage/postgres"
)

const aliasesTable = "item_aliases"

// AliasRepo implements catalog.Repository.
type AliasRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewAliasRepo creates a new alias repository.
func NewAliasRepo(txManager *postgres.TxManager) *AliasRepo {
	return &AliasRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var aliasColumns = []string{
	"id", "alias", "canonical_name", "sku", "created_at", "updated_at",
}

// Upsert inserts or overwrites an alias row keyed by the normalized alias.
// The stored key is catalog.NormalizeKey of the raw alias, the same key the
// resolution snapshot uses; storing the raw string would let case variants
// of one alias create rows the snapshot cannot distinguish.
func (r *AliasRepo) Upsert(ctx context.Context, a *catalog.Alias) error {
	sql := `
		INSERT INTO item_aliases (id, alias, canonical_name, sku, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (alias) DO UPDATE SET
			canonical_name = EXCLUDED.canonical_name,
			sku = EXCLUDED.sku,
			updated_at = now()
	`

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, a.ID, catalog.NormalizeKey(a.Alias), a.CanonicalName, a.SKU); err != nil {
		return fmt.Errorf("upsert alias: %w", err)
	}

	return nil
}

// Delete removes an alias, matching by the normalized key.
func (r *AliasRepo) Delete(ctx context.Context, alias string) error {
	q := r.builder.Delete(aliasesTable).
		Where(squirrel.Eq{"alias": catalog.NormalizeKey(alias)})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete alias: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("alias", alias)
	}

	return nil
}

// GetAll returns every alias row for a snapshot load.
func (r *AliasRepo) GetAll(ctx context.Context) ([]catalog.Alias, error) {
	q := r.builder.Select(aliasColumns...).
		From(aliasesTable).
		OrderBy("alias")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var aliases []catalog.Alias
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &aliases, sql, args...); err != nil {
		return nil, fmt.Errorf("select aliases: %w", err)
	}

	return aliases, nil
}

// List returns aliases with pagination.
func (r *AliasRepo) List(ctx context.Context, limit, offset int) ([]catalog.Alias, error) {
	q := r.builder.Select(aliasColumns...).
		From(aliasesTable).
		OrderBy("alias")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var aliases []catalog.Alias
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &aliases, sql, args...); err != nil {
		return nil, fmt.Errorf("select aliases: %w", err)
	}

	return aliases, nil
}

// Ensure interface compliance.
var _ catalog.Repository = (*AliasRepo)(nil)

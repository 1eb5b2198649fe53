package catalog

import (
	"context"
)

// Repository defines storage operations for item aliases.
type Repository interface {
	// Upsert inserts or overwrites an alias row keyed by the normalized alias
	Upsert(ctx context.Context, a *Alias) error

	// Delete removes an alias
	Delete(ctx context.Context, alias string) error

	// GetAll returns every alias row (snapshot load)
	GetAll(ctx context.Context) ([]Alias, error)

	// List returns aliases with pagination
	List(ctx context.Context, limit, offset int) ([]Alias, error)
}

package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
)

type memAliasRepo struct {
	byAlias map[string]Alias
}

func newMemAliasRepo() *memAliasRepo {
	return &memAliasRepo{byAlias: make(map[string]Alias)}
}

func (r *memAliasRepo) Upsert(_ context.Context, a *Alias) error {
	r.byAlias[NormalizeKey(a.Alias)] = *a
	return nil
}

func (r *memAliasRepo) Delete(_ context.Context, alias string) error {
	key := NormalizeKey(alias)
	if _, ok := r.byAlias[key]; !ok {
		return apperror.NewNotFound("alias", alias)
	}
	delete(r.byAlias, key)
	return nil
}

func (r *memAliasRepo) GetAll(_ context.Context) ([]Alias, error) {
	out := make([]Alias, 0, len(r.byAlias))
	for _, a := range r.byAlias {
		out = append(out, a)
	}
	return out, nil
}

func (r *memAliasRepo) List(_ context.Context, _, _ int) ([]Alias, error) {
	return r.GetAll(context.Background())
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "copper pipe 1/2", NormalizeKey("  Copper Pipe 1/2  "))
	assert.Equal(t, "flt-a", NormalizeKey("FLT-A"))
	assert.Equal(t, "", NormalizeKey("   "))
}

func TestResolveMapped(t *testing.T) {
	repo := newMemAliasRepo()
	repo.byAlias["cu pipe 1/2"] = Alias{
		ID:            id.New(),
		Alias:         "CU Pipe 1/2",
		CanonicalName: "Copper Pipe 1/2in",
		SKU:           "CU-12",
	}
	svc := NewService(repo)
	require.NoError(t, svc.Reload(context.Background()))

	// Lookup is case-insensitive and whitespace-tolerant.
	res, err := svc.Resolve(context.Background(), "  cu PIPE 1/2 ")
	require.NoError(t, err)
	assert.True(t, res.Mapped)
	assert.Equal(t, "Copper Pipe 1/2in", res.Name)
	assert.Equal(t, "CU-12", res.SKU)
	assert.Equal(t, "CU-12", res.LedgerKey())
}

func TestResolveUnmappedPassesThrough(t *testing.T) {
	svc := NewService(newMemAliasRepo())
	require.NoError(t, svc.Reload(context.Background()))

	res, err := svc.Resolve(context.Background(), "Mystery Part")
	require.NoError(t, err)
	assert.False(t, res.Mapped)
	assert.Equal(t, "Mystery Part", res.Name)
	assert.Empty(t, res.SKU)
	assert.Equal(t, "Mystery Part", res.LedgerKey())
}

func TestResolveMappedWithoutCanonicalName(t *testing.T) {
	repo := newMemAliasRepo()
	repo.byAlias["widget"] = Alias{Alias: "Widget", SKU: "WGT-1"}
	svc := NewService(repo)
	require.NoError(t, svc.Reload(context.Background()))

	// SKU-only alias keeps the raw name but carries the SKU.
	res, err := svc.Resolve(context.Background(), "Widget")
	require.NoError(t, err)
	assert.True(t, res.Mapped)
	assert.Equal(t, "Widget", res.Name)
	assert.Equal(t, "WGT-1", res.SKU)
}

func TestSaveRefreshesSnapshot(t *testing.T) {
	repo := newMemAliasRepo()
	svc := NewService(repo)
	require.NoError(t, svc.Reload(context.Background()))

	a := &Alias{ID: id.New(), Alias: "CU Pipe 1/2", CanonicalName: "Copper Pipe 1/2in", SKU: "CU-12"}
	require.NoError(t, svc.Save(context.Background(), a))

	// Visible without an explicit Reload.
	res, err := svc.Resolve(context.Background(), "cu pipe 1/2")
	require.NoError(t, err)
	assert.True(t, res.Mapped)
	assert.Equal(t, "CU-12", res.SKU)

	// And persisted.
	_, ok := repo.byAlias["cu pipe 1/2"]
	assert.True(t, ok)
}

func TestSaveCaseVariantsCollapseToOneAlias(t *testing.T) {
	repo := newMemAliasRepo()
	svc := NewService(repo)

	// Storage and snapshot key by the same normalized form: case variants of
	// one alias are one mapping, last write wins.
	require.NoError(t, svc.Save(context.Background(), &Alias{Alias: "Widget", SKU: "WGT-OLD"}))
	require.NoError(t, svc.Save(context.Background(), &Alias{Alias: "  WIDGET ", SKU: "WGT-NEW"}))

	assert.Len(t, repo.byAlias, 1)

	res, err := svc.Resolve(context.Background(), "widget")
	require.NoError(t, err)
	assert.Equal(t, "WGT-NEW", res.SKU)

	// Survives a snapshot rebuild from storage.
	require.NoError(t, svc.Reload(context.Background()))
	res, err = svc.Resolve(context.Background(), "WiDgEt")
	require.NoError(t, err)
	assert.Equal(t, "WGT-NEW", res.SKU)

	// Remove matches by the normalized key too.
	require.NoError(t, svc.Remove(context.Background(), "wIdGeT"))
	assert.Empty(t, repo.byAlias)
}

func TestSaveValidation(t *testing.T) {
	svc := NewService(newMemAliasRepo())

	err := svc.Save(context.Background(), &Alias{Alias: "  "})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	// Alias with neither canonical name nor SKU maps to nothing.
	err = svc.Save(context.Background(), &Alias{Alias: "orphan"})
	require.Error(t, err)
}

func TestRemoveEvictsSnapshot(t *testing.T) {
	repo := newMemAliasRepo()
	svc := NewService(repo)
	require.NoError(t, svc.Save(context.Background(), &Alias{Alias: "Widget", SKU: "WGT-1"}))

	require.NoError(t, svc.Remove(context.Background(), "widget"))

	res, err := svc.Resolve(context.Background(), "Widget")
	require.NoError(t, err)
	assert.False(t, res.Mapped)

	err = svc.Remove(context.Background(), "widget")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestReloadReplacesSnapshotWholesale(t *testing.T) {
	repo := newMemAliasRepo()
	svc := NewService(repo)
	require.NoError(t, svc.Save(context.Background(), &Alias{Alias: "Stale", SKU: "OLD-1"}))

	// Out-of-band change to storage.
	delete(repo.byAlias, "stale")
	repo.byAlias["fresh"] = Alias{Alias: "Fresh", SKU: "NEW-1"}

	require.NoError(t, svc.Reload(context.Background()))

	stale, err := svc.Resolve(context.Background(), "Stale")
	require.NoError(t, err)
	assert.False(t, stale.Mapped)

	fresh, err := svc.Resolve(context.Background(), "Fresh")
	require.NoError(t, err)
	assert.True(t, fresh.Mapped)
	assert.False(t, svc.SnapshotAge().IsZero())
}

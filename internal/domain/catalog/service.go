package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fieldstock/pkg/logger"
)

// Resolver canonicalizes raw external item names. Unmapped names pass
// through unchanged so the caller can still accumulate them onto one key.
type Resolver interface {
	Resolve(ctx context.Context, rawName string) (Resolution, error)
}

// Service is an explicit, injectable canonicalization service backed by an
// in-memory snapshot of the alias table. The snapshot is rebuilt on demand
// via Reload; resolution itself never touches storage, so it cannot fail
// mid-reconciliation.
type Service struct {
	repo Repository

	mu       sync.RWMutex
	byAlias  map[string]Alias
	loadedAt time.Time
}

// NewService creates a new canonicalization service with an empty snapshot.
// Call Reload before first use.
func NewService(repo Repository) *Service {
	return &Service{
		repo:    repo,
		byAlias: make(map[string]Alias),
	}
}

// Reload rebuilds the in-memory snapshot from storage.
func (s *Service) Reload(ctx context.Context) error {
	aliases, err := s.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load aliases: %w", err)
	}

	snapshot := make(map[string]Alias, len(aliases))
	for _, a := range aliases {
		snapshot[NormalizeKey(a.Alias)] = a
	}

	s.mu.Lock()
	s.byAlias = snapshot
	s.loadedAt = time.Now().UTC()
	s.mu.Unlock()

	logger.Info(ctx, "alias snapshot reloaded", "count", len(snapshot))
	return nil
}

// Resolve maps a raw item name onto its canonical item.
// Pass-through when unmapped.
func (s *Service) Resolve(_ context.Context, rawName string) (Resolution, error) {
	s.mu.RLock()
	a, ok := s.byAlias[NormalizeKey(rawName)]
	s.mu.RUnlock()

	if !ok {
		return Resolution{Name: rawName}, nil
	}

	name := a.CanonicalName
	if name == "" {
		name = rawName
	}
	return Resolution{Name: name, SKU: a.SKU, Mapped: true}, nil
}

// Save upserts an alias and refreshes the snapshot entry.
func (s *Service) Save(ctx context.Context, a *Alias) error {
	if err := a.Validate(); err != nil {
		return err
	}

	if err := s.repo.Upsert(ctx, a); err != nil {
		return fmt.Errorf("upsert alias: %w", err)
	}

	s.mu.Lock()
	s.byAlias[NormalizeKey(a.Alias)] = *a
	s.mu.Unlock()

	logger.Info(ctx, "alias saved", "alias", a.Alias, "sku", a.SKU)
	return nil
}

// Remove deletes an alias and evicts it from the snapshot.
func (s *Service) Remove(ctx context.Context, alias string) error {
	if err := s.repo.Delete(ctx, alias); err != nil {
		return fmt.Errorf("delete alias: %w", err)
	}

	s.mu.Lock()
	delete(s.byAlias, NormalizeKey(alias))
	s.mu.Unlock()

	return nil
}

// List returns aliases from storage with pagination.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Alias, error) {
	return s.repo.List(ctx, limit, offset)
}

// SnapshotAge returns how long ago the snapshot was loaded; zero time means never.
func (s *Service) SnapshotAge() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

var _ Resolver = (*Service)(nil)

package ledger

import (
	"context"
	"fmt"
	"time"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/tx"
	"fieldstock/pkg/logger"
)

// Service provides business operations for the stock ledger.
// Every post pairs the movement insert with its summary delta in one
// transaction; a movement that commits without its summary update would leave
// the system inconsistent and is never allowed to happen.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new ledger service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// Post appends one movement and applies its summary delta atomically.
func (s *Service) Post(ctx context.Context, in PostInput) (Movement, Summary, error) {
	if err := in.Validate(); err != nil {
		return Movement{}, Summary{}, err
	}

	m := in.Movement()
	var summary Summary

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertMovement(ctx, m); err != nil {
			return fmt.Errorf("insert movement: %w", err)
		}

		updated, err := s.repo.ApplyDelta(ctx, m.SKU, m.SummaryDelta(), in.AllowNegative)
		if err != nil {
			return fmt.Errorf("apply summary delta: %w", err)
		}
		summary = updated
		return nil
	})
	if err != nil {
		return Movement{}, Summary{}, err
	}

	if summary.AvailableQty.IsNegative() {
		logger.Warn(ctx, "available stock went negative",
			"sku", m.SKU,
			"available", summary.AvailableQty.Float64(),
			"ref_type", m.RefType,
			"ref_id", m.RefID,
		)
	}

	logger.Info(ctx, "posted ledger movement",
		"sku", m.SKU,
		"type", string(m.Type),
		"quantity", m.Quantity.Float64(),
		"ref_type", m.RefType,
		"ref_id", m.RefID,
	)

	return m, summary, nil
}

// PostAll appends a batch of movements with their summary deltas in one
// transaction. Used by checkout creation so either all items post or none do.
func (s *Service) PostAll(ctx context.Context, inputs []PostInput) ([]Movement, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	for i := range inputs {
		if err := inputs[i].Validate(); err != nil {
			return nil, err
		}
	}

	movements := make([]Movement, 0, len(inputs))
	for i := range inputs {
		movements = append(movements, inputs[i].Movement())
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertMovements(ctx, movements); err != nil {
			return fmt.Errorf("insert movements: %w", err)
		}
		for i := range movements {
			if _, err := s.repo.ApplyDelta(ctx, movements[i].SKU, movements[i].SummaryDelta(), inputs[i].AllowNegative); err != nil {
				return fmt.Errorf("apply summary delta for %s: %w", movements[i].SKU, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "posted ledger movements", "count", len(movements))
	return movements, nil
}

// History returns movements for a SKU, newest-first.
func (s *Service) History(ctx context.Context, sku string, filter MovementFilter) ([]Movement, error) {
	if sku == "" {
		return nil, apperror.NewValidation("sku is required")
	}
	return s.repo.MovementsBySKU(ctx, sku, filter)
}

// GetSummary returns the stored summary, or a zeroed record on first touch.
func (s *Service) GetSummary(ctx context.Context, sku string) (Summary, error) {
	if sku == "" {
		return Summary{}, apperror.NewValidation("sku is required")
	}
	summary, err := s.repo.GetSummary(ctx, sku)
	if err != nil {
		if apperror.IsNotFound(err) {
			return NewSummary(sku), nil
		}
		return Summary{}, fmt.Errorf("get summary: %w", err)
	}
	return summary, nil
}

// ListSummaries returns stored summaries.
func (s *Service) ListSummaries(ctx context.Context, filter SummaryFilter) ([]Summary, error) {
	return s.repo.ListSummaries(ctx, filter)
}

// RebuildResult reports a summary rebuild: what was stored before and what
// the ledger replay produced.
type RebuildResult struct {
	SKU      string  `json:"sku"`
	Prior    Summary `json:"prior"`
	Rebuilt  Summary `json:"rebuilt"`
	Drifted  bool    `json:"drifted"`
	Replayed Replay  `json:"replayed"`
}

// RebuildSummary replays the full ledger for a SKU and overwrites the stored
// summary with the recomputed totals. Used both to seed summaries and to
// repair drift.
func (s *Service) RebuildSummary(ctx context.Context, sku string) (RebuildResult, error) {
	if sku == "" {
		return RebuildResult{}, apperror.NewValidation("sku is required")
	}

	var result RebuildResult
	result.SKU = sku

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		prior, err := s.repo.GetSummary(ctx, sku)
		if err != nil {
			if !apperror.IsNotFound(err) {
				return fmt.Errorf("get summary: %w", err)
			}
			prior = NewSummary(sku)
		}
		result.Prior = prior

		replay, err := s.repo.Replay(ctx, sku)
		if err != nil {
			return fmt.Errorf("replay ledger: %w", err)
		}
		result.Replayed = replay

		rebuilt := prior
		rebuilt.SKU = sku
		rebuilt.AvailableQty = replay.Available()
		rebuilt.TotalInQty = replay.TotalIn
		rebuilt.TotalOutQty = replay.TotalOut
		if rebuilt.LowStockThreshold.IsZero() {
			rebuilt.LowStockThreshold = DefaultLowStockThreshold
		}
		rebuilt.UpdatedAt = time.Now().UTC()

		if err := s.repo.SaveSummary(ctx, rebuilt); err != nil {
			return fmt.Errorf("save summary: %w", err)
		}
		result.Rebuilt = rebuilt
		result.Drifted = prior.AvailableQty != rebuilt.AvailableQty ||
			prior.TotalInQty != rebuilt.TotalInQty ||
			prior.TotalOutQty != rebuilt.TotalOutQty
		return nil
	})
	if err != nil {
		return RebuildResult{}, err
	}

	if result.Drifted {
		logger.Warn(ctx, "summary drifted from ledger replay",
			"sku", sku,
			"prior_available", result.Prior.AvailableQty.Float64(),
			"rebuilt_available", result.Rebuilt.AvailableQty.Float64(),
		)
	}

	return result, nil
}

// VerifySummary compares the stored summary against a ledger replay without
// writing anything. A drifted result signals a post that committed without
// its summary update, which should never happen.
func (s *Service) VerifySummary(ctx context.Context, sku string) (RebuildResult, error) {
	if sku == "" {
		return RebuildResult{}, apperror.NewValidation("sku is required")
	}

	prior, err := s.GetSummary(ctx, sku)
	if err != nil {
		return RebuildResult{}, err
	}

	replay, err := s.repo.Replay(ctx, sku)
	if err != nil {
		return RebuildResult{}, fmt.Errorf("replay ledger: %w", err)
	}

	rebuilt := prior
	rebuilt.AvailableQty = replay.Available()
	rebuilt.TotalInQty = replay.TotalIn
	rebuilt.TotalOutQty = replay.TotalOut

	return RebuildResult{
		SKU:      sku,
		Prior:    prior,
		Rebuilt:  rebuilt,
		Replayed: replay,
		Drifted: prior.AvailableQty != rebuilt.AvailableQty ||
			prior.TotalInQty != rebuilt.TotalInQty ||
			prior.TotalOutQty != rebuilt.TotalOutQty,
	}, nil
}

package reports

import (
	"context"

	"fieldstock/internal/core/apperror"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) DiscrepancyStats(ctx context.Context, rng DateRange) ([]DiscrepancyStatsRow, error) {
	if err := validateRange(rng); err != nil {
		return nil, err
	}
	return s.repo.DiscrepancyStats(ctx, rng)
}

func (s *Service) CheckoutStats(ctx context.Context, rng DateRange) ([]CheckoutStatsRow, error) {
	if err := validateRange(rng); err != nil {
		return nil, err
	}
	return s.repo.CheckoutStats(ctx, rng)
}

func (s *Service) MovementTurnover(ctx context.Context, sku string, rng DateRange) ([]MovementTurnoverRow, error) {
	if sku == "" {
		return nil, apperror.NewValidation("sku is required")
	}
	if err := validateRange(rng); err != nil {
		return nil, err
	}
	return s.repo.MovementTurnover(ctx, sku, rng)
}

func validateRange(rng DateRange) error {
	if !rng.From.IsZero() && !rng.To.IsZero() && rng.To.Before(rng.From) {
		return apperror.NewValidation("date range end precedes start")
	}
	return nil
}

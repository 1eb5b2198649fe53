package reports

import "context"

type Repository interface {
	DiscrepancyStats(ctx context.Context, rng DateRange) ([]DiscrepancyStatsRow, error)
	CheckoutStats(ctx context.Context, rng DateRange) ([]CheckoutStatsRow, error)
	MovementTurnover(ctx context.Context, sku string, rng DateRange) ([]MovementTurnoverRow, error)
}

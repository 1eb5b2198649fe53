package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldstock/internal/core/apperror"
)

type stubRepo struct {
	discrepancyCalls int
	turnoverSKU      string
}

func (r *stubRepo) DiscrepancyStats(_ context.Context, _ DateRange) ([]DiscrepancyStatsRow, error) {
	r.discrepancyCalls++
	return []DiscrepancyStatsRow{{Status: "Pending", Type: "Shortage", Count: 2}}, nil
}

func (r *stubRepo) CheckoutStats(_ context.Context, _ DateRange) ([]CheckoutStatsRow, error) {
	return nil, nil
}

func (r *stubRepo) MovementTurnover(_ context.Context, sku string, _ DateRange) ([]MovementTurnoverRow, error) {
	r.turnoverSKU = sku
	return nil, nil
}

func TestDateRangeValidation(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -7)

	_, err := svc.DiscrepancyStats(context.Background(), DateRange{From: from, To: to})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Zero(t, repo.discrepancyCalls)

	// Open-ended ranges are fine.
	rows, err := svc.DiscrepancyStats(context.Background(), DateRange{From: from})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].Count)
}

func TestMovementTurnoverRequiresSKU(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.MovementTurnover(context.Background(), "", DateRange{})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = svc.MovementTurnover(context.Background(), "FLT-A", DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "FLT-A", repo.turnoverSKU)
}

package discrepancy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/core/types"
)

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

type memRepo struct {
	reports map[id.ID]*Discrepancy
	order   []id.ID
}

func newMemRepo() *memRepo {
	return &memRepo{reports: make(map[id.ID]*Discrepancy)}
}

func (r *memRepo) Create(_ context.Context, d *Discrepancy) error {
	clone := *d
	r.reports[d.ID] = &clone
	r.order = append(r.order, d.ID)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, reportID id.ID) (*Discrepancy, error) {
	d, ok := r.reports[reportID]
	if !ok {
		return nil, apperror.NewNotFound("discrepancy", reportID.String())
	}
	clone := *d
	return &clone, nil
}

func (r *memRepo) Update(_ context.Context, d *Discrepancy) error {
	if _, ok := r.reports[d.ID]; !ok {
		return apperror.NewNotFound("discrepancy", d.ID.String())
	}
	clone := *d
	r.reports[d.ID] = &clone
	return nil
}

func (r *memRepo) List(_ context.Context, filter ListFilter) ([]Discrepancy, error) {
	var out []Discrepancy
	for _, reportID := range r.order {
		d := r.reports[reportID]
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && d.Type != *filter.Type {
			continue
		}
		if filter.ReportedBy != "" && d.ReportedBy != filter.ReportedBy {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func TestCreateComputesDifferenceAndType(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	d, err := svc.Create(context.Background(), CreateInput{
		ItemName:       "Filter A",
		SKU:            "FLT-A",
		SystemQuantity: qty(10),
		ActualQuantity: qty(7),
		ReportedBy:     "J. Ramos",
		Reason:         "count mismatch on truck 7",
	})
	require.NoError(t, err)
	assert.Equal(t, qty(-3), d.Difference)
	assert.Equal(t, TypeShortage, d.Type)
	assert.Equal(t, StatusPending, d.Status)

	over, err := svc.Create(context.Background(), CreateInput{
		ItemName:       "Valve B",
		SystemQuantity: qty(2),
		ActualQuantity: qty(5),
		ReportedBy:     "J. Ramos",
	})
	require.NoError(t, err)
	assert.Equal(t, qty(3), over.Difference)
	assert.Equal(t, TypeOverage, over.Type)
}

func TestCreateIgnoresCallerSuppliedDerivableType(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	// Caller says Overage, the numbers say shortage; the sign wins.
	d, err := svc.Create(context.Background(), CreateInput{
		ItemName:       "Filter A",
		SystemQuantity: qty(10),
		ActualQuantity: qty(4),
		Type:           TypeOverage,
		ReportedBy:     "J. Ramos",
	})
	require.NoError(t, err)
	assert.Equal(t, TypeShortage, d.Type)
}

func TestCreateKeepsExplicitTypes(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	d, err := svc.Create(context.Background(), CreateInput{
		ItemName:       "Filter A",
		SystemQuantity: qty(10),
		ActualQuantity: qty(10),
		Type:           TypeDamage,
		ReportedBy:     "J. Ramos",
	})
	require.NoError(t, err)
	assert.Equal(t, TypeDamage, d.Type)
	assert.True(t, d.Difference.IsZero())
}

func TestCreateRejectsZeroDifferenceWithoutType(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		ItemName:       "Filter A",
		SystemQuantity: qty(5),
		ActualQuantity: qty(5),
		ReportedBy:     "J. Ramos",
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Empty(t, repo.reports)
}

func TestCreateValidation(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"missing item", CreateInput{SystemQuantity: qty(1), ReportedBy: "J. Ramos"}},
		{"missing reporter", CreateInput{ItemName: "Filter A", SystemQuantity: qty(1)}},
		{"negative quantity", CreateInput{ItemName: "Filter A", ActualQuantity: qty(-1), ReportedBy: "J. Ramos"}},
		{"unknown type", CreateInput{ItemName: "Filter A", SystemQuantity: qty(1), ActualQuantity: qty(2), Type: Type("Bogus"), ReportedBy: "J. Ramos"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.in)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}
}

func TestUpdateRecomputesDerivedFields(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	d, err := svc.Create(context.Background(), CreateInput{
		ItemName:       "Filter A",
		SystemQuantity: qty(10),
		ActualQuantity: qty(7),
		ReportedBy:     "J. Ramos",
	})
	require.NoError(t, err)
	require.Equal(t, TypeShortage, d.Type)

	actual := qty(12)
	updated, err := svc.Update(context.Background(), d.ID, UpdateInput{ActualQuantity: &actual})
	require.NoError(t, err)
	assert.Equal(t, qty(2), updated.Difference)
	assert.Equal(t, TypeOverage, updated.Type)
}

func TestApproveAndReject(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	d, err := svc.Create(context.Background(), CreateInput{
		ItemName:       "Filter A",
		SystemQuantity: qty(10),
		ActualQuantity: qty(7),
		ReportedBy:     "J. Ramos",
	})
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), d.ID, "supervisor-1", "verified on site")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, "supervisor-1", approved.ResolvedBy)
	require.NotNil(t, approved.ResolvedAt)
	assert.Equal(t, "verified on site", approved.ResolutionNotes)

	// Resolution is one-way.
	_, err = svc.Reject(context.Background(), d.ID, "supervisor-2", "")
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))

	_, err = svc.Update(context.Background(), d.ID, UpdateInput{})
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestBulkApproveIsBestEffort(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	var ids []id.ID
	for i := 0; i < 3; i++ {
		d, err := svc.Create(context.Background(), CreateInput{
			ItemName:       "Filter A",
			SystemQuantity: qty(10),
			ActualQuantity: qty(7),
			ReportedBy:     "J. Ramos",
		})
		require.NoError(t, err)
		ids = append(ids, d.ID)
	}

	// One of them gets resolved out of band before the bulk run reaches it.
	mid := repo.reports[ids[1]]
	require.NoError(t, mid.Approve("supervisor-0", ""))

	result, err := svc.BulkApprove(context.Background(), ListFilter{}, "supervisor-1", "cycle count close")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Approved)
	assert.Empty(t, result.Failures) // already-approved item no longer matches the Pending filter

	for _, reportID := range ids {
		assert.Equal(t, StatusApproved, repo.reports[reportID].Status)
	}
}

// failingUpdateRepo fails Update for one report to exercise the bulk
// failure path.
type failingUpdateRepo struct {
	*memRepo
	failID id.ID
}

func (r *failingUpdateRepo) Update(ctx context.Context, d *Discrepancy) error {
	if d.ID == r.failID {
		return apperror.NewInternal(errors.New("connection reset"))
	}
	return r.memRepo.Update(ctx, d)
}

func TestBulkApproveReportsFailures(t *testing.T) {
	mem := newMemRepo()
	svc := NewService(mem)

	first, err := svc.Create(context.Background(), CreateInput{
		ItemName:       "Filter A",
		SystemQuantity: qty(10),
		ActualQuantity: qty(7),
		ReportedBy:     "J. Ramos",
	})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateInput{
		ItemName:       "Valve B",
		SystemQuantity: qty(4),
		ActualQuantity: qty(6),
		ReportedBy:     "J. Ramos",
	})
	require.NoError(t, err)

	failing := &failingUpdateRepo{memRepo: mem, failID: first.ID}
	result, err := NewService(failing).BulkApprove(context.Background(), ListFilter{}, "supervisor-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Approved)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, first.ID, result.Failures[0].ID)

	assert.Equal(t, StatusPending, mem.reports[first.ID].Status)
	assert.Equal(t, StatusApproved, mem.reports[second.ID].Status)
}

func TestGetByIDNotFound(t *testing.T) {
	svc := NewService(newMemRepo())
	_, err := svc.GetByID(context.Background(), id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

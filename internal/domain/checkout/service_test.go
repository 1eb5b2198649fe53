package checkout

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/domain/catalog"
	"fieldstock/internal/domain/invoice"
	"fieldstock/internal/domain/ledger"
)

type nopTxManager struct{}

func (nopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memLedgerRepo is a minimal in-memory ledger.Repository for wiring a real
// ledger.Service into checkout tests.
type memLedgerRepo struct {
	movements []ledger.Movement
	summaries map[string]ledger.Summary
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{summaries: make(map[string]ledger.Summary)}
}

func (r *memLedgerRepo) InsertMovement(_ context.Context, m ledger.Movement) error {
	r.movements = append(r.movements, m)
	return nil
}

func (r *memLedgerRepo) InsertMovements(_ context.Context, movements []ledger.Movement) error {
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *memLedgerRepo) MovementsBySKU(_ context.Context, sku string, _ ledger.MovementFilter) ([]ledger.Movement, error) {
	var out []ledger.Movement
	for _, m := range r.movements {
		if m.SKU == sku {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memLedgerRepo) Replay(_ context.Context, sku string) (ledger.Replay, error) {
	var rp ledger.Replay
	for _, m := range r.movements {
		if m.SKU != sku {
			continue
		}
		rp.Count++
		switch m.Type {
		case ledger.MovementIn:
			rp.TotalIn += m.Quantity
		case ledger.MovementOut:
			rp.TotalOut += m.Quantity
		case ledger.MovementAdjust:
			rp.AdjustNet += m.SignedQuantity()
		}
	}
	return rp, nil
}

func (r *memLedgerRepo) GetSummary(_ context.Context, sku string) (ledger.Summary, error) {
	s, ok := r.summaries[sku]
	if !ok {
		return ledger.Summary{}, apperror.NewNotFound("summary", sku)
	}
	return s, nil
}

func (r *memLedgerRepo) ApplyDelta(_ context.Context, sku string, delta ledger.SummaryDelta, allowNegative bool) (ledger.Summary, error) {
	s, ok := r.summaries[sku]
	if !ok {
		s = ledger.NewSummary(sku)
	}
	next := s.AvailableQty + delta.Available
	if !allowNegative && delta.Available.IsNegative() && next.IsNegative() {
		return ledger.Summary{}, apperror.NewInsufficientStock(sku, delta.Available.Neg().Float64(), s.AvailableQty.Float64())
	}
	s.AvailableQty = next
	s.TotalInQty += delta.TotalIn
	s.TotalOutQty += delta.TotalOut
	s.UpdatedAt = time.Now().UTC()
	r.summaries[sku] = s
	return s, nil
}

func (r *memLedgerRepo) SaveSummary(_ context.Context, s ledger.Summary) error {
	r.summaries[s.SKU] = s
	return nil
}

func (r *memLedgerRepo) ListSummaries(_ context.Context, _ ledger.SummaryFilter) ([]ledger.Summary, error) {
	out := make([]ledger.Summary, 0, len(r.summaries))
	for _, s := range r.summaries {
		out = append(out, s)
	}
	return out, nil
}

// fakeCheckoutRepo keeps checkouts and invoice links in memory, honoring the
// CAS semantics of ClaimStockProcessing and link uniqueness.
type fakeCheckoutRepo struct {
	checkouts map[id.ID]*Checkout
	links     map[string]id.ID // invoice number -> checkout
}

func newFakeCheckoutRepo() *fakeCheckoutRepo {
	return &fakeCheckoutRepo{
		checkouts: make(map[id.ID]*Checkout),
		links:     make(map[string]id.ID),
	}
}

func (r *fakeCheckoutRepo) Create(_ context.Context, c *Checkout) error {
	clone := *c
	r.checkouts[c.ID] = &clone
	return nil
}

func (r *fakeCheckoutRepo) GetByID(_ context.Context, checkoutID id.ID) (*Checkout, error) {
	c, ok := r.checkouts[checkoutID]
	if !ok {
		return nil, apperror.NewNotFound("checkout", checkoutID.String())
	}
	clone := *c
	clone.InvoiceNumbers = nil
	for number, owner := range r.links {
		if owner == checkoutID {
			clone.InvoiceNumbers = append(clone.InvoiceNumbers, number)
		}
	}
	sort.Strings(clone.InvoiceNumbers)
	return &clone, nil
}

func (r *fakeCheckoutRepo) Update(_ context.Context, c *Checkout) error {
	if _, ok := r.checkouts[c.ID]; !ok {
		return apperror.NewNotFound("checkout", c.ID.String())
	}
	clone := *c
	r.checkouts[c.ID] = &clone
	return nil
}

func (r *fakeCheckoutRepo) LinkInvoices(_ context.Context, checkoutID id.ID, numbers []string) error {
	for _, n := range numbers {
		if owner, ok := r.links[n]; ok && owner != checkoutID {
			return apperror.NewIntegrityConflict("invoice already linked to another checkout").
				WithDetail("invoice", n)
		}
	}
	for _, n := range numbers {
		r.links[n] = checkoutID
	}
	return nil
}

func (r *fakeCheckoutRepo) FindActiveInvoiceLinks(_ context.Context, numbers []string) ([]InvoiceLink, error) {
	var out []InvoiceLink
	for _, n := range numbers {
		owner, ok := r.links[n]
		if !ok {
			continue
		}
		c := r.checkouts[owner]
		if c.Status == StatusCancelled {
			continue
		}
		out = append(out, InvoiceLink{InvoiceNumber: n, CheckoutID: owner, Status: c.Status})
	}
	return out, nil
}

func (r *fakeCheckoutRepo) ClaimStockProcessing(_ context.Context, checkoutID id.ID, at time.Time) (bool, error) {
	c, ok := r.checkouts[checkoutID]
	if !ok || c.StockProcessed {
		return false, nil
	}
	c.StockProcessed = true
	c.StockProcessedAt = &at
	return true, nil
}

func (r *fakeCheckoutRepo) List(_ context.Context, _ ListFilter) ([]Checkout, error) {
	out := make([]Checkout, 0, len(r.checkouts))
	for _, c := range r.checkouts {
		out = append(out, *c)
	}
	return out, nil
}

type fakeInvoiceStore struct {
	byNumber  map[string]*invoice.Invoice
	processed []string
}

func newFakeInvoiceStore() *fakeInvoiceStore {
	return &fakeInvoiceStore{byNumber: make(map[string]*invoice.Invoice)}
}

func (s *fakeInvoiceStore) GetByNumber(_ context.Context, number string) (*invoice.Invoice, error) {
	inv, ok := s.byNumber[number]
	if !ok {
		return nil, apperror.NewNotFound("invoice", number)
	}
	return inv, nil
}

func (s *fakeInvoiceStore) MarkStockProcessed(_ context.Context, numbers []string) error {
	s.processed = append(s.processed, numbers...)
	return nil
}

type fakeFetcher struct {
	details map[string]invoice.Details
	calls   int
}

func (f *fakeFetcher) FetchDetails(_ context.Context, number string) (invoice.Details, error) {
	f.calls++
	d, ok := f.details[number]
	if !ok {
		return invoice.Details{}, apperror.NewNotFound("invoice", number)
	}
	return d, nil
}

// mapResolver canonicalizes through a fixed alias table; unmapped names pass
// through unchanged.
type mapResolver struct {
	aliases map[string]catalog.Resolution
}

func (r mapResolver) Resolve(_ context.Context, rawName string) (catalog.Resolution, error) {
	if res, ok := r.aliases[catalog.NormalizeKey(rawName)]; ok {
		res.Mapped = true
		return res, nil
	}
	return catalog.Resolution{Name: rawName}, nil
}

type fixture struct {
	svc       *Service
	repo      *fakeCheckoutRepo
	ledger    *memLedgerRepo
	invoices  *fakeInvoiceStore
	fetcher   *fakeFetcher
	resolver  mapResolver
	ledgerSvc *ledger.Service
}

func newFixture(t *testing.T, withFetcher bool) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newFakeCheckoutRepo(),
		ledger:   newMemLedgerRepo(),
		invoices: newFakeInvoiceStore(),
		fetcher:  &fakeFetcher{details: make(map[string]invoice.Details)},
		resolver: mapResolver{aliases: make(map[string]catalog.Resolution)},
	}
	f.ledgerSvc = ledger.NewService(f.ledger, nopTxManager{})

	var fetcher DetailFetcher
	if withFetcher {
		fetcher = f.fetcher
	}
	f.svc = NewService(f.repo, f.ledgerSvc, f.invoices, fetcher, f.resolver, nopTxManager{})
	return f
}

// seed puts enough stock on hand for checkout OUTs to pass the guard.
func (f *fixture) seed(t *testing.T, sku string, available float64) {
	t.Helper()
	_, _, err := f.ledgerSvc.Post(context.Background(), ledger.PostInput{
		SKU:      sku,
		Type:     ledger.MovementIn,
		Quantity: qty(available),
		RefType:  ledger.RefTypeManual,
	})
	require.NoError(t, err)
}

func TestCreatePostsOutMovements(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "FLT-A", 10)
	f.seed(t, "VLV-B", 10)

	c, err := f.svc.Create(context.Background(), CreateInput{
		EmployeeName: "J. Ramos",
		TruckID:      "truck-7",
		Items: []TakenItem{
			{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)},
			{Name: "Valve B", SKU: "VLV-B", Qty: qty(2)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedOut, c.Status)

	stored, err := f.repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "J. Ramos", stored.EmployeeName)

	require.Len(t, f.ledger.movements, 4) // 2 seeds + 2 checkout OUTs
	out := f.ledger.movements[2:]
	for _, m := range out {
		assert.Equal(t, ledger.MovementOut, m.Type)
		assert.Equal(t, ledger.RefTypeCheckout, m.RefType)
		assert.Equal(t, c.ID.String(), m.RefID)
		assert.Equal(t, "truck-7", m.SourceRef)
	}
	assert.Equal(t, qty(5), f.ledger.summaries["FLT-A"].AvailableQty)
	assert.Equal(t, qty(8), f.ledger.summaries["VLV-B"].AvailableQty)
}

func TestCreateCanonicalizesItemNames(t *testing.T) {
	f := newFixture(t, false)
	f.resolver.aliases["copper pipe 1/2"] = catalog.Resolution{Name: "Copper Pipe 1/2in", SKU: "CU-12"}
	f.seed(t, "CU-12", 10)

	c, err := f.svc.Create(context.Background(), CreateInput{
		EmployeeName: "J. Ramos",
		Items: []TakenItem{
			{Name: "Copper Pipe 1/2", Qty: qty(3)},
		},
	})
	require.NoError(t, err)

	last := f.ledger.movements[len(f.ledger.movements)-1]
	assert.Equal(t, "CU-12", last.SKU)
	assert.Equal(t, c.ID.String(), last.RefID)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.Create(context.Background(), CreateInput{EmployeeName: "J. Ramos"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = f.svc.Create(context.Background(), CreateInput{
		EmployeeName: "J. Ramos",
		Items:        []TakenItem{{Name: "Filter", Qty: qty(0)}},
	})
	require.Error(t, err)
	assert.Empty(t, f.ledger.movements)
}

func TestCreateGuardedByAvailableStock(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "FLT-A", 2)

	_, err := f.svc.Create(context.Background(), CreateInput{
		EmployeeName: "J. Ramos",
		Items:        []TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
}

func TestCompleteLinksInvoices(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "FLT-A", 10)
	c, err := f.svc.Create(context.Background(), CreateInput{
		EmployeeName: "J. Ramos",
		Items:        []TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
	})
	require.NoError(t, err)

	done, err := f.svc.Complete(context.Background(), c.ID, []string{" INV-100 ", "INV-101", "INV-100"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, []string{"INV-100", "INV-101"}, done.InvoiceNumbers)
	require.NotNil(t, done.CompletedAt)

	assert.Equal(t, c.ID, f.repo.links["INV-100"])
	assert.Equal(t, c.ID, f.repo.links["INV-101"])
}

func TestCompleteRejectsInvoiceLinkedElsewhere(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "FLT-A", 20)

	first, err := f.svc.Create(context.Background(), CreateInput{
		EmployeeName: "J. Ramos",
		Items:        []TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
	})
	require.NoError(t, err)
	_, err = f.svc.Complete(context.Background(), first.ID, []string{"INV-100"})
	require.NoError(t, err)

	second, err := f.svc.Create(context.Background(), CreateInput{
		EmployeeName: "M. Chen",
		Items:        []TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
	})
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), second.ID, []string{"INV-100", "INV-200"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeIntegrityConflict, appErr.Code)
	assert.Equal(t, []string{"INV-100"}, appErr.Details["conflicts"])

	// The rejected checkout must remain untouched.
	stored, err := f.repo.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedOut, stored.Status)
	_, linked := f.repo.links["INV-200"]
	assert.False(t, linked)
}

func TestCompleteRequiresCheckedOutStatus(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "FLT-A", 10)
	c, err := f.svc.Create(context.Background(), CreateInput{
		EmployeeName: "J. Ramos",
		Items:        []TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
	})
	require.NoError(t, err)
	_, err = f.svc.Complete(context.Background(), c.ID, []string{"INV-100"})
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), c.ID, []string{"INV-300"})
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func completedCheckout(t *testing.T, f *fixture, taken []TakenItem, numbers []string) *Checkout {
	t.Helper()
	c, err := f.svc.Create(context.Background(), CreateInput{
		EmployeeName: "J. Ramos",
		Items:        taken,
	})
	require.NoError(t, err)
	done, err := f.svc.Complete(context.Background(), c.ID, numbers)
	require.NoError(t, err)
	return done
}

func TestRunTallyUsesLocalInvoiceLines(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "FLT-A", 10)
	c := completedCheckout(t, f,
		[]TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
		[]string{"INV-100"})

	f.invoices.byNumber["INV-100"] = &invoice.Invoice{
		Number: "INV-100",
		Lines:  []invoice.Line{{Name: "Filter A", SKU: "FLT-A", Qty: qty(3)}},
	}

	tallied, err := f.svc.RunTally(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, tallied.Tally)
	require.Len(t, tallied.Tally.Discrepancies, 1)
	assert.Equal(t, TallyExcess, tallied.Tally.Discrepancies[0].Status)

	// Persisted, not just returned.
	stored, err := f.repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Tally)
}

func TestRunTallyFallsBackToFetcher(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t, "FLT-A", 10)
	c := completedCheckout(t, f,
		[]TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
		[]string{"INV-100"})

	f.fetcher.details["INV-100"] = invoice.Details{
		Number: "INV-100",
		Items:  []invoice.Line{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
	}

	tallied, err := f.svc.RunTally(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.fetcher.calls)
	assert.Equal(t, TallyMatched, tallied.Tally.Discrepancies[0].Status)
}

func TestRunTallyFailsWithoutDetailSource(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "FLT-A", 10)
	c := completedCheckout(t, f,
		[]TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
		[]string{"INV-404"})

	_, err := f.svc.RunTally(context.Background(), c.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeExternalDependency, appErr.Code)
}

func TestRunTallyRequiresCompletedCheckout(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "FLT-A", 10)
	c, err := f.svc.Create(context.Background(), CreateInput{
		EmployeeName: "J. Ramos",
		Items:        []TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
	})
	require.NoError(t, err)

	_, err = f.svc.RunTally(context.Background(), c.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestProcessStockPostsCompensatingMovements(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "FLT-A", 10)
	c := completedCheckout(t, f,
		[]TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
		[]string{"INV-100"})

	f.invoices.byNumber["INV-100"] = &invoice.Invoice{
		Number: "INV-100",
		Lines:  []invoice.Line{{Name: "Filter A", SKU: "FLT-A", Qty: qty(3)}},
	}
	_, err := f.svc.RunTally(context.Background(), c.ID)
	require.NoError(t, err)

	// The sale ingestion posted its own OUT(3); ledger is double decremented.
	_, _, err = f.ledgerSvc.Post(context.Background(), ledger.PostInput{
		SKU: "FLT-A", Type: ledger.MovementOut, Quantity: qty(3),
		RefType: ledger.RefTypeSale, RefID: "INV-100",
	})
	require.NoError(t, err)

	report, err := f.svc.ProcessStock(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.CompensatedIn)
	assert.Equal(t, 1, report.ConsumedOut)
	assert.Empty(t, report.Warnings)

	// seed IN(10), checkout OUT(5), sale OUT(3), compensating IN(3), consumed OUT(2)
	require.Len(t, f.ledger.movements, 5)
	compIn := f.ledger.movements[3]
	assert.Equal(t, ledger.MovementIn, compIn.Type)
	assert.Equal(t, qty(3), compIn.Quantity)
	assert.Equal(t, ledger.RefTypeReconciliation, compIn.RefType)
	consumed := f.ledger.movements[4]
	assert.Equal(t, ledger.MovementOut, consumed.Type)
	assert.Equal(t, qty(2), consumed.Quantity)

	// Net effect: 10 - 5 - 3 + 3 - 2 = 3
	assert.Equal(t, qty(3), f.ledger.summaries["FLT-A"].AvailableQty)
	assert.Equal(t, []string{"INV-100"}, f.invoices.processed)

	stored, err := f.repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, stored.StockProcessed)
	require.NotNil(t, stored.StockProcessedAt)
}

func TestProcessStockIsOneShot(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "FLT-A", 10)
	c := completedCheckout(t, f,
		[]TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
		[]string{"INV-100"})
	f.invoices.byNumber["INV-100"] = &invoice.Invoice{
		Number: "INV-100",
		Lines:  []invoice.Line{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
	}
	_, err := f.svc.RunTally(context.Background(), c.ID)
	require.NoError(t, err)

	_, err = f.svc.ProcessStock(context.Background(), c.ID)
	require.NoError(t, err)

	_, err = f.svc.ProcessStock(context.Background(), c.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestProcessStockRequiresTally(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "FLT-A", 10)
	c := completedCheckout(t, f,
		[]TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
		[]string{"INV-100"})

	_, err := f.svc.ProcessStock(context.Background(), c.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestProcessStockWarnsWhenSoldExceedsTaken(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "FLT-A", 10)
	c := completedCheckout(t, f,
		[]TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(2)}},
		[]string{"INV-100"})
	f.invoices.byNumber["INV-100"] = &invoice.Invoice{
		Number: "INV-100",
		Lines:  []invoice.Line{{Name: "Filter A", SKU: "FLT-A", Qty: qty(6)}},
	}
	_, err := f.svc.RunTally(context.Background(), c.ID)
	require.NoError(t, err)

	before := len(f.ledger.movements)
	report, err := f.svc.ProcessStock(context.Background(), c.ID)
	require.NoError(t, err)

	// Compensating IN(6) still posts; the negative used quantity only warns.
	assert.Equal(t, 1, report.CompensatedIn)
	assert.Equal(t, 0, report.ConsumedOut)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "FLT-A", report.Warnings[0].Key)
	assert.Len(t, f.ledger.movements, before+1)
}

func TestCancelIsTerminalAndKeepsMovements(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "FLT-A", 10)
	c, err := f.svc.Create(context.Background(), CreateInput{
		EmployeeName: "J. Ramos",
		Items:        []TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
	})
	require.NoError(t, err)

	before := len(f.ledger.movements)
	cancelled, err := f.svc.Cancel(context.Background(), c.ID, "wrong truck")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, "wrong truck", cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)

	// OUT movements from checkout time stay in place.
	assert.Len(t, f.ledger.movements, before)
	assert.Equal(t, qty(5), f.ledger.summaries["FLT-A"].AvailableQty)

	_, err = f.svc.Cancel(context.Background(), c.ID, "again")
	require.Error(t, err)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestCancelledCheckoutFreesInvoiceNumbers(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "FLT-A", 20)

	first, err := f.svc.Create(context.Background(), CreateInput{
		EmployeeName: "J. Ramos",
		Items:        []TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
	})
	require.NoError(t, err)
	f.repo.links["INV-100"] = first.ID
	_, err = f.svc.Cancel(context.Background(), first.ID, "abandoned")
	require.NoError(t, err)

	// Links held by a cancelled checkout are not active; the numbers are
	// reusable by a later checkout.
	links, err := f.repo.FindActiveInvoiceLinks(context.Background(), []string{"INV-100"})
	require.NoError(t, err)
	assert.Empty(t, links)

	second, err := f.svc.Create(context.Background(), CreateInput{
		EmployeeName: "M. Chen",
		Items:        []TakenItem{{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)}},
	})
	require.NoError(t, err)
	_, err = f.svc.Complete(context.Background(), second.ID, []string{"INV-100"})
	require.Error(t, err) // the fake's link map still holds the row, as the real table would
	assert.True(t, apperror.IsIntegrityConflict(err))
}

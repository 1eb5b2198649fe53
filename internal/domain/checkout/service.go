package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/core/tx"
	"fieldstock/internal/domain/catalog"
	"fieldstock/internal/domain/invoice"
	"fieldstock/internal/domain/ledger"
	"fieldstock/pkg/logger"
)

// InvoiceStore reads locally ingested invoices and flags them once their
// movements are reconciled.
type InvoiceStore interface {
	GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error)
	MarkStockProcessed(ctx context.Context, numbers []string) error
}

// DetailFetcher is the external collaborator that resolves invoice line
// items when the local store has no detailed record.
type DetailFetcher interface {
	FetchDetails(ctx context.Context, number string) (invoice.Details, error)
}

// Service drives the checkout lifecycle and the reconciliation of items
// taken for field work against items actually sold.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	invoices  InvoiceStore
	fetcher   DetailFetcher // optional; nil when no remote resolver is configured
	canon     catalog.Resolver
	txManager tx.Manager
}

// NewService creates a new checkout service.
func NewService(
	repo Repository,
	ledgerSvc *ledger.Service,
	invoices InvoiceStore,
	fetcher DetailFetcher,
	canon catalog.Resolver,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerSvc,
		invoices:  invoices,
		fetcher:   fetcher,
		canon:     canon,
		txManager: txManager,
	}
}

// CreateInput describes a new checkout request.
type CreateInput struct {
	EmployeeName string
	TruckID      string
	Items        []TakenItem
}

// Create opens a checkout and immediately posts one OUT movement per item.
// The checkout row and all ledger posts commit in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Checkout, error) {
	c := New(strings.TrimSpace(in.EmployeeName), strings.TrimSpace(in.TruckID), in.Items)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	posts := make([]ledger.PostInput, 0, len(c.ItemsTaken))
	for _, item := range c.ItemsTaken {
		sku, err := s.ledgerKey(ctx, item.Name, item.SKU)
		if err != nil {
			return nil, err
		}
		posts = append(posts, ledger.PostInput{
			SKU:       sku,
			Type:      ledger.MovementOut,
			Quantity:  item.Qty,
			RefType:   ledger.RefTypeCheckout,
			RefID:     c.ID.String(),
			SourceRef: c.TruckID,
			Notes:     fmt.Sprintf("checkout by %s", c.EmployeeName),
		})
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, c); err != nil {
			return fmt.Errorf("create checkout: %w", err)
		}
		if _, err := s.ledger.PostAll(ctx, posts); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "checkout created",
		"checkout_id", c.ID,
		"employee", c.EmployeeName,
		"items", len(c.ItemsTaken),
	)
	return c, nil
}

// Complete links invoice numbers to a checked_out checkout.
// Rejects with an integrity conflict, listing every conflicting number, when
// any number is already linked to another active checkout; the checkout is
// left unmutated in that case.
func (s *Service) Complete(ctx context.Context, checkoutID id.ID, invoiceNumbers []string) (*Checkout, error) {
	numbers := normalizeNumbers(invoiceNumbers)
	if len(numbers) == 0 {
		return nil, apperror.NewValidation("at least one invoice number is required").
			WithDetail("field", "invoiceNumbers")
	}

	c, err := s.repo.GetByID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusCheckedOut {
		return nil, apperror.NewStateConflict("checkout can only be completed from checked_out").
			WithDetail("checkout_id", checkoutID.String()).
			WithDetail("status", string(c.Status))
	}

	// Pre-check for numbers claimed by other active checkouts. The unique
	// constraint behind LinkInvoices closes the read-then-decide race window.
	links, err := s.repo.FindActiveInvoiceLinks(ctx, numbers)
	if err != nil {
		return nil, fmt.Errorf("check invoice links: %w", err)
	}
	var conflicts []string
	for _, link := range links {
		if link.CheckoutID != checkoutID {
			conflicts = append(conflicts, link.InvoiceNumber)
		}
	}
	if len(conflicts) > 0 {
		return nil, apperror.NewIntegrityConflict("invoice numbers already linked to another active checkout").
			WithDetail("conflicts", conflicts)
	}

	if err := c.MarkCompleted(numbers); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.LinkInvoices(ctx, checkoutID, numbers); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, c); err != nil {
			return fmt.Errorf("update checkout: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "checkout completed",
		"checkout_id", checkoutID,
		"invoices", numbers,
	)
	return c, nil
}

// RunTally computes the taken-vs-sold comparison for a completed checkout.
// Line items are resolved locally when the invoice store has them, otherwise
// through the external detail fetcher. Re-running overwrites the prior result.
func (s *Service) RunTally(ctx context.Context, checkoutID id.ID) (*Checkout, error) {
	c, err := s.repo.GetByID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if err := c.CanTally(); err != nil {
		return nil, err
	}

	var sold []invoice.Line
	for _, number := range c.InvoiceNumbers {
		lines, err := s.resolveLines(ctx, number)
		if err != nil {
			return nil, err
		}
		sold = append(sold, lines...)
	}

	tally := BuildTally(c.ItemsTaken, sold)
	c.Tally = &tally
	c.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("save tally: %w", err)
	}

	logger.Info(ctx, "checkout tallied",
		"checkout_id", checkoutID,
		"keys", len(tally.Discrepancies),
	)
	return c, nil
}

// resolveLines returns the sold line items for one invoice number.
func (s *Service) resolveLines(ctx context.Context, number string) ([]invoice.Line, error) {
	inv, err := s.invoices.GetByNumber(ctx, number)
	if err == nil && len(inv.Lines) > 0 {
		return inv.Lines, nil
	}
	if err != nil && !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("get invoice %s: %w", number, err)
	}

	if s.fetcher == nil {
		return nil, apperror.NewExternalDependency("invoice detail",
			fmt.Errorf("invoice %s has no local detail and no fetcher is configured", number)).
			WithDetail("invoice", number)
	}

	details, err := s.fetcher.FetchDetails(ctx, number)
	if err != nil {
		return nil, apperror.NewExternalDependency("invoice detail", err).
			WithDetail("invoice", number)
	}
	return details.Items, nil
}

// ProcessReport summarizes the compensating movements of one stock processing run.
type ProcessReport struct {
	CheckoutID id.ID `json:"checkoutId"`

	// CompensatedIn counts IN movements posted to reverse double decrements
	CompensatedIn int `json:"compensatedIn"`

	// ConsumedOut counts OUT movements for items used in service
	ConsumedOut int `json:"consumedOut"`

	// Warnings lists data-quality findings that produced no movement:
	// keys where more was sold than taken (negative used quantity).
	Warnings []TallyLine `json:"warnings,omitempty"`
}

// ProcessStock posts compensating ledger entries for a tallied checkout.
//
// Each line was already decremented once when the checkout posted its OUT
// and again when the sale was ingested; the IN(quantitySold) reverses that
// double count. Items taken but not sold were consumed in service and get an
// OUT they never otherwise received. The whole run is a one-shot: the gate
// flip, every movement and the invoice flags commit together.
func (s *Service) ProcessStock(ctx context.Context, checkoutID id.ID) (*ProcessReport, error) {
	c, err := s.repo.GetByID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if err := c.CanProcessStock(); err != nil {
		return nil, err
	}

	report := &ProcessReport{CheckoutID: checkoutID}
	now := time.Now().UTC()

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		claimed, err := s.repo.ClaimStockProcessing(ctx, checkoutID, now)
		if err != nil {
			return fmt.Errorf("claim stock processing: %w", err)
		}
		if !claimed {
			return apperror.NewStateConflict("stock already processed for this checkout").
				WithDetail("checkout_id", checkoutID.String())
		}

		for _, line := range c.Tally.Discrepancies {
			sku, err := s.ledgerKey(ctx, line.Name, line.SKU)
			if err != nil {
				return err
			}
			if sku == "" {
				sku = line.Key
			}

			if line.QuantitySold.IsPositive() {
				post := ledger.PostInput{
					SKU:           sku,
					Type:          ledger.MovementIn,
					Quantity:      line.QuantitySold,
					RefType:       ledger.RefTypeReconciliation,
					RefID:         checkoutID.String(),
					Notes:         "compensate sale double decrement",
					AllowNegative: true,
				}
				if _, _, err := s.ledger.Post(ctx, post); err != nil {
					return err
				}
				report.CompensatedIn++
			}

			used := line.QuantityTaken - line.QuantitySold
			switch {
			case used.IsPositive():
				post := ledger.PostInput{
					SKU:           sku,
					Type:          ledger.MovementOut,
					Quantity:      used,
					RefType:       ledger.RefTypeReconciliation,
					RefID:         checkoutID.String(),
					Notes:         "consumed in service",
					AllowNegative: true,
				}
				if _, _, err := s.ledger.Post(ctx, post); err != nil {
					return err
				}
				report.ConsumedOut++
			case used.IsNegative():
				// Sold more than taken. No compensating movement; recorded
				// as a data-quality warning for follow-up.
				logger.Warn(ctx, "sold more than taken during stock processing",
					"checkout_id", checkoutID,
					"key", line.Key,
					"taken", line.QuantityTaken.Float64(),
					"sold", line.QuantitySold.Float64(),
				)
				report.Warnings = append(report.Warnings, line)
			}
		}

		if len(c.InvoiceNumbers) > 0 {
			if err := s.invoices.MarkStockProcessed(ctx, c.InvoiceNumbers); err != nil {
				return fmt.Errorf("mark invoices processed: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.StockProcessed = true
	c.StockProcessedAt = &now

	logger.Info(ctx, "checkout stock processed",
		"checkout_id", checkoutID,
		"compensated_in", report.CompensatedIn,
		"consumed_out", report.ConsumedOut,
		"warnings", len(report.Warnings),
	)
	return report, nil
}

// Cancel terminates a checked_out checkout. Checkout-time OUT movements are
// not reversed; the stock stays decremented until manually adjusted.
func (s *Service) Cancel(ctx context.Context, checkoutID id.ID, reason string) (*Checkout, error) {
	c, err := s.repo.GetByID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if err := c.MarkCancelled(reason); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update checkout: %w", err)
	}

	logger.Info(ctx, "checkout cancelled",
		"checkout_id", checkoutID,
		"reason", reason,
	)
	return c, nil
}

// GetByID retrieves a checkout.
func (s *Service) GetByID(ctx context.Context, checkoutID id.ID) (*Checkout, error) {
	return s.repo.GetByID(ctx, checkoutID)
}

// List retrieves checkouts with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Checkout, error) {
	return s.repo.List(ctx, filter)
}

// ledgerKey canonicalizes an item and returns the SKU its ledger posts
// accumulate under.
func (s *Service) ledgerKey(ctx context.Context, name, sku string) (string, error) {
	raw := name
	if raw == "" {
		raw = sku
	}
	res, err := s.canon.Resolve(ctx, raw)
	if err != nil {
		return "", apperror.NewExternalDependency("canonicalization", err).
			WithDetail("item", raw)
	}
	if res.SKU != "" {
		return res.SKU, nil
	}
	if sku = strings.TrimSpace(sku); sku != "" {
		return sku, nil
	}
	return res.Name, nil
}

func normalizeNumbers(numbers []string) []string {
	seen := make(map[string]struct{}, len(numbers))
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

package syncrun

import (
	"context"
	"fmt"
	"time"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
	"fieldstock/internal/core/tx"
	"fieldstock/internal/domain/catalog"
	"fieldstock/internal/domain/invoice"
	"fieldstock/internal/domain/ledger"
	"fieldstock/pkg/logger"
)

// Service coordinates ingestion sessions: it opens a run record, upserts
// each normalized record by its natural key, posts sale movements for
// first-seen invoices and closes the run with an outcome.
type Service struct {
	runs      Repository
	invoices  invoice.Repository
	ledger    *ledger.Service
	canon     catalog.Resolver
	txManager tx.Manager
}

// NewService creates a new sync coordinator.
func NewService(
	runs Repository,
	invoices invoice.Repository,
	ledgerSvc *ledger.Service,
	canon catalog.Resolver,
	txManager tx.Manager,
) *Service {
	return &Service{
		runs:      runs,
		invoices:  invoices,
		ledger:    ledgerSvc,
		canon:     canon,
		txManager: txManager,
	}
}

// StartFetch opens a RUNNING run record for an ingestion session.
func (s *Service) StartFetch(ctx context.Context, source, kind, params string) (*SyncRun, error) {
	run := NewSyncRun(source, kind, params)
	if err := run.Validate(); err != nil {
		return nil, err
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create sync run: %w", err)
	}

	logger.Info(ctx, "sync run started",
		"run_id", run.ID,
		"source", run.Source,
		"kind", run.Kind,
	)
	return run, nil
}

// RecordFailure records one failed record of an ingestion batch.
type RecordFailure struct {
	Number string `json:"number"`
	Error  string `json:"error"`
}

// IngestResult summarizes a batch ingestion.
type IngestResult struct {
	Counts   Counts          `json:"counts"`
	Failures []RecordFailure `json:"failures,omitempty"`
}

// Ingest upserts a batch of normalized invoices under a running session.
// Best-effort per record: a failed record is counted and collected while the
// rest continue. Repeated runs are idempotent at the record level: the upsert
// overwrites payload fields by natural key and never clears locally-set
// processing flags, and sale movements post only when a record is first seen.
func (s *Service) Ingest(ctx context.Context, runID id.ID, records []invoice.Invoice) (*IngestResult, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != StatusRunning {
		return nil, apperror.NewStateConflict("sync run is not running").
			WithDetail("run_id", runID.String()).
			WithDetail("status", string(run.Status))
	}

	result := &IngestResult{}
	result.Counts.Found = len(records)

	for i := range records {
		rec := records[i]
		outcome, err := s.ingestOne(ctx, run, &rec)
		if err != nil {
			result.Counts.Failed++
			result.Failures = append(result.Failures, RecordFailure{
				Number: rec.Number,
				Error:  err.Error(),
			})
			logger.Warn(ctx, "record ingestion failed",
				"run_id", runID,
				"invoice", rec.Number,
				"error", err,
			)
			continue
		}
		if outcome == invoice.UpsertInserted {
			result.Counts.Inserted++
		} else {
			result.Counts.Updated++
		}
	}

	run.Counts.Found += result.Counts.Found
	run.Counts.Inserted += result.Counts.Inserted
	run.Counts.Updated += result.Counts.Updated
	run.Counts.Failed += result.Counts.Failed
	if err := s.runs.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("update sync run: %w", err)
	}

	return result, nil
}

// ingestOne validates and upserts one record, posting its sale movements
// when the invoice is seen for the first time.
func (s *Service) ingestOne(ctx context.Context, run *SyncRun, rec *invoice.Invoice) (invoice.UpsertOutcome, error) {
	if rec.Source == "" {
		rec.Source = run.Source
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}
	rec.FetchedAt = time.Now().UTC()

	var outcome invoice.UpsertOutcome
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		outcome, err = s.invoices.Upsert(ctx, rec)
		if err != nil {
			return fmt.Errorf("upsert invoice: %w", err)
		}

		// First sight of a sale decrements stock. Updates do not re-post:
		// the movements already exist from the original insert.
		if outcome == invoice.UpsertInserted {
			if err := s.postSaleMovements(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// postSaleMovements posts one OUT per invoice line, canonicalized so that
// the same physical item entered under different names accumulates onto one
// ledger SKU.
func (s *Service) postSaleMovements(ctx context.Context, rec *invoice.Invoice) error {
	posts := make([]ledger.PostInput, 0, len(rec.Lines))
	for _, line := range rec.Lines {
		res, err := s.canon.Resolve(ctx, line.Name)
		if err != nil {
			return apperror.NewExternalDependency("canonicalization", err).
				WithDetail("item", line.Name)
		}
		sku := res.SKU
		if sku == "" {
			sku = line.Key()
		}
		posts = append(posts, ledger.PostInput{
			SKU:        sku,
			Type:       ledger.MovementOut,
			Quantity:   line.Qty,
			RefType:    ledger.RefTypeSale,
			RefID:      rec.Number,
			SourceRef:  rec.Source,
			OccurredAt: rec.IssuedAt,
			// The sale already happened; the ledger records external truth.
			AllowNegative: true,
		})
	}
	if len(posts) == 0 {
		return nil
	}
	_, err := s.ledger.PostAll(ctx, posts)
	return err
}

// Complete closes a running session with its outcome.
func (s *Service) Complete(ctx context.Context, runID id.ID, success bool, message string) (*SyncRun, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := run.Finish(success, message); err != nil {
		return nil, err
	}
	if err := s.runs.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("update sync run: %w", err)
	}

	logger.Info(ctx, "sync run finished",
		"run_id", runID,
		"status", string(run.Status),
		"found", run.Counts.Found,
		"inserted", run.Counts.Inserted,
		"updated", run.Counts.Updated,
		"failed", run.Counts.Failed,
	)
	return run, nil
}

// GetByID retrieves a run.
func (s *Service) GetByID(ctx context.Context, runID id.ID) (*SyncRun, error) {
	return s.runs.GetByID(ctx, runID)
}

// List retrieves runs with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]SyncRun, error) {
	return s.runs.List(ctx, filter)
}

// Package syncrun records external ingestion sessions and coordinates
// idempotent upserts of the records they produce.
package syncrun

import (
	"strings"
	"time"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
)

// Status is the outcome of an ingestion run.
type Status string

const (
	StatusRunning Status = "RUNNING"
	StatusSuccess Status = "SUCCESS"
	StatusPartial Status = "PARTIAL"
	StatusFailed  Status = "FAILED"
)

// Counts tallies what one run did at the record level.
type Counts struct {
	Found    int `db:"found" json:"found"`
	Inserted int `db:"inserted" json:"inserted"`
	Updated  int `db:"updated" json:"updated"`
	Failed   int `db:"failed" json:"failed"`
}

// SyncRun is one ingestion session, append-only. Two runs for the same
// source may overlap; no mutual exclusion is enforced here. A run abandoned
// mid-flight stays RUNNING until externally reconciled.
type SyncRun struct {
	ID id.ID `db:"id" json:"id"`

	Source string `db:"source" json:"source"`
	Kind   string `db:"kind" json:"kind"`
	Params string `db:"params" json:"params,omitempty"`

	StartedAt time.Time  `db:"started_at" json:"startedAt"`
	EndedAt   *time.Time `db:"ended_at" json:"endedAt,omitempty"`

	Status Status `db:"status" json:"status"`
	Counts Counts `db:"-" json:"counts"`

	Message string `db:"message" json:"message,omitempty"`
}

// NewSyncRun opens a RUNNING run record.
func NewSyncRun(source, kind, params string) *SyncRun {
	return &SyncRun{
		ID:        id.New(),
		Source:    strings.TrimSpace(source),
		Kind:      strings.TrimSpace(kind),
		Params:    params,
		StartedAt: time.Now().UTC(),
		Status:    StatusRunning,
	}
}

// Validate checks run invariants.
func (r *SyncRun) Validate() error {
	if r.Source == "" {
		return apperror.NewValidation("source is required").WithDetail("field", "source")
	}
	if r.Kind == "" {
		return apperror.NewValidation("kind is required").WithDetail("field", "kind")
	}
	return nil
}

// Finish closes the run. FAILED when the run itself errored; otherwise
// PARTIAL when some records failed, SUCCESS when none did.
func (r *SyncRun) Finish(success bool, message string) error {
	if r.Status != StatusRunning {
		return apperror.NewStateConflict("sync run already finished").
			WithDetail("run_id", r.ID.String()).
			WithDetail("status", string(r.Status))
	}
	now := time.Now().UTC()
	r.EndedAt = &now
	r.Message = message

	switch {
	case !success:
		r.Status = StatusFailed
	case r.Counts.Failed > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusSuccess
	}
	return nil
}

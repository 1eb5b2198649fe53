package dto

import (
	"time"

	"fieldstock/internal/core/types"
	"fieldstock/internal/domain/ledger"
)

// PostMovementRequest records a manual ledger entry.
type PostMovementRequest struct {
	SKU        string         `json:"sku" binding:"required"`
	Type       string         `json:"type" binding:"required"`
	Quantity   types.Quantity `json:"quantity" binding:"required"`
	AdjustSign int16          `json:"adjustSign,omitempty"`
	RefID      string         `json:"refId,omitempty"`
	SourceRef  string         `json:"sourceRef,omitempty"`
	OccurredAt *time.Time     `json:"occurredAt,omitempty"`
	Notes      string         `json:"notes,omitempty"`
}

// ToPostInput converts the request into a manual post input.
func (r *PostMovementRequest) ToPostInput() ledger.PostInput {
	in := ledger.PostInput{
		SKU:        r.SKU,
		Type:       ledger.MovementType(r.Type),
		Quantity:   r.Quantity,
		AdjustSign: r.AdjustSign,
		RefType:    ledger.RefTypeManual,
		RefID:      r.RefID,
		SourceRef:  r.SourceRef,
		Notes:      r.Notes,
	}
	if r.OccurredAt != nil {
		in.OccurredAt = *r.OccurredAt
	}
	return in
}

// PostMovementResponse returns the appended entry and resulting summary.
type PostMovementResponse struct {
	Movement ledger.Movement `json:"movement"`
	Summary  ledger.Summary  `json:"summary"`
}

// RebuildResponse reports a summary rebuild or verification.
type RebuildResponse struct {
	SKU             string         `json:"sku"`
	Prior           ledger.Summary `json:"prior"`
	Rebuilt         ledger.Summary `json:"rebuilt"`
	Drifted         bool           `json:"drifted"`
	ReplayedEntries int64          `json:"replayedEntries"`
}

// FromRebuildResult maps a rebuild outcome.
func FromRebuildResult(r ledger.RebuildResult) RebuildResponse {
	return RebuildResponse{
		SKU:             r.SKU,
		Prior:           r.Prior,
		Rebuilt:         r.Rebuilt,
		Drifted:         r.Drifted,
		ReplayedEntries: r.Replayed.Count,
	}
}

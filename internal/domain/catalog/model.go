// Package catalog provides item alias canonicalization: mapping the many
// external names and SKUs a physical item arrives under onto one ledger SKU.
package catalog

import (
	"strings"
	"time"

	"fieldstock/internal/core/apperror"
	"fieldstock/internal/core/id"
)

// Alias maps one raw external item name onto a canonical item.
type Alias struct {
	ID id.ID `db:"id" json:"id"`

	// Alias is the raw name as it appears in external records
	Alias string `db:"alias" json:"alias"`

	CanonicalName string `db:"canonical_name" json:"canonicalName"`
	SKU           string `db:"sku" json:"sku"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate checks alias invariants.
func (a *Alias) Validate() error {
	if strings.TrimSpace(a.Alias) == "" {
		return apperror.NewValidation("alias is required").WithDetail("field", "alias")
	}
	if strings.TrimSpace(a.CanonicalName) == "" && strings.TrimSpace(a.SKU) == "" {
		return apperror.NewValidation("alias requires a canonical name or sku")
	}
	return nil
}

// NormalizeKey folds an alias lookup key: trimmed, case-insensitive.
func NormalizeKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Resolution is the result of canonicalizing a raw item name.
type Resolution struct {
	// Name is the canonical item name (the raw input when unmapped)
	Name string `json:"name"`

	// SKU is the canonical ledger SKU; empty when unmapped and no SKU was supplied
	SKU string `json:"sku,omitempty"`

	// Mapped reports whether an alias matched
	Mapped bool `json:"mapped"`
}

// LedgerKey returns the key ledger posts should accumulate under:
// SKU when known, canonical name otherwise.
func (r Resolution) LedgerKey() string {
	if r.SKU != "" {
		return r.SKU
	}
	return r.Name
}

package dto

// UpsertAliasRequest maps a raw item name to its canonical identity.
type UpsertAliasRequest struct {
	Alias         string `json:"alias" binding:"required"`
	CanonicalName string `json:"canonicalName" binding:"required"`
	SKU           string `json:"sku,omitempty"`
}

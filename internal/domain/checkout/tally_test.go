package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldstock/internal/core/types"
	"fieldstock/internal/domain/invoice"
)

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func TestBuildTallyMatchedExcessShortage(t *testing.T) {
	taken := []TakenItem{
		{Name: "Filter A", SKU: "FLT-A", Qty: qty(5)},
		{Name: "Valve B", SKU: "VLV-B", Qty: qty(2)},
		{Name: "Pipe C", SKU: "PIP-C", Qty: qty(1)},
	}
	sold := []invoice.Line{
		{Name: "Filter A", SKU: "FLT-A", Qty: qty(3)},
		{Name: "Valve B", SKU: "VLV-B", Qty: qty(2)},
		{Name: "Pipe C", SKU: "PIP-C", Qty: qty(4)},
	}

	result := BuildTally(taken, sold)
	require.Len(t, result.Discrepancies, 3)

	byKey := make(map[string]TallyLine)
	for _, line := range result.Discrepancies {
		byKey[line.Key] = line
	}

	excess := byKey["FLT-A"]
	assert.Equal(t, TallyExcess, excess.Status)
	assert.Equal(t, qty(2), excess.Difference)

	matched := byKey["VLV-B"]
	assert.Equal(t, TallyMatched, matched.Status)
	assert.True(t, matched.Difference.IsZero())

	shortage := byKey["PIP-C"]
	assert.Equal(t, TallyShortage, shortage.Status)
	assert.Equal(t, qty(-3), shortage.Difference)
}

func TestBuildTallyMergesAcrossInvoices(t *testing.T) {
	taken := []TakenItem{
		{Name: "Widget X", SKU: "X", Qty: qty(5)},
	}
	// Same key sold on two invoices: quantities sum before comparison.
	sold := []invoice.Line{
		{Name: "Widget X", SKU: "X", Qty: qty(2)},
		{Name: "Widget X", SKU: "X", Qty: qty(3)},
	}

	result := BuildTally(taken, sold)
	require.Len(t, result.Discrepancies, 1)

	line := result.Discrepancies[0]
	assert.Equal(t, qty(5), line.QuantitySold)
	assert.Equal(t, TallyMatched, line.Status)

	require.Len(t, result.ItemsSold, 1)
	assert.Equal(t, qty(5), result.ItemsSold[0].Qty)
}

func TestBuildTallyUnionOfKeys(t *testing.T) {
	taken := []TakenItem{
		{Name: "Only Taken", SKU: "TKN", Qty: qty(1)},
	}
	sold := []invoice.Line{
		{Name: "Only Sold", SKU: "SLD", Qty: qty(2)},
	}

	result := BuildTally(taken, sold)
	require.Len(t, result.Discrepancies, 2)

	// Keys come out sorted.
	assert.Equal(t, "SLD", result.Discrepancies[0].Key)
	assert.Equal(t, "TKN", result.Discrepancies[1].Key)

	onlySold := result.Discrepancies[0]
	assert.Equal(t, TallyShortage, onlySold.Status)
	assert.True(t, onlySold.QuantityTaken.IsZero())

	onlyTaken := result.Discrepancies[1]
	assert.Equal(t, TallyExcess, onlyTaken.Status)
	assert.True(t, onlyTaken.QuantitySold.IsZero())
}

func TestBuildTallyKeyFallsBackToName(t *testing.T) {
	taken := []TakenItem{
		{Name: "no-sku item", Qty: qty(2)},
	}
	sold := []invoice.Line{
		{Name: "no-sku item", Qty: qty(2)},
	}

	result := BuildTally(taken, sold)
	require.Len(t, result.Discrepancies, 1)
	assert.Equal(t, "no-sku item", result.Discrepancies[0].Key)
	assert.Equal(t, TallyMatched, result.Discrepancies[0].Status)
}

func TestBuildTallyFractionalQuantities(t *testing.T) {
	taken := []TakenItem{
		{Name: "Hose", SKU: "HSE", Qty: qty(2.5)},
	}
	sold := []invoice.Line{
		{Name: "Hose", SKU: "HSE", Qty: qty(1.25)},
	}

	result := BuildTally(taken, sold)
	require.Len(t, result.Discrepancies, 1)
	assert.Equal(t, qty(1.25), result.Discrepancies[0].Difference)
	assert.Equal(t, TallyExcess, result.Discrepancies[0].Status)
}

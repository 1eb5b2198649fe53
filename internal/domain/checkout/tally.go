package checkout

import (
	"sort"
	"time"

	"fieldstock/internal/core/types"
	"fieldstock/internal/domain/invoice"
)

// BuildTally computes the taken-vs-sold comparison.
//
// Both sides group by key = SKU, falling back to name when SKU is absent,
// summing quantities across invoices and across duplicate keys within one
// invoice. The discrepancy set is the union of taken and sold keys; per key,
// difference = quantityTaken - quantitySold.
func BuildTally(taken []TakenItem, sold []invoice.Line) TallyResult {
	type bucket struct {
		name string
		sku  string
		qty  int64
	}

	takenBy := make(map[string]*bucket)
	for _, item := range taken {
		key := item.Key()
		if key == "" {
			continue
		}
		b, ok := takenBy[key]
		if !ok {
			b = &bucket{name: item.Name, sku: item.SKU}
			takenBy[key] = b
		}
		b.qty += item.Qty.Int64Scaled()
	}

	soldBy := make(map[string]*bucket)
	for _, line := range sold {
		key := line.Key()
		if key == "" {
			continue
		}
		b, ok := soldBy[key]
		if !ok {
			b = &bucket{name: line.Name, sku: line.SKU}
			soldBy[key] = b
		}
		b.qty += line.Qty.Int64Scaled()
	}

	keys := make(map[string]struct{}, len(takenBy)+len(soldBy))
	for k := range takenBy {
		keys[k] = struct{}{}
	}
	for k := range soldBy {
		keys[k] = struct{}{}
	}

	ordered := make([]string, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	result := TallyResult{
		ItemsTaken:    make([]TallyItem, 0, len(takenBy)),
		ItemsSold:     make([]TallyItem, 0, len(soldBy)),
		Discrepancies: make([]TallyLine, 0, len(ordered)),
		ComputedAt:    time.Now().UTC(),
	}

	for _, key := range ordered {
		var takenQty, soldQty int64
		var name, sku string

		if b, ok := takenBy[key]; ok {
			takenQty = b.qty
			name, sku = b.name, b.sku
			result.ItemsTaken = append(result.ItemsTaken, TallyItem{
				Key: key, Name: b.name, SKU: b.sku,
				Qty: quantity(b.qty),
			})
		}
		if b, ok := soldBy[key]; ok {
			soldQty = b.qty
			if name == "" {
				name = b.name
			}
			if sku == "" {
				sku = b.sku
			}
			result.ItemsSold = append(result.ItemsSold, TallyItem{
				Key: key, Name: b.name, SKU: b.sku,
				Qty: quantity(b.qty),
			})
		}

		diff := takenQty - soldQty
		line := TallyLine{
			Key:           key,
			Name:          name,
			SKU:           sku,
			QuantityTaken: quantity(takenQty),
			QuantitySold:  quantity(soldQty),
			Difference:    quantity(diff),
		}
		switch {
		case diff == 0:
			line.Status = TallyMatched
		case diff > 0:
			line.Status = TallyExcess
		default:
			line.Status = TallyShortage
		}
		result.Discrepancies = append(result.Discrepancies, line)
	}

	return result
}

func quantity(scaled int64) types.Quantity {
	return types.NewQuantityFromInt64Scaled(scaled)
}

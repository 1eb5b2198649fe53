// Package reports provides read-only aggregate queries over the domain stores.
package reports

import (
	"time"

	"fieldstock/internal/core/types"
)

// DateRange bounds an aggregate query.
type DateRange struct {
	From time.Time
	To   time.Time
}

// DiscrepancyStatsRow is one (status, type) aggregate.
type DiscrepancyStatsRow struct {
	Status          string         `db:"status" json:"status"`
	Type            string         `db:"discrepancy_type" json:"discrepancyType"`
	Count           int64          `db:"row_count" json:"count"`
	TotalDifference types.Quantity `db:"total_difference" json:"totalDifference"`
}

// CheckoutStatsRow is one (employee, status) aggregate.
type CheckoutStatsRow struct {
	EmployeeName string `db:"employee_name" json:"employeeName"`
	Status       string `db:"status" json:"status"`
	Count        int64  `db:"row_count" json:"count"`
}

// MovementTurnoverRow sums ledger quantities per movement type for one SKU.
type MovementTurnoverRow struct {
	Type     string         `db:"movement_type" json:"type"`
	Quantity types.Quantity `db:"total_quantity" json:"quantity"`
	Count    int64          `db:"row_count" json:"count"`
}

package models

import "time"

// MaterialConsumption is the planned-vs-actual quantity row for one
// (order, material) pair. At most one row exists per pair; a second write is
// an update, not a duplicate.
type MaterialConsumption struct {
	OrderID         int64     `json:"order_id" db:"order_id"`
	MaterialID      int64     `json:"material_id" db:"material_id"`
	PlannedQty      float64   `json:"planned_qty" db:"planned_qty"`
	ActualQty       float64   `json:"actual_qty" db:"actual_qty"`
	ConsumptionDate time.Time `json:"consumption_date" db:"consumption_date"`
	VarianceReason  *string   `json:"variance_reason,omitempty" db:"variance_reason"`
}

// ConsumptionVariance is the reconciliation projection for one material of an
// order. Cost uses the catalog unit price at query time, so historical
// reports reflect current pricing.
type ConsumptionVariance struct {
	OrderID      int64    `json:"order_id" db:"order_id"`
	MaterialID   int64    `json:"material_id" db:"material_id"`
	MaterialName string   `json:"material_name" db:"material_name"`
	Unit         string   `json:"unit" db:"unit"`
	PlannedQty   float64  `json:"planned_qty" db:"planned_qty"`
	ActualQty    float64  `json:"actual_qty" db:"actual_qty"`
	Variance     float64  `json:"variance" db:"variance"`
	VariancePct  *float64 `json:"variance_pct" db:"variance_pct"` // null when planned = 0
	Cost         float64  `json:"cost" db:"cost"`
	Reason       *string  `json:"variance_reason,omitempty" db:"variance_reason"`
}

package models

import "time"

// AgingRow is one open invoice of the receivables aging report, bucketed by
// days overdue.
type AgingRow struct {
	InvoiceID     int64      `json:"invoice_id" db:"invoice_id"`
	InvoiceNumber string     `json:"invoice_number" db:"invoice_number"`
	ClientName    string     `json:"client_name" db:"client_name"`
	DueDate       *time.Time `json:"due_date,omitempty" db:"due_date"`
	TotalAmount   float64    `json:"total_amount" db:"total_amount"`
	Balance       float64    `json:"balance" db:"balance"`
	DaysOverdue   int        `json:"days_overdue" db:"days_overdue"`
	Bucket        string     `json:"bucket" db:"bucket"` // current, 1-30, 31-60, 61-90, 90+
}

// CashFlowRow aggregates collected payments per day.
type CashFlowRow struct {
	PaymentDate  time.Time `json:"payment_date" db:"payment_date"`
	PaymentCount int       `json:"payment_count" db:"payment_count"`
	TotalAmount  float64   `json:"total_amount" db:"total_amount"`
}

// BilledVsCollectedRow compares issued invoice totals against collected
// payments per month.
type BilledVsCollectedRow struct {
	Month     string  `json:"month" db:"month"` // YYYY-MM
	Billed    float64 `json:"billed" db:"billed"`
	Collected float64 `json:"collected" db:"collected"`
}

// PendingDelivery is an undelivered order with its delivery urgency.
type PendingDelivery struct {
	OrderID              int64      `json:"order_id" db:"order_id"`
	ClientName           string     `json:"client_name" db:"client_name"`
	ProductName          string     `json:"product_name" db:"product_name"`
	Status               string     `json:"status" db:"status"`
	PromisedDeliveryDate *time.Time `json:"promised_delivery_date,omitempty" db:"promised_delivery_date"`
	DaysLate             *int       `json:"days_late,omitempty" db:"days_late"`
	Urgency              string     `json:"urgency" db:"urgency"` // late, today, urgent, ok
}

// CriticalStockRow is a material below its minimum stock with the cost to
// restock it at the current unit price.
type CriticalStockRow struct {
	MaterialID   int64   `json:"material_id" db:"material_id"`
	Name         string  `json:"name" db:"name"`
	Unit         string  `json:"unit" db:"unit"`
	CurrentStock float64 `json:"current_stock" db:"current_stock"`
	MinStock     float64 `json:"min_stock" db:"min_stock"`
	QtyToRestock float64 `json:"qty_to_restock" db:"qty_to_restock"`
	RestockCost  float64 `json:"restock_cost" db:"restock_cost"`
}

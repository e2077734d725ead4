package models

import "time"

// Order statuses. The order status is operator-set (through the orchestrator),
// never derived from stage or invoice state; reporting layers may suggest a
// status but the stored value is authoritative.
const (
	OrderStatusPending          = "pending"
	OrderStatusInProduction     = "in_production"
	OrderStatusAwaitingMaterial = "awaiting_material"
	OrderStatusCompleted        = "completed"
	OrderStatusDelivered        = "delivered"
	OrderStatusCancelled        = "cancelled"
)

// Order is a confirmed unit of work for a client, created from an approved
// budget. Orders are never deleted, only cancelled.
type Order struct {
	ID                   int64      `json:"id" db:"id"`
	BudgetID             *int64     `json:"budget_id,omitempty" db:"budget_id"`
	ClientID             int64      `json:"client_id" db:"client_id"`
	ProductID            int64      `json:"product_id" db:"product_id"`
	OrderDate            time.Time  `json:"order_date" db:"order_date"`
	PromisedDays         int        `json:"promised_days" db:"promised_days"`
	PromisedDeliveryDate *time.Time `json:"promised_delivery_date,omitempty" db:"promised_delivery_date"`
	ActualDeliveryDate   *time.Time `json:"actual_delivery_date,omitempty" db:"actual_delivery_date"`
	Status               string     `json:"status" db:"status"`
	TotalValue           float64    `json:"total_value" db:"total_value"`
	Priority             string     `json:"priority" db:"priority"`
	PaymentMethod        *string    `json:"payment_method,omitempty" db:"payment_method"`
	Notes                *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`

	ClientName  *string `json:"client_name,omitempty"`
	ProductName *string `json:"product_name,omitempty"`
}

// OrderFilters defines the available filters for querying orders.
type OrderFilters struct {
	ClientID *int64  `form:"client_id"`
	Status   *string `form:"status"`
	Priority *string `form:"priority"`
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}

// IsValidOrderStatus reports whether s is one of the known order statuses.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusInProduction, OrderStatusAwaitingMaterial,
		OrderStatusCompleted, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

package models

import "time"

// Client represents a customer of the shop. Catalog data: the ledger only
// reads it, it is maintained by the external intake forms.
type Client struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Contact    *string   `json:"contact,omitempty" db:"contact"`
	Email      *string   `json:"email,omitempty" db:"email"`
	Address    *string   `json:"address,omitempty" db:"address"`
	ClientType string    `json:"client_type" db:"client_type"` // individual, company
	VATNumber  *string   `json:"vat_number,omitempty" db:"vat_number"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ProductType groups products (gates, railings, staircases...) and owns the
// bill-of-materials rows.
type ProductType struct {
	ID       int64   `json:"id" db:"id"`
	Name     string  `json:"name" db:"name"`
	Category *string `json:"category,omitempty" db:"category"`
}

// Product is a concrete configuration of a product type.
type Product struct {
	ID            int64        `json:"id" db:"id"`
	ProductTypeID int64        `json:"product_type_id" db:"product_type_id"`
	Code          string       `json:"code" db:"code"`
	Description   *string      `json:"description,omitempty" db:"description"`
	LaborHours    float64      `json:"labor_hours" db:"labor_hours"`
	Complexity    string       `json:"complexity" db:"complexity"`
	ProductType   *ProductType `json:"product_type,omitempty"`
}

// Material is a stock item from the materials catalog.
type Material struct {
	ID           int64   `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	MaterialType *string `json:"material_type,omitempty" db:"material_type"`
	Unit         string  `json:"unit" db:"unit"`
	UnitPrice    float64 `json:"unit_price" db:"unit_price"`
	CurrentStock float64 `json:"current_stock" db:"current_stock"`
	MinStock     float64 `json:"min_stock" db:"min_stock"`
}

// BOMEntry is one (material, quantity-per-unit) pair of a product type's
// bill-of-materials.
type BOMEntry struct {
	ProductTypeID int64   `json:"product_type_id" db:"product_type_id"`
	MaterialID    int64   `json:"material_id" db:"material_id"`
	QtyPerUnit    float64 `json:"qty_per_unit" db:"qty_per_unit"`
}

// Budget is an approved quote an order is created from.
type Budget struct {
	ID           int64     `json:"id" db:"id"`
	ClientID     int64     `json:"client_id" db:"client_id"`
	ProductID    int64     `json:"product_id" db:"product_id"`
	BudgetDate   time.Time `json:"budget_date" db:"budget_date"`
	MaterialCost float64   `json:"material_cost" db:"material_cost"`
	LaborCost    float64   `json:"labor_cost" db:"labor_cost"`
	OtherCosts   float64   `json:"other_costs" db:"other_costs"`
	MarginPct    float64   `json:"margin_pct" db:"margin_pct"`
	SalePrice    float64   `json:"sale_price" db:"sale_price"`
	Status       string    `json:"status" db:"status"` // pending, approved, rejected, expired
	ValidDays    int       `json:"valid_days" db:"valid_days"`
	Notes        *string   `json:"notes,omitempty" db:"notes"`
}

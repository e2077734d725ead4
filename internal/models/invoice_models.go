package models

import "time"

// Invoice statuses. draft and cancelled are explicit, all others have a
// derivation component: paid/partial come from the payment ledger, overdue
// from the due-date rule. See DeriveInvoiceStatus.
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusIssued    = "issued"
	InvoiceStatusPartial   = "partial"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

// Invoice header. PaidAmount and Balance are never stored: every read and
// every payment write recomputes them as SUM over the payments table.
type Invoice struct {
	ID            int64      `json:"id" db:"id"`
	InvoiceNumber string     `json:"invoice_number" db:"invoice_number"`
	ClientID      int64      `json:"client_id" db:"client_id"`
	OrderID       *int64     `json:"order_id,omitempty" db:"order_id"`
	IssueDate     time.Time  `json:"issue_date" db:"issue_date"`
	DueDate       *time.Time `json:"due_date,omitempty" db:"due_date"`
	PaymentMethod *string    `json:"payment_method,omitempty" db:"payment_method"`
	Status        string     `json:"status" db:"status"`
	BaseAmount    float64    `json:"base_amount" db:"base_amount"`
	VATAmount     float64    `json:"vat_amount" db:"vat_amount"`
	TotalAmount   float64    `json:"total_amount" db:"total_amount"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`

	// Derived on read.
	PaidAmount float64 `json:"paid_amount"`
	Balance    float64 `json:"balance"`

	ClientName *string `json:"client_name,omitempty"`
}

// InvoiceItem is one line of an invoice. Append-only; invoice totals are
// recomputed as the sum over all lines whenever one is added.
type InvoiceItem struct {
	ID          int64   `json:"id" db:"id"`
	InvoiceID   int64   `json:"invoice_id" db:"invoice_id"`
	Description string  `json:"description" db:"description"`
	Quantity    float64 `json:"quantity" db:"quantity"`
	UnitPrice   float64 `json:"unit_price" db:"unit_price"`
	VATRate     float64 `json:"vat_rate" db:"vat_rate"`
	LineBase    float64 `json:"line_base" db:"line_base"`
	LineVAT     float64 `json:"line_vat" db:"line_vat"`
	LineTotal   float64 `json:"line_total" db:"line_total"`
}

// Payment is one append-only entry of the payment ledger.
type Payment struct {
	ID          int64     `json:"id" db:"id"`
	InvoiceID   int64     `json:"invoice_id" db:"invoice_id"`
	PaymentDate time.Time `json:"payment_date" db:"payment_date"`
	Amount      float64   `json:"amount" db:"amount"`
	Method      *string   `json:"method,omitempty" db:"method"`
	Reference   *string   `json:"reference,omitempty" db:"reference"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// InvoiceFilters defines the available filters for querying invoices.
type InvoiceFilters struct {
	ClientID *int64  `form:"client_id"`
	OrderID  *int64  `form:"order_id"`
	Status   *string `form:"status"`
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}

// DeriveInvoiceStatus computes the effective status of an invoice from its
// stored status and the payment aggregates, as of the given day.
// draft and cancelled are always authoritative; paid wins over overdue once
// the balance reaches zero; overdue overrides issued/partial while the due
// date has passed with balance open.
func DeriveInvoiceStatus(stored string, total, paid float64, dueDate *time.Time, today time.Time) string {
	if stored == InvoiceStatusDraft || stored == InvoiceStatusCancelled {
		return stored
	}
	balance := total - paid
	if balance <= 0 && paid > 0 {
		return InvoiceStatusPaid
	}
	if dueDate != nil && dueDate.Before(today.Truncate(24*time.Hour)) && balance > 0 {
		return InvoiceStatusOverdue
	}
	if paid > 0 && balance > 0 {
		return InvoiceStatusPartial
	}
	return stored
}

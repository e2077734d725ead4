package services

import (
	"errors"
	"fmt"
	"time"

	"metalworks_backend/internal/models"
	"metalworks_backend/internal/repositories"
	"metalworks_backend/pkg/utils"

	"github.com/google/uuid"
)

// DefaultVATRate is the Portuguese standard IVA applied when a caller does
// not specify a rate.
const DefaultVATRate = 23.0

// defaultLockWait bounds how long a payment waits for the per-invoice
// critical section before failing with ErrBusy.
const defaultLockWait = 5 * time.Second

// --- DTOs ---

// CreateInvoiceRequest creates a draft (or directly issued) invoice.
type CreateInvoiceRequest struct {
	ClientID      int64      `json:"client_id" binding:"required"`
	OrderID       *int64     `json:"order_id"`
	IssueDate     *time.Time `json:"issue_date"`
	DueDate       *time.Time `json:"due_date"`
	PaymentMethod *string    `json:"payment_method"`
	Issued        bool       `json:"issued"`
}

// AddInvoiceItemRequest appends one line to an invoice.
type AddInvoiceItemRequest struct {
	Description string   `json:"description" binding:"required"`
	Quantity    float64  `json:"quantity" binding:"required,gt=0"`
	UnitPrice   float64  `json:"unit_price"`
	VATRate     *float64 `json:"vat_rate"`
}

// GenerateFromOrderRequest builds a single-line issued invoice from an order.
type GenerateFromOrderRequest struct {
	DueDate       *time.Time `json:"due_date"`
	PaymentMethod *string    `json:"payment_method"`
	VATRate       *float64   `json:"vat_rate"`
}

// RecordPaymentRequest records one payment against an invoice.
type RecordPaymentRequest struct {
	Amount      float64    `json:"amount" binding:"required"`
	Method      *string    `json:"method"`
	Reference   *string    `json:"reference"`
	PaymentDate *time.Time `json:"payment_date"`
}

// InvoiceDetail is the full read projection: header with derived aggregates,
// line items and the payment ledger.
type InvoiceDetail struct {
	Invoice  *models.Invoice      `json:"invoice"`
	Items    []models.InvoiceItem `json:"items"`
	Payments []models.Payment     `json:"payments"`
}

// --- InvoiceService Interface ---

// InvoiceService owns the invoice lifecycle and the concurrency-safe payment
// ledger. The paid amount of an invoice is always an aggregate over the
// payments table; recording a payment re-derives the balance inside a
// per-invoice critical section so concurrent payments can never overshoot
// the invoice total.
type InvoiceService interface {
	CreateInvoice(req CreateInvoiceRequest) (*models.Invoice, error)
	AddInvoiceItem(invoiceID int64, req AddInvoiceItemRequest) (*models.Invoice, error)
	GenerateFromOrder(orderID int64, req GenerateFromOrderRequest) (*models.Invoice, error)
	RecordPayment(invoiceID int64, req RecordPaymentRequest) (*models.Payment, error)
	RefreshOverdue() (int64, error)
	GetInvoices(filters models.InvoiceFilters) ([]models.Invoice, int, error)
	GetInvoiceDetail(invoiceID int64) (*InvoiceDetail, error)
	CancelInvoice(invoiceID int64) error
}

type invoiceService struct {
	invoiceRepo repositories.InvoiceRepository
	orderRepo   repositories.OrderRepository
	catalogRepo repositories.CatalogRepository
	locks       *invoiceLocks
	lockWait    time.Duration
}

// NewInvoiceService creates a new instance of InvoiceService.
func NewInvoiceService(
	ir repositories.InvoiceRepository,
	or repositories.OrderRepository,
	cat repositories.CatalogRepository,
) InvoiceService {
	return &invoiceService{
		invoiceRepo: ir,
		orderRepo:   or,
		catalogRepo: cat,
		locks:       newInvoiceLocks(),
		lockWait:    defaultLockWait,
	}
}

func (s *invoiceService) CreateInvoice(req CreateInvoiceRequest) (*models.Invoice, error) {
	if _, err := s.catalogRepo.GetClientByID(req.ClientID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: client %d", ErrNotFound, req.ClientID)
		}
		return nil, fmt.Errorf("failed to fetch client %d: %w", req.ClientID, err)
	}
	if req.OrderID != nil {
		if _, err := s.orderRepo.GetOrderByID(*req.OrderID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: order %d", ErrNotFound, *req.OrderID)
			}
			return nil, fmt.Errorf("failed to fetch order %d: %w", *req.OrderID, err)
		}
	}

	status := models.InvoiceStatusDraft
	if req.Issued {
		status = models.InvoiceStatusIssued
	}
	invoice := &models.Invoice{
		ClientID:      req.ClientID,
		OrderID:       req.OrderID,
		DueDate:       req.DueDate,
		PaymentMethod: req.PaymentMethod,
		Status:        status,
	}
	if req.IssueDate != nil {
		invoice.IssueDate = *req.IssueDate
	}
	if _, err := s.invoiceRepo.CreateInvoice(invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return invoice, nil
}

func (s *invoiceService) AddInvoiceItem(invoiceID int64, req AddInvoiceItemRequest) (*models.Invoice, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if req.UnitPrice < 0 {
		return nil, fmt.Errorf("%w: unit price must not be negative", ErrValidation)
	}
	vatRate := DefaultVATRate
	if req.VATRate != nil {
		if *req.VATRate < 0 {
			return nil, fmt.Errorf("%w: VAT rate must not be negative", ErrValidation)
		}
		vatRate = *req.VATRate
	}

	item := buildLineItem(invoiceID, req.Description, req.Quantity, req.UnitPrice, vatRate)
	invoice, err := s.invoiceRepo.AddItemRecomputingTotals(item)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) || errors.Is(err, repositories.ErrForeignKeyViolation) {
			return nil, fmt.Errorf("%w: invoice %d", ErrNotFound, invoiceID)
		}
		return nil, fmt.Errorf("failed to add line item to invoice %d: %w", invoiceID, err)
	}
	return invoice, nil
}

// GenerateFromOrder back-computes the pre-VAT unit price from the order's
// VAT-inclusive total and issues a one-line invoice immediately, mirroring
// the billing wizard flow.
func (s *invoiceService) GenerateFromOrder(orderID int64, req GenerateFromOrderRequest) (*models.Invoice, error) {
	vatRate := DefaultVATRate
	if req.VATRate != nil {
		if *req.VATRate < 0 {
			return nil, fmt.Errorf("%w: VAT rate must not be negative", ErrValidation)
		}
		vatRate = *req.VATRate
	}

	billing, err := s.orderRepo.GetOrderBilling(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch billing view for order %d: %w", orderID, err)
	}

	basePrice := utils.RoundMoney(billing.TotalValue / (1.0 + vatRate/100.0))
	description := fmt.Sprintf("%s (%s) - Order #%d", billing.ProductTypeName, billing.ProductCode, orderID)
	item := buildLineItem(0, description, 1, basePrice, vatRate)

	invoice := &models.Invoice{
		ClientID:      billing.ClientID,
		OrderID:       &billing.OrderID,
		DueDate:       req.DueDate,
		PaymentMethod: req.PaymentMethod,
		Status:        models.InvoiceStatusIssued,
	}
	if _, err := s.invoiceRepo.CreateInvoiceWithItem(invoice, item); err != nil {
		return nil, fmt.Errorf("failed to generate invoice from order %d: %w", orderID, err)
	}
	invoice.BaseAmount = item.LineBase
	invoice.VATAmount = item.LineVAT
	invoice.TotalAmount = item.LineTotal
	return invoice, nil
}

// buildLineItem settles the line money math once: base, VAT and total are
// each rounded to the cent, half-up.
func buildLineItem(invoiceID int64, description string, qty, unitPrice, vatRate float64) *models.InvoiceItem {
	lineBase := utils.RoundMoney(qty * unitPrice)
	lineVAT := utils.RoundMoney(lineBase * vatRate / 100.0)
	return &models.InvoiceItem{
		InvoiceID:   invoiceID,
		Description: description,
		Quantity:    qty,
		UnitPrice:   unitPrice,
		VATRate:     vatRate,
		LineBase:    lineBase,
		LineVAT:     lineVAT,
		LineTotal:   utils.RoundMoney(lineBase + lineVAT),
	}
}

// RecordPayment is the critical write of the ledger. The sequence
// lock → aggregate → check → insert is atomic per invoice: the in-process
// lock serializes local callers, the repository's row lock serializes
// everything else. A lock timeout surfaces as ErrBusy and must not be
// confused with an overpayment rejection.
func (s *invoiceService) RecordPayment(invoiceID int64, req RecordPaymentRequest) (*models.Payment, error) {
	amount := utils.RoundMoney(req.Amount)
	if amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be greater than 0", ErrValidation)
	}

	if !s.locks.Acquire(invoiceID, s.lockWait) {
		return nil, fmt.Errorf("%w: invoice %d payment lock", ErrBusy, invoiceID)
	}
	defer s.locks.Release(invoiceID)

	reference := req.Reference
	if reference == nil || *reference == "" {
		ref := uuid.NewString()
		reference = &ref
	}
	payment := &models.Payment{
		InvoiceID: invoiceID,
		Amount:    amount,
		Method:    req.Method,
		Reference: reference,
	}
	if req.PaymentDate != nil {
		payment.PaymentDate = *req.PaymentDate
	}

	_, balance, err := s.invoiceRepo.InsertPaymentGuarded(payment)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, fmt.Errorf("%w: invoice %d", ErrNotFound, invoiceID)
		case errors.Is(err, repositories.ErrBalanceExceeded):
			return nil, &OverpaymentError{Balance: balance}
		case errors.Is(err, repositories.ErrInvalidState):
			return nil, fmt.Errorf("%w: invoice %d does not accept payments", ErrInvalidTransition, invoiceID)
		case errors.Is(err, repositories.ErrLockNotAvailable):
			return nil, fmt.Errorf("%w: invoice %d row lock", ErrBusy, invoiceID)
		}
		return nil, fmt.Errorf("failed to record payment on invoice %d: %w", invoiceID, err)
	}
	return payment, nil
}

func (s *invoiceService) RefreshOverdue() (int64, error) {
	rows, err := s.invoiceRepo.RefreshOverdue()
	if err != nil {
		return 0, fmt.Errorf("failed to refresh overdue invoices: %w", err)
	}
	return rows, nil
}

// GetInvoices refreshes overdue statuses first; the transition is a pure
// function of time and idempotent, so running it on every read is safe and
// removes the need for a scheduler.
func (s *invoiceService) GetInvoices(filters models.InvoiceFilters) ([]models.Invoice, int, error) {
	if _, err := s.invoiceRepo.RefreshOverdue(); err != nil {
		return nil, 0, fmt.Errorf("failed to refresh overdue invoices: %w", err)
	}
	return s.invoiceRepo.GetInvoices(filters)
}

func (s *invoiceService) GetInvoiceDetail(invoiceID int64) (*InvoiceDetail, error) {
	invoice, err := s.invoiceRepo.GetInvoiceByID(invoiceID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: invoice %d", ErrNotFound, invoiceID)
		}
		return nil, fmt.Errorf("failed to fetch invoice %d: %w", invoiceID, err)
	}
	items, err := s.invoiceRepo.GetItemsByInvoiceID(invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items for invoice %d: %w", invoiceID, err)
	}
	payments, err := s.invoiceRepo.GetPaymentsByInvoiceID(invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payments for invoice %d: %w", invoiceID, err)
	}
	return &InvoiceDetail{Invoice: invoice, Items: items, Payments: payments}, nil
}

func (s *invoiceService) CancelInvoice(invoiceID int64) error {
	err := s.invoiceRepo.CancelInvoice(invoiceID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return fmt.Errorf("%w: invoice %d", ErrNotFound, invoiceID)
		case errors.Is(err, repositories.ErrInvalidState):
			return fmt.Errorf("%w: only draft or issued invoices can be cancelled", ErrInvalidTransition)
		}
		return fmt.Errorf("failed to cancel invoice %d: %w", invoiceID, err)
	}
	return nil
}

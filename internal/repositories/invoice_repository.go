package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"metalworks_backend/internal/models"
	"metalworks_backend/pkg/utils"
	"strings"
	"time"
)

// InvoiceRepository owns invoices, their line items and the append-only
// payment ledger. Paid amount and balance are never stored: every read and
// every guarded write recomputes them as SUM(payments.amount).
//
// Compound writes (item insert + total recompute, guarded payment insert)
// run inside repository-local transactions so they are atomic regardless of
// how the service composes them.
type InvoiceRepository interface {
	CreateInvoice(invoice *models.Invoice) (int64, error)

	// CreateInvoiceWithItem atomically creates an invoice together with its
	// first line item and the recomputed totals (generate-from-order path).
	CreateInvoiceWithItem(invoice *models.Invoice, item *models.InvoiceItem) (int64, error)

	// AddItemRecomputingTotals inserts a line item and recomputes the invoice
	// aggregate totals as the sum over all items, in one transaction.
	AddItemRecomputingTotals(item *models.InvoiceItem) (*models.Invoice, error)

	// InsertPaymentGuarded serializes on the invoice row (SELECT FOR UPDATE
	// under a lock_timeout), recomputes the open balance from the payment
	// ledger and inserts the payment only when amount fits the balance.
	// Returns the payment id and the pre-insert balance. Fails with
	// ErrNotFound (no such invoice), ErrBalanceExceeded (amount > balance,
	// balance still returned), ErrInvalidState (cancelled/draft invoice) or
	// ErrLockNotAvailable (row lock timeout).
	InsertPaymentGuarded(payment *models.Payment) (int64, float64, error)

	GetInvoiceByID(invoiceID int64) (*models.Invoice, error)
	GetInvoices(filters models.InvoiceFilters) ([]models.Invoice, int, error)
	GetItemsByInvoiceID(invoiceID int64) ([]models.InvoiceItem, error)
	GetPaymentsByInvoiceID(invoiceID int64) ([]models.Payment, error)

	// RefreshOverdue moves issued/partial invoices past their due date with
	// an open balance to overdue. Idempotent; returns rows transitioned.
	RefreshOverdue() (int64, error)

	CancelInvoice(invoiceID int64) error
}

type invoiceRepository struct {
	db *sql.DB

	// Timeout for the per-invoice row lock; surfaced as ErrLockNotAvailable.
	lockTimeout time.Duration
}

// NewInvoiceRepository creates a new instance of InvoiceRepository.
func NewInvoiceRepository(db *sql.DB) InvoiceRepository {
	return &invoiceRepository{db: db, lockTimeout: 3 * time.Second}
}

const invoiceNumberExpr = `'FT-' || TO_CHAR(CURRENT_DATE, 'YYYY') || '-' || LPAD(NEXTVAL('invoice_number_seq')::TEXT, 5, '0')`

func (r *invoiceRepository) CreateInvoice(invoice *models.Invoice) (int64, error) {
	query := `INSERT INTO invoices
	            (invoice_number, client_id, order_id, issue_date, due_date, payment_method, status, created_at)
	          VALUES (` + invoiceNumberExpr + `, $1, $2, COALESCE($3, CURRENT_DATE), $4, $5, $6, $7)
	          RETURNING id, invoice_number, issue_date`

	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusDraft
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now()
	}

	var issueDate interface{}
	if !invoice.IssueDate.IsZero() {
		issueDate = invoice.IssueDate
	}

	err := r.db.QueryRow(query,
		invoice.ClientID, invoice.OrderID, issueDate, invoice.DueDate,
		invoice.PaymentMethod, invoice.Status, invoice.CreatedAt,
	).Scan(&invoice.ID, &invoice.InvoiceNumber, &invoice.IssueDate)
	if err != nil {
		return 0, mapPQError(err, fmt.Sprintf("creating invoice for client %d", invoice.ClientID))
	}
	return invoice.ID, nil
}

func (r *invoiceRepository) CreateInvoiceWithItem(invoice *models.Invoice, item *models.InvoiceItem) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("%w: starting transaction for invoice with item: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusIssued
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now()
	}

	var issueDate interface{}
	if !invoice.IssueDate.IsZero() {
		issueDate = invoice.IssueDate
	}

	query := `INSERT INTO invoices
	            (invoice_number, client_id, order_id, issue_date, due_date, payment_method, status, created_at)
	          VALUES (` + invoiceNumberExpr + `, $1, $2, COALESCE($3, CURRENT_DATE), $4, $5, $6, $7)
	          RETURNING id, invoice_number, issue_date`
	err = tx.QueryRow(query,
		invoice.ClientID, invoice.OrderID, issueDate, invoice.DueDate,
		invoice.PaymentMethod, invoice.Status, invoice.CreatedAt,
	).Scan(&invoice.ID, &invoice.InvoiceNumber, &invoice.IssueDate)
	if err != nil {
		return 0, mapPQError(err, fmt.Sprintf("creating invoice for order %v", invoice.OrderID))
	}

	item.InvoiceID = invoice.ID
	if err = insertItemAndRecompute(tx, item, invoice); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: committing invoice with item: %v", ErrDatabaseError, err)
	}
	return invoice.ID, nil
}

func (r *invoiceRepository) AddItemRecomputingTotals(item *models.InvoiceItem) (*models.Invoice, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: starting transaction for invoice item: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	invoice := &models.Invoice{ID: item.InvoiceID}
	if err = insertItemAndRecompute(tx, item, invoice); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing invoice item: %v", ErrDatabaseError, err)
	}
	return invoice, nil
}

// insertItemAndRecompute appends a line item and replaces the invoice header
// totals with the sum over all its items. The totals are recomputed, never
// incremented, so repeated line inserts cannot accumulate rounding drift.
func insertItemAndRecompute(tx *sql.Tx, item *models.InvoiceItem, invoice *models.Invoice) error {
	itemQuery := `INSERT INTO invoice_items
	                (invoice_id, description, quantity, unit_price, vat_rate, line_base, line_vat, line_total)
	              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	              RETURNING id`
	err := tx.QueryRow(itemQuery,
		item.InvoiceID, item.Description, item.Quantity, item.UnitPrice, item.VATRate,
		item.LineBase, item.LineVAT, item.LineTotal,
	).Scan(&item.ID)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("inserting line item for invoice %d", item.InvoiceID))
	}

	totalsQuery := `UPDATE invoices SET
	                  base_amount = agg.base,
	                  vat_amount = agg.vat,
	                  total_amount = agg.total
	                FROM (
	                  SELECT COALESCE(SUM(line_base), 0) AS base,
	                         COALESCE(SUM(line_vat), 0) AS vat,
	                         COALESCE(SUM(line_total), 0) AS total
	                  FROM invoice_items
	                  WHERE invoice_id = $1
	                ) agg
	                WHERE invoices.id = $1
	                RETURNING invoices.base_amount, invoices.vat_amount, invoices.total_amount`
	err = tx.QueryRow(totalsQuery, item.InvoiceID).Scan(
		&invoice.BaseAmount, &invoice.VATAmount, &invoice.TotalAmount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: recomputing totals for invoice %d: %v", ErrDatabaseError, item.InvoiceID, err)
	}
	return nil
}

func (r *invoiceRepository) InsertPaymentGuarded(payment *models.Payment) (int64, float64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: starting payment transaction: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	// lock_timeout is LOCAL to this transaction; a waiter past it fails with
	// pq code 55P03 which maps to ErrLockNotAvailable, never to a rejection.
	if _, err = tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return 0, 0, fmt.Errorf("%w: setting lock timeout: %v", ErrDatabaseError, err)
	}

	// Serialize concurrent payments on this invoice: the row lock makes the
	// read-check-insert sequence atomic, so two writers cannot both observe
	// the same pre-insert balance.
	var totalAmount float64
	var status string
	err = tx.QueryRow(`SELECT total_amount, status FROM invoices WHERE id = $1 FOR UPDATE`,
		payment.InvoiceID).Scan(&totalAmount, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, ErrNotFound
		}
		return 0, 0, mapPQError(err, fmt.Sprintf("locking invoice %d", payment.InvoiceID))
	}

	if status == models.InvoiceStatusCancelled || status == models.InvoiceStatusDraft {
		return 0, 0, fmt.Errorf("%w: invoice %d is %s", ErrInvalidState, payment.InvoiceID, status)
	}

	var paid float64
	err = tx.QueryRow(`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1`,
		payment.InvoiceID).Scan(&paid)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: summing payments for invoice %d: %v", ErrDatabaseError, payment.InvoiceID, err)
	}

	balance := totalAmount - paid
	if balance < 0 {
		balance = 0
	}
	// Exact-cent boundary: amounts come in already rounded to two decimals,
	// comparing in whole cents keeps float subtraction noise out.
	if utils.MoneyToCents(payment.Amount) > utils.MoneyToCents(balance) {
		return 0, balance, fmt.Errorf("%w: amount %.2f, open balance %.2f", ErrBalanceExceeded, payment.Amount, balance)
	}

	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now()
	}
	err = tx.QueryRow(`INSERT INTO payments (invoice_id, payment_date, amount, method, reference)
	                   VALUES ($1, $2, $3, $4, $5)
	                   RETURNING id`,
		payment.InvoiceID, payment.PaymentDate, payment.Amount, payment.Method, payment.Reference,
	).Scan(&payment.ID)
	if err != nil {
		return 0, balance, mapPQError(err, fmt.Sprintf("inserting payment for invoice %d", payment.InvoiceID))
	}

	// Ledger-driven status transition, inside the same critical section.
	newStatus := models.InvoiceStatusPartial
	if paid+payment.Amount >= totalAmount {
		newStatus = models.InvoiceStatusPaid
	}
	if _, err = tx.Exec(`UPDATE invoices SET status = $1 WHERE id = $2`, newStatus, payment.InvoiceID); err != nil {
		return 0, balance, fmt.Errorf("%w: updating status for invoice %d: %v", ErrDatabaseError, payment.InvoiceID, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, balance, fmt.Errorf("%w: committing payment for invoice %d: %v", ErrDatabaseError, payment.InvoiceID, err)
	}
	return payment.ID, balance, nil
}

const invoiceSelect = `
	SELECT i.id, i.invoice_number, i.client_id, i.order_id, i.issue_date, i.due_date,
	       i.payment_method, i.status, i.base_amount, i.vat_amount, i.total_amount, i.created_at,
	       COALESCE(p.paid, 0) AS paid_amount,
	       GREATEST(i.total_amount - COALESCE(p.paid, 0), 0) AS balance,
	       c.name AS client_name
	FROM invoices i
	JOIN clients c ON i.client_id = c.id
	LEFT JOIN (
	    SELECT invoice_id, SUM(amount) AS paid
	    FROM payments
	    GROUP BY invoice_id
	) p ON p.invoice_id = i.id`

func scanInvoice(s scanner, inv *models.Invoice) error {
	return s.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.ClientID, &inv.OrderID, &inv.IssueDate, &inv.DueDate,
		&inv.PaymentMethod, &inv.Status, &inv.BaseAmount, &inv.VATAmount, &inv.TotalAmount,
		&inv.CreatedAt, &inv.PaidAmount, &inv.Balance, &inv.ClientName,
	)
}

func (r *invoiceRepository) GetInvoiceByID(invoiceID int64) (*models.Invoice, error) {
	inv := &models.Invoice{}
	query := invoiceSelect + ` WHERE i.id = $1`
	err := scanInvoice(r.db.QueryRow(query, invoiceID), inv)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting invoice by ID %d: %v", ErrDatabaseError, invoiceID, err)
	}
	inv.Status = models.DeriveInvoiceStatus(inv.Status, inv.TotalAmount, inv.PaidAmount, inv.DueDate, time.Now())
	return inv, nil
}

func (r *invoiceRepository) GetInvoices(filters models.InvoiceFilters) ([]models.Invoice, int, error) {
	invoices := []models.Invoice{}
	totalCount := 0

	// The shared select is wrapped in a subquery so the filtered COUNT(*)
	// window and the derived balance column can be filtered uniformly.
	query := `SELECT q.*, COUNT(*) OVER() AS total_count FROM (` + invoiceSelect + `) q`

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.ClientID != nil {
		conditions = append(conditions, fmt.Sprintf("q.client_id = $%d", argCounter))
		args = append(args, *filters.ClientID)
		argCounter++
	}
	if filters.OrderID != nil {
		conditions = append(conditions, fmt.Sprintf("q.order_id = $%d", argCounter))
		args = append(args, *filters.OrderID)
		argCounter++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("q.status = $%d", argCounter))
		args = append(args, *filters.Status)
		argCounter++
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY q.issue_date DESC, q.id DESC"

	if filters.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCounter)
		args = append(args, filters.PageSize)
		argCounter++
		if filters.Page > 0 {
			offset := (filters.Page - 1) * filters.PageSize
			query += fmt.Sprintf(" OFFSET $%d", argCounter)
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying invoices: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	now := time.Now()
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(
			&inv.ID, &inv.InvoiceNumber, &inv.ClientID, &inv.OrderID, &inv.IssueDate, &inv.DueDate,
			&inv.PaymentMethod, &inv.Status, &inv.BaseAmount, &inv.VATAmount, &inv.TotalAmount,
			&inv.CreatedAt, &inv.PaidAmount, &inv.Balance, &inv.ClientName,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning invoice: %v", ErrDatabaseError, err)
		}
		inv.Status = models.DeriveInvoiceStatus(inv.Status, inv.TotalAmount, inv.PaidAmount, inv.DueDate, now)
		invoices = append(invoices, inv)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating invoice rows: %v", ErrDatabaseError, err)
	}
	return invoices, totalCount, nil
}

func (r *invoiceRepository) GetItemsByInvoiceID(invoiceID int64) ([]models.InvoiceItem, error) {
	items := []models.InvoiceItem{}
	query := `SELECT id, invoice_id, description, quantity, unit_price, vat_rate, line_base, line_vat, line_total
	          FROM invoice_items
	          WHERE invoice_id = $1
	          ORDER BY id`
	rows, err := r.db.Query(query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying items for invoice %d: %v", ErrDatabaseError, invoiceID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.UnitPrice,
			&it.VATRate, &it.LineBase, &it.LineVAT, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("%w: scanning invoice item: %v", ErrDatabaseError, err)
		}
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating invoice item rows: %v", ErrDatabaseError, err)
	}
	return items, nil
}

func (r *invoiceRepository) GetPaymentsByInvoiceID(invoiceID int64) ([]models.Payment, error) {
	payments := []models.Payment{}
	query := `SELECT id, invoice_id, payment_date, amount, method, reference, created_at
	          FROM payments
	          WHERE invoice_id = $1
	          ORDER BY payment_date DESC, id DESC`
	rows, err := r.db.Query(query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying payments for invoice %d: %v", ErrDatabaseError, invoiceID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.PaymentDate, &p.Amount, &p.Method, &p.Reference, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning payment: %v", ErrDatabaseError, err)
		}
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating payment rows: %v", ErrDatabaseError, err)
	}
	return payments, nil
}

func (r *invoiceRepository) RefreshOverdue() (int64, error) {
	query := `UPDATE invoices i
	          SET status = $1
	          WHERE i.status IN ($2, $3)
	            AND i.due_date IS NOT NULL
	            AND i.due_date < CURRENT_DATE
	            AND i.total_amount - COALESCE(
	                  (SELECT SUM(p.amount) FROM payments p WHERE p.invoice_id = i.id), 0) > 0`
	result, err := r.db.Exec(query, models.InvoiceStatusOverdue, models.InvoiceStatusIssued, models.InvoiceStatusPartial)
	if err != nil {
		return 0, fmt.Errorf("%w: refreshing overdue invoices: %v", ErrDatabaseError, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for overdue refresh: %v", ErrDatabaseError, err)
	}
	return rowsAffected, nil
}

func (r *invoiceRepository) CancelInvoice(invoiceID int64) error {
	result, err := r.db.Exec(`UPDATE invoices SET status = $1 WHERE id = $2 AND status IN ($3, $4)`,
		models.InvoiceStatusCancelled, invoiceID, models.InvoiceStatusDraft, models.InvoiceStatusIssued)
	if err != nil {
		return fmt.Errorf("%w: cancelling invoice %d: %v", ErrDatabaseError, invoiceID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for invoice cancel %d: %v", ErrDatabaseError, invoiceID, err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM invoices WHERE id = $1)`, invoiceID).Scan(&exists); err != nil {
			return fmt.Errorf("%w: checking invoice %d existence: %v", ErrDatabaseError, invoiceID, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrInvalidState
	}
	return nil
}

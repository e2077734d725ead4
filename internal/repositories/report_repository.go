package repositories

import (
	"database/sql"
	"fmt"
	"metalworks_backend/internal/models"
)

// ReportRepository serves the read-only projections consumed by the
// reporting layer. All numbers are computed from the ledger tables at query
// time; nothing here writes.
type ReportRepository interface {
	GetAgingReport() ([]models.AgingRow, error)
	GetCashFlow(days int) ([]models.CashFlowRow, error)
	GetBilledVsCollected(months int) ([]models.BilledVsCollectedRow, error)
	GetPendingDeliveries() ([]models.PendingDelivery, error)
	GetCriticalStock() ([]models.CriticalStockRow, error)
}

type reportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new instance of ReportRepository.
func NewReportRepository(db *sql.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) GetAgingReport() ([]models.AgingRow, error) {
	rowsOut := []models.AgingRow{}
	query := `SELECT
	            i.id AS invoice_id,
	            i.invoice_number,
	            c.name AS client_name,
	            i.due_date,
	            i.total_amount,
	            GREATEST(i.total_amount - COALESCE(p.paid, 0), 0) AS balance,
	            GREATEST(COALESCE(CURRENT_DATE - i.due_date, 0), 0) AS days_overdue,
	            CASE
	                WHEN i.due_date IS NULL OR i.due_date >= CURRENT_DATE THEN 'current'
	                WHEN CURRENT_DATE - i.due_date <= 30 THEN '1-30'
	                WHEN CURRENT_DATE - i.due_date <= 60 THEN '31-60'
	                WHEN CURRENT_DATE - i.due_date <= 90 THEN '61-90'
	                ELSE '90+'
	            END AS bucket
	          FROM invoices i
	          JOIN clients c ON i.client_id = c.id
	          LEFT JOIN (
	              SELECT invoice_id, SUM(amount) AS paid FROM payments GROUP BY invoice_id
	          ) p ON p.invoice_id = i.id
	          WHERE i.status NOT IN ('draft', 'cancelled')
	            AND i.total_amount - COALESCE(p.paid, 0) > 0
	          ORDER BY days_overdue DESC, balance DESC`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying aging report: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.AgingRow
		if err := rows.Scan(&a.InvoiceID, &a.InvoiceNumber, &a.ClientName, &a.DueDate,
			&a.TotalAmount, &a.Balance, &a.DaysOverdue, &a.Bucket); err != nil {
			return nil, fmt.Errorf("%w: scanning aging row: %v", ErrDatabaseError, err)
		}
		rowsOut = append(rowsOut, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating aging rows: %v", ErrDatabaseError, err)
	}
	return rowsOut, nil
}

func (r *reportRepository) GetCashFlow(days int) ([]models.CashFlowRow, error) {
	rowsOut := []models.CashFlowRow{}
	query := `SELECT payment_date, COUNT(*) AS payment_count, SUM(amount) AS total_amount
	          FROM payments
	          WHERE payment_date >= CURRENT_DATE - $1 * INTERVAL '1 day'
	          GROUP BY payment_date
	          ORDER BY payment_date`
	rows, err := r.db.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("%w: querying cash flow: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cf models.CashFlowRow
		if err := rows.Scan(&cf.PaymentDate, &cf.PaymentCount, &cf.TotalAmount); err != nil {
			return nil, fmt.Errorf("%w: scanning cash flow row: %v", ErrDatabaseError, err)
		}
		rowsOut = append(rowsOut, cf)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating cash flow rows: %v", ErrDatabaseError, err)
	}
	return rowsOut, nil
}

func (r *reportRepository) GetBilledVsCollected(months int) ([]models.BilledVsCollectedRow, error) {
	rowsOut := []models.BilledVsCollectedRow{}
	// Billed follows issue dates, collected follows payment dates; the two
	// series share the month axis via FULL JOIN so gaps on either side show.
	query := `SELECT
	            COALESCE(b.month, col.month) AS month,
	            COALESCE(b.billed, 0) AS billed,
	            COALESCE(col.collected, 0) AS collected
	          FROM (
	              SELECT TO_CHAR(issue_date, 'YYYY-MM') AS month, SUM(total_amount) AS billed
	              FROM invoices
	              WHERE status NOT IN ('draft', 'cancelled')
	                AND issue_date >= CURRENT_DATE - $1 * INTERVAL '1 month'
	              GROUP BY 1
	          ) b
	          FULL JOIN (
	              SELECT TO_CHAR(payment_date, 'YYYY-MM') AS month, SUM(amount) AS collected
	              FROM payments
	              WHERE payment_date >= CURRENT_DATE - $1 * INTERVAL '1 month'
	              GROUP BY 1
	          ) col ON col.month = b.month
	          ORDER BY month`
	rows, err := r.db.Query(query, months)
	if err != nil {
		return nil, fmt.Errorf("%w: querying billed vs collected: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var row models.BilledVsCollectedRow
		if err := rows.Scan(&row.Month, &row.Billed, &row.Collected); err != nil {
			return nil, fmt.Errorf("%w: scanning billed vs collected row: %v", ErrDatabaseError, err)
		}
		rowsOut = append(rowsOut, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating billed vs collected rows: %v", ErrDatabaseError, err)
	}
	return rowsOut, nil
}

func (r *reportRepository) GetPendingDeliveries() ([]models.PendingDelivery, error) {
	rowsOut := []models.PendingDelivery{}
	query := `SELECT
	            o.id AS order_id,
	            c.name AS client_name,
	            pt.name || ' - ' || p.code AS product_name,
	            o.status,
	            o.promised_delivery_date,
	            CASE WHEN o.promised_delivery_date IS NULL THEN NULL
	                 ELSE CURRENT_DATE - o.promised_delivery_date END AS days_late,
	            CASE
	                WHEN o.promised_delivery_date IS NULL THEN 'ok'
	                WHEN o.promised_delivery_date < CURRENT_DATE THEN 'late'
	                WHEN o.promised_delivery_date = CURRENT_DATE THEN 'today'
	                WHEN o.promised_delivery_date <= CURRENT_DATE + 3 THEN 'urgent'
	                ELSE 'ok'
	            END AS urgency
	          FROM orders o
	          JOIN clients c ON o.client_id = c.id
	          JOIN products p ON o.product_id = p.id
	          JOIN product_types pt ON p.product_type_id = pt.id
	          WHERE o.status IN ('pending', 'in_production', 'awaiting_material', 'completed')
	          ORDER BY o.promised_delivery_date NULLS LAST`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying pending deliveries: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var d models.PendingDelivery
		if err := rows.Scan(&d.OrderID, &d.ClientName, &d.ProductName, &d.Status,
			&d.PromisedDeliveryDate, &d.DaysLate, &d.Urgency); err != nil {
			return nil, fmt.Errorf("%w: scanning pending delivery: %v", ErrDatabaseError, err)
		}
		rowsOut = append(rowsOut, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating pending delivery rows: %v", ErrDatabaseError, err)
	}
	return rowsOut, nil
}

func (r *reportRepository) GetCriticalStock() ([]models.CriticalStockRow, error) {
	rowsOut := []models.CriticalStockRow{}
	query := `SELECT
	            m.id AS material_id,
	            m.name,
	            m.unit,
	            ROUND(m.current_stock, 2) AS current_stock,
	            ROUND(m.min_stock, 2) AS min_stock,
	            ROUND(m.min_stock - m.current_stock, 2) AS qty_to_restock,
	            ROUND((m.min_stock - m.current_stock) * m.unit_price, 2) AS restock_cost
	          FROM materials m
	          WHERE m.current_stock < m.min_stock
	          ORDER BY restock_cost DESC`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying critical stock: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cs models.CriticalStockRow
		if err := rows.Scan(&cs.MaterialID, &cs.Name, &cs.Unit, &cs.CurrentStock,
			&cs.MinStock, &cs.QtyToRestock, &cs.RestockCost); err != nil {
			return nil, fmt.Errorf("%w: scanning critical stock row: %v", ErrDatabaseError, err)
		}
		rowsOut = append(rowsOut, cs)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating critical stock rows: %v", ErrDatabaseError, err)
	}
	return rowsOut, nil
}

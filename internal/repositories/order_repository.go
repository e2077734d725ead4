package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"metalworks_backend/internal/models"
	"strings"
	"time"
)

// OrderRepository defines the interface for order-related database operations.
type OrderRepository interface {
	CreateOrder(executor SQLExecutor, order *models.Order) (int64, error)
	GetOrderByID(orderID int64) (*models.Order, error)
	GetOrders(filters models.OrderFilters) ([]models.Order, int, error) // orders, total count, error
	UpdateOrderStatus(executor SQLExecutor, orderID int64, newStatus string, updatedAt time.Time) error
	ConfirmDelivery(executor SQLExecutor, orderID int64, deliveryDate time.Time) error

	// GetOrderBilling returns the billing view of an order used by
	// generate-from-order: owner client, VAT-inclusive total and the
	// product labels for the synthetic line description.
	GetOrderBilling(orderID int64) (*OrderBilling, error)
}

// OrderBilling carries the fields invoicing reads from an order.
type OrderBilling struct {
	OrderID         int64
	ClientID        int64
	TotalValue      float64
	ProductTypeName string
	ProductCode     string
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrder(executor SQLExecutor, order *models.Order) (int64, error) {
	query := `INSERT INTO orders
	            (budget_id, client_id, product_id, order_date, promised_days,
	             promised_delivery_date, status, total_value, priority,
	             payment_method, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          RETURNING id`

	if order.OrderDate.IsZero() {
		order.OrderDate = time.Now()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = time.Now()
	}

	err := executor.QueryRow(query,
		order.BudgetID, order.ClientID, order.ProductID, order.OrderDate, order.PromisedDays,
		order.PromisedDeliveryDate, order.Status, order.TotalValue, order.Priority,
		order.PaymentMethod, order.Notes, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)

	if err != nil {
		return 0, mapPQError(err, "creating order")
	}
	return order.ID, nil
}

func (r *orderRepository) GetOrderByID(orderID int64) (*models.Order, error) {
	order := &models.Order{}
	query := `SELECT o.id, o.budget_id, o.client_id, o.product_id, o.order_date, o.promised_days,
	                 o.promised_delivery_date, o.actual_delivery_date, o.status, o.total_value,
	                 o.priority, o.payment_method, o.notes, o.created_at, o.updated_at,
	                 c.name AS client_name,
	                 pt.name || ' - ' || p.code AS product_name
	          FROM orders o
	          JOIN clients c ON o.client_id = c.id
	          JOIN products p ON o.product_id = p.id
	          JOIN product_types pt ON p.product_type_id = pt.id
	          WHERE o.id = $1`
	err := r.db.QueryRow(query, orderID).Scan(
		&order.ID, &order.BudgetID, &order.ClientID, &order.ProductID, &order.OrderDate, &order.PromisedDays,
		&order.PromisedDeliveryDate, &order.ActualDeliveryDate, &order.Status, &order.TotalValue,
		&order.Priority, &order.PaymentMethod, &order.Notes, &order.CreatedAt, &order.UpdatedAt,
		&order.ClientName, &order.ProductName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting order by ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return order, nil
}

func (r *orderRepository) GetOrders(filters models.OrderFilters) ([]models.Order, int, error) {
	orders := []models.Order{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
        SELECT
            o.id, o.budget_id, o.client_id, o.product_id, o.order_date, o.promised_days,
            o.promised_delivery_date, o.actual_delivery_date, o.status, o.total_value,
            o.priority, o.payment_method, o.notes, o.created_at, o.updated_at,
            c.name AS client_name,
            pt.name || ' - ' || p.code AS product_name,
            COUNT(*) OVER() AS total_count
        FROM orders o
        JOIN clients c ON o.client_id = c.id
        JOIN products p ON o.product_id = p.id
        JOIN product_types pt ON p.product_type_id = pt.id
    `)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.ClientID != nil {
		conditions = append(conditions, fmt.Sprintf("o.client_id = $%d", argCounter))
		args = append(args, *filters.ClientID)
		argCounter++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argCounter))
		args = append(args, *filters.Status)
		argCounter++
	}
	if filters.Priority != nil && *filters.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("o.priority = $%d", argCounter))
		args = append(args, *filters.Priority)
		argCounter++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY o.order_date DESC, o.id DESC")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCounter))
		args = append(args, filters.PageSize)
		argCounter++
		if filters.Page > 0 {
			offset := (filters.Page - 1) * filters.PageSize
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCounter))
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying orders: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Order
		err := rows.Scan(
			&o.ID, &o.BudgetID, &o.ClientID, &o.ProductID, &o.OrderDate, &o.PromisedDays,
			&o.PromisedDeliveryDate, &o.ActualDeliveryDate, &o.Status, &o.TotalValue,
			&o.Priority, &o.PaymentMethod, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
			&o.ClientName, &o.ProductName,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning order: %v", ErrDatabaseError, err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating order rows: %v", ErrDatabaseError, err)
	}
	return orders, totalCount, nil
}

func (r *orderRepository) UpdateOrderStatus(executor SQLExecutor, orderID int64, newStatus string, updatedAt time.Time) error {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := executor.Exec(query, newStatus, updatedAt, orderID)
	if err != nil {
		return fmt.Errorf("%w: updating order status for ID %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for order status update ID %d: %v", ErrDatabaseError, orderID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) ConfirmDelivery(executor SQLExecutor, orderID int64, deliveryDate time.Time) error {
	query := `UPDATE orders
	          SET actual_delivery_date = $1, status = $2, updated_at = $3
	          WHERE id = $4`
	result, err := executor.Exec(query, deliveryDate, models.OrderStatusDelivered, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("%w: confirming delivery for order %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for delivery confirmation %d: %v", ErrDatabaseError, orderID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) GetOrderBilling(orderID int64) (*OrderBilling, error) {
	b := &OrderBilling{}
	query := `SELECT o.id, o.client_id, o.total_value, pt.name, p.code
	          FROM orders o
	          JOIN products p ON o.product_id = p.id
	          JOIN product_types pt ON p.product_type_id = pt.id
	          WHERE o.id = $1`
	err := r.db.QueryRow(query, orderID).Scan(
		&b.OrderID, &b.ClientID, &b.TotalValue, &b.ProductTypeName, &b.ProductCode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting billing view for order %d: %v", ErrDatabaseError, orderID, err)
	}
	return b, nil
}

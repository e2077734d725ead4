package services

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"metalworks_backend/internal/models"
	"metalworks_backend/internal/repositories"
)

// --- DTOs ---

// CreateOrderRequest creates an order from an approved budget.
type CreateOrderRequest struct {
	BudgetID      int64      `json:"budget_id" binding:"required"`
	OrderDate     *time.Time `json:"order_date"`
	PromisedDays  int        `json:"promised_days"`
	Priority      string     `json:"priority"`
	PaymentMethod *string    `json:"payment_method"`
	Notes         *string    `json:"notes"`
}

// UpdateOrderStatusRequest carries an operator-set status change.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ConfirmDeliveryRequest closes an order as delivered. A zero date means today.
type ConfirmDeliveryRequest struct {
	DeliveryDate *time.Time `json:"delivery_date"`
}

// --- OrderService Interface ---

// OrderService is the order-creation orchestrator. Creating an order is a
// single transaction covering the order row, the planned consumption seed and
// the default production stages, so a half-created order can never be
// observed.
type OrderService interface {
	CreateOrder(req CreateOrderRequest) (*models.Order, error)
	UpdateOrderStatus(orderID int64, req UpdateOrderStatusRequest) error
	ConfirmDelivery(orderID int64, req ConfirmDeliveryRequest) error
	GetOrders(filters models.OrderFilters) ([]models.Order, int, error)
	GetOrderByID(orderID int64) (*models.Order, error)
}

type orderService struct {
	orderRepo       repositories.OrderRepository
	stageRepo       repositories.StageRepository
	catalogRepo     repositories.CatalogRepository
	consumptionRepo repositories.ConsumptionRepository
	db              *sql.DB
	// begin starts the order-creation transaction. Split out from db so the
	// orchestration can run against any SQLTx implementation.
	begin func() (repositories.SQLTx, error)
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	or repositories.OrderRepository,
	sr repositories.StageRepository,
	cat repositories.CatalogRepository,
	cr repositories.ConsumptionRepository,
	db *sql.DB,
) OrderService {
	return &orderService{
		orderRepo:       or,
		stageRepo:       sr,
		catalogRepo:     cat,
		consumptionRepo: cr,
		db:              db,
		begin:           func() (repositories.SQLTx, error) { return db.Begin() },
	}
}

// defaultStageTypes is the production plan every new order starts with,
// in execution order.
var defaultStageTypes = [4]string{"Cutting & Preparation", "Welding", "Finishing", "Assembly"}

// splitStageMinutes distributes the order's estimated minutes over the four
// default stages as 25/35/25/remainder. The last share absorbs the rounding
// so the parts always sum to totalMinutes exactly.
func splitStageMinutes(totalMinutes int) [4]int {
	var parts [4]int
	parts[0] = totalMinutes * 25 / 100
	parts[1] = totalMinutes * 35 / 100
	parts[2] = totalMinutes * 25 / 100
	parts[3] = totalMinutes - parts[0] - parts[1] - parts[2]
	return parts
}

func (s *orderService) CreateOrder(req CreateOrderRequest) (*models.Order, error) {
	if req.PromisedDays < 0 {
		return nil, fmt.Errorf("%w: promised_days must not be negative", ErrValidation)
	}
	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}

	budget, err := s.catalogRepo.GetBudgetByID(req.BudgetID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: budget %d", ErrNotFound, req.BudgetID)
		}
		return nil, fmt.Errorf("failed to fetch budget %d: %w", req.BudgetID, err)
	}
	if budget.Status != "approved" {
		return nil, fmt.Errorf("%w: budget %d is %s, only approved budgets can become orders", ErrValidation, budget.ID, budget.Status)
	}

	product, err := s.catalogRepo.GetProductByID(budget.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %d for budget %d: %w", budget.ProductID, budget.ID, err)
	}

	orderDate := time.Now()
	if req.OrderDate != nil {
		orderDate = *req.OrderDate
	}
	order := &models.Order{
		BudgetID:      &budget.ID,
		ClientID:      budget.ClientID,
		ProductID:     budget.ProductID,
		OrderDate:     orderDate,
		PromisedDays:  req.PromisedDays,
		Status:        models.OrderStatusPending,
		TotalValue:    budget.SalePrice,
		Priority:      priority,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
	if req.PromisedDays > 0 {
		promised := orderDate.AddDate(0, 0, req.PromisedDays)
		order.PromisedDeliveryDate = &promised
	}

	tx, err := s.begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start order creation transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = s.orderRepo.CreateOrder(tx, order); err != nil {
		return nil, fmt.Errorf("failed to create order from budget %d: %w", budget.ID, err)
	}

	if _, err = s.consumptionRepo.SeedPlanned(tx, order.ID); err != nil {
		return nil, fmt.Errorf("failed to seed planned consumption for order %d: %w", order.ID, err)
	}

	totalMinutes := int(math.Round(product.LaborHours * 60))
	for i, minutes := range splitStageMinutes(totalMinutes) {
		stage := &models.ProductionStage{
			OrderID:          order.ID,
			StageType:        defaultStageTypes[i],
			EstimatedMinutes: minutes,
			Status:           models.StageStatusScheduled,
		}
		if _, err = s.stageRepo.CreateStage(tx, stage); err != nil {
			return nil, fmt.Errorf("failed to create stage %q for order %d: %w", defaultStageTypes[i], order.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}
	return order, nil
}

func (s *orderService) UpdateOrderStatus(orderID int64, req UpdateOrderStatusRequest) error {
	if !models.IsValidOrderStatus(req.Status) {
		return fmt.Errorf("%w: unknown order status %q", ErrValidation, req.Status)
	}
	err := s.orderRepo.UpdateOrderStatus(s.db, orderID, req.Status, time.Now())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return fmt.Errorf("failed to update status of order %d: %w", orderID, err)
	}
	return nil
}

func (s *orderService) ConfirmDelivery(orderID int64, req ConfirmDeliveryRequest) error {
	deliveryDate := time.Now()
	if req.DeliveryDate != nil {
		deliveryDate = *req.DeliveryDate
	}
	err := s.orderRepo.ConfirmDelivery(s.db, orderID, deliveryDate)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return fmt.Errorf("failed to confirm delivery of order %d: %w", orderID, err)
	}
	return nil
}

func (s *orderService) GetOrders(filters models.OrderFilters) ([]models.Order, int, error) {
	return s.orderRepo.GetOrders(filters)
}

func (s *orderService) GetOrderByID(orderID int64) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	return order, nil
}

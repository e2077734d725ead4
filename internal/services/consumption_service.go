package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"metalworks_backend/internal/models"
	"metalworks_backend/internal/repositories"
)

// --- DTOs ---

// RecordConsumptionRequest records the real consumed quantity of one material.
type RecordConsumptionRequest struct {
	MaterialID int64   `json:"material_id" binding:"required"`
	ActualQty  float64 `json:"actual_qty"`
	Reason     string  `json:"reason"`
}

// --- ConsumptionService Interface ---

// ConsumptionService reconciles planned vs. actual material consumption per
// order. Writes are upserts keyed on (order, material): re-seeding refreshes
// the plan without ever erasing recorded consumption.
type ConsumptionService interface {
	// SeedPlanned initializes (or refreshes) the planned quantities from the
	// product's bill-of-materials, using the given executor so the order
	// orchestrator can run it inside the order-creation transaction.
	SeedPlanned(executor repositories.SQLExecutor, orderID int64) (int64, error)

	RecordActual(orderID int64, req RecordConsumptionRequest) (*models.MaterialConsumption, error)
	GetVariance(orderID int64) ([]models.ConsumptionVariance, error)
}

type consumptionService struct {
	consumptionRepo repositories.ConsumptionRepository
	catalogRepo     repositories.CatalogRepository
	orderRepo       repositories.OrderRepository
	db              *sql.DB
}

// NewConsumptionService creates a new instance of ConsumptionService.
func NewConsumptionService(
	cr repositories.ConsumptionRepository,
	cat repositories.CatalogRepository,
	or repositories.OrderRepository,
	db *sql.DB,
) ConsumptionService {
	return &consumptionService{consumptionRepo: cr, catalogRepo: cat, orderRepo: or, db: db}
}

func (s *consumptionService) SeedPlanned(executor repositories.SQLExecutor, orderID int64) (int64, error) {
	rows, err := s.consumptionRepo.SeedPlanned(executor, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to seed planned consumption for order %d: %w", orderID, err)
	}
	return rows, nil
}

func (s *consumptionService) RecordActual(orderID int64, req RecordConsumptionRequest) (*models.MaterialConsumption, error) {
	if req.ActualQty < 0 {
		return nil, fmt.Errorf("%w: actual quantity must not be negative", ErrValidation)
	}
	if _, err := s.orderRepo.GetOrderByID(orderID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	if _, err := s.catalogRepo.GetMaterialByID(req.MaterialID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: material %d", ErrNotFound, req.MaterialID)
		}
		return nil, fmt.Errorf("failed to fetch material %d: %w", req.MaterialID, err)
	}

	row := &models.MaterialConsumption{
		OrderID:         orderID,
		MaterialID:      req.MaterialID,
		ActualQty:       req.ActualQty,
		ConsumptionDate: time.Now(),
		VarianceReason:  models.NewNullString(req.Reason),
	}
	if err := s.consumptionRepo.UpsertActual(s.db, row); err != nil {
		if errors.Is(err, repositories.ErrForeignKeyViolation) {
			return nil, fmt.Errorf("%w: order %d or material %d", ErrNotFound, orderID, req.MaterialID)
		}
		return nil, fmt.Errorf("failed to record consumption: %w", err)
	}
	return row, nil
}

func (s *consumptionService) GetVariance(orderID int64) ([]models.ConsumptionVariance, error) {
	if _, err := s.orderRepo.GetOrderByID(orderID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	return s.consumptionRepo.GetVariance(orderID)
}

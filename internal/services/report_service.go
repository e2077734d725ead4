package services

import (
	"fmt"

	"metalworks_backend/internal/models"
	"metalworks_backend/internal/repositories"
)

// Defaults for the time-window reports.
const (
	defaultCashFlowDays        = 30
	defaultBilledCollectedSpan = 6
)

// ReportService exposes the read-only projections over the ledgers.
type ReportService interface {
	GetBottlenecks() ([]models.ActiveStage, error)
	GetAgingReport() ([]models.AgingRow, error)
	GetCashFlow(days int) ([]models.CashFlowRow, error)
	GetBilledVsCollected(months int) ([]models.BilledVsCollectedRow, error)
	GetPendingDeliveries() ([]models.PendingDelivery, error)
	GetCriticalStock() ([]models.CriticalStockRow, error)
}

type reportService struct {
	reportRepo repositories.ReportRepository
	stageRepo  repositories.StageRepository
}

// NewReportService creates a new instance of ReportService.
func NewReportService(rr repositories.ReportRepository, sr repositories.StageRepository) ReportService {
	return &reportService{reportRepo: rr, stageRepo: sr}
}

// GetBottlenecks returns the active stages that are already past their
// estimate. The late flag is computed against the stage's own start time, so
// a paused stage past its estimate still shows up.
func (s *reportService) GetBottlenecks() ([]models.ActiveStage, error) {
	stages, err := s.stageRepo.GetActiveStages()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active stages: %w", err)
	}
	late := []models.ActiveStage{}
	for _, stage := range stages {
		if stage.IsLate {
			late = append(late, stage)
		}
	}
	return late, nil
}

func (s *reportService) GetAgingReport() ([]models.AgingRow, error) {
	return s.reportRepo.GetAgingReport()
}

func (s *reportService) GetCashFlow(days int) ([]models.CashFlowRow, error) {
	if days <= 0 {
		days = defaultCashFlowDays
	}
	return s.reportRepo.GetCashFlow(days)
}

func (s *reportService) GetBilledVsCollected(months int) ([]models.BilledVsCollectedRow, error) {
	if months <= 0 {
		months = defaultBilledCollectedSpan
	}
	return s.reportRepo.GetBilledVsCollected(months)
}

func (s *reportService) GetPendingDeliveries() ([]models.PendingDelivery, error) {
	return s.reportRepo.GetPendingDeliveries()
}

func (s *reportService) GetCriticalStock() ([]models.CriticalStockRow, error) {
	return s.reportRepo.GetCriticalStock()
}

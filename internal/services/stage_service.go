package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"metalworks_backend/internal/models"
	"metalworks_backend/internal/repositories"
	"metalworks_backend/pkg/utils"
)

// --- DTOs ---

// CreateStageRequest is used for creating a single production stage.
type CreateStageRequest struct {
	OrderID          int64   `json:"order_id" binding:"required"`
	StageType        string  `json:"stage_type" binding:"required"`
	EstimatedMinutes int     `json:"estimated_minutes"`
	Responsible      *string `json:"responsible"`
}

// StageEventRequest carries the optional note of a start/pause/resume/finish call.
type StageEventRequest struct {
	Notes string `json:"notes"`
}

// --- StageService Interface ---

// StageService owns the stage state machine and its two-tier time tracking:
// the coarse status field drives reporting, the append-only time-event log is
// the finer audit trail. Only the stage's own timestamps are authoritative
// for actual_minutes.
type StageService interface {
	CreateStage(req CreateStageRequest) (*models.ProductionStage, error)
	StartStage(stageID int64, notes string) (*models.ProductionStage, error)
	PauseStage(stageID int64, notes string) (*models.ProductionStage, error)
	ResumeStage(stageID int64, notes string) (*models.ProductionStage, error)
	FinishStage(stageID int64, notes string) (*models.ProductionStage, error)
	GetActiveStages() ([]models.ActiveStage, error)
	GetStagesByOrder(orderID int64) ([]models.OrderStage, error)
	GetTimeLog(stageID int64) ([]models.TimeEvent, error)
}

type stageService struct {
	stageRepo repositories.StageRepository
	orderRepo repositories.OrderRepository
	db        *sql.DB // Executor for time-event appends
}

// NewStageService creates a new instance of StageService.
func NewStageService(sr repositories.StageRepository, or repositories.OrderRepository, db *sql.DB) StageService {
	return &stageService{stageRepo: sr, orderRepo: or, db: db}
}

func (s *stageService) CreateStage(req CreateStageRequest) (*models.ProductionStage, error) {
	if req.EstimatedMinutes < 0 {
		return nil, fmt.Errorf("%w: estimated_minutes must not be negative", ErrValidation)
	}
	if req.StageType == "" {
		return nil, fmt.Errorf("%w: stage_type cannot be empty", ErrValidation)
	}
	if _, err := s.orderRepo.GetOrderByID(req.OrderID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, req.OrderID)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", req.OrderID, err)
	}

	stage := &models.ProductionStage{
		OrderID:          req.OrderID,
		StageType:        req.StageType,
		Responsible:      req.Responsible,
		EstimatedMinutes: req.EstimatedMinutes,
		Status:           models.StageStatusScheduled,
	}
	if _, err := s.stageRepo.CreateStage(s.db, stage); err != nil {
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}
	return stage, nil
}

// StartStage is idempotent on the start timestamp: a second call leaves the
// recorded start untouched and only re-asserts the in_progress status.
func (s *stageService) StartStage(stageID int64, notes string) (*models.ProductionStage, error) {
	stage, err := s.stageRepo.StartStage(stageID, time.Now())
	if err != nil {
		return nil, s.mapStageError(err, stageID, "start")
	}
	s.appendEvent(stageID, models.TimeEventStart, notes)
	return stage, nil
}

// PauseStage flips in_progress to paused. The pause itself lives in the
// event log; duration math never consults it.
func (s *stageService) PauseStage(stageID int64, notes string) (*models.ProductionStage, error) {
	stage, err := s.stageRepo.SetPaused(stageID, true)
	if err != nil {
		return nil, s.mapStageError(err, stageID, "pause")
	}
	s.appendEvent(stageID, models.TimeEventPause, notes)
	return stage, nil
}

func (s *stageService) ResumeStage(stageID int64, notes string) (*models.ProductionStage, error) {
	stage, err := s.stageRepo.SetPaused(stageID, false)
	if err != nil {
		return nil, s.mapStageError(err, stageID, "resume")
	}
	s.appendEvent(stageID, models.TimeEventResume, notes)
	return stage, nil
}

// FinishStage completes the stage and settles actual_minutes. A finish
// without a prior start backfills start = now, so actual_minutes = 0: that is
// the "instant stage" model. Re-finishing is a harmless no-op returning the
// already stored value; no finish event is appended the second time.
func (s *stageService) FinishStage(stageID int64, notes string) (*models.ProductionStage, error) {
	before, err := s.stageRepo.GetStageByID(stageID)
	if err != nil {
		return nil, s.mapStageError(err, stageID, "finish")
	}
	alreadyCompleted := before.Status == models.StageStatusCompleted

	stage, err := s.stageRepo.FinishStage(stageID, time.Now())
	if err != nil {
		return nil, s.mapStageError(err, stageID, "finish")
	}
	if !alreadyCompleted {
		s.appendEvent(stageID, models.TimeEventFinish, notes)
	}
	return stage, nil
}

func (s *stageService) GetActiveStages() ([]models.ActiveStage, error) {
	return s.stageRepo.GetActiveStages()
}

func (s *stageService) GetStagesByOrder(orderID int64) ([]models.OrderStage, error) {
	if _, err := s.orderRepo.GetOrderByID(orderID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	return s.stageRepo.GetStagesByOrder(orderID)
}

func (s *stageService) GetTimeLog(stageID int64) ([]models.TimeEvent, error) {
	if _, err := s.stageRepo.GetStageByID(stageID); err != nil {
		return nil, s.mapStageError(err, stageID, "read time log for")
	}
	return s.stageRepo.GetTimeLog(stageID)
}

// appendEvent records the audit-trail entry for a transition. The trail is
// advisory: a failed append is logged but never rolls back the transition
// itself.
func (s *stageService) appendEvent(stageID int64, kind, notes string) {
	event := &models.TimeEvent{
		StageID:   stageID,
		EventKind: kind,
		EventTime: time.Now(),
		Notes:     models.NewNullString(notes),
	}
	if _, err := s.stageRepo.AppendTimeEvent(s.db, event); err != nil {
		utils.LogError(err, fmt.Sprintf("failed to append %s event for stage %d", kind, stageID))
	}
}

func (s *stageService) mapStageError(err error, stageID int64, op string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: stage %d", ErrNotFound, stageID)
	}
	if errors.Is(err, repositories.ErrInvalidState) {
		return fmt.Errorf("%w: cannot %s stage %d in its current status", ErrInvalidTransition, op, stageID)
	}
	return fmt.Errorf("failed to %s stage %d: %w", op, stageID, err)
}

package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"metalworks_backend/internal/models"
	"time"
)

// StageRepository defines the database operations for production stages and
// their append-only time-event log.
//
// StartStage and FinishStage are single atomic UPDATE statements with
// COALESCE backfills, so concurrent double-clicks on the same stage cannot
// produce divergent timestamps or actual_minutes. Both skip rows that are
// already completed and report that through ErrInvalidState (FinishStage
// treats a second call as a no-op instead).
type StageRepository interface {
	CreateStage(executor SQLExecutor, stage *models.ProductionStage) (int64, error)
	GetStageByID(stageID int64) (*models.ProductionStage, error)
	StartStage(stageID int64, now time.Time) (*models.ProductionStage, error)
	FinishStage(stageID int64, now time.Time) (*models.ProductionStage, error)
	SetPaused(stageID int64, paused bool) (*models.ProductionStage, error)
	GetActiveStages() ([]models.ActiveStage, error)
	GetStagesByOrder(orderID int64) ([]models.OrderStage, error)

	AppendTimeEvent(executor SQLExecutor, event *models.TimeEvent) (int64, error)
	GetTimeLog(stageID int64) ([]models.TimeEvent, error)
}

type stageRepository struct {
	db *sql.DB
}

// NewStageRepository creates a new instance of StageRepository.
func NewStageRepository(db *sql.DB) StageRepository {
	return &stageRepository{db: db}
}

const stageColumns = `id, order_id, stage_type, responsible, status,
	estimated_minutes, actual_minutes, started_at, finished_at, created_at`

func scanStage(s scanner, stage *models.ProductionStage) error {
	return s.Scan(
		&stage.ID, &stage.OrderID, &stage.StageType, &stage.Responsible, &stage.Status,
		&stage.EstimatedMinutes, &stage.ActualMinutes, &stage.StartedAt, &stage.FinishedAt,
		&stage.CreatedAt,
	)
}

func (r *stageRepository) CreateStage(executor SQLExecutor, stage *models.ProductionStage) (int64, error) {
	query := `INSERT INTO production_stages
	            (order_id, stage_type, responsible, status, estimated_minutes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`

	if stage.Status == "" {
		stage.Status = models.StageStatusScheduled
	}
	if stage.CreatedAt.IsZero() {
		stage.CreatedAt = time.Now()
	}

	err := executor.QueryRow(query,
		stage.OrderID, stage.StageType, stage.Responsible, stage.Status,
		stage.EstimatedMinutes, stage.CreatedAt,
	).Scan(&stage.ID)
	if err != nil {
		return 0, mapPQError(err, fmt.Sprintf("creating stage for order %d", stage.OrderID))
	}
	return stage.ID, nil
}

func (r *stageRepository) GetStageByID(stageID int64) (*models.ProductionStage, error) {
	stage := &models.ProductionStage{}
	query := `SELECT ` + stageColumns + ` FROM production_stages WHERE id = $1`
	err := scanStage(r.db.QueryRow(query, stageID), stage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting stage by ID %d: %v", ErrDatabaseError, stageID, err)
	}
	return stage, nil
}

// StartStage backfills started_at only when unset and moves the stage to
// in_progress. Completed stages are left untouched.
func (r *stageRepository) StartStage(stageID int64, now time.Time) (*models.ProductionStage, error) {
	stage := &models.ProductionStage{}
	query := `UPDATE production_stages
	          SET started_at = COALESCE(started_at, $2),
	              status = $3
	          WHERE id = $1 AND status <> $4
	          RETURNING ` + stageColumns
	err := scanStage(r.db.QueryRow(query, stageID, now, models.StageStatusInProgress, models.StageStatusCompleted), stage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.notFoundOrInvalidState(stageID)
		}
		return nil, fmt.Errorf("%w: starting stage %d: %v", ErrDatabaseError, stageID, err)
	}
	return stage, nil
}

// FinishStage completes a stage and computes actual_minutes from the stage's
// own timestamps. A finish without a prior start backfills both timestamps to
// now, modelling an instant stage with actual_minutes = 0. Re-finishing an
// already completed stage recomputes the identical value, so the statement is
// idempotent by construction.
func (r *stageRepository) FinishStage(stageID int64, now time.Time) (*models.ProductionStage, error) {
	stage := &models.ProductionStage{}
	query := `UPDATE production_stages
	          SET started_at = COALESCE(started_at, $2),
	              finished_at = COALESCE(finished_at, $2),
	              status = $3,
	              actual_minutes = GREATEST(0, ROUND(EXTRACT(EPOCH FROM
	                  (COALESCE(finished_at, $2) - COALESCE(started_at, $2))) / 60.0))::INT
	          WHERE id = $1
	          RETURNING ` + stageColumns
	err := scanStage(r.db.QueryRow(query, stageID, now, models.StageStatusCompleted), stage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finishing stage %d: %v", ErrDatabaseError, stageID, err)
	}
	return stage, nil
}

// SetPaused flips the coarse status between in_progress and paused. Any other
// source state is rejected; the caller decides how to surface it.
func (r *stageRepository) SetPaused(stageID int64, paused bool) (*models.ProductionStage, error) {
	from, to := models.StageStatusInProgress, models.StageStatusPaused
	if !paused {
		from, to = models.StageStatusPaused, models.StageStatusInProgress
	}
	stage := &models.ProductionStage{}
	query := `UPDATE production_stages
	          SET status = $2
	          WHERE id = $1 AND status = $3
	          RETURNING ` + stageColumns
	err := scanStage(r.db.QueryRow(query, stageID, to, from), stage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.notFoundOrInvalidState(stageID)
		}
		return nil, fmt.Errorf("%w: updating pause state for stage %d: %v", ErrDatabaseError, stageID, err)
	}
	return stage, nil
}

// notFoundOrInvalidState disambiguates a zero-row conditional UPDATE:
// the stage either does not exist or its current status blocked the write.
func (r *stageRepository) notFoundOrInvalidState(stageID int64) error {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM production_stages WHERE id = $1)`, stageID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: checking stage %d existence: %v", ErrDatabaseError, stageID, err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidState
}

func (r *stageRepository) GetActiveStages() ([]models.ActiveStage, error) {
	stages := []models.ActiveStage{}
	query := `SELECT ` + stageColumns + `,
	            CASE
	                WHEN started_at IS NULL THEN NULL
	                ELSE ROUND(EXTRACT(EPOCH FROM (CURRENT_TIMESTAMP - started_at)) / 60.0)::INT
	            END AS minutes_since_start,
	            CASE
	                WHEN started_at IS NULL THEN FALSE
	                ELSE (EXTRACT(EPOCH FROM (CURRENT_TIMESTAMP - started_at)) / 60.0) > estimated_minutes
	            END AS is_late
	          FROM production_stages
	          WHERE status IN ($1, $2)
	          ORDER BY is_late DESC, started_at ASC NULLS LAST`
	rows, err := r.db.Query(query, models.StageStatusInProgress, models.StageStatusPaused)
	if err != nil {
		return nil, fmt.Errorf("%w: querying active stages: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.ActiveStage
		if err := rows.Scan(
			&s.ID, &s.OrderID, &s.StageType, &s.Responsible, &s.Status,
			&s.EstimatedMinutes, &s.ActualMinutes, &s.StartedAt, &s.FinishedAt, &s.CreatedAt,
			&s.MinutesSinceStart, &s.IsLate,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning active stage: %v", ErrDatabaseError, err)
		}
		stages = append(stages, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating active stage rows: %v", ErrDatabaseError, err)
	}
	return stages, nil
}

func (r *stageRepository) GetStagesByOrder(orderID int64) ([]models.OrderStage, error) {
	stages := []models.OrderStage{}
	query := `SELECT ` + stageColumns + `,
	            ROUND((actual_minutes::NUMERIC / NULLIF(estimated_minutes, 0)) * 100, 1) AS efficiency_pct
	          FROM production_stages
	          WHERE order_id = $1
	          ORDER BY id`
	rows, err := r.db.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying stages for order %d: %v", ErrDatabaseError, orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.OrderStage
		if err := rows.Scan(
			&s.ID, &s.OrderID, &s.StageType, &s.Responsible, &s.Status,
			&s.EstimatedMinutes, &s.ActualMinutes, &s.StartedAt, &s.FinishedAt, &s.CreatedAt,
			&s.EfficiencyPct,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning order stage: %v", ErrDatabaseError, err)
		}
		stages = append(stages, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating order stage rows: %v", ErrDatabaseError, err)
	}
	return stages, nil
}

func (r *stageRepository) AppendTimeEvent(executor SQLExecutor, event *models.TimeEvent) (int64, error) {
	query := `INSERT INTO time_events (stage_id, event_kind, event_time, notes)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`
	if event.EventTime.IsZero() {
		event.EventTime = time.Now()
	}
	err := executor.QueryRow(query, event.StageID, event.EventKind, event.EventTime, event.Notes).Scan(&event.ID)
	if err != nil {
		return 0, mapPQError(err, fmt.Sprintf("appending %s event for stage %d", event.EventKind, event.StageID))
	}
	return event.ID, nil
}

func (r *stageRepository) GetTimeLog(stageID int64) ([]models.TimeEvent, error) {
	events := []models.TimeEvent{}
	query := `SELECT id, stage_id, event_kind, event_time, notes
	          FROM time_events
	          WHERE stage_id = $1
	          ORDER BY event_time, id`
	rows, err := r.db.Query(query, stageID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying time log for stage %d: %v", ErrDatabaseError, stageID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.TimeEvent
		if err := rows.Scan(&e.ID, &e.StageID, &e.EventKind, &e.EventTime, &e.Notes); err != nil {
			return nil, fmt.Errorf("%w: scanning time event: %v", ErrDatabaseError, err)
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating time event rows: %v", ErrDatabaseError, err)
	}
	return events, nil
}

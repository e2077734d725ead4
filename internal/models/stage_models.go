package models

import "time"

// Production stage statuses. The coarse status drives reporting and Gantt
// views; the finer pause/resume trail lives in time_events.
const (
	StageStatusScheduled  = "scheduled"
	StageStatusInProgress = "in_progress"
	StageStatusPaused     = "paused"
	StageStatusCompleted  = "completed"
)

// Time event kinds for the append-only stage audit log.
const (
	TimeEventStart  = "start"
	TimeEventPause  = "pause"
	TimeEventResume = "resume"
	TimeEventFinish = "finish"
)

// ProductionStage is a discrete production step within an order.
// EstimatedMinutes is set at creation and immutable; ActualMinutes is
// computed from started_at/finished_at when the stage completes.
type ProductionStage struct {
	ID               int64      `json:"id" db:"id"`
	OrderID          int64      `json:"order_id" db:"order_id"`
	StageType        string     `json:"stage_type" db:"stage_type"`
	Responsible      *string    `json:"responsible,omitempty" db:"responsible"`
	Status           string     `json:"status" db:"status"`
	EstimatedMinutes int        `json:"estimated_minutes" db:"estimated_minutes"`
	ActualMinutes    *int       `json:"actual_minutes,omitempty" db:"actual_minutes"`
	StartedAt        *time.Time `json:"started_at,omitempty" db:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// TimeEvent is one append-only entry of a stage's audit trail. Never mutated
// or deleted; duration math uses the stage's own timestamps, not this log.
type TimeEvent struct {
	ID        int64     `json:"id" db:"id"`
	StageID   int64     `json:"stage_id" db:"stage_id"`
	EventKind string    `json:"event_kind" db:"event_kind"`
	EventTime time.Time `json:"event_time" db:"event_time"`
	Notes     *string   `json:"notes,omitempty" db:"notes"`
}

// ActiveStage is the read projection of an in-progress/paused stage with
// lateness computed against the estimate.
type ActiveStage struct {
	ProductionStage
	MinutesSinceStart *int `json:"minutes_since_start"`
	IsLate            bool `json:"is_late"`
}

// OrderStage is the per-order stage projection. EfficiencyPct is
// actual/estimated*100 and is null when the estimate is zero.
type OrderStage struct {
	ProductionStage
	EfficiencyPct *float64 `json:"efficiency_pct"`
}

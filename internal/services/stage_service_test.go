package services

import (
	"errors"
	"testing"
	"time"

	"metalworks_backend/internal/models"
)

func newStageServiceForTest(t *testing.T) (*stageService, *fakeStageRepo, *fakeOrderRepo) {
	t.Helper()
	stageRepo := newFakeStageRepo()
	orderRepo := newFakeOrderRepo()
	svc := NewStageService(stageRepo, orderRepo, nil).(*stageService)
	return svc, stageRepo, orderRepo
}

func seedOrder(t *testing.T, orderRepo *fakeOrderRepo) int64 {
	t.Helper()
	id, err := orderRepo.CreateOrder(nil, &models.Order{ClientID: 1, ProductID: 1, Status: models.OrderStatusPending})
	if err != nil {
		t.Fatalf("seeding order failed: %v", err)
	}
	return id
}

func TestCreateStageValidation(t *testing.T) {
	svc, _, orderRepo := newStageServiceForTest(t)
	orderID := seedOrder(t, orderRepo)

	if _, err := svc.CreateStage(CreateStageRequest{OrderID: orderID, StageType: "Welding", EstimatedMinutes: -5}); !errors.Is(err, ErrValidation) {
		t.Errorf("negative estimate: got %v, want ErrValidation", err)
	}
	if _, err := svc.CreateStage(CreateStageRequest{OrderID: orderID, StageType: ""}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty stage type: got %v, want ErrValidation", err)
	}
	if _, err := svc.CreateStage(CreateStageRequest{OrderID: 999, StageType: "Welding"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing order: got %v, want ErrNotFound", err)
	}

	stage, err := svc.CreateStage(CreateStageRequest{OrderID: orderID, StageType: "Welding", EstimatedMinutes: 90})
	if err != nil {
		t.Fatalf("CreateStage failed: %v", err)
	}
	if stage.Status != models.StageStatusScheduled {
		t.Errorf("status = %s, want scheduled", stage.Status)
	}
}

func TestStageLifecycleWithEvents(t *testing.T) {
	svc, stageRepo, orderRepo := newStageServiceForTest(t)
	orderID := seedOrder(t, orderRepo)
	stage, err := svc.CreateStage(CreateStageRequest{OrderID: orderID, StageType: "Welding", EstimatedMinutes: 60})
	if err != nil {
		t.Fatalf("CreateStage failed: %v", err)
	}

	started, err := svc.StartStage(stage.ID, "begin")
	if err != nil {
		t.Fatalf("StartStage failed: %v", err)
	}
	if started.Status != models.StageStatusInProgress || started.StartedAt == nil {
		t.Errorf("start: status = %s, startedAt = %v", started.Status, started.StartedAt)
	}

	if _, err := svc.PauseStage(stage.ID, "lunch"); err != nil {
		t.Fatalf("PauseStage failed: %v", err)
	}
	if _, err := svc.ResumeStage(stage.ID, ""); err != nil {
		t.Fatalf("ResumeStage failed: %v", err)
	}

	finished, err := svc.FinishStage(stage.ID, "done")
	if err != nil {
		t.Fatalf("FinishStage failed: %v", err)
	}
	if finished.Status != models.StageStatusCompleted || finished.ActualMinutes == nil {
		t.Errorf("finish: status = %s, actualMinutes = %v", finished.Status, finished.ActualMinutes)
	}

	kinds := stageRepo.eventKinds(stage.ID)
	want := []string{models.TimeEventStart, models.TimeEventPause, models.TimeEventResume, models.TimeEventFinish}
	if len(kinds) != len(want) {
		t.Fatalf("event kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}

// The event log is advisory. A failed append must not fail the transition
// that triggered it.
func TestTransitionSurvivesEventAppendFailure(t *testing.T) {
	svc, stageRepo, orderRepo := newStageServiceForTest(t)
	orderID := seedOrder(t, orderRepo)
	stage, err := svc.CreateStage(CreateStageRequest{OrderID: orderID, StageType: "Welding", EstimatedMinutes: 60})
	if err != nil {
		t.Fatalf("CreateStage failed: %v", err)
	}
	stageRepo.failAppend = true

	started, err := svc.StartStage(stage.ID, "begin")
	if err != nil {
		t.Fatalf("StartStage failed: %v", err)
	}
	if started.Status != models.StageStatusInProgress || started.StartedAt == nil {
		t.Errorf("start: status = %s, startedAt = %v", started.Status, started.StartedAt)
	}
	if kinds := stageRepo.eventKinds(stage.ID); len(kinds) != 0 {
		t.Errorf("events recorded despite append failure: %v", kinds)
	}
}

func TestFinishStageIdempotent(t *testing.T) {
	svc, stageRepo, orderRepo := newStageServiceForTest(t)
	orderID := seedOrder(t, orderRepo)
	stage, err := svc.CreateStage(CreateStageRequest{OrderID: orderID, StageType: "Finishing", EstimatedMinutes: 30})
	if err != nil {
		t.Fatalf("CreateStage failed: %v", err)
	}
	if _, err := svc.StartStage(stage.ID, ""); err != nil {
		t.Fatalf("StartStage failed: %v", err)
	}

	first, err := svc.FinishStage(stage.ID, "")
	if err != nil {
		t.Fatalf("first finish failed: %v", err)
	}
	second, err := svc.FinishStage(stage.ID, "")
	if err != nil {
		t.Fatalf("second finish failed: %v", err)
	}
	if *first.ActualMinutes != *second.ActualMinutes {
		t.Errorf("actual minutes changed on re-finish: %d vs %d", *first.ActualMinutes, *second.ActualMinutes)
	}
	if first.FinishedAt == nil || second.FinishedAt == nil || !first.FinishedAt.Equal(*second.FinishedAt) {
		t.Errorf("finished_at changed on re-finish: %v vs %v", first.FinishedAt, second.FinishedAt)
	}

	kinds := stageRepo.eventKinds(stage.ID)
	finishCount := 0
	for _, k := range kinds {
		if k == models.TimeEventFinish {
			finishCount++
		}
	}
	if finishCount != 1 {
		t.Errorf("finish events = %d, want 1", finishCount)
	}
}

func TestFinishStageWithoutStartIsInstant(t *testing.T) {
	svc, _, orderRepo := newStageServiceForTest(t)
	orderID := seedOrder(t, orderRepo)
	stage, err := svc.CreateStage(CreateStageRequest{OrderID: orderID, StageType: "Assembly", EstimatedMinutes: 45})
	if err != nil {
		t.Fatalf("CreateStage failed: %v", err)
	}

	finished, err := svc.FinishStage(stage.ID, "")
	if err != nil {
		t.Fatalf("FinishStage failed: %v", err)
	}
	if finished.ActualMinutes == nil || *finished.ActualMinutes != 0 {
		t.Errorf("actual minutes = %v, want 0", finished.ActualMinutes)
	}
	if finished.StartedAt == nil || finished.FinishedAt == nil {
		t.Error("instant finish did not backfill timestamps")
	}
}

func TestStageInvalidTransitions(t *testing.T) {
	svc, _, orderRepo := newStageServiceForTest(t)
	orderID := seedOrder(t, orderRepo)
	stage, err := svc.CreateStage(CreateStageRequest{OrderID: orderID, StageType: "Welding", EstimatedMinutes: 60})
	if err != nil {
		t.Fatalf("CreateStage failed: %v", err)
	}

	// Pausing a scheduled stage is a transition violation.
	if _, err := svc.PauseStage(stage.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pause scheduled: got %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.ResumeStage(stage.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("resume scheduled: got %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.StartStage(999, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("start missing: got %v, want ErrNotFound", err)
	}

	if _, err := svc.FinishStage(stage.ID, ""); err != nil {
		t.Fatalf("FinishStage failed: %v", err)
	}
	if _, err := svc.StartStage(stage.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("start completed: got %v, want ErrInvalidTransition", err)
	}
}

func TestGetActiveStagesLateFlag(t *testing.T) {
	svc, stageRepo, orderRepo := newStageServiceForTest(t)
	orderID := seedOrder(t, orderRepo)
	stage, err := svc.CreateStage(CreateStageRequest{OrderID: orderID, StageType: "Welding", EstimatedMinutes: 10})
	if err != nil {
		t.Fatalf("CreateStage failed: %v", err)
	}
	if _, err := svc.StartStage(stage.ID, ""); err != nil {
		t.Fatalf("StartStage failed: %v", err)
	}

	// Backdate the start past the estimate.
	stageRepo.mu.Lock()
	started := time.Now().Add(-30 * time.Minute)
	stageRepo.stages[stage.ID].StartedAt = &started
	stageRepo.mu.Unlock()

	active, err := svc.GetActiveStages()
	if err != nil {
		t.Fatalf("GetActiveStages failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active stages = %d, want 1", len(active))
	}
	if !active[0].IsLate {
		t.Error("stage past its estimate was not flagged late")
	}
}

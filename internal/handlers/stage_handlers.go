package handlers

import (
	"errors"
	"io"
	"net/http"

	"metalworks_backend/internal/models"
	"metalworks_backend/internal/services"
	"metalworks_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// StageHandler holds the production stage service.
type StageHandler struct {
	stageService services.StageService
}

// NewStageHandler creates a new StageHandler.
func NewStageHandler(ss services.StageService) *StageHandler {
	return &StageHandler{stageService: ss}
}

// CreateStage handles adding a production stage to an order.
func (h *StageHandler) CreateStage(c *gin.Context) {
	var req services.CreateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateStage: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	stage, err := h.stageService.CreateStage(req)
	if err != nil {
		utils.LogError(err, "CreateStage: Error from stageService.CreateStage")
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid stage definition.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create stage.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, stage)
}

// StartStage handles starting (or re-asserting) work on a stage.
func (h *StageHandler) StartStage(c *gin.Context) {
	h.transition(c, "start", h.stageService.StartStage)
}

// PauseStage handles pausing an in-progress stage.
func (h *StageHandler) PauseStage(c *gin.Context) {
	h.transition(c, "pause", h.stageService.PauseStage)
}

// ResumeStage handles resuming a paused stage.
func (h *StageHandler) ResumeStage(c *gin.Context) {
	h.transition(c, "resume", h.stageService.ResumeStage)
}

// FinishStage handles completing a stage and settling its actual minutes.
func (h *StageHandler) FinishStage(c *gin.Context) {
	h.transition(c, "finish", h.stageService.FinishStage)
}

// transition runs one stage state change. The four transition endpoints share
// request shape and error mapping and differ only in the service call.
func (h *StageHandler) transition(c *gin.Context, op string, call func(int64, string) (*models.ProductionStage, error)) {
	stageID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.StageEventRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.LogError(err, "StageTransition: Failed to bind JSON for "+op)
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	stage, err := call(stageID, req.Notes)
	if err != nil {
		utils.LogError(err, "StageTransition: Error from stageService "+op)
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Stage not found.", err.Error()))
		} else if errors.Is(err, services.ErrInvalidTransition) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeInvalidTransition, "Stage cannot "+op+" from its current status.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to "+op+" stage.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, stage)
}

// GetActiveStages handles the live production floor view.
func (h *StageHandler) GetActiveStages(c *gin.Context) {
	stages, err := h.stageService.GetActiveStages()
	if err != nil {
		utils.LogError(err, "GetActiveStages: Error from stageService.GetActiveStages")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch active stages.", "Internal error"))
		return
	}
	if stages == nil {
		stages = []models.ActiveStage{}
	}
	c.JSON(http.StatusOK, stages)
}

// GetOrderStages handles fetching the stages of one order with efficiency.
func (h *StageHandler) GetOrderStages(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	stages, err := h.stageService.GetStagesByOrder(orderID)
	if err != nil {
		utils.LogError(err, "GetOrderStages: Error from stageService.GetStagesByOrder")
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch order stages.", "Internal error"))
		}
		return
	}
	if stages == nil {
		stages = []models.OrderStage{}
	}
	c.JSON(http.StatusOK, stages)
}

// GetTimeLog handles fetching the append-only time-event trail of a stage.
func (h *StageHandler) GetTimeLog(c *gin.Context) {
	stageID, ok := paramID(c, "id")
	if !ok {
		return
	}

	events, err := h.stageService.GetTimeLog(stageID)
	if err != nil {
		utils.LogError(err, "GetTimeLog: Error from stageService.GetTimeLog")
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Stage not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch time log.", "Internal error"))
		}
		return
	}
	if events == nil {
		events = []models.TimeEvent{}
	}
	c.JSON(http.StatusOK, events)
}

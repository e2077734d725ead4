package handlers

import (
	"errors"
	"net/http"

	"metalworks_backend/internal/models"
	"metalworks_backend/internal/services"
	"metalworks_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ConsumptionHandler holds the material consumption service.
type ConsumptionHandler struct {
	consumptionService services.ConsumptionService
}

// NewConsumptionHandler creates a new ConsumptionHandler.
func NewConsumptionHandler(cs services.ConsumptionService) *ConsumptionHandler {
	return &ConsumptionHandler{consumptionService: cs}
}

// RecordActual handles recording the real consumed quantity of a material
// for an order.
func (h *ConsumptionHandler) RecordActual(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.RecordConsumptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "RecordActual: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	row, err := h.consumptionService.RecordActual(orderID, req)
	if err != nil {
		utils.LogError(err, "RecordActual: Error from consumptionService.RecordActual")
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order or material not found.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid consumption quantity.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to record consumption.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, row)
}

// GetVariance handles the planned-vs-actual consumption view of an order.
func (h *ConsumptionHandler) GetVariance(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	rows, err := h.consumptionService.GetVariance(orderID)
	if err != nil {
		utils.LogError(err, "GetVariance: Error from consumptionService.GetVariance")
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch consumption variance.", "Internal error"))
		}
		return
	}
	if rows == nil {
		rows = []models.ConsumptionVariance{}
	}
	c.JSON(http.StatusOK, rows)
}

package handlers

import (
	"net/http"
	"strconv"

	"metalworks_backend/internal/services"
	"metalworks_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ReportHandler holds the reporting service.
type ReportHandler struct {
	reportService services.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(rs services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: rs}
}

// GetBottlenecks handles the late-active-stages view.
func (h *ReportHandler) GetBottlenecks(c *gin.Context) {
	rows, err := h.reportService.GetBottlenecks()
	if err != nil {
		utils.LogError(err, "GetBottlenecks: Error from reportService.GetBottlenecks")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch bottlenecks.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetAgingReport handles the open-invoice aging buckets.
func (h *ReportHandler) GetAgingReport(c *gin.Context) {
	rows, err := h.reportService.GetAgingReport()
	if err != nil {
		utils.LogError(err, "GetAgingReport: Error from reportService.GetAgingReport")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch aging report.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetCashFlow handles payments grouped by day over a window.
func (h *ReportHandler) GetCashFlow(c *gin.Context) {
	days := 0
	if daysStr := c.Query("days"); daysStr != "" {
		v, err := strconv.Atoi(daysStr)
		if err != nil || v < 0 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid days format.", "days must be a positive integer"))
			return
		}
		days = v
	}

	rows, err := h.reportService.GetCashFlow(days)
	if err != nil {
		utils.LogError(err, "GetCashFlow: Error from reportService.GetCashFlow")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch cash flow.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetBilledVsCollected handles monthly invoiced-vs-collected totals.
func (h *ReportHandler) GetBilledVsCollected(c *gin.Context) {
	months := 0
	if monthsStr := c.Query("months"); monthsStr != "" {
		v, err := strconv.Atoi(monthsStr)
		if err != nil || v < 0 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid months format.", "months must be a positive integer"))
			return
		}
		months = v
	}

	rows, err := h.reportService.GetBilledVsCollected(months)
	if err != nil {
		utils.LogError(err, "GetBilledVsCollected: Error from reportService.GetBilledVsCollected")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch billed vs collected report.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetPendingDeliveries handles undelivered orders with urgency flags.
func (h *ReportHandler) GetPendingDeliveries(c *gin.Context) {
	rows, err := h.reportService.GetPendingDeliveries()
	if err != nil {
		utils.LogError(err, "GetPendingDeliveries: Error from reportService.GetPendingDeliveries")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch pending deliveries.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetCriticalStock handles materials below their minimum stock level.
func (h *ReportHandler) GetCriticalStock(c *gin.Context) {
	rows, err := h.reportService.GetCriticalStock()
	if err != nil {
		utils.LogError(err, "GetCriticalStock: Error from reportService.GetCriticalStock")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch critical stock.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, rows)
}

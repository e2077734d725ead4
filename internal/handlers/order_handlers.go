package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"metalworks_backend/internal/models"
	"metalworks_backend/internal/services"
	"metalworks_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// OrderHandler holds the order orchestrator service.
type OrderHandler struct {
	orderService services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(os services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: os}
}

// CreateOrder handles the orchestrated creation of a new order from a budget.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateOrder: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	order, err := h.orderService.CreateOrder(req)
	if err != nil {
		utils.LogError(err, "CreateOrder: Error from orderService.CreateOrder")
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Budget not found.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Order cannot be created from this budget.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrders handles fetching orders with filters and pagination.
func (h *OrderHandler) GetOrders(c *gin.Context) {
	var filters models.OrderFilters

	if clientIDStr := c.Query("client_id"); clientIDStr != "" {
		clientID, err := strconv.ParseInt(clientIDStr, 10, 64)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid client_id format.", err.Error()))
			return
		}
		filters.ClientID = &clientID
	}
	if status := c.Query("status"); status != "" {
		filters.Status = &status
	}
	if priority := c.Query("priority"); priority != "" {
		filters.Priority = &priority
	}
	filters.Page, filters.PageSize = parsePagination(c)

	orders, totalCount, err := h.orderService.GetOrders(filters)
	if err != nil {
		utils.LogError(err, "GetOrders: Error from orderService.GetOrders")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch orders.", "Internal error"))
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      orders,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

// GetOrderByID handles fetching a single order by ID.
func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrderByID(orderID)
	if err != nil {
		utils.LogError(err, "GetOrderByID: Error from orderService.GetOrderByID")
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch order.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus handles the operator-set status change of an order.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "UpdateOrderStatus: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	if err := h.orderService.UpdateOrderStatus(orderID, req); err != nil {
		utils.LogError(err, "UpdateOrderStatus: Error from orderService.UpdateOrderStatus")
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid order status provided.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update order status.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated."})
}

// ConfirmDelivery handles marking an order as delivered.
func (h *OrderHandler) ConfirmDelivery(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	// The delivery date is optional; an empty body means "delivered today".
	var req services.ConfirmDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.LogError(err, "ConfirmDelivery: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	if err := h.orderService.ConfirmDelivery(orderID, req); err != nil {
		utils.LogError(err, "ConfirmDelivery: Error from orderService.ConfirmDelivery")
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to confirm delivery.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Delivery confirmed."})
}

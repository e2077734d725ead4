package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"metalworks_backend/internal/models"
	"metalworks_backend/internal/services"
	"metalworks_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// InvoiceHandler holds the invoice ledger service.
type InvoiceHandler struct {
	invoiceService services.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(is services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: is}
}

// CreateInvoice handles creating a draft or issued invoice.
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req services.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateInvoice: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(req)
	if err != nil {
		utils.LogError(err, "CreateInvoice: Error from invoiceService.CreateInvoice")
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Client or order not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create invoice.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

// GenerateFromOrder handles issuing a one-line invoice for an order's total.
func (h *InvoiceHandler) GenerateFromOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.GenerateFromOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.LogError(err, "GenerateFromOrder: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	invoice, err := h.invoiceService.GenerateFromOrder(orderID, req)
	if err != nil {
		utils.LogError(err, "GenerateFromOrder: Error from invoiceService.GenerateFromOrder")
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid invoice parameters.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to generate invoice.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

// AddInvoiceItem handles appending a line item to an invoice.
func (h *InvoiceHandler) AddInvoiceItem(c *gin.Context) {
	invoiceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.AddInvoiceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "AddInvoiceItem: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	invoice, err := h.invoiceService.AddInvoiceItem(invoiceID, req)
	if err != nil {
		utils.LogError(err, "AddInvoiceItem: Error from invoiceService.AddInvoiceItem")
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Invoice not found.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid line item.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to add invoice item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// RecordPayment handles recording one payment against an invoice. Overpayment
// rejections carry the open balance; a busy invoice maps to 423 so clients
// can retry.
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	invoiceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "RecordPayment: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	payment, err := h.invoiceService.RecordPayment(invoiceID, req)
	if err != nil {
		utils.LogError(err, "RecordPayment: Error from invoiceService.RecordPayment")
		var overpayment *services.OverpaymentError
		switch {
		case errors.As(err, &overpayment):
			detail := fmt.Sprintf("open balance is %.2f", overpayment.Balance)
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeOverpayment, "Payment exceeds the invoice's open balance.", detail))
		case errors.Is(err, services.ErrNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Invoice not found.", err.Error()))
		case errors.Is(err, services.ErrValidation):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid payment amount.", err.Error()))
		case errors.Is(err, services.ErrInvalidTransition):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeInvalidTransition, "Invoice does not accept payments in its current status.", err.Error()))
		case errors.Is(err, services.ErrBusy):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusLocked, utils.ErrCodeLocked, "Invoice is busy, retry shortly.", err.Error()))
		default:
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to record payment.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// GetInvoices handles fetching invoices with filters; overdue statuses are
// refreshed before the read.
func (h *InvoiceHandler) GetInvoices(c *gin.Context) {
	var filters models.InvoiceFilters

	if clientIDStr := c.Query("client_id"); clientIDStr != "" {
		clientID, err := strconv.ParseInt(clientIDStr, 10, 64)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid client_id format.", err.Error()))
			return
		}
		filters.ClientID = &clientID
	}
	if orderIDStr := c.Query("order_id"); orderIDStr != "" {
		orderID, err := strconv.ParseInt(orderIDStr, 10, 64)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid order_id format.", err.Error()))
			return
		}
		filters.OrderID = &orderID
	}
	if status := c.Query("status"); status != "" {
		filters.Status = &status
	}
	filters.Page, filters.PageSize = parsePagination(c)

	invoices, totalCount, err := h.invoiceService.GetInvoices(filters)
	if err != nil {
		utils.LogError(err, "GetInvoices: Error from invoiceService.GetInvoices")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch invoices.", "Internal error"))
		return
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      invoices,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

// GetInvoiceByID handles fetching one invoice with items and payments.
func (h *InvoiceHandler) GetInvoiceByID(c *gin.Context) {
	invoiceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	detail, err := h.invoiceService.GetInvoiceDetail(invoiceID)
	if err != nil {
		utils.LogError(err, "GetInvoiceByID: Error from invoiceService.GetInvoiceDetail")
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Invoice not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch invoice.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, detail)
}

// CancelInvoice handles cancelling a draft or issued invoice.
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	invoiceID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.invoiceService.CancelInvoice(invoiceID); err != nil {
		utils.LogError(err, "CancelInvoice: Error from invoiceService.CancelInvoice")
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Invoice not found.", err.Error()))
		} else if errors.Is(err, services.ErrInvalidTransition) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeInvalidTransition, "Only draft or issued invoices can be cancelled.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to cancel invoice.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invoice cancelled."})
}

// RefreshOverdue handles the explicit overdue sweep.
func (h *InvoiceHandler) RefreshOverdue(c *gin.Context) {
	updated, err := h.invoiceService.RefreshOverdue()
	if err != nil {
		utils.LogError(err, "RefreshOverdue: Error from invoiceService.RefreshOverdue")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to refresh overdue invoices.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

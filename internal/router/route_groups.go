package router

import (
	"metalworks_backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupOrderRoutes sets up the order routes, including the order-scoped
// stage, consumption and invoicing endpoints.
func SetupOrderRoutes(
	apiGroup *gin.RouterGroup,
	orderHandler *handlers.OrderHandler,
	stageHandler *handlers.StageHandler,
	consumptionHandler *handlers.ConsumptionHandler,
	invoiceHandler *handlers.InvoiceHandler,
) {
	orderRoutes := apiGroup.Group("/orders")
	{
		orderRoutes.POST("", orderHandler.CreateOrder)
		orderRoutes.GET("", orderHandler.GetOrders)
		orderRoutes.GET("/:id", orderHandler.GetOrderByID)
		orderRoutes.PATCH("/:id/status", orderHandler.UpdateOrderStatus)
		orderRoutes.POST("/:id/delivery", orderHandler.ConfirmDelivery)
		orderRoutes.GET("/:id/stages", stageHandler.GetOrderStages)
		orderRoutes.GET("/:id/consumption", consumptionHandler.GetVariance)
		orderRoutes.POST("/:id/consumption", consumptionHandler.RecordActual)
		orderRoutes.POST("/:id/invoice", invoiceHandler.GenerateFromOrder)
	}
}

// SetupStageRoutes sets up the production stage routes.
func SetupStageRoutes(apiGroup *gin.RouterGroup, stageHandler *handlers.StageHandler) {
	stageRoutes := apiGroup.Group("/stages")
	{
		stageRoutes.POST("", stageHandler.CreateStage)
		stageRoutes.GET("/active", stageHandler.GetActiveStages)
		stageRoutes.POST("/:id/start", stageHandler.StartStage)
		stageRoutes.POST("/:id/pause", stageHandler.PauseStage)
		stageRoutes.POST("/:id/resume", stageHandler.ResumeStage)
		stageRoutes.POST("/:id/finish", stageHandler.FinishStage)
		stageRoutes.GET("/:id/time-log", stageHandler.GetTimeLog)
	}
}

// SetupInvoiceRoutes sets up the invoice and payment ledger routes.
func SetupInvoiceRoutes(apiGroup *gin.RouterGroup, invoiceHandler *handlers.InvoiceHandler) {
	invoiceRoutes := apiGroup.Group("/invoices")
	{
		invoiceRoutes.POST("", invoiceHandler.CreateInvoice)
		invoiceRoutes.GET("", invoiceHandler.GetInvoices)
		invoiceRoutes.POST("/refresh-overdue", invoiceHandler.RefreshOverdue)
		invoiceRoutes.GET("/:id", invoiceHandler.GetInvoiceByID)
		invoiceRoutes.POST("/:id/items", invoiceHandler.AddInvoiceItem)
		invoiceRoutes.POST("/:id/payments", invoiceHandler.RecordPayment)
		invoiceRoutes.POST("/:id/cancel", invoiceHandler.CancelInvoice)
	}
}

// SetupCatalogRoutes sets up the read-only catalog list routes.
func SetupCatalogRoutes(apiGroup *gin.RouterGroup, catalogHandler *handlers.CatalogHandler) {
	apiGroup.GET("/clients", catalogHandler.GetClients)
	apiGroup.GET("/materials", catalogHandler.GetMaterials)
}

// SetupReportRoutes sets up the reporting routes.
func SetupReportRoutes(apiGroup *gin.RouterGroup, reportHandler *handlers.ReportHandler) {
	reportRoutes := apiGroup.Group("/reports")
	{
		reportRoutes.GET("/bottlenecks", reportHandler.GetBottlenecks)
		reportRoutes.GET("/aging", reportHandler.GetAgingReport)
		reportRoutes.GET("/cash-flow", reportHandler.GetCashFlow)
		reportRoutes.GET("/billed-vs-collected", reportHandler.GetBilledVsCollected)
		reportRoutes.GET("/pending-deliveries", reportHandler.GetPendingDeliveries)
		reportRoutes.GET("/critical-stock", reportHandler.GetCriticalStock)
	}
}

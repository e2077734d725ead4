package router

import (
	"database/sql"

	"metalworks_backend/internal/handlers"
	"metalworks_backend/internal/repositories"
	"metalworks_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, db *sql.DB) {
	// Initialize Repositories
	catalogRepo := repositories.NewCatalogRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	stageRepo := repositories.NewStageRepository(db)
	consumptionRepo := repositories.NewConsumptionRepository(db)
	invoiceRepo := repositories.NewInvoiceRepository(db)
	reportRepo := repositories.NewReportRepository(db)

	// Initialize Services
	catalogService := services.NewCatalogService(catalogRepo)
	orderService := services.NewOrderService(orderRepo, stageRepo, catalogRepo, consumptionRepo, db)
	stageService := services.NewStageService(stageRepo, orderRepo, db)
	consumptionService := services.NewConsumptionService(consumptionRepo, catalogRepo, orderRepo, db)
	invoiceService := services.NewInvoiceService(invoiceRepo, orderRepo, catalogRepo)
	reportService := services.NewReportService(reportRepo, stageRepo)

	// Initialize Handlers
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	orderHandler := handlers.NewOrderHandler(orderService)
	stageHandler := handlers.NewStageHandler(stageService)
	consumptionHandler := handlers.NewConsumptionHandler(consumptionService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService)
	reportHandler := handlers.NewReportHandler(reportService)

	apiV1 := engine.Group("/api/v1")
	{
		SetupOrderRoutes(apiV1, orderHandler, stageHandler, consumptionHandler, invoiceHandler)
		SetupStageRoutes(apiV1, stageHandler)
		SetupInvoiceRoutes(apiV1, invoiceHandler)
		SetupCatalogRoutes(apiV1, catalogHandler)
		SetupReportRoutes(apiV1, reportHandler)
	}
}

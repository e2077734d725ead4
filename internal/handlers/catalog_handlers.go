package handlers

import (
	"net/http"

	"metalworks_backend/internal/services"
	"metalworks_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the read-only catalog lists.
type CatalogHandler struct {
	catalogService services.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(cs services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: cs}
}

// GetClients handles the client dropdown feed.
func (h *CatalogHandler) GetClients(c *gin.Context) {
	clients, err := h.catalogService.GetClients()
	if err != nil {
		utils.LogError(err, "GetClients: Error from catalogService.GetClients")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch clients.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, clients)
}

// GetMaterials handles the material dropdown feed.
func (h *CatalogHandler) GetMaterials(c *gin.Context) {
	materials, err := h.catalogService.GetMaterials()
	if err != nil {
		utils.LogError(err, "GetMaterials: Error from catalogService.GetMaterials")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch materials.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, materials)
}

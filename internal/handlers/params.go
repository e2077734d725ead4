package handlers

import (
	"net/http"
	"strconv"

	"metalworks_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// paramID parses a path parameter as an int64 ID. On failure it writes the
// 400 response itself and returns ok = false.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" format.", err.Error()))
		return 0, false
	}
	return id, true
}

// parsePagination reads page/page_size query parameters with sane defaults.
func parsePagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 10
	if pageStr := c.Query("page"); pageStr != "" {
		if v, err := strconv.Atoi(pageStr); err == nil && v > 0 {
			page = v
		}
	}
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		if v, err := strconv.Atoi(pageSizeStr); err == nil && v > 0 {
			pageSize = v
		}
	}
	return page, pageSize
}

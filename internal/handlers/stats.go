package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"routelynk/internal/middleware"
	"routelynk/internal/models"
	"routelynk/internal/services"
	"routelynk/internal/utils"
)

type StatsHandler struct {
	statsService *services.StatsService
}

func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// VendorStats serves the vendor dashboard numbers. Vendors only see their
// own; admins can look at anyone's.
func (h *StatsHandler) VendorStats(c *gin.Context) {
	email := c.Param("email")
	caller := c.GetString(middleware.ContextEmailKey)
	isAdmin := c.GetString(middleware.ContextRoleKey) == string(models.RoleAdmin)

	if !isAdmin && email != caller {
		c.JSON(http.StatusForbidden, utils.ErrorResponse("forbidden access", ""))
		return
	}

	stats, err := h.statsService.VendorStats(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to aggregate vendor stats", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Vendor stats retrieved", stats))
}

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/meghatales/bookstore/internal/models"
	"github.com/meghatales/bookstore/internal/preview"
)

// DashboardHandler serves the signed-in user's dashboard: profile,
// purchase history and today's remaining preview budget.
type DashboardHandler struct {
	DB      *gorm.DB
	Tracker *preview.Tracker
}

func (h *DashboardHandler) GetDashboard(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	var purchases []models.Purchase
	if err := h.DB.
		Where("user_id = ?", userID).
		Order("purchase_date DESC").
		Find(&purchases).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	remaining, err := h.Tracker.RemainingSeconds(c.Request().Context(), eventKey(userID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"profile":                   user,
		"purchases":                 purchases,
		"preview_seconds_remaining": remaining,
	})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meghatales/bookstore/internal/events"
	"github.com/meghatales/bookstore/internal/preview"
)

// PreviewHandler exposes the entitlement tracker over HTTP. The browser
// drives Tick once per second while a preview is open; the tracker itself
// holds no timer.
type PreviewHandler struct {
	Tracker  *preview.Tracker
	Producer *events.Producer
}

func (h *PreviewHandler) Start(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}
	resourceID := c.Param("id")

	remaining, err := h.Tracker.StartPreview(c.Request().Context(), eventKey(userID), resourceID)
	if errors.Is(err, preview.ErrQuotaExhausted) {
		return echo.NewHTTPError(http.StatusForbidden, "daily preview limit reached")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, events.TopicPreviewEvents, eventKey(userID), map[string]any{
		"type":       "preview_started",
		"userID":     userID,
		"resourceID": resourceID,
	})

	return c.JSON(http.StatusOK, echo.Map{"remaining_seconds": remaining})
}

func (h *PreviewHandler) Tick(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	remaining, revoke, err := h.Tracker.Tick(c.Request().Context(), eventKey(userID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if revoke {
		publish(c, h.Producer, events.TopicPreviewEvents, eventKey(userID), map[string]any{
			"type":   "preview_quota_exhausted",
			"userID": userID,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"remaining_seconds": remaining,
		"revoked":           revoke,
	})
}

func (h *PreviewHandler) Stop(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}
	if err := h.Tracker.StopPreview(c.Request().Context(), eventKey(userID)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PreviewHandler) Remaining(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	remaining, err := h.Tracker.RemainingSeconds(c.Request().Context(), eventKey(userID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	state, err := h.Tracker.StateOf(c.Request().Context(), eventKey(userID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"remaining_seconds": remaining,
		"state":             state,
	})
}

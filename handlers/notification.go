package handlers

import (
	"net/http"
	"strconv"

	"court_flow_app_go/middleware"

	"github.com/labstack/echo/v4"
)

// ListNotifications returns the caller's unread notifications
func (h *Handler) ListNotifications(c echo.Context) error {
	actor := middleware.GetActor(c)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	notifications, err := h.WF.Notifier.ListUnread(actor.UserID, limit)
	if err != nil {
		return respondError(c, err)
	}
	count, err := h.WF.Notifier.UnreadCount(actor.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"unread":        count,
		"notifications": notifications,
	})
}

func (h *Handler) MarkNotificationRead(c echo.Context) error {
	if err := h.WF.Notifier.MarkAsRead(c.Param("id"), middleware.GetActor(c).UserID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAllNotificationsRead(c echo.Context) error {
	n, err := h.WF.Notifier.MarkAllAsRead(middleware.GetActor(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"marked": n})
}

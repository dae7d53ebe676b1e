package handlers

import (
	"fmt"
	"net/http"

	"court_flow_app_go/middleware"

	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ListDeadlines returns the process terms evaluated now
func (h *Handler) ListDeadlines(c echo.Context) error {
	views, err := h.WF.Deadlines.ListForProcess(middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// ExportDocket downloads the process terms as a spreadsheet in the caller's language
func (h *Handler) ExportDocket(c echo.Context) error {
	buf, filename, err := h.WF.Docket.ExportDocket(middleware.GetActor(c), c.Param("id"), middleware.GetLocale(c))
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// AppealWindow reports the appeal term of a judged process
func (h *Handler) AppealWindow(c echo.Context) error {
	if _, err := h.WF.Processes.GetProcess(middleware.GetActor(c), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	view, err := h.WF.Judgments.AppealWindow(c.Param("id"), h.WF.Deadlines.Now())
	if err != nil {
		return respondError(c, err)
	}
	if view == nil {
		return echo.NewHTTPError(http.StatusNotFound, "No active appeal term")
	}
	return c.JSON(http.StatusOK, view)
}

package handlers

import (
	"net/http"

	"court_flow_app_go/middleware"
	"court_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// IssueJudgment seals the judgment and opens the appeal term
func (h *Handler) IssueJudgment(c echo.Context) error {
	var content services.JudgmentContent
	if err := bind(c, &content); err != nil {
		return err
	}
	result, err := h.WF.Judgments.IssueJudgment(c.Request().Context(), middleware.GetActor(c), c.Param("id"), content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

package handlers

import (
	"net/http"
	"time"

	"court_flow_app_go/middleware"
	"court_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

type orderCitationRequest struct {
	Method string `json:"method"`
	Notes  string `json:"notes"`
}

// OrderCitation orders service of the claim on the responding party
func (h *Handler) OrderCitation(c echo.Context) error {
	var req orderCitationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	citation, err := h.WF.Citations.OrderCitation(c.Request().Context(), middleware.GetActor(c), c.Param("id"), req.Method, req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, citation)
}

// ListCitations returns the citations of a process with their attempts
func (h *Handler) ListCitations(c echo.Context) error {
	citations, err := h.WF.Citations.ListForProcess(middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, citations)
}

type attemptRequest struct {
	Date   string `json:"date"` // YYYY-MM-DD in the court's zone
	Time   string `json:"time"` // HH:MM
	Reason string `json:"reason"`
}

// RegisterFailedAttempt records an unsuccessful service attempt
func (h *Handler) RegisterFailedAttempt(c echo.Context) error {
	var req attemptRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	date, err := services.ParseDate(req.Date, h.WF.Calendar.Location())
	if err != nil {
		return respondError(c, err)
	}
	result, err := h.WF.Citations.RegisterFailedAttempt(c.Request().Context(), middleware.GetActor(c), c.Param("id"),
		services.CitationAttemptInput{Date: date, Time: req.Time, Reason: req.Reason})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type serviceOutcomeRequest struct {
	At    string `json:"at"` // RFC3339 or YYYY-MM-DD, defaults to now
	Notes string `json:"notes"`
}

// outcomeTime parses an optional timestamp, defaulting to the workflow clock
func (h *Handler) outcomeTime(value string) (time.Time, error) {
	if value == "" {
		return h.WF.Deadlines.Now(), nil
	}
	return services.ParseTimestamp(value, h.WF.Calendar.Location())
}

// MarkCitationSuccessful records service and opens the response term
func (h *Handler) MarkCitationSuccessful(c echo.Context) error {
	var req serviceOutcomeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	at, err := h.outcomeTime(req.At)
	if err != nil {
		return respondError(c, err)
	}
	citation, deadline, err := h.WF.Citations.MarkSuccessful(c.Request().Context(), middleware.GetActor(c), c.Param("id"), at, req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"citation":          citation,
		"response_deadline": deadline,
	})
}

// MarkCitationFailed closes a citation without service
func (h *Handler) MarkCitationFailed(c echo.Context) error {
	var req serviceOutcomeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	citation, err := h.WF.Citations.MarkFailed(c.Request().Context(), middleware.GetActor(c), c.Param("id"), req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, citation)
}

// RegisterTacitCitation records that the responding party appeared on their own
func (h *Handler) RegisterTacitCitation(c echo.Context) error {
	var req serviceOutcomeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	at, err := h.outcomeTime(req.At)
	if err != nil {
		return respondError(c, err)
	}
	citation, deadline, err := h.WF.Citations.RegisterTacit(c.Request().Context(), middleware.GetActor(c), c.Param("id"), at, req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"citation":          citation,
		"response_deadline": deadline,
	})
}

package handlers

import (
	"net/http"

	"court_flow_app_go/middleware"
	"court_flow_app_go/models"
	"court_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// CreateProcess opens a draft process with its filing
func (h *Handler) CreateProcess(c echo.Context) error {
	var in services.NewProcess
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.WF.Processes.CreateProcess(middleware.GetActor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// ListProcesses returns the caller's processes, optionally filtered by ?stage=
func (h *Handler) ListProcesses(c echo.Context) error {
	processes, err := h.WF.Processes.ListProcesses(middleware.GetActor(c), models.Stage(c.QueryParam("stage")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, processes)
}

// GetProcess returns a process with its documents, citations, hearings, deadlines and history
func (h *Handler) GetProcess(c echo.Context) error {
	detail, err := h.WF.Processes.GetProcess(middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// ProcessHistory returns the transition log
func (h *Handler) ProcessHistory(c echo.Context) error {
	if _, err := h.WF.Processes.GetProcess(middleware.GetActor(c), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	history, err := h.WF.Machine.History(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, history)
}

// UpdateFiling replaces the content of an unsealed filing
func (h *Handler) UpdateFiling(c echo.Context) error {
	var content services.FilingContent
	if err := bind(c, &content); err != nil {
		return err
	}
	doc, err := h.WF.Processes.UpdateFiling(middleware.GetActor(c), c.Param("id"), content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

type transitionRequest struct {
	Event    models.Event            `json:"event"`
	Notes    string                  `json:"notes"`
	Grounds  string                  `json:"grounds"`
	Defects  []string                `json:"defects"`
	Filing   *services.FilingContent `json:"filing"`
	Response *services.ResponseInput `json:"response"`
}

// RequestTransition applies a caller event to the process
func (h *Handler) RequestTransition(c echo.Context) error {
	var req transitionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	payload := services.TransitionPayload{
		Notes:   req.Notes,
		Grounds: req.Grounds,
		Defects: req.Defects,
		Filing:  req.Filing,
	}
	if req.Response != nil {
		content, err := req.Response.Content()
		if err != nil {
			return respondError(c, err)
		}
		payload.Response = content
	}

	p, err := h.WF.Machine.RequestTransition(c.Request().Context(), middleware.GetActor(c), c.Param("id"), req.Event, payload)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"process": p,
		"allowed": services.AllowedEvents(p.Stage),
	})
}

// VerifyDocument recomputes the fingerprint of a sealed document
func (h *Handler) VerifyDocument(c echo.Context) error {
	doc, err := h.WF.Sealer.VerifyDocument(middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"valid":        true,
		"document_id":  doc.ID,
		"content_hash": doc.ContentHash,
		"locator":      doc.StorageLocator,
	})
}

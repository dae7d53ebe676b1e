package handlers

import (
	"fmt"
	"net/http"

	"court_flow_app_go/middleware"
	"court_flow_app_go/models"
	"court_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// ScheduleHearing schedules the next hearing of a process
func (h *Handler) ScheduleHearing(c echo.Context) error {
	var in services.HearingSchedule
	if err := bind(c, &in); err != nil {
		return err
	}
	hearing, err := h.WF.Hearings.Schedule(c.Request().Context(), middleware.GetActor(c), c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, hearing)
}

// GetHearing returns a hearing with its evidence
func (h *Handler) GetHearing(c echo.Context) error {
	hearing, err := h.WF.Hearings.Get(middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, hearing)
}

type startHearingRequest struct {
	Attendance []models.Attendee `json:"attendance"`
}

// StartHearing opens a scheduled hearing and records attendance
func (h *Handler) StartHearing(c echo.Context) error {
	var req startHearingRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	hearing, err := h.WF.Hearings.Start(c.Request().Context(), middleware.GetActor(c), c.Param("id"), req.Attendance)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, hearing)
}

// CloseHearing records the outcome of a held hearing and seals its record
func (h *Handler) CloseHearing(c echo.Context) error {
	var closure services.HearingClosure
	if err := bind(c, &closure); err != nil {
		return err
	}
	result, err := h.WF.Hearings.Close(c.Request().Context(), middleware.GetActor(c), c.Param("id"), closure)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type withdrawRequest struct {
	Reason string `json:"reason"`
}

// SuspendHearing suspends a scheduled hearing
func (h *Handler) SuspendHearing(c echo.Context) error {
	var req withdrawRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	hearing, err := h.WF.Hearings.Suspend(c.Request().Context(), middleware.GetActor(c), c.Param("id"), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, hearing)
}

// CancelHearing cancels a scheduled hearing
func (h *Handler) CancelHearing(c echo.Context) error {
	var req withdrawRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	hearing, err := h.WF.Hearings.Cancel(c.Request().Context(), middleware.GetActor(c), c.Param("id"), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, hearing)
}

// RescheduleHearing replaces a suspended hearing
func (h *Handler) RescheduleHearing(c echo.Context) error {
	var in services.HearingSchedule
	if err := bind(c, &in); err != nil {
		return err
	}
	hearing, err := h.WF.Hearings.Reschedule(c.Request().Context(), middleware.GetActor(c), c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, hearing)
}

// VerifyHearingRecord recomputes the fingerprint of a closed hearing
func (h *Handler) VerifyHearingRecord(c echo.Context) error {
	hearing, err := h.WF.Hearings.VerifyRecord(middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"valid":        true,
		"hearing_id":   hearing.ID,
		"content_hash": hearing.SealedRecordHash,
		"locator":      hearing.SealedRecordLocator,
	})
}

// HearingInvitation downloads the iCalendar invitation of a scheduled hearing
func (h *Handler) HearingInvitation(c echo.Context) error {
	actor := middleware.GetActor(c)
	hearing, err := h.WF.Hearings.Get(actor, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	detail, err := h.WF.Processes.GetProcess(actor, hearing.ProcessID)
	if err != nil {
		return respondError(c, err)
	}

	ics, err := services.GenerateHearingICS(hearing, &detail.Process, "Juzgado "+detail.Process.CourtID, h.Cfg.EmailFrom)
	if err != nil {
		return respondError(c, err)
	}
	filename := fmt.Sprintf("audiencia-%s.ics", detail.Process.CaseReference)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", ics)
}

package handlers

import (
	"net/http"

	"court_flow_app_go/config"
	"court_flow_app_go/middleware"
	"court_flow_app_go/models"
	"court_flow_app_go/services"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the JSON API over one workflow
type Handler struct {
	WF  *services.Workflow
	Cfg *config.Config

	LoginLimiter *middleware.RateLimiter
	APILimiter   *middleware.RateLimiter
}

func NewHandler(wf *services.Workflow, cfg *config.Config) *Handler {
	return &Handler{
		WF:           wf,
		Cfg:          cfg,
		LoginLimiter: middleware.NewLoginRateLimiter(),
		APILimiter:   middleware.NewAPIRateLimiter(),
	}
}

// Register mounts every route on e
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/api/login", h.Login, h.LoginLimiter.Middleware())

	api := e.Group("/api")
	api.Use(h.APILimiter.Middleware())
	api.Use(middleware.RequireAuth(h.WF.DB))
	api.Use(middleware.Locale(h.Cfg))
	{
		api.POST("/logout", h.Logout)
		api.GET("/me", h.Me)

		api.GET("/processes", h.ListProcesses)
		api.GET("/processes/:id", h.GetProcess)
		api.GET("/processes/:id/history", h.ProcessHistory)
		api.PUT("/processes/:id/filing", h.UpdateFiling)
		api.POST("/processes/:id/transitions", h.RequestTransition)

		api.GET("/processes/:id/citations", h.ListCitations)
		api.POST("/citations/:id/attempts", h.RegisterFailedAttempt)

		api.GET("/processes/:id/deadlines", h.ListDeadlines)
		api.GET("/processes/:id/deadlines/export", h.ExportDocket)
		api.GET("/processes/:id/appeal", h.AppealWindow)

		api.GET("/hearings/:id", h.GetHearing)
		api.GET("/hearings/:id/verify", h.VerifyHearingRecord)
		api.GET("/hearings/:id/calendar.ics", h.HearingInvitation)

		api.GET("/documents/:id/verify", h.VerifyDocument)

		api.GET("/notifications", h.ListNotifications)
		api.POST("/notifications/:id/read", h.MarkNotificationRead)
		api.POST("/notifications/read-all", h.MarkAllNotificationsRead)

		filers := api.Group("")
		filers.Use(middleware.RequireRole(models.RoleFiler))
		{
			filers.POST("/processes", h.CreateProcess)
		}

		officers := api.Group("")
		officers.Use(middleware.RequireRole(models.RolePresidingOfficer))
		{
			officers.POST("/processes/:id/citations", h.OrderCitation)
			officers.POST("/processes/:id/citations/tacit", h.RegisterTacitCitation)
			officers.POST("/citations/:id/success", h.MarkCitationSuccessful)
			officers.POST("/citations/:id/failure", h.MarkCitationFailed)

			officers.POST("/processes/:id/hearings", h.ScheduleHearing)
			officers.POST("/hearings/:id/start", h.StartHearing)
			officers.POST("/hearings/:id/close", h.CloseHearing)
			officers.POST("/hearings/:id/suspend", h.SuspendHearing)
			officers.POST("/hearings/:id/cancel", h.CancelHearing)
			officers.POST("/hearings/:id/reschedule", h.RescheduleHearing)

			officers.POST("/processes/:id/judgment", h.IssueJudgment)
		}
	}
}

// Healthz reports whether the database answers
func (h *Handler) Healthz(c echo.Context) error {
	sqlDB, err := h.WF.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// bind decodes the request body into dst, reporting malformed JSON as 400
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return nil
}

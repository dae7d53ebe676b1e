package handlers

import (
	"errors"
	"net/http"
	"strings"

	"court_flow_app_go/middleware"
	"court_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a session token
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
	}

	session, user, err := services.Login(h.WF.DB, req.Email, req.Password, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
		}
		return respondError(c, err)
	}

	middleware.SetSessionCookie(c, session)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       user,
	})
}

// Logout closes the caller's session
func (h *Handler) Logout(c echo.Context) error {
	token, _ := c.Get(middleware.ContextKeyToken).(string)
	if err := services.DeleteSession(h.WF.DB, token); err != nil {
		return respondError(c, err)
	}
	middleware.ClearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user
func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.GetCurrentUser(c))
}

package middleware

import (
	"net/http"
	"strings"

	"court_flow_app_go/config"
	"court_flow_app_go/models"
	"court_flow_app_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "court_flow_session"
	// ContextKeyUser is the context key for the authenticated user
	ContextKeyUser = "user"
	// ContextKeyActor is the context key for the workflow actor
	ContextKeyActor = "actor"
	// ContextKeyToken is the context key for the session token
	ContextKeyToken = "session_token"
)

// SessionToken reads the caller token from the Authorization header or the session cookie
func SessionToken(c echo.Context) string {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAuth resolves the session token to an actor. Unknown, expired and
// inactive callers are rejected with 401.
func RequireAuth(database *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := SessionToken(c)
			actor, user := services.ResolveActor(database, token)
			if user == nil || actor.Role == models.RoleNone {
				if token != "" {
					clearSessionCookie(c)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}

			c.Set(ContextKeyUser, user)
			c.Set(ContextKeyActor, actor)
			c.Set(ContextKeyToken, token)
			return next(c)
		}
	}
}

// RequireRole is middleware that requires specific roles
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := GetActor(c)
			for _, role := range roles {
				if actor.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}

// GetCurrentUser retrieves the current user from context
func GetCurrentUser(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetActor retrieves the workflow actor from context. Anonymous requests
// resolve to RoleNone.
func GetActor(c echo.Context) services.Actor {
	actor, ok := c.Get(ContextKeyActor).(services.Actor)
	if !ok {
		return services.Actor{Role: models.RoleNone}
	}
	return actor
}

// SetSessionCookie stores the session token for browser clients
func SetSessionCookie(c echo.Context, session *models.Session) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   isProduction(c),
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie clears the session cookie
func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isProduction(c),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on logout
func ClearSessionCookie(c echo.Context) {
	clearSessionCookie(c)
}

func isProduction(c echo.Context) bool {
	cfg, ok := c.Get("config").(*config.Config)
	return ok && cfg.Environment == "production"
}

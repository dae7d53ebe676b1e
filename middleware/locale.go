package middleware

import (
	"net/http"
	"strings"
	"time"

	"court_flow_app_go/config"
	"court_flow_app_go/services/i18n"

	"github.com/labstack/echo/v4"
)

// DefaultLocale is the language of the court
const DefaultLocale = "es"

// Locale middleware handles language detection and persistence.
// Priority:
// 1. Query param "lang" (sets cookie)
// 2. Cookie "lang"
// 3. Language of the authenticated user
// 4. Accept-Language header
// 5. Default ("es")
func Locale(cfg *config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lang := c.QueryParam("lang")
			if lang != "" {
				if !isSupported(lang) {
					lang = DefaultLocale
				}
				setLanguageCookie(c, cfg, lang)
			} else if cookie, err := c.Cookie("lang"); err == nil && isSupported(cookie.Value) {
				lang = cookie.Value
			}

			if lang == "" {
				if user := GetCurrentUser(c); user != nil && isSupported(user.Language) {
					lang = user.Language
				}
			}

			if lang == "" {
				lang = DefaultLocale
				accept := strings.ToLower(c.Request().Header.Get("Accept-Language"))
				if strings.HasPrefix(accept, "en") {
					lang = "en"
				}
			}

			c.Set("locale", lang)
			return next(c)
		}
	}
}

func isSupported(lang string) bool {
	for _, l := range i18n.Languages() {
		if l == lang {
			return true
		}
	}
	return false
}

func setLanguageCookie(c echo.Context, cfg *config.Config, lang string) {
	cookie := new(http.Cookie)
	cookie.Name = "lang"
	cookie.Value = lang
	cookie.Expires = time.Now().Add(24 * 365 * time.Hour) // 1 year
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteLaxMode
	if cfg != nil && cfg.Environment == "production" {
		cookie.Secure = true
	}
	c.SetCookie(cookie)
}

// GetLocale returns the current locale from context
func GetLocale(c echo.Context) string {
	if lang, ok := c.Get("locale").(string); ok {
		return lang
	}
	return DefaultLocale
}

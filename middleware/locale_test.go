package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"court_flow_app_go/config"
	"court_flow_app_go/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func runLocale(t *testing.T, req *http.Request, before func(c echo.Context)) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if before != nil {
		before(c)
	}
	handler := Locale(&config.Config{Environment: "development"})(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	assert.NoError(t, handler(c))
	return c, rec
}

func TestLocale(t *testing.T) {
	t.Run("QueryParamSetsCookie", func(t *testing.T) {
		c, rec := runLocale(t, httptest.NewRequest(http.MethodGet, "/?lang=en", nil), nil)
		assert.Equal(t, "en", GetLocale(c))

		found := false
		for _, cookie := range rec.Result().Cookies() {
			if cookie.Name == "lang" {
				assert.Equal(t, "en", cookie.Value)
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("UnsupportedQueryFallsBack", func(t *testing.T) {
		c, _ := runLocale(t, httptest.NewRequest(http.MethodGet, "/?lang=fr", nil), nil)
		assert.Equal(t, "es", GetLocale(c))
	})

	t.Run("Cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "lang", Value: "en"})
		c, _ := runLocale(t, req, nil)
		assert.Equal(t, "en", GetLocale(c))
	})

	t.Run("UserLanguage", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "es-CO,es;q=0.9")
		c, _ := runLocale(t, req, func(c echo.Context) {
			c.Set(ContextKeyUser, &models.User{Language: "en"})
		})
		assert.Equal(t, "en", GetLocale(c))
	})

	t.Run("Header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		c, _ := runLocale(t, req, nil)
		assert.Equal(t, "en", GetLocale(c))
	})

	t.Run("Default", func(t *testing.T) {
		c, _ := runLocale(t, httptest.NewRequest(http.MethodGet, "/", nil), nil)
		assert.Equal(t, "es", GetLocale(c))
	})
}

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig defines a fixed-window limit
type RateLimitConfig struct {
	// Requests is the maximum number of requests allowed within the window
	Requests int
	Window   time.Duration
	// KeyFunc identifies the caller (defaults to the client IP)
	KeyFunc func(c echo.Context) string
	Message string
}

type window struct {
	count     int
	expiresAt time.Time
}

// RateLimiter counts requests per caller key in fixed windows
type RateLimiter struct {
	config RateLimitConfig
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// NewRateLimiter creates a limiter. Stale windows are pruned on access.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c echo.Context) string {
			return c.RealIP()
		}
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}
	return &RateLimiter{config: config, now: time.Now, windows: make(map[string]*window)}
}

// Allow records one request for key and reports whether it fits the window
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.windows) > 1024 {
		for k, w := range rl.windows {
			if now.After(w.expiresAt) {
				delete(rl.windows, k)
			}
		}
	}

	w, ok := rl.windows[key]
	if !ok || now.After(w.expiresAt) {
		rl.windows[key] = &window{count: 1, expiresAt: now.Add(rl.config.Window)}
		return true
	}
	if w.count >= rl.config.Requests {
		return false
	}
	w.count++
	return true
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(rl.config.KeyFunc(c)) {
				return echo.NewHTTPError(http.StatusTooManyRequests, rl.config.Message)
			}
			return next(c)
		}
	}
}

// NewLoginRateLimiter limits login attempts to 5 per minute per IP
func NewLoginRateLimiter() *RateLimiter {
	return NewRateLimiter(RateLimitConfig{
		Requests: 5,
		Window:   1 * time.Minute,
		Message:  "Too many login attempts. Please wait a minute before trying again.",
	})
}

// NewAPIRateLimiter limits general API requests to 120 per minute per IP
func NewAPIRateLimiter() *RateLimiter {
	return NewRateLimiter(RateLimitConfig{
		Requests: 120,
		Window:   1 * time.Minute,
		Message:  "Rate limit exceeded. Please slow down your requests.",
	})
}

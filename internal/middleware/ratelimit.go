package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/funyblog/funyblog/internal/config"
	"github.com/funyblog/funyblog/internal/ratelimit"
)

// LoginThrottle limits login attempts per client.  Limiter failures are
// logged and the request is let through so that a Redis outage does not
// lock admins out.
func LoginThrottle(cfg config.LoginLimitConfig, l ratelimit.Limiter, logger *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || l == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if logger == nil {
		logger = slog.Default()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := throttleKey(cfg.KeyStrategy, c)
			d, err := l.Allow(c.Request().Context(), key)
			if err != nil {
				logger.Warn("login throttle unavailable", "key", key, "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				logger.Info("login throttled", "key", key, "ip", c.RealIP(), "retry_after", secs)
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func throttleKey(strategy string, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	parts := []string{"ip", ip}
	switch strings.ToLower(strategy) {
	case "ip":
	case "ip_user":
		parts = append(parts, "user", submittedUsername(c))
	default:
		parts = append(parts, "route", c.Request().Method+" "+c.Path())
	}
	return strings.Join(parts, ":")
}

// submittedUsername peeks at the JSON body without consuming it.  The body
// size is already capped by the BodyLimit middleware.
func submittedUsername(c echo.Context) string {
	req := c.Request()
	if req.Body == nil {
		return "anon"
	}
	raw, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return "anon"
	}
	var body struct {
		Username string `json:"username"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return "anon"
	}
	name := strings.ToLower(strings.TrimSpace(body.Username))
	if name == "" {
		return "anon"
	}
	return name
}

package middleware // reusable echo middleware for the admin API

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/funyblog/funyblog/internal/auth"
)

// TokenVerifier checks a raw token at a given time.
type TokenVerifier interface {
	Verify(raw string, now time.Time) (auth.Principal, error)
}

// BearerAuth returns an Echo middleware that validates the Bearer token in
// the Authorization header and stores the resulting Principal in the
// context.  Any rejection is answered with 401 and a reason-bearing body.
// Cookies are never consulted.
func BearerAuth(v TokenVerifier, now func() time.Time) echo.MiddlewareFunc {
	if now == nil {
		now = time.Now
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := v.Verify(bearerToken(c.Request()), now())
			if err != nil {
				reason, ok := auth.ReasonOf(err)
				if !ok {
					c.Logger().Errorf("token verification failed: %v", err)
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token verification failed"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error":  reason.Message(),
					"reason": string(reason),
				})
			}
			SetPrincipal(c, p)
			return next(c)
		}
	}
}

// bearerToken returns the token from "Authorization: Bearer <token>", or ""
// when the header is absent or uses another scheme.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

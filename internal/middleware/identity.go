package middleware

// identity.go keeps the authenticated Principal on the echo context.
// BearerAuth writes it; handlers and RequireRole read it.

import (
	"github.com/labstack/echo/v4"

	"github.com/funyblog/funyblog/internal/auth"
)

const principalKey = "principal"

// SetPrincipal stores p on the request context.
func SetPrincipal(c echo.Context, p auth.Principal) { c.Set(principalKey, p) }

// PrincipalFrom returns the Principal stored by BearerAuth.
func PrincipalFrom(c echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(principalKey).(auth.Principal)
	return p, ok
}

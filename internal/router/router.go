package router // package router wires handlers and middleware onto echo

import (
	"github.com/labstack/echo/v4"

	"github.com/funyblog/funyblog/internal/auth"
	"github.com/funyblog/funyblog/internal/handler"
	"github.com/funyblog/funyblog/internal/middleware"
)

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers the admin auth endpoints under /api/admin.  Login
// and logout are open; login passes through the throttle.  Everything else
// requires a valid bearer token carrying the admin role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, verify echo.MiddlewareFunc, throttle echo.MiddlewareFunc) {
	g := e.Group("/api/admin")
	g.POST("/login", a.Login, throttle)
	g.POST("/logout", a.Logout)

	protected := g.Group("", verify, middleware.RequireRole(auth.RoleAdmin))
	protected.GET("/current-user", a.CurrentUser)
	// The console posts here; keep both verbs.
	protected.POST("/current-user", a.CurrentUser)
}

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/funyblog/funyblog/internal/auth"
	"github.com/funyblog/funyblog/internal/middleware"
	"github.com/funyblog/funyblog/internal/model"
	"github.com/funyblog/funyblog/internal/queue"
	"github.com/funyblog/funyblog/internal/repository"
)

// CookieName is the cookie set on login for the browser console.
const CookieName = "auth_token"

const storeTimeout = 5 * time.Second

// Credentials checks a username/password pair.
type Credentials interface {
	Verify(ctx context.Context, username, password string) (auth.Principal, error)
}

// TokenIssuer signs tokens for authenticated principals.
type TokenIssuer interface {
	Issue(p auth.Principal, now time.Time) (string, error)
	TTL() time.Duration
}

// UserFinder loads the user behind a verified token.
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
}

// AuditSink receives one event per login attempt.
type AuditSink interface {
	PublishLogin(ctx context.Context, ev queue.LoginEvent) error
}

// AuthHandler bundles dependencies for the admin auth endpoints.
type AuthHandler struct {
	Credentials Credentials
	Issuer      TokenIssuer
	Users       UserFinder
	Audit       AuditSink // optional
	Now         func() time.Time
	SetCookie   bool
	Secure      bool // marks the cookie Secure
	Log         *slog.Logger
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResp struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      auth.Principal `json:"user"`
}

// Login verifies credentials and returns a signed token.  Unknown users and
// wrong passwords get the same 401 body.
func (h *AuthHandler) Login(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	ip := c.RealIP()
	var req loginReq
	if err := c.Bind(&req); err != nil {
		h.audit(ctx, "", ip, queue.OutcomeInvalidInput, 0)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	p, err := h.Credentials.Verify(ctx, req.Username, req.Password)
	if err != nil {
		var storeErr *auth.StoreError
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			h.audit(ctx, req.Username, ip, queue.OutcomeInvalidInput, 0)
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "username and password are required"})
		case errors.Is(err, auth.ErrInvalidCredentials):
			h.logger().Info("login failed", "username", req.Username, "ip", ip)
			h.audit(ctx, req.Username, ip, queue.OutcomeInvalidCredentials, 0)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		case errors.As(err, &storeErr):
			h.logger().Error("login store failure", "username", req.Username, "ip", ip, "error", err)
		default:
			h.logger().Error("login failed unexpectedly", "username", req.Username, "ip", ip, "error", err)
		}
		h.audit(ctx, req.Username, ip, queue.OutcomeError, 0)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	now := h.now()
	token, err := h.Issuer.Issue(p, now)
	if err != nil {
		h.logger().Error("issue token failed", "username", p.Username, "error", err)
		h.audit(ctx, p.Username, ip, queue.OutcomeError, p.ID)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	ttl := h.Issuer.TTL()
	expires := now.Truncate(time.Second).Add(ttl).UTC()

	if h.SetCookie {
		c.SetCookie(&http.Cookie{
			Name:     CookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(ttl / time.Second),
			Expires:  expires,
			HttpOnly: true,
			Secure:   h.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	h.logger().Info("login succeeded", "username", p.Username, "user_id", p.ID, "ip", ip)
	h.audit(ctx, p.Username, ip, queue.OutcomeSuccess, p.ID)
	return c.JSON(http.StatusOK, loginResp{Token: token, ExpiresAt: expires, User: p})
}

// Logout clears the console cookie.  Tokens are stateless, so a bearer
// token stays valid until it expires.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.NoContent(http.StatusNoContent)
}

// CurrentUser returns the username of the authenticated principal, read back
// from the store so that deleted users are noticed.
func (h *AuthHandler) CurrentUser(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	u, err := h.Users.FindByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		h.logger().Error("load current user failed", "user_id", p.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"username": u.Username})
}

// audit publishes best effort; a broker failure never changes the response.
func (h *AuthHandler) audit(ctx context.Context, username, ip string, outcome queue.Outcome, userID int64) {
	if h.Audit == nil {
		return
	}
	ev := queue.NewLoginEvent(username, ip, outcome, userID, h.now())
	if err := h.Audit.PublishLogin(ctx, ev); err != nil {
		h.logger().Warn("publish login event failed", "event_id", ev.EventID, "error", err)
	}
}

func (h *AuthHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h *AuthHandler) logger() *slog.Logger {
	if h.Log == nil {
		return slog.Default()
	}
	return h.Log
}

// Package server assembles the echo application from configuration and
// already-opened dependencies.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/funyblog/funyblog/internal/auth"
	"github.com/funyblog/funyblog/internal/config"
	"github.com/funyblog/funyblog/internal/handler"
	"github.com/funyblog/funyblog/internal/middleware"
	"github.com/funyblog/funyblog/internal/ratelimit"
	"github.com/funyblog/funyblog/internal/repository"
	"github.com/funyblog/funyblog/internal/router"
)

const bodyLimit = "64K"

// Deps are the collaborators the HTTP layer needs.  Redis and Audit are
// optional.
type Deps struct {
	Config config.Config
	Users  *repository.UserRepo
	Redis  *redis.Client
	Audit  handler.AuditSink
	Logger *slog.Logger
	Now    func() time.Time // defaults to time.Now
}

// New builds the echo instance with every route and middleware attached.
func New(d Deps) (*echo.Echo, error) {
	if d.Users == nil {
		return nil, errors.New("server: user repository is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	cfg := d.Config
	secret := []byte(cfg.JWTSecret)

	issuer, err := auth.NewIssuer(secret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	verifier, err := auth.NewVerifier(secret)
	if err != nil {
		return nil, err
	}
	creds, err := auth.NewCredentialVerifier(d.Users, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(bodyLimit))

	h := &handler.AuthHandler{
		Credentials: creds,
		Issuer:      issuer,
		Users:       d.Users,
		Audit:       d.Audit,
		Now:         d.Now,
		SetCookie:   cfg.SetCookie,
		Secure:      cfg.IsProduction(),
		Log:         d.Logger,
	}

	limiter := loginLimiter(cfg.LoginLimit, d.Redis, d.Logger)
	throttle := middleware.LoginThrottle(cfg.LoginLimit, limiter, d.Logger)
	verify := middleware.BearerAuth(verifier, d.Now)

	router.RegisterRoutes(e, d.Users)
	router.RegisterAuth(e, h, verify, throttle)
	return e, nil
}

func loginLimiter(cfg config.LoginLimitConfig, rdb *redis.Client, logger *slog.Logger) ratelimit.Limiter {
	if !cfg.Enabled {
		return nil
	}
	if rdb != nil {
		logger.Info("login throttle backed by redis", "limit", cfg.Limit, "window", cfg.Window)
		return ratelimit.NewRedisLimiter(rdb, cfg.Prefix, cfg.Limit, cfg.Window)
	}
	logger.Info("login throttle in process", "limit", cfg.Limit, "window", cfg.Window)
	return ratelimit.NewMemoryLimiter(cfg.Limit, cfg.Window)
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}

package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost is used when BCRYPT_COST is unset.
	DefaultBcryptCost = 12
	// DefaultTokenTTL is used when TOKEN_TTL is unset.
	DefaultTokenTTL  = 7 * 24 * time.Hour
	minProdSecretLen = 32 // shortest JWT_SECRET accepted when APP_ENV=prod
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env         string        // application environment (dev, test, prod)
	Port        string        // HTTP port to listen on
	DBDriver    string        // mysql or sqlite3
	DBUser      string        // database username (mysql)
	DBPass      string        // database password (optional)
	DBHost      string        // database host address (mysql)
	DBPort      string        // database port number (mysql)
	DBName      string        // database name (mysql)
	DBPath      string        // database file (sqlite3)
	JWTSecret   string        // secret used to sign admin tokens
	TokenTTL    time.Duration // admin token lifetime
	BcryptCost  int           // bcrypt cost for password hashing
	SetCookie   bool          // also hand the token back as an HttpOnly cookie
	CORSOrigins []string      // origins allowed to call the admin API
	LogLevel    string        // debug, info, warn, error
	AMQPURL     string        // RabbitMQ URL for login audit events (empty disables)

	Redis      RedisConfig
	LoginLimit LoginLimitConfig
}

// IsProduction reports whether the service runs with production hardening.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}

// SlogLevel maps LogLevel to an slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads configuration values from environment variables.  Every
// missing required variable is reported in the returned error so the
// operator can fix them in one pass.  A missing JWT_SECRET is always fatal;
// there is no built-in fallback secret.
func Load() (Config, error) {
	r := &reader{}
	cfg := Config{
		Env:         r.must("APP_ENV"),
		Port:        r.must("APP_PORT"),
		DBDriver:    strings.ToLower(envStr("DB_DRIVER", "mysql")),
		DBPass:      envStr("DB_PASS", ""),
		JWTSecret:   r.must("JWT_SECRET"),
		TokenTTL:    r.duration("TOKEN_TTL", DefaultTokenTTL),
		BcryptCost:  r.bcryptCost(),
		SetCookie:   envBool("AUTH_SET_COOKIE", true),
		CORSOrigins: splitList(envStr("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		AMQPURL:     firstNonEmpty(envStr("AMQP_URL", ""), envStr("RABBITMQ_URL", "")),
		Redis:       r.redis(),
		LoginLimit:  r.loginLimit(),
	}

	switch cfg.DBDriver {
	case "mysql":
		cfg.DBUser = r.must("DB_USER")
		cfg.DBHost = r.must("DB_HOST")
		cfg.DBPort = r.must("DB_PORT")
		cfg.DBName = r.must("DB_NAME")
	case "sqlite3", "sqlite":
		cfg.DBDriver = "sqlite3"
		cfg.DBPath = r.must("DB_PATH")
	default:
		r.fail(fmt.Errorf("unsupported DB_DRIVER %q (want mysql or sqlite3)", cfg.DBDriver))
	}

	if cfg.TokenTTL <= 0 {
		r.fail(fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.TokenTTL))
	}
	if cfg.IsProduction() && cfg.JWTSecret != "" && len(cfg.JWTSecret) < minProdSecretLen {
		r.fail(fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProdSecretLen))
	}

	if err := r.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// reader accumulates configuration problems instead of exiting on the
// first one.
type reader struct {
	missing []string
	errs    []error
}

// must retrieves the value of a required environment variable and records
// it as missing when unset or empty.
func (r *reader) must(key string) string {
	v := envStr(key, "")
	if v == "" {
		r.missing = append(r.missing, key)
	}
	return v
}

func (r *reader) integer(key string, def int) int {
	n, err := parseInt(key, def)
	if err != nil {
		r.fail(err)
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	d, err := parseDuration(key, def)
	if err != nil {
		r.fail(err)
	}
	return d
}

func (r *reader) bcryptCost() int {
	cost := r.integer("BCRYPT_COST", DefaultBcryptCost)
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		r.fail(fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cost))
	}
	return cost
}

// LoadBcryptCost reads and validates BCRYPT_COST alone, for commands that
// hash passwords without needing the rest of the configuration.
func LoadBcryptCost() (int, error) {
	r := &reader{}
	cost := r.bcryptCost()
	return cost, r.err()
}

func (r *reader) fail(err error) { r.errs = append(r.errs, err) }

func (r *reader) err() error {
	errs := r.errs
	if len(r.missing) > 0 {
		errs = append([]error{fmt.Errorf("missing required env vars: %s", strings.Join(r.missing, ", "))}, errs...)
	}
	return errors.Join(errs...)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

package config

import (
	"fmt"
	"strings"
	"time"
)

// LoginLimitConfig controls the brute-force guard in front of the login
// endpoint.  At most Limit attempts are allowed per key within Window.
type LoginLimitConfig struct {
	Enabled     bool
	Limit       int
	Window      time.Duration
	KeyStrategy string // "ip", "ip_route" or "ip_user"
	Prefix      string
}

// LoadLoginLimitConfig reads the LOGIN_LIMIT_* keys.  Unparseable values
// are reported rather than replaced by defaults.
func LoadLoginLimitConfig() (LoginLimitConfig, error) {
	r := &reader{}
	c := r.loginLimit()
	return c, r.err()
}

func (r *reader) loginLimit() LoginLimitConfig {
	c := LoginLimitConfig{
		Enabled:     envBool("LOGIN_LIMIT_ENABLED", true),
		Limit:       r.integer("LOGIN_LIMIT_ATTEMPTS", 10),
		Window:      r.duration("LOGIN_LIMIT_WINDOW", 15*time.Minute),
		KeyStrategy: strings.ToLower(envStr("LOGIN_LIMIT_KEY_STRATEGY", "ip_route")),
		Prefix:      envStr("LOGIN_LIMIT_PREFIX", "login"),
	}
	if c.Limit < 1 {
		r.fail(fmt.Errorf("LOGIN_LIMIT_ATTEMPTS must be at least 1, got %d", c.Limit))
	}
	if c.Window <= 0 {
		r.fail(fmt.Errorf("LOGIN_LIMIT_WINDOW must be positive, got %s", c.Window))
	}
	switch c.KeyStrategy {
	case "ip", "ip_route", "ip_user":
	default:
		r.fail(fmt.Errorf("LOGIN_LIMIT_KEY_STRATEGY must be ip, ip_route or ip_user, got %q", c.KeyStrategy))
	}
	return c
}

// Package queue defines the login audit messages exchanged over RabbitMQ and
// the consumer that persists them.
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LoginQueue is the durable queue carrying LoginEvent messages.
const LoginQueue = "auth.login"

// Outcome of a login attempt.
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeInvalidCredentials Outcome = "invalid_credentials"
	OutcomeInvalidInput       Outcome = "invalid_input"
	OutcomeError              Outcome = "error"
)

// LoginEvent is published for every attempt on the login endpoint.  It never
// carries the password or the issued token.
type LoginEvent struct {
	EventID    string  `json:"event_id"`
	Username   string  `json:"username"`
	IP         string  `json:"ip"`
	Outcome    Outcome `json:"outcome"`
	UserID     int64   `json:"user_id,omitempty"`
	OccurredAt string  `json:"occurred_at"`
}

// NewLoginEvent stamps a fresh event id and formats at as RFC 3339 UTC.
func NewLoginEvent(username, ip string, outcome Outcome, userID int64, at time.Time) LoginEvent {
	return LoginEvent{
		EventID:    uuid.NewString(),
		Username:   username,
		IP:         ip,
		Outcome:    outcome,
		UserID:     userID,
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
}

// Line renders the event as one line of logs/auth.log.
func (e LoginEvent) Line() string {
	return fmt.Sprintf("[%s] login %s | event_id=%s | username=%q | ip=%s | user_id=%d\n",
		e.OccurredAt, e.Outcome, e.EventID, e.Username, e.IP, e.UserID)
}

package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when username or password is empty.
	ErrInvalidInput = errors.New("auth: username and password are required")
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password.  Callers must not tell the two apart.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrMissingSecret is returned when a token issuer or verifier is built
	// without a signing secret.
	ErrMissingSecret = errors.New("auth: signing secret is not configured")
)

// Reason says why a presented token was rejected.
type Reason string

const (
	ReasonMissing           Reason = "missing"
	ReasonMalformed         Reason = "malformed"
	ReasonBadSignature      Reason = "bad_signature"
	ReasonPayloadIncomplete Reason = "payload_incomplete"
	ReasonExpired           Reason = "expired"
)

// Message is a client-safe description of the reason.
func (r Reason) Message() string {
	switch r {
	case ReasonMissing:
		return "missing bearer token"
	case ReasonMalformed:
		return "malformed token"
	case ReasonBadSignature:
		return "invalid token signature"
	case ReasonPayloadIncomplete:
		return "incomplete token payload"
	case ReasonExpired:
		return "token expired"
	default:
		return "invalid token"
	}
}

// TokenError is the Invalid outcome of token verification.
type TokenError struct {
	Reason Reason
}

func (e *TokenError) Error() string { return "auth: token rejected: " + string(e.Reason) }

// Is lets errors.Is match on the reason alone.
func (e *TokenError) Is(target error) bool {
	t, ok := target.(*TokenError)
	return ok && t.Reason == e.Reason
}

func invalid(r Reason) error { return &TokenError{Reason: r} }

// ReasonOf extracts the rejection reason from err, if it is a TokenError.
func ReasonOf(err error) (Reason, bool) {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Reason, true
	}
	return "", false
}

// StoreError wraps a credential store failure.  It maps to a server error
// and is never retried here.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("auth: store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

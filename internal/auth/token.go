package auth

import (
	"crypto/hmac"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of an admin token.
const DefaultTokenTTL = 7 * 24 * time.Hour

// claims is the token payload: {userId, username, role, iat, exp}.
type claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// complete reports whether every required payload field is present and
// non-zero.
func (c *claims) complete() bool {
	return c.UserID != 0 && c.Username != "" && c.Role != "" &&
		positive(c.IssuedAt) && positive(c.ExpiresAt)
}

func positive(d *jwt.NumericDate) bool { return d != nil && d.Unix() > 0 }

var signingMethod = jwt.SigningMethodHS256

// Issuer signs admin tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer returns an Issuer that signs with secret.  A non-positive ttl
// falls back to DefaultTokenTTL.
func NewIssuer(secret []byte, ttl time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{secret: secret, ttl: ttl}, nil
}

// TTL is the lifetime given to issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue builds header.payload.signature for p at now.  The result depends
// only on p, now (to the second) and the secret.
func (i *Issuer) Issue(p Principal, now time.Time) (string, error) {
	if p.ID == 0 || p.Username == "" || p.Role == "" {
		return "", fmt.Errorf("auth: cannot issue token for incomplete principal %+v", p)
	}
	now = now.Truncate(time.Second)
	c := claims{
		UserID:   p.ID,
		Username: p.Username,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, c).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verifier checks tokens produced by an Issuer with the same secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	return &Verifier{
		secret: secret,
		// Expiry is checked against the caller's clock below.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Verify runs presence, structure, signature, payload and expiry checks in
// that order and stops at the first failure, returning a *TokenError.  No
// payload field is read before the signature matches.
func (v *Verifier) Verify(raw string, now time.Time) (Principal, error) {
	if raw == "" {
		return Principal{}, invalid(ReasonMissing)
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return Principal{}, invalid(ReasonMalformed)
	}

	sig, err := signingMethod.Sign(parts[0]+"."+parts[1], v.secret)
	if err != nil {
		return Principal{}, fmt.Errorf("auth: compute signature: %w", err)
	}
	// Compared in encoded form so that every bit of the presented segment
	// counts, including base64 padding bits a decoder would ignore.
	expected := base64.RawURLEncoding.EncodeToString(sig)
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return Principal{}, invalid(ReasonBadSignature)
	}

	var c claims
	if _, err := v.parser.ParseWithClaims(raw, &c, v.key); err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Principal{}, invalid(ReasonBadSignature)
		}
		return Principal{}, invalid(ReasonMalformed)
	}
	if !c.complete() {
		return Principal{}, invalid(ReasonPayloadIncomplete)
	}
	if !now.Before(c.ExpiresAt.Time) {
		return Principal{}, invalid(ReasonExpired)
	}
	return Principal{ID: c.UserID, Username: c.Username, Role: c.Role}, nil
}

func (v *Verifier) key(*jwt.Token) (interface{}, error) { return v.secret, nil }

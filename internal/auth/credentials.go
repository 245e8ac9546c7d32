package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/funyblog/funyblog/internal/model"
	"github.com/funyblog/funyblog/internal/repository"
)

// CredentialStore is the read side of the users table needed at login.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (model.User, error)
}

// CredentialVerifier checks a username/password pair against stored bcrypt
// hashes.
type CredentialVerifier struct {
	store CredentialStore
	// dummyHash is compared against when the username is unknown so both
	// failure paths spend one bcrypt comparison.
	dummyHash string
}

// NewCredentialVerifier builds a verifier.  cost should match the cost used
// for stored hashes.
func NewCredentialVerifier(store CredentialStore, cost int) (*CredentialVerifier, error) {
	dummy, err := HashPassword("funyblog-dummy-password", cost)
	if err != nil {
		return nil, fmt.Errorf("auth: prepare dummy hash: %w", err)
	}
	return &CredentialVerifier{store: store, dummyHash: dummy}, nil
}

// Verify returns the admin Principal for a matching username/password.
// It fails with ErrInvalidInput, ErrInvalidCredentials or a *StoreError.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Principal{}, ErrInvalidInput
	}

	u, err := v.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			VerifyPassword(v.dummyHash, password)
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, &StoreError{Op: "find user", Err: err}
	}
	if !VerifyPassword(u.PasswordHash, password) {
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{ID: u.ID, Username: u.Username, Role: RoleAdmin}, nil
}

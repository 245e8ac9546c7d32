// Package auth checks admin credentials and issues and verifies the signed
// tokens that protect the admin API.
package auth

// RoleAdmin is the only role this system knows.
const RoleAdmin = "admin"

// Principal is the authenticated identity carried inside a token.
type Principal struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

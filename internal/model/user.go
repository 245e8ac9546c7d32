package model

import "time"

// User represents an admin account as stored in the `users` table.  The
// json tags are omitted because these structs are used by the repository
// layer; handlers define their own response types.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name.
//	PasswordHash – bcrypt hash of the password.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last password change.
type User struct {
	ID           int64     // users.id
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

package auth

import "time"

// User is an account that signs in and acts on companies through memberships.
// PasswordHash is bcrypt and never leaves the package.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

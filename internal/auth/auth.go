// Package auth provides user accounts, password hashing and JWT issuance
// for the HTTP API.
//
// Tokens are HS256-signed and carry the user id and email; the api package
// verifies them in middleware and places the resulting Identity in the
// request context. Authentication failures are deliberately uniform: a bad
// email and a bad password both yield ErrInvalidCredentials so login
// probing cannot distinguish them.
package auth

import (
	"errors"
	"time"
)

// Sentinel errors, checked with errors.Is().
var (
	// ErrInvalidCredentials indicates the email/password pair does not
	// match an account.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken indicates registration with an already-used email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidToken indicates the bearer token is missing, malformed,
	// expired or signed with a different secret.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// User is a registered account. The password hash never leaves this
// package.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID int64
	Email  string
}

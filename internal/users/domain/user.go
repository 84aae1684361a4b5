package domain

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no account exists for the email.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrBadCredentials indicates a failed login.
	ErrBadCredentials = errors.New("invalid email or password")
)

// User is a dashboard account. Every account's email address receives
// inactive-sensor alerts.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

package models

import "time"

// User represents a row in the users table.
// A user created by a verification request has no password until registration.
type User struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Password   string     `json:"-"` // never serialize
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// HasPassword reports whether registration was completed.
func (u *User) HasPassword() bool {
	return u.Password != ""
}

// VerificationCode is one verification mail: a hashed six-digit code and a link token.
type VerificationCode struct {
	ID        string
	UserID    string
	CodeHash  string
	Token     string
	Attempts  int
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Expired reports whether the code is past its expiry at now.
func (c *VerificationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// RegisterRequest is the JSON body for POST /api/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SendCodeRequest is the JSON body for POST /api/send-verification-code.
type SendCodeRequest struct {
	Email string `json:"email"`
}

// VerifyCodeRequest is the JSON body for POST /api/verify-code.
type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// MessageResponse is the reply body of every auth endpoint.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginResponse is the reply body of a successful login.
type LoginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

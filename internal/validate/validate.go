// Package validate holds the input rules shared by the forms and the server.
package validate

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the minimum number of characters in a password.
const MinPasswordLength = 8

// SpecialChars is the set of characters that satisfy the special-character rule.
const SpecialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("email address is not valid")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordPolicy   = errors.New("password must be at least 8 characters and contain an uppercase letter, a number and a special character")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrCodeRequired     = errors.New("verification code is required")
	ErrCodeInvalid      = errors.New("verification code must be 6 digits")

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	codePattern  = regexp.MustCompile(`^[0-9]{6}$`)
)

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Email checks that s is present and looks like an address.
func Email(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrEmailRequired
	}
	if !emailPattern.MatchString(s) {
		return ErrEmailInvalid
	}
	return nil
}

// Password enforces the password policy.
func Password(pw string) error {
	if pw == "" {
		return ErrPasswordRequired
	}
	var upper, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(SpecialChars, r):
			special = true
		}
	}
	if utf8.RuneCountInString(pw) < MinPasswordLength || !upper || !digit || !special {
		return ErrPasswordPolicy
	}
	return nil
}

// Confirm checks that the confirmation matches the password.
func Confirm(pw, confirm string) error {
	if pw != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

// Code checks a six-digit verification code.
func Code(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrCodeRequired
	}
	if !codePattern.MatchString(s) {
		return ErrCodeInvalid
	}
	return nil
}

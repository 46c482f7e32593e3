package auth

import (
	"errors"
	"net/http"

	"github.com/ayush/authgate/internal/validate"
)

var (
	ErrCredentialsRequired = errors.New("email and password are required")
	ErrAlreadyRegistered   = errors.New("email already registered")
	ErrAlreadyVerified     = errors.New("email already verified, finish registration")
	ErrNotVerified         = errors.New("email not verified yet")
	ErrVerificationNeeded  = errors.New("request a verification code first")
	ErrCooldown            = errors.New("a verification email was sent recently, try again later")
	ErrCodeInvalid         = errors.New("verification failed, the code is wrong or expired")
	ErrTokenInvalid        = errors.New("verification failed, the link is invalid or expired")
	ErrUnknownEmail        = errors.New("unknown email or email not verified")
	ErrWrongPassword       = errors.New("password does not match")
	ErrMailFailed          = errors.New("could not send the verification email")
	ErrUnauthenticated     = errors.New("not authenticated")
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, validate.ErrEmailRequired),
		errors.Is(err, validate.ErrEmailInvalid),
		errors.Is(err, validate.ErrPasswordRequired),
		errors.Is(err, validate.ErrPasswordPolicy),
		errors.Is(err, validate.ErrCodeRequired),
		errors.Is(err, validate.ErrCodeInvalid),
		errors.Is(err, ErrCredentialsRequired),
		errors.Is(err, ErrCodeInvalid),
		errors.Is(err, ErrTokenInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownEmail),
		errors.Is(err, ErrWrongPassword),
		errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAlreadyRegistered),
		errors.Is(err, ErrAlreadyVerified),
		errors.Is(err, ErrNotVerified),
		errors.Is(err, ErrVerificationNeeded):
		return http.StatusConflict
	case errors.Is(err, ErrCooldown):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal failures behind fallback.
func publicMessage(err error, fallback string) string {
	if errors.Is(err, ErrMailFailed) {
		return ErrMailFailed.Error()
	}
	if statusFor(err) == http.StatusInternalServerError {
		return fallback
	}
	return err.Error()
}

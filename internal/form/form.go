// Package form holds the state of the login, registration and landing forms.
//
// Each form tracks its fields, validates them client-side, issues one
// request at a time through a Backend and keeps the message to display.
package form

import (
	"context"
	"errors"

	"github.com/ayush/authgate/internal/client"
	"github.com/ayush/authgate/internal/models"
)

// Status is where a form action is in its lifecycle.
type Status int

const (
	Idle Status = iota
	Submitting
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Field names accepted by Set.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldPasswordConfirm = "password_confirm"
	FieldCode            = "code"
)

// Messages shown when the server gives none.
const (
	MsgNetwork        = "could not reach the server"
	MsgLoginRejected  = "wrong email or password"
	MsgLoginServer    = "login failed, check the server"
	MsgRegisterFailed = "registration failed"
	MsgInvalidInput   = "registration failed, check your input"
	MsgSendFailed     = "could not send the verification email"
	MsgVerifyFailed   = "verification failed"
	MsgVerifyFirst    = "verify your email first"
	MsgSendFirst      = "request a verification email first"
	MsgCheckInbox     = "check your inbox to finish verification"
)

var (
	ErrInFlight     = errors.New("a request is already in progress")
	ErrUnknownField = errors.New("unknown field")
	ErrFieldLocked  = errors.New("field is read-only")
)

// Backend is the API the forms talk to. *client.Client satisfies it.
type Backend interface {
	Login(ctx context.Context, email, password string) (*client.LoginResult, error)
	Register(ctx context.Context, email, password string) (string, error)
	SendVerificationCode(ctx context.Context, email string) (string, error)
	VerifyCode(ctx context.Context, email, code string) (string, error)
	Me(ctx context.Context, token string) (*models.User, error)
}

// failureMessage turns a backend error into the text shown to the user.
func failureMessage(err error, fallback string) string {
	apiErr, ok := client.IsAPIError(err)
	if !ok {
		return MsgNetwork
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

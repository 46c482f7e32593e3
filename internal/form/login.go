package form

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/ayush/authgate/internal/client"
)

// LoginState is a snapshot of a LoginForm.
type LoginState struct {
	Email   string
	Status  Status
	Message string
	Token   string
}

// LoginForm tracks the login credentials and the outcome of the last submit.
type LoginForm struct {
	backend Backend

	mu       sync.Mutex
	email    string
	password string
	status   Status
	message  string
	token    string
}

func NewLoginForm(backend Backend) *LoginForm {
	return &LoginForm{backend: backend}
}

// Set updates one field.
func (f *LoginForm) Set(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case FieldEmail:
		f.email = value
	case FieldPassword:
		f.password = value
	default:
		return ErrUnknownField
	}
	return nil
}

// State returns a snapshot of the form.
func (f *LoginForm) State() LoginState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return LoginState{Email: f.email, Status: f.status, Message: f.message, Token: f.token}
}

// Submit sends the credentials. It returns ErrInFlight while a previous submit
// is still running; otherwise the outcome is in State.
func (f *LoginForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.status == Submitting {
		f.mu.Unlock()
		return ErrInFlight
	}
	f.status = Submitting
	f.message = ""
	email, password := strings.TrimSpace(f.email), f.password
	f.mu.Unlock()

	res, err := f.backend.Login(ctx, email, password)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.status = Failed
		f.token = ""
		f.message = loginFailure(err)
		return nil
	}
	f.status = Succeeded
	f.token = res.Token
	f.message = res.Message
	return nil
}

func loginFailure(err error) string {
	apiErr, ok := client.IsAPIError(err)
	switch {
	case !ok:
		return MsgNetwork
	case apiErr.StatusCode == http.StatusUnauthorized && apiErr.Message != "":
		return apiErr.Message
	case apiErr.StatusCode == http.StatusUnauthorized:
		return MsgLoginRejected
	default:
		return MsgLoginServer
	}
}

package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ayush/authgate/internal/models"
)

// ErrNoToken is returned by Landing.Load before a login has succeeded.
var ErrNoToken = errors.New("not logged in")

// Landing is the page shown after a successful login.
type Landing struct {
	backend Backend
	token   string

	mu      sync.Mutex
	status  Status
	user    *models.User
	message string
}

// NewLanding builds the landing page for the token of a successful login.
func NewLanding(backend Backend, token string) *Landing {
	return &Landing{backend: backend, token: token}
}

// LandingFromLogin builds the landing page from a login form's state.
func LandingFromLogin(backend Backend, st LoginState) (*Landing, error) {
	if st.Status != Succeeded || st.Token == "" {
		return nil, ErrNoToken
	}
	return NewLanding(backend, st.Token), nil
}

// Load fetches the current user and sets the greeting.
func (l *Landing) Load(ctx context.Context) error {
	if l.token == "" {
		return ErrNoToken
	}
	l.mu.Lock()
	if l.status == Submitting {
		l.mu.Unlock()
		return ErrInFlight
	}
	l.status = Submitting
	l.mu.Unlock()

	u, err := l.backend.Me(ctx, l.token)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.status = Failed
		l.user = nil
		l.message = failureMessage(err, MsgLoginServer)
		return nil
	}
	l.status = Succeeded
	l.user = u
	l.message = fmt.Sprintf("welcome, %s", u.Email)
	return nil
}

// Greeting returns the text shown on the page.
func (l *Landing) Greeting() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.message
}

// User returns the loaded account, or nil.
func (l *Landing) User() *models.User {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.user
}

func (l *Landing) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

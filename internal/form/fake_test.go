package form

import (
	"context"
	"errors"
	"sync"

	"github.com/ayush/authgate/internal/client"
	"github.com/ayush/authgate/internal/models"
)

var errDial = errors.New("dial tcp: connection refused")

// fakeBackend records calls and returns canned replies.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	loginRes *client.LoginResult
	loginErr error
	regMsg   string
	regErr   error
	sendMsg  string
	sendErr  error
	verMsg   string
	verErr   error
	me       *models.User
	meErr    error

	lastPassword string

	// block, when set, holds every call until it is closed.
	block   chan struct{}
	entered chan struct{}
}

func (b *fakeBackend) record(name string) {
	b.mu.Lock()
	b.calls = append(b.calls, name)
	b.mu.Unlock()
	if b.entered != nil {
		b.entered <- struct{}{}
	}
	if b.block != nil {
		<-b.block
	}
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *fakeBackend) Login(_ context.Context, email, password string) (*client.LoginResult, error) {
	b.record("login")
	if b.loginErr != nil {
		return nil, b.loginErr
	}
	return b.loginRes, nil
}

func (b *fakeBackend) Register(_ context.Context, email, password string) (string, error) {
	b.record("register")
	b.mu.Lock()
	b.lastPassword = password
	b.mu.Unlock()
	return b.regMsg, b.regErr
}

func (b *fakeBackend) SendVerificationCode(_ context.Context, email string) (string, error) {
	b.record("send")
	return b.sendMsg, b.sendErr
}

func (b *fakeBackend) VerifyCode(_ context.Context, email, code string) (string, error) {
	b.record("verify")
	return b.verMsg, b.verErr
}

func (b *fakeBackend) Me(_ context.Context, token string) (*models.User, error) {
	b.record("me")
	return b.me, b.meErr
}

func apiErr(status int, msg string) error {
	return &client.APIError{StatusCode: status, Message: msg}
}


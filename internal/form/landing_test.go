package form

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ayush/authgate/internal/client"
	"github.com/ayush/authgate/internal/models"
)

func TestLandingGreets(t *testing.T) {
	b := &fakeBackend{
		loginRes: &client.LoginResult{Token: "tok", Message: "login successful"},
		me:       &models.User{ID: "u1", Email: "a@example.com", Verified: true},
	}
	login := NewLoginForm(b)
	login.Set(FieldEmail, "a@example.com")
	login.Set(FieldPassword, "Secret1!")
	login.Submit(context.Background())

	l, err := LandingFromLogin(b, login.State())
	if err != nil {
		t.Fatalf("LandingFromLogin: %v", err)
	}
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got, want := l.Greeting(), "welcome, a@example.com"; got != want {
		t.Fatalf("Greeting() = %q, want %q", got, want)
	}
	if l.User() == nil || l.User().ID != "u1" {
		t.Fatalf("User() = %+v", l.User())
	}
}

func TestLandingNeedsLogin(t *testing.T) {
	b := &fakeBackend{loginErr: apiErr(http.StatusUnauthorized, "")}
	login := NewLoginForm(b)
	login.Submit(context.Background())
	if _, err := LandingFromLogin(b, login.State()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("err = %v, want ErrNoToken", err)
	}
	if err := NewLanding(b, "").Load(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Load = %v, want ErrNoToken", err)
	}
}

func TestLandingExpiredToken(t *testing.T) {
	l := NewLanding(&fakeBackend{meErr: apiErr(http.StatusUnauthorized, "unauthorized")}, "old")
	l.Load(context.Background())
	if l.Status() != Failed || l.Greeting() != "unauthorized" {
		t.Fatalf("status = %v, greeting = %q", l.Status(), l.Greeting())
	}
}

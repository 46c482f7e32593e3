package form_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/authgate/internal/auth"
	"github.com/ayush/authgate/internal/client"
	"github.com/ayush/authgate/internal/form"
	"github.com/ayush/authgate/internal/mailer"
	"github.com/ayush/authgate/internal/middleware"
	"github.com/ayush/authgate/internal/store"
)

var codePattern = regexp.MustCompile(`verification code: (\d{6})`)

type inbox struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (b *inbox) Send(_ context.Context, msg mailer.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, msg)
	return nil
}

func (b *inbox) code(t *testing.T) string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) == 0 {
		t.Fatal("no mail sent")
	}
	m := codePattern.FindStringSubmatch(b.sent[len(b.sent)-1].Text)
	if m == nil {
		t.Fatalf("no code in mail:\n%s", b.sent[len(b.sent)-1].Text)
	}
	return m[1]
}

// newAPI starts the real auth API on SQLite and an in-memory Redis.
func newAPI(t *testing.T) (*client.Client, *inbox) {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	mail := &inbox{}
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	sessions := auth.NewSessionStore(rdb)
	svc := auth.NewService(st, mail, store.NewCooldown(rdb, "test:cooldown:", time.Minute), tokens, auth.Options{
		BaseURL:             "http://localhost:8080",
		RequireVerification: true,
		BcryptCost:          bcrypt.MinCost,
	})

	r := chi.NewRouter()
	auth.NewHandler(svc, sessions, auth.LogEvents{}).Mount(r, middleware.RequireAuth(sessions, tokens))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return client.New(srv.URL), mail
}

func TestRegisterWithCodeThenLogin(t *testing.T) {
	c, mail := newAPI(t)
	ctx := context.Background()

	reg := form.NewRegisterForm(c, form.ModeCode)
	reg.Set(form.FieldEmail, "a@example.com")
	reg.Set(form.FieldPassword, "Secret1!")
	reg.Set(form.FieldPasswordConfirm, "Secret1!")

	reg.Submit(ctx)
	if st := reg.State(); st.Error != form.MsgVerifyFirst {
		t.Fatalf("submit before verify error = %q, want %q", st.Error, form.MsgVerifyFirst)
	}

	reg.SendCode(ctx)
	if st := reg.State(); !st.CodeSent || st.Success != "verification email sent" {
		t.Fatalf("after send: %+v", st)
	}
	reg.SendCode(ctx)
	if got := reg.State().FieldErrors[form.FieldEmail]; got != auth.ErrCooldown.Error() {
		t.Fatalf("resend error = %q, want %q", got, auth.ErrCooldown.Error())
	}

	wrong := "000000"
	if mail.code(t) == wrong {
		wrong = "111111"
	}
	reg.Set(form.FieldCode, wrong)
	reg.VerifyCode(ctx)
	if got := reg.State().FieldErrors[form.FieldCode]; got != auth.ErrCodeInvalid.Error() {
		t.Fatalf("wrong code error = %q, want %q", got, auth.ErrCodeInvalid.Error())
	}

	reg.Set(form.FieldCode, mail.code(t))
	reg.VerifyCode(ctx)
	if st := reg.State(); !st.Verified || st.Success != "email verified" {
		t.Fatalf("after verify: %+v", st)
	}

	reg.Submit(ctx)
	if st := reg.State(); st.Status != form.Succeeded || st.Success != "registration complete" {
		t.Fatalf("after submit: %+v", st)
	}

	again := form.NewRegisterForm(c, form.ModeDirect)
	again.Set(form.FieldEmail, "a@example.com")
	again.Set(form.FieldPassword, "Other1!pw")
	again.Set(form.FieldPasswordConfirm, "Other1!pw")
	again.Submit(ctx)
	if st := again.State(); st.Error != auth.ErrAlreadyRegistered.Error() {
		t.Fatalf("re-register error = %q, want %q", st.Error, auth.ErrAlreadyRegistered.Error())
	}

	bad := form.NewLoginForm(c)
	bad.Set(form.FieldEmail, "a@example.com")
	bad.Set(form.FieldPassword, "Wrong1!pw")
	bad.Submit(ctx)
	if st := bad.State(); st.Status != form.Failed || st.Message != auth.ErrWrongPassword.Error() {
		t.Fatalf("wrong password state = %+v", st)
	}

	login := form.NewLoginForm(c)
	login.Set(form.FieldEmail, "A@example.com")
	login.Set(form.FieldPassword, "Secret1!")
	login.Submit(ctx)
	st := login.State()
	if st.Status != form.Succeeded || st.Message != "login successful" || st.Token == "" {
		t.Fatalf("login state = %+v", st)
	}

	landing, err := form.LandingFromLogin(c, st)
	if err != nil {
		t.Fatalf("landing: %v", err)
	}
	landing.Load(ctx)
	if got, want := landing.Greeting(), "welcome, a@example.com"; got != want {
		t.Fatalf("Greeting() = %q, want %q", got, want)
	}
}

func TestLoginMessagesFromServer(t *testing.T) {
	c, _ := newAPI(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		want     string
	}{
		{"unknown email", "nobody@example.com", "Secret1!", auth.ErrUnknownEmail.Error()},
		{"missing password", "nobody@example.com", "", form.MsgLoginServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := form.NewLoginForm(c)
			f.Set(form.FieldEmail, tt.email)
			f.Set(form.FieldPassword, tt.password)
			f.Submit(ctx)
			if got := f.State().Message; got != tt.want {
				t.Fatalf("message = %q, want %q", got, tt.want)
			}
		})
	}
}

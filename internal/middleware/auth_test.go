package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ayush/authgate/internal/auth"
	"github.com/ayush/authgate/internal/models"
)

type staticSessions map[string]string

func (s staticSessions) Create(context.Context, string) (string, error) { return "", nil }
func (s staticSessions) Get(_ context.Context, sid string) (string, error) {
	return s[sid], nil
}
func (s staticSessions) Delete(context.Context, string) error { return nil }

func echoUser(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(auth.UserIDFrom(r.Context())))
}

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewTokenIssuer("secret", time.Hour)
	token, err := tokens.Issue(&models.User{ID: "user-2", Email: "b@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	h := RequireAuth(staticSessions{"sid-1": "user-1"}, tokens)(http.HandlerFunc(echoUser))

	tests := []struct {
		name   string
		cookie string
		bearer string
		status int
		user   string
	}{
		{"no credentials", "", "", http.StatusUnauthorized, ""},
		{"valid session", "sid-1", "", http.StatusOK, "user-1"},
		{"unknown session", "sid-9", "", http.StatusUnauthorized, ""},
		{"valid bearer", "", token, http.StatusOK, "user-2"},
		{"bearer wins over cookie", "sid-1", token, http.StatusOK, "user-2"},
		{"bad bearer", "", "garbage", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: tt.cookie})
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && rec.Body.String() != tt.user {
				t.Fatalf("user = %q, want %q", rec.Body.String(), tt.user)
			}
		})
	}
}

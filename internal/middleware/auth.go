package middleware

import (
	"net/http"
	"strings"

	"github.com/ayush/authgate/internal/auth"
)

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"message":"` + msg + `"}`))
}

// RequireAuth is middleware that accepts either the session cookie or a
// bearer login token and injects the user id into the request context.
func RequireAuth(sessions auth.Sessions, tokens *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				claims, err := tokens.Parse(strings.TrimPrefix(h, "Bearer "))
				if err != nil {
					unauthorized(w, "invalid token")
					return
				}
				next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), claims.UserID)))
				return
			}

			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil {
				unauthorized(w, "not authenticated")
				return
			}

			userID, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil || userID == "" {
				unauthorized(w, "session expired")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

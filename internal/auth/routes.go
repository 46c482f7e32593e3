package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Mount registers the auth API under /api. requireAuth guards the account routes.
func (h *Handler) Mount(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/send-verification-code", h.SendVerificationCode)
		r.Post("/verify-code", h.VerifyCode)
		r.Get("/verify-email", h.VerifyEmail)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", h.Me)
			r.Get("/me/events", h.Events)
			r.Get("/users", h.Users)
		})
	})
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ayush/authgate/internal/models"
	"github.com/ayush/authgate/internal/validate"
)

// EventRecorder stores the audit trail of auth outcomes.
type EventRecorder interface {
	Record(ctx context.Context, ev *models.AuthEvent) error
	ListByEmail(ctx context.Context, email string, limit int64) ([]models.AuthEvent, error)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	svc      *Service
	sessions Sessions
	events   EventRecorder
}

func NewHandler(svc *Service, sessions Sessions, events EventRecorder) *Handler {
	return &Handler{svc: svc, sessions: sessions, events: events}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.MessageResponse{Message: msg})
}

// writeError logs internal failures and replies with the mapped status.
func writeError(w http.ResponseWriter, op string, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s error: %v", op, err)
	}
	writeMessage(w, status, publicMessage(err, fallback))
}

const maxBodyBytes = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// record stores an audit event. Failures are logged only.
func (h *Handler) record(r *http.Request, kind, email, userID string, cause error) {
	ev := &models.AuthEvent{
		Kind:      kind,
		Email:     validate.NormalizeEmail(email),
		UserID:    userID,
		RemoteIP:  r.RemoteAddr,
		CreatedAt: time.Now().UTC(),
	}
	if cause != nil {
		ev.Detail = cause.Error()
	}
	if err := h.events.Record(r.Context(), ev); err != nil {
		log.Printf("record %s event: %v", kind, err)
	}
}

// SendVerificationCode mails a code and link to the requested address.
func (h *Handler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req models.SendCodeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SendVerificationCode(r.Context(), req.Email); err != nil {
		h.record(r, models.EventCodeSendFail, req.Email, "", err)
		writeError(w, "send verification code", err, "could not send the verification email")
		return
	}
	h.record(r, models.EventCodeSent, req.Email, "", nil)
	writeMessage(w, http.StatusOK, "verification email sent")
}

// VerifyCode confirms an address with the mailed six-digit code.
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyCodeRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.svc.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		h.record(r, models.EventVerifyFailed, req.Email, "", err)
		writeError(w, "verify code", err, "verification failed")
		return
	}
	h.record(r, models.EventVerified, u.Email, u.ID, nil)
	writeMessage(w, http.StatusOK, "email verified")
}

// VerifyEmail confirms an address from the mailed link.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.VerifyEmailToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		var email, uid string
		if u != nil {
			email, uid = u.Email, u.ID
		}
		h.record(r, models.EventVerifyFailed, email, uid, err)
		writeError(w, "verify email", err, "verification failed")
		return
	}
	h.record(r, models.EventVerified, u.Email, u.ID, nil)
	writeMessage(w, http.StatusOK, "email verified")
}

// Register completes a registration.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.record(r, models.EventRegisterFail, req.Email, "", err)
		writeError(w, "register", err, "registration failed")
		return
	}
	h.record(r, models.EventRegistered, u.Email, u.ID, nil)
	writeMessage(w, http.StatusCreated, "registration complete")
}

// Login authenticates a user, returns a token and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	user, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var uid string
		if user != nil {
			uid = user.ID
		}
		h.record(r, models.EventLoginFailed, req.Email, uid, err)
		writeError(w, "login", err, "login failed")
		return
	}

	sid, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		log.Printf("session create error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "session creation failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionTTL / time.Second),
	})

	h.record(r, models.EventLoginSuccess, user.Email, user.ID, nil)
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, Message: "login successful"})
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if userID, _ := h.sessions.Get(r.Context(), cookie.Value); userID != "" {
			var email string
			if u, err := h.svc.User(r.Context(), userID); err == nil {
				email = u.Email
			}
			h.record(r, models.EventLoggedOut, email, userID, nil)
		}
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			log.Printf("session delete error: %v", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	writeMessage(w, http.StatusOK, "logged out")
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFrom(r.Context())
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, ErrUnauthenticated.Error())
		return
	}

	user, err := h.svc.User(r.Context(), userID)
	if err != nil || user == nil {
		writeMessage(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Users lists every account.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users(r.Context())
	if err != nil {
		log.Printf("list users error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "database error")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// Events returns the audit trail of the current user.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.User(r.Context(), UserIDFrom(r.Context()))
	if err != nil || user == nil {
		writeMessage(w, http.StatusNotFound, "user not found")
		return
	}
	events, err := h.events.ListByEmail(r.Context(), user.Email, 50)
	if err != nil {
		log.Printf("list events error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "database error")
		return
	}
	if events == nil {
		events = []models.AuthEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

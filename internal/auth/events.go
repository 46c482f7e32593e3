package auth

import (
	"context"
	"log"

	"github.com/ayush/authgate/internal/models"
)

// LogEvents writes events to the process log. Used when no MongoDB is configured.
type LogEvents struct{}

func (LogEvents) Record(_ context.Context, ev *models.AuthEvent) error {
	if ev.Detail != "" {
		log.Printf("auth event kind=%s email=%s user=%s ip=%s detail=%q", ev.Kind, ev.Email, ev.UserID, ev.RemoteIP, ev.Detail)
		return nil
	}
	log.Printf("auth event kind=%s email=%s user=%s ip=%s", ev.Kind, ev.Email, ev.UserID, ev.RemoteIP)
	return nil
}

func (LogEvents) ListByEmail(context.Context, string, int64) ([]models.AuthEvent, error) {
	return nil, nil
}

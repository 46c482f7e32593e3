package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Auth event kinds.
const (
	EventCodeSent     = "code_sent"
	EventCodeSendFail = "code_send_failed"
	EventVerified     = "verified"
	EventVerifyFailed = "verify_failed"
	EventRegistered   = "registered"
	EventRegisterFail = "register_failed"
	EventLoginSuccess = "login_success"
	EventLoginFailed  = "login_failed"
	EventLoggedOut    = "logged_out"
)

// AuthEvent is a single audit entry stored in MongoDB.
type AuthEvent struct {
	ID        primitive.ObjectID `json:"id"         bson:"_id,omitempty"`
	Kind      string             `json:"kind"       bson:"kind"`
	Email     string             `json:"email"      bson:"email"`
	UserID    string             `json:"user_id"    bson:"user_id,omitempty"`
	Detail    string             `json:"detail"     bson:"detail,omitempty"`
	RemoteIP  string             `json:"remote_ip"  bson:"remote_ip,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// Package mailer renders and delivers verification mail.
package mailer

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one outgoing mail.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTP sends mail through a relay.
type SMTP struct {
	Addr     string
	From     string
	Username string
	Password string
}

func (m *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if m.Username != "" {
		host := m.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", m.Username, m.Password, host)
	}
	if err := smtp.SendMail(m.Addr, auth, m.From, []string{msg.To}, buildMIME(m.From, msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// buildMIME assembles a multipart/alternative body with text and HTML parts.
func buildMIME(from string, msg Message) []byte {
	boundary := "authgate-" + uuid.NewString()
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.Text)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.HTML)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

// Log prints mail instead of sending it. Used when no relay is configured.
type Log struct{}

func (Log) Send(_ context.Context, msg Message) error {
	log.Printf("mail to=%s subject=%q\n%s", msg.To, msg.Subject, msg.Text)
	return nil
}

// ObjectStore is where Archive keeps copies.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) (string, error)
}

// Archive stores the rendered HTML of every message before handing it to Next.
// Archive failures are logged and do not block delivery.
type Archive struct {
	Store ObjectStore
	Next  Mailer
	Now   func() time.Time
}

func (a *Archive) Send(ctx context.Context, msg Message) error {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	key := fmt.Sprintf("mail/%s/%s.html", now().UTC().Format("2006-01-02"), uuid.NewString())
	loc, err := a.Store.Put(ctx, key, []byte(msg.HTML), "text/html; charset=utf-8", map[string]string{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	if err != nil {
		log.Printf("mail archive error: %v", err)
	} else {
		log.Printf("mail archived at %s", loc)
	}
	return a.Next.Send(ctx, msg)
}

package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRenderVerification(t *testing.T) {
	msg, err := RenderVerification("a@example.com", "123456", "http://localhost:8080/api/verify-email?token=abc&x=1", 15*time.Minute)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.To != "a@example.com" || msg.Subject != verificationSubject {
		t.Fatalf("unexpected headers: %+v", msg)
	}
	if !strings.Contains(msg.Text, "123456") || !strings.Contains(msg.Text, "15 minutes") {
		t.Fatalf("text body missing code or ttl:\n%s", msg.Text)
	}
	if !strings.Contains(msg.Text, "token=abc&x=1") {
		t.Fatalf("text body should keep the raw link:\n%s", msg.Text)
	}
	if !strings.Contains(msg.HTML, "<strong>123456</strong>") {
		t.Fatalf("html body missing code:\n%s", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "token=abc&amp;x=1") {
		t.Fatalf("html body should escape the link:\n%s", msg.HTML)
	}
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{time.Hour, "1 hour"},
		{2 * time.Hour, "2 hours"},
		{time.Minute, "1 minute"},
		{15 * time.Minute, "15 minutes"},
		{90 * time.Second, "1m30s"},
	}
	for _, tt := range tests {
		if got := humanDuration(tt.in); got != tt.want {
			t.Errorf("humanDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type fakeObjectStore struct {
	keys []string
	meta []map[string]string
	err  error
}

func (s *fakeObjectStore) Put(_ context.Context, key string, _ []byte, _ string, meta map[string]string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, key)
	s.meta = append(s.meta, meta)
	return "bucket/" + key, nil
}

type recordingMailer struct {
	sent []Message
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func TestArchiveStoresThenDelivers(t *testing.T) {
	objects := &fakeObjectStore{}
	next := &recordingMailer{}
	a := &Archive{
		Store: objects,
		Next:  next,
		Now:   func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) },
	}
	if err := a.Send(context.Background(), Message{To: "a@example.com", Subject: "s", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(objects.keys) != 1 || !strings.HasPrefix(objects.keys[0], "mail/2026-03-04/") {
		t.Fatalf("keys = %v, want one under mail/2026-03-04/", objects.keys)
	}
	if objects.meta[0]["to"] != "a@example.com" {
		t.Fatalf("meta = %v, want to=a@example.com", objects.meta[0])
	}
	if len(next.sent) != 1 {
		t.Fatalf("delivered %d messages, want 1", len(next.sent))
	}
}

func TestArchiveFailureStillDelivers(t *testing.T) {
	next := &recordingMailer{}
	a := &Archive{Store: &fakeObjectStore{err: errors.New("down")}, Next: next}
	if err := a.Send(context.Background(), Message{To: "a@example.com"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(next.sent) != 1 {
		t.Fatalf("delivered %d messages, want 1", len(next.sent))
	}
}

func TestBuildMIME(t *testing.T) {
	raw := string(buildMIME("from@example.com", Message{To: "a@example.com", Subject: "Hi", Text: "plain", HTML: "<p>rich</p>"}))
	for _, want := range []string{
		"From: from@example.com\r\n",
		"To: a@example.com\r\n",
		"Subject: Hi\r\n",
		"multipart/alternative",
		"text/plain; charset=UTF-8\r\n\r\nplain",
		"text/html; charset=UTF-8\r\n\r\n<p>rich</p>",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("mime body missing %q:\n%s", want, raw)
		}
	}
}

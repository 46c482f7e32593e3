package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

const verificationSubject = "Verify your email"

var verificationText = texttemplate.Must(texttemplate.New("text").Parse(
	`Your verification code: {{.Code}}

Or open this link to verify your address:
{{.Link}}

The code and the link expire in {{.TTL}}.
`))

var verificationHTML = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html>
<body>
  <h2>Verify your email</h2>
  <p>Your verification code:</p>
  <p style="font-size:24px;letter-spacing:4px"><strong>{{.Code}}</strong></p>
  <p>Or <a href="{{.Link}}">click here to verify your address</a>.</p>
  <p>The code and the link expire in {{.TTL}}.</p>
</body>
</html>
`))

type verificationData struct {
	Code string
	Link string
	TTL  string
}

// RenderVerification builds the verification mail for to.
func RenderVerification(to, code, link string, ttl time.Duration) (Message, error) {
	data := verificationData{Code: code, Link: link, TTL: humanDuration(ttl)}

	var text, html bytes.Buffer
	if err := verificationText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	if err := verificationHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	return Message{
		To:      to,
		Subject: verificationSubject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		if d == time.Minute {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}

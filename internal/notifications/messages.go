package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/ticketbooth-backend/pkg/mailer"
)

var verificationHTML = template.Must(template.New("verification").Parse(
	`<p>Hi {{.UserName}},</p>
<p>Confirm your email address to finish setting up your account.</p>
<p><a href="{{.Link}}">Verify email</a></p>
<p>This link expires in {{.TTL}}.</p>`))

var resetHTML = template.Must(template.New("reset").Parse(
	`<p>Hi {{.UserName}},</p>
<p>We received a request to reset your password.</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>This link expires in {{.TTL}}. If you did not ask for this, ignore this email.</p>`))

type templateData struct {
	UserName string
	Link     string
	TTL      string
}

// VerificationLink points at the verify-email endpoint with the email and token as query params.
func VerificationLink(baseURL, email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	return strings.TrimRight(baseURL, "/") + "/user/verify-email?" + q.Encode()
}

// ResetLink points at the client reset page carrying the token.
func ResetLink(baseURL, token string) string {
	q := url.Values{}
	q.Set("token", token)
	return strings.TrimRight(baseURL, "/") + "/reset-password?" + q.Encode()
}

func buildVerificationMessage(baseURL string, to Recipient, token string, ttl time.Duration) (mailer.Message, error) {
	link := VerificationLink(baseURL, to.Email, token)
	return render(verificationHTML, to, "Verify your TicketBooth account", link, ttl,
		"Verify your email: %s\nThe link expires in %s.")
}

func buildResetMessage(baseURL string, to Recipient, token string, ttl time.Duration) (mailer.Message, error) {
	link := ResetLink(baseURL, token)
	return render(resetHTML, to, "Reset your TicketBooth password", link, ttl,
		"Reset your password: %s\nThe link expires in %s.")
}

func render(tpl *template.Template, to Recipient, subject, link string, ttl time.Duration, textFormat string) (mailer.Message, error) {
	name := to.UserName
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	data := templateData{UserName: name, Link: link, TTL: humanDuration(ttl)}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return mailer.Message{}, fmt.Errorf("render %s: %w", tpl.Name(), err)
	}
	return mailer.Message{
		To:       to.Email,
		Subject:  subject,
		HTMLBody: buf.String(),
		TextBody: fmt.Sprintf(textFormat, link, data.TTL),
	}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case d >= time.Minute && d%time.Minute == 0:
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	default:
		return d.String()
	}
}

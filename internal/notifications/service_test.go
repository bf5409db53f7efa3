package notifications

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	"github.com/angelmondragon/ticketbooth-backend/pkg/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	msgs []mailer.Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg mailer.Message) error {
	c.msgs = append(c.msgs, msg)
	return c.err
}

func newTestNotifier(t *testing.T, sender mailer.Sender) Notifier {
	t.Helper()
	n, err := NewService(sender,
		config.AppConfig{PublicBaseURL: "https://tickets.example.com/"},
		config.TokenConfig{VerificationTTL: 24 * time.Hour, PasswordResetTTL: 15 * time.Minute},
	)
	require.NoError(t, err)
	return n
}

func TestNewServiceRequiresSender(t *testing.T) {
	_, err := NewService(nil, config.AppConfig{}, config.TokenConfig{})
	require.Error(t, err)
}

func TestSendVerificationBuildsLink(t *testing.T) {
	sender := &captureSender{}
	n := newTestNotifier(t, sender)

	require.NoError(t, n.SendVerification(context.Background(), Recipient{Email: "a+b@example.com", UserName: "ana"}, "tok123"))
	require.Len(t, sender.msgs, 1)

	msg := sender.msgs[0]
	assert.Equal(t, "a+b@example.com", msg.To)
	assert.Contains(t, msg.HTMLBody, "Hi ana")
	assert.Contains(t, msg.TextBody, "24 hours")

	link := VerificationLink("https://tickets.example.com/", "a+b@example.com", "tok123")
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/user/verify-email", parsed.Path)
	assert.Equal(t, "a+b@example.com", parsed.Query().Get("email"))
	assert.Equal(t, "tok123", parsed.Query().Get("token"))
	assert.Contains(t, msg.TextBody, link)
}

func TestSendPasswordResetUsesResetTTL(t *testing.T) {
	sender := &captureSender{}
	n := newTestNotifier(t, sender)

	require.NoError(t, n.SendPasswordReset(context.Background(), Recipient{Email: "u@example.com"}, "reset-tok"))
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0].TextBody, "15 minutes")
	assert.Contains(t, sender.msgs[0].HTMLBody, "Hi there")
	assert.Contains(t, sender.msgs[0].TextBody, "token=reset-tok")
}

func TestSenderErrorPropagates(t *testing.T) {
	n := newTestNotifier(t, &captureSender{err: errors.New("smtp down")})
	err := n.SendVerification(context.Background(), Recipient{Email: "u@example.com"}, "t")
	require.EqualError(t, err, "smtp down")
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "1 minute", humanDuration(time.Minute))
	assert.Equal(t, "1m30s", humanDuration(90*time.Second))
}

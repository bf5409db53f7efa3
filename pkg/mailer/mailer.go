package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	"github.com/angelmondragon/ticketbooth-backend/pkg/logger"
	"gopkg.in/gomail.v2"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body"`
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var errRecipientRequired = errors.New("mail recipient required")

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errRecipientRequired
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("mail subject required")
	}
	return nil
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	from   string
	dialer dialer
}

// NewSMTPSender builds a gomail-backed sender from the mail config.
func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, errors.New("smtp host required")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, errors.New("mail from address required")
	}
	return &SMTPSender{
		from:   cfg.FromEmail,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.validate(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(s.build(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) build(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.TextBody != "" {
		m.SetBody("text/plain", msg.TextBody)
		if msg.HTMLBody != "" {
			m.AddAlternative("text/html", msg.HTMLBody)
		}
		return m
	}
	m.SetBody("text/html", msg.HTMLBody)
	return m
}

// JobPublisher hands a serialized email job to a queue.
type JobPublisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) error
}

// QueueSender enqueues messages for an out-of-process delivery worker.
type QueueSender struct {
	publisher JobPublisher
}

func NewQueueSender(publisher JobPublisher) (*QueueSender, error) {
	if publisher == nil {
		return nil, errors.New("job publisher required")
	}
	return &QueueSender{publisher: publisher}, nil
}

func (q *QueueSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode email job: %w", err)
	}
	if err := q.publisher.Publish(ctx, payload, map[string]string{"type": "email"}); err != nil {
		return fmt.Errorf("publish email job: %w", err)
	}
	return nil
}

// LogSender writes messages to the application log instead of delivering them.
// Used in development where no relay is configured.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (l *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if l.logg == nil {
		return nil
	}
	ctx = l.logg.WithFields(ctx, map[string]any{
		"mail_to":      msg.To,
		"mail_subject": msg.Subject,
		"mail_body":    msg.TextBody,
	})
	l.logg.Info(ctx, "email captured by log mailer")
	return nil
}

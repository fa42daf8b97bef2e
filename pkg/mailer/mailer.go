// Package mailer sends transactional email through SendGrid, or logs it when no key is configured.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Email is one outgoing message.
type Email struct {
	ToEmail string
	ToName  string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// New picks SendGrid when an API key is present, otherwise the log sender.
func New(cfg config.EmailConfig, logg *logger.Logger) Sender {
	if strings.TrimSpace(cfg.SendgridAPIKey) == "" {
		return NewLogSender(logg)
	}
	return NewSendgrid(cfg)
}

type sendFunc func(ctx context.Context, msg *mail.SGMailV3) (int, string, error)

type SendgridSender struct {
	from *mail.Email
	send sendFunc
}

func NewSendgrid(cfg config.EmailConfig) *SendgridSender {
	client := sendgrid.NewSendClient(cfg.SendgridAPIKey)
	return &SendgridSender{
		from: mail.NewEmail(cfg.FromName, cfg.FromEmail),
		send: func(ctx context.Context, msg *mail.SGMailV3) (int, string, error) {
			resp, err := client.SendWithContext(ctx, msg)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		},
	}
}

func (s *SendgridSender) Send(ctx context.Context, email Email) error {
	if err := validate(email); err != nil {
		return err
	}
	msg := mail.NewSingleEmail(s.from, email.Subject, mail.NewEmail(email.ToName, email.ToEmail), email.Text, email.HTML)
	if email.ReplyTo != "" {
		msg.SetReplyTo(mail.NewEmail("", email.ReplyTo))
	}
	status, body, err := s.send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if status >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", status, strings.TrimSpace(body))
	}
	return nil
}

// LogSender writes the message to the log instead of sending it.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, email Email) error {
	if err := validate(email); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"to":      email.ToEmail,
			"subject": email.Subject,
		}), "email not sent, no provider configured")
	}
	return nil
}

func validate(email Email) error {
	if strings.TrimSpace(email.ToEmail) == "" {
		return errors.New("recipient is required")
	}
	if strings.TrimSpace(email.Subject) == "" {
		return errors.New("subject is required")
	}
	return nil
}

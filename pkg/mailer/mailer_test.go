package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/require"
)

func TestNewPicksSender(t *testing.T) {
	_, ok := New(config.EmailConfig{}, nil).(*LogSender)
	require.True(t, ok)

	_, ok = New(config.EmailConfig{SendgridAPIKey: "SG.key", FromEmail: "shop@example.com"}, nil).(*SendgridSender)
	require.True(t, ok)
}

func TestSendgridSenderBuildsMessage(t *testing.T) {
	var got *mail.SGMailV3
	s := &SendgridSender{
		from: mail.NewEmail("MUX", "shop@example.com"),
		send: func(_ context.Context, msg *mail.SGMailV3) (int, string, error) {
			got = msg
			return 202, "", nil
		},
	}

	err := s.Send(context.Background(), Email{ToEmail: "admin@example.com", Subject: "New order", Text: "hi", ReplyTo: "ana@example.com"})
	require.NoError(t, err)
	require.Equal(t, "New order", got.Subject)
	require.Equal(t, "shop@example.com", got.From.Address)
	require.Equal(t, "admin@example.com", got.Personalizations[0].To[0].Address)
	require.Equal(t, "ana@example.com", got.ReplyTo.Address)
}

func TestSendgridSenderErrors(t *testing.T) {
	s := &SendgridSender{
		from: mail.NewEmail("MUX", "shop@example.com"),
		send: func(context.Context, *mail.SGMailV3) (int, string, error) {
			return 401, "unauthorized", nil
		},
	}
	require.ErrorContains(t, s.Send(context.Background(), Email{ToEmail: "a@b.c", Subject: "x"}), "401")

	s.send = func(context.Context, *mail.SGMailV3) (int, string, error) { return 0, "", errors.New("dial") }
	require.ErrorContains(t, s.Send(context.Background(), Email{ToEmail: "a@b.c", Subject: "x"}), "dial")

	require.Error(t, s.Send(context.Background(), Email{Subject: "x"}))
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(logger.New(logger.Options{ServiceName: "test", Output: &buf}))
	require.NoError(t, s.Send(context.Background(), Email{ToEmail: "a@b.c", Subject: "Hello"}))
	require.Contains(t, buf.String(), "Hello")
	require.Error(t, s.Send(context.Background(), Email{ToEmail: "a@b.c"}))
}

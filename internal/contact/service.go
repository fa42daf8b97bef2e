// Package contact relays the public contact form to the shop admin.
package contact

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/muxdry/storefront-backend/internal/notifications"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

// Request is the contact form body.
type Request struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

type relay interface {
	ContactReceived(ctx context.Context, msg notifications.ContactMessage) error
}

type Service interface {
	Submit(ctx context.Context, req Request) error
}

type service struct {
	relay    relay
	validate *validator.Validate
	logg     *logger.Logger
}

func NewService(r relay, logg *logger.Logger) (Service, error) {
	if r == nil {
		return nil, fmt.Errorf("contact relay required")
	}
	return &service{relay: r, validate: validator.New(), logg: logg}, nil
}

// Submit validates the form and forwards it. Delivery failures are logged, not returned.
func (s *service) Submit(ctx context.Context, req Request) error {
	msg := notifications.ContactMessage{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	}
	details := map[string]string{}
	if msg.Name == "" {
		details["name"] = "required"
	}
	if err := s.validate.Var(msg.Email, "required,email"); err != nil {
		details["email"] = "must be a valid email"
	}
	if msg.Subject == "" {
		details["subject"] = "required"
	}
	if msg.Message == "" {
		details["message"] = "required"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid contact form").WithDetails(details)
	}

	if err := s.relay.ContactReceived(ctx, msg); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "contact_email", msg.Email), "relay contact message", err)
	}
	return nil
}

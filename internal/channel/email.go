// Package channel holds the delivery transports: email providers, push
// notifications and the HTML email renderer.
package channel

import (
	"context"
	"errors"

	"CampusNotify/internal/attachment"
	"CampusNotify/internal/config"

	"go.uber.org/zap"
)

// Email is a single rendered message for one recipient.
type Email struct {
	To          string
	Subject     string
	HTML        string
	Attachments []attachment.Payload
}

// EmailProvider sends rendered emails.
type EmailProvider interface {
	IsEnabled() bool
	Send(ctx context.Context, e Email) error
}

// ErrEmailDisabled is returned when no email transport is configured.
var ErrEmailDisabled = errors.New("email delivery disabled")

// DisabledProvider rejects every send.
type DisabledProvider struct{}

func (DisabledProvider) IsEnabled() bool { return false }
func (DisabledProvider) Send(context.Context, Email) error { return ErrEmailDisabled }

// NewEmailProvider selects the configured transport.
func NewEmailProvider(cfg *config.EmailConfig, logger *zap.Logger) (EmailProvider, error) {
	switch cfg.Provider {
	case "resend":
		return NewResendProvider(cfg.Resend)
	case "smtp":
		return NewSMTPProvider(cfg.SMTP), nil
	case "disabled", "":
		logger.Warn("email provider disabled, email recipients will be marked failed")
		return DisabledProvider{}, nil
	default:
		return nil, errors.New("unknown EMAIL_PROVIDER " + cfg.Provider)
	}
}

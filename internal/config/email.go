package config

import (
	"os"
	"strconv"
)

// ResendConfig holds credentials for the Resend HTTP API.
type ResendConfig struct {
	APIKey string
	APIURL string
	From   string
}

func NewResendConfig() *ResendConfig {
	return &ResendConfig{
		APIKey: os.Getenv("RESEND_API_KEY"),
		APIURL: os.Getenv("RESEND_API_URL"),
		From:   getEnv("FROM_EMAIL", "no-reply@campusnotify.app"),
	}
}

// Enabled reports whether an API key is configured.
func (c *ResendConfig) Enabled() bool { return c.APIKey != "" }

// SMTPConfig holds the fallback SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func NewSMTPConfig() *SMTPConfig {
	port, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		port = 587
	}
	return &SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     getEnv("FROM_EMAIL", "no-reply@campusnotify.app"),
	}
}

func (c *SMTPConfig) Enabled() bool { return c.Host != "" }

// EmailConfig selects the email transport.
type EmailConfig struct {
	Provider string // resend, smtp or disabled
	Resend   *ResendConfig
	SMTP     *SMTPConfig
}

func NewEmailConfig(resend *ResendConfig, smtp *SMTPConfig) *EmailConfig {
	provider := os.Getenv("EMAIL_PROVIDER")
	if provider == "" {
		switch {
		case resend.Enabled():
			provider = "resend"
		case smtp.Enabled():
			provider = "smtp"
		default:
			provider = "disabled"
		}
	}
	return &EmailConfig{Provider: provider, Resend: resend, SMTP: smtp}
}

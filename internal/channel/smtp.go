package channel

import (
	"context"
	"fmt"
	"io"

	"CampusNotify/internal/config"

	"gopkg.in/gomail.v2"
)

// SMTPProvider delivers email through an SMTP relay.
type SMTPProvider struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPProvider(cfg *config.SMTPConfig) *SMTPProvider {
	return &SMTPProvider{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (p *SMTPProvider) IsEnabled() bool { return true }

func (p *SMTPProvider) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.dialer.DialAndSend(p.buildMessage(e)); err != nil {
		return fmt.Errorf("smtp to %s: %w", e.To, err)
	}
	return nil
}

func (p *SMTPProvider) buildMessage(e Email) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", p.from)
	m.SetHeader("To", e.To)
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/html", e.HTML)
	for _, a := range e.Attachments {
		content := a.Content
		copyFn := gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		})
		if a.IsInlineImage() {
			m.Embed(a.ContentID, copyFn, gomail.SetHeader(map[string][]string{
				"Content-Type": {a.MimeType},
			}))
			continue
		}
		m.Attach(a.FileName, copyFn, gomail.SetHeader(map[string][]string{
			"Content-Type": {a.MimeType},
		}))
	}
	return m
}

package channel

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"CampusNotify/internal/config"

	"github.com/resend/resend-go/v2"
)

// ResendProvider delivers email through the Resend API.
type ResendProvider struct {
	client *resend.Client
	from   string
}

func NewResendProvider(cfg *config.ResendConfig) (*ResendProvider, error) {
	client := resend.NewClient(cfg.APIKey)
	if cfg.APIURL != "" {
		base := strings.TrimSuffix(strings.TrimRight(cfg.APIURL, "/"), "/emails") + "/"
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse RESEND_API_URL: %w", err)
		}
		client.BaseURL = u
	}
	return &ResendProvider{client: client, from: cfg.From}, nil
}

func (p *ResendProvider) IsEnabled() bool { return true }

// Send posts one email. Inline images are referenced by content id.
func (p *ResendProvider) Send(ctx context.Context, e Email) error {
	req := &resend.SendEmailRequest{
		From:    p.from,
		To:      []string{e.To},
		Subject: e.Subject,
		Html:    e.HTML,
	}
	for _, a := range e.Attachments {
		att := &resend.Attachment{
			Content:     a.Content,
			Filename:    a.FileName,
			ContentType: a.MimeType,
		}
		if a.IsInlineImage() {
			att.ContentId = a.ContentID
		}
		req.Attachments = append(req.Attachments, att)
	}
	if _, err := p.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend to %s: %w", e.To, err)
	}
	return nil
}

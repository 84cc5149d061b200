package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"CampusNotify/internal/config"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	fcmScope       = "https://www.googleapis.com/auth/firebase.messaging"
	fcmV1BaseURL   = "https://fcm.googleapis.com/v1/projects/"
	fcmLegacyURL   = "https://fcm.googleapis.com/fcm/send"
	fcmHTTPTimeout = 10 * time.Second
)

// PushNotification is the payload delivered to devices.
type PushNotification struct {
	Title     string
	Body      string
	MessageID string
	TenantID  string
}

// PushProvider fans a notification out to device tokens.
type PushProvider interface {
	Send(ctx context.Context, tokens []string, n PushNotification) error
}

// FCMProvider sends through the Firebase Cloud Messaging HTTP v1 API, or the
// legacy server-key API when no service account is configured.
type FCMProvider struct {
	projectID string
	tokens    oauth2.TokenSource
	serverKey string
	client    *http.Client
	v1BaseURL string
	legacyURL string
	logger    *zap.Logger
}

func NewFCMProvider(cfg *config.PushConfig, logger *zap.Logger) (*FCMProvider, error) {
	p := &FCMProvider{
		projectID: cfg.ProjectID,
		serverKey: cfg.ServerKey,
		client:    &http.Client{Timeout: fcmHTTPTimeout},
		v1BaseURL: fcmV1BaseURL,
		legacyURL: fcmLegacyURL,
		logger:    logger,
	}
	if len(cfg.CredentialsJSON) > 0 {
		creds, err := google.CredentialsFromJSON(context.Background(), cfg.CredentialsJSON, fcmScope)
		if err != nil {
			return nil, fmt.Errorf("load FCM credentials: %w", err)
		}
		if p.projectID == "" {
			p.projectID = creds.ProjectID
		}
		p.tokens = creds.TokenSource
	}
	if !p.Enabled() {
		logger.Warn("push notifications disabled, no FCM credentials configured")
	}
	return p, nil
}

// Enabled reports whether any FCM transport is configured.
func (p *FCMProvider) Enabled() bool {
	return (p.tokens != nil && p.projectID != "") || p.serverKey != ""
}

// Send delivers n to every token. Per-token failures are collected into the
// returned error.
func (p *FCMProvider) Send(ctx context.Context, tokens []string, n PushNotification) error {
	if len(tokens) == 0 {
		return nil
	}
	switch {
	case p.tokens != nil && p.projectID != "":
		return p.sendV1(ctx, tokens, n)
	case p.serverKey != "":
		return p.sendLegacy(ctx, tokens, n)
	default:
		p.logger.Debug("push skipped, FCM not configured", zap.Int("tokens", len(tokens)))
		return nil
	}
}

type fcmV1Request struct {
	Message fcmV1Message `json:"message"`
}

type fcmV1Message struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmLegacyRequest struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    fcmNotification   `json:"notification"`
	Data            map[string]string `json:"data"`
}

func pushData(n PushNotification) map[string]string {
	return map[string]string{"messageId": n.MessageID, "schoolId": n.TenantID}
}

func (p *FCMProvider) sendV1(ctx context.Context, tokens []string, n PushNotification) error {
	tok, err := p.tokens.Token()
	if err != nil {
		return fmt.Errorf("fcm access token: %w", err)
	}
	endpoint := p.v1BaseURL + p.projectID + "/messages:send"
	var errs []error
	for _, t := range tokens {
		body := fcmV1Request{Message: fcmV1Message{
			Token:        t,
			Notification: fcmNotification{Title: n.Title, Body: n.Body},
			Data:         pushData(n),
		}}
		if err := p.post(ctx, endpoint, "Bearer "+tok.AccessToken, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *FCMProvider) sendLegacy(ctx context.Context, tokens []string, n PushNotification) error {
	body := fcmLegacyRequest{
		RegistrationIDs: tokens,
		Notification:    fcmNotification{Title: n.Title, Body: n.Body},
		Data:            pushData(n),
	}
	return p.post(ctx, p.legacyURL, "key="+p.serverKey, body)
}

func (p *FCMProvider) post(ctx context.Context, endpoint, authorization string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("push rejected, status code: %d, body: %s", resp.StatusCode, msg)
	}
	return nil
}

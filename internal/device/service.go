package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"CampusNotify/internal/auth"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service registers devices and resolves push targets.
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func NewMongoService(repo *MongoRepository, logger *zap.Logger) *Service {
	return NewService(repo, logger)
}

// Register stores token for email. A token belongs to one registration at a
// time, so any previous registration of it is removed first. Blank input is
// ignored.
func (s *Service) Register(ctx context.Context, email, token, platform, tenantID string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	token = strings.TrimSpace(token)
	if email == "" || token == "" {
		return nil
	}
	if strings.TrimSpace(platform) == "" {
		platform = "unknown"
	}
	if strings.TrimSpace(tenantID) == "" {
		tenantID = auth.GlobalTenant
	}

	removed, err := s.repo.DeleteByToken(ctx, token)
	if err != nil {
		return fmt.Errorf("clear previous registrations: %w", err)
	}
	d := &DeviceToken{
		ID:        uuid.NewString(),
		Email:     email,
		Token:     token,
		Platform:  strings.ToLower(strings.TrimSpace(platform)),
		TenantID:  tenantID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, d); err != nil {
		return fmt.Errorf("insert device token: %w", err)
	}
	s.logger.Debug("device registered", zap.String("email", email), zap.String("platform", d.Platform), zap.Int64("replaced", removed))
	return nil
}

// Unregister forgets token for the device owner email. Tokens registered to
// other addresses are left alone.
func (s *Service) Unregister(ctx context.Context, email, token string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	token = strings.TrimSpace(token)
	if email == "" || token == "" {
		return nil
	}
	removed, err := s.repo.DeleteOwned(ctx, email, token)
	if err != nil {
		return err
	}
	if removed == 0 {
		s.logger.Debug("no owned registration to remove", zap.String("email", email))
	}
	return nil
}

// TokensForRecipients returns the distinct non-blank tokens of emails.
func (s *Service) TokensForRecipients(ctx context.Context, emails []string, tenantID string) ([]string, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	raw, err := s.repo.Tokens(ctx, emails, tenantID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

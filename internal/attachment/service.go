package attachment

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Service persists decoded attachments and rebuilds them for delivery.
type Service struct {
	store  ObjectStore
	signer *Signer
	logger *zap.Logger
}

func NewService(store ObjectStore, signer *Signer, logger *zap.Logger) *Service {
	return &Service{store: store, signer: signer, logger: logger}
}

// Save writes every payload to the object store and returns their metadata.
func (s *Service) Save(ctx context.Context, tenantID, messageID string, payloads []Payload) ([]Metadata, error) {
	metas := make([]Metadata, 0, len(payloads))
	used := make(map[string]bool, len(payloads))
	for _, p := range payloads {
		key := uniqueKey(ObjectKey(tenantID, messageID, p.FileName), used)
		if err := s.store.Put(ctx, key, p.MimeType, p.Content); err != nil {
			return nil, fmt.Errorf("store attachment %s: %w", p.FileName, err)
		}
		url, err := s.signer.URL(key, p.FileName, p.MimeType)
		if err != nil {
			return nil, fmt.Errorf("sign attachment %s: %w", p.FileName, err)
		}
		metas = append(metas, Metadata{
			FileName:  p.FileName,
			MimeType:  p.MimeType,
			SizeBytes: int64(len(p.Content)),
			SignedURL: url,
			ObjectKey: key,
			Inline:    p.Inline,
			ContentID: p.ContentID,
		})
	}
	return metas, nil
}

// Load fetches the blobs behind metas. Attachments that cannot be read are
// logged and left out.
func (s *Service) Load(ctx context.Context, metas []Metadata) []Payload {
	out := make([]Payload, 0, len(metas))
	for _, m := range metas {
		if m.ObjectKey == "" {
			continue
		}
		data, err := s.store.Get(ctx, m.ObjectKey)
		if err != nil {
			s.logger.Warn("skipping attachment", zap.String("key", m.ObjectKey), zap.Error(err))
			continue
		}
		out = append(out, Payload{
			FileName:  m.FileName,
			MimeType:  m.MimeType,
			Content:   data,
			Inline:    m.Inline,
			ContentID: m.ContentID,
		})
	}
	return out
}

// Open returns the blob behind a signed download token.
func (s *Service) Open(ctx context.Context, token string) (Payload, error) {
	key, name, mime, err := s.signer.Verify(token)
	if err != nil {
		return Payload{}, err
	}
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return Payload{}, err
	}
	return Payload{FileName: name, MimeType: mime, Content: data}, nil
}

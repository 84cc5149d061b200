package notification

import (
	"context"

	"CampusNotify/internal/apperr"

	"go.uber.org/zap"
)

// Tracker records reads and email opens. Each call is a full-document
// read-modify-write, so concurrent updates to one message are last writer
// wins.
type Tracker struct {
	store  Store
	logger *zap.Logger
}

func NewTracker(store Store, logger *zap.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// MarkAppRead marks the message read in the app for recipient.
func (t *Tracker) MarkAppRead(ctx context.Context, messageID, recipient string) (*Message, error) {
	recipient = normalizeAddress(recipient)
	if recipient == "" {
		return nil, apperr.Invalid("missing recipient")
	}
	m, err := t.store.FindByID(ctx, messageID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "could not load message")
	}
	if m == nil {
		return nil, apperr.Missing("message not found")
	}
	if !m.IsRecipient(recipient) {
		return nil, apperr.Forbid("you are not a recipient of this message")
	}

	if !contains(m.AppReadBy, recipient) {
		m.AppReadBy = append(m.AppReadBy, recipient)
	}
	if m.AppStatuses == nil {
		m.AppStatuses = make(map[string]Status)
	}
	m.AppStatuses[recipient] = StatusRead
	if m.HasChannel(ChannelApp) {
		if len(m.AppReadBy) >= len(m.Recipients) {
			m.AppStatus = StatusRead
		} else {
			m.AppStatus = StatusPending
		}
	}

	if err := t.store.Save(ctx, m); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "could not save message")
	}
	return m, nil
}

// MarkEmailOpened records a tracking pixel hit. Unknown messages and
// recipients are ignored.
func (t *Tracker) MarkEmailOpened(ctx context.Context, messageID, recipient string) {
	recipient = normalizeAddress(recipient)
	if messageID == "" || recipient == "" {
		return
	}
	m, err := t.store.FindByID(ctx, messageID)
	if err != nil {
		t.logger.Warn("open tracking lookup failed", zap.String("message", messageID), zap.Error(err))
		return
	}
	if m == nil || m.EmailStatuses == nil {
		return
	}
	if _, ok := m.EmailStatuses[recipient]; !ok {
		return
	}
	if m.EmailStatuses[recipient] == StatusRead {
		return
	}
	m.EmailStatuses[recipient] = StatusRead

	allRead := true
	for _, st := range m.EmailStatuses {
		if st != StatusRead {
			allRead = false
			break
		}
	}
	if allRead {
		m.EmailStatus = StatusRead
	}
	if err := t.store.Save(ctx, m); err != nil {
		t.logger.Warn("open tracking save failed", zap.String("message", messageID), zap.Error(err))
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package notification

import (
	"strings"
	"time"

	"CampusNotify/internal/attachment"
)

// Status is the delivery state of a message, a channel, or a single
// recipient on a channel.
type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusDispatching Status = "DISPATCHING"
	StatusPending     Status = "PENDING"
	StatusSent        Status = "SENT"
	StatusFailed      Status = "FAILED"
	StatusRead        Status = "READ"
)

const (
	ChannelEmail = "email"
	ChannelApp   = "app"
)

// BroadcastThreshold is the recipient count above which a message counts as
// a broadcast.
const BroadcastThreshold = 50

// Message is a notification addressed to a resolved set of recipients.
type Message struct {
	ID             string                `bson:"_id" json:"id"`
	TenantID       string                `bson:"tenant_id" json:"tenantId"`
	Year           string                `bson:"year" json:"year"`
	Content        string                `bson:"content" json:"content"`
	Reason         string                `bson:"reason,omitempty" json:"reason,omitempty"`
	SenderID       string                `bson:"sender_id" json:"senderId"`
	SenderEmail    string                `bson:"sender_email" json:"senderEmail"`
	SenderName     string                `bson:"sender_name" json:"senderName"`
	Recipients     []string              `bson:"recipients" json:"recipients"`
	RecipientNames map[string]string     `bson:"recipient_names,omitempty" json:"recipientNames,omitempty"`
	GroupIDs       []string              `bson:"group_ids,omitempty" json:"groupIds,omitempty"`
	Broadcast      bool                  `bson:"broadcast" json:"broadcast"`
	Channels       []string              `bson:"channels" json:"channels"`
	Status         Status                `bson:"status" json:"status"`
	EmailStatus    Status                `bson:"email_status,omitempty" json:"emailStatus,omitempty"`
	AppStatus      Status                `bson:"app_status,omitempty" json:"appStatus,omitempty"`
	EmailStatuses  map[string]Status     `bson:"email_statuses,omitempty" json:"emailStatuses,omitempty"`
	AppStatuses    map[string]Status     `bson:"app_statuses,omitempty" json:"appStatuses,omitempty"`
	AppReadBy      []string              `bson:"app_read_by,omitempty" json:"appReadBy,omitempty"`
	ScheduledAt    *time.Time            `bson:"scheduled_at,omitempty" json:"scheduledAt,omitempty"`
	Attachments    []attachment.Metadata `bson:"attachments,omitempty" json:"attachments,omitempty"`
	CreatedAt      time.Time             `bson:"created_at" json:"createdAt"`
}

// HasChannel reports whether ch was requested.
func (m *Message) HasChannel(ch string) bool {
	for _, c := range m.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// RemoveChannel drops ch from the requested channels.
func (m *Message) RemoveChannel(ch string) {
	kept := m.Channels[:0]
	for _, c := range m.Channels {
		if c != ch {
			kept = append(kept, c)
		}
	}
	m.Channels = kept
}

// IsRecipient reports whether email is one of the resolved recipients.
func (m *Message) IsRecipient(email string) bool {
	email = normalizeAddress(email)
	for _, r := range m.Recipients {
		if r == email {
			return true
		}
	}
	return false
}

// MessageView is a message as returned to a caller.
type MessageView struct {
	*Message
	CanDelete bool `json:"canDelete"`
}

// CreateRequest is the body of a message creation.
type CreateRequest struct {
	Content     string              `json:"content"`
	Recipients  []string            `json:"recipients"`
	Channels    []string            `json:"channels"`
	Year        string              `json:"year"`
	TenantID    string              `json:"tenantId"`
	Reason      string              `json:"reason"`
	Attachments []attachment.Upload `json:"attachments"`
	GroupIDs    []string            `json:"groupIds"`
	ScheduleAt  string              `json:"scheduleAt"`
}

// ListQuery selects a page of messages.
type ListQuery struct {
	TenantID string
	Year     string
	Query    string
	Self     bool
	Page     int
	PageSize int
}

// ListResult is one page of messages.
type ListResult struct {
	Items    []MessageView `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
	HasMore  bool          `json:"hasMore"`
}

// Filter narrows store queries.
type Filter struct {
	TenantID    string
	Year        string
	SenderEmail string
	Recipient   string
}

func normalizeAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeAddresses trims, lower-cases and dedupes addresses, keeping the
// first occurrence order and dropping blanks.
func normalizeAddresses(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		a := normalizeAddress(raw)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

package notification

import (
	"context"
	"time"

	"CampusNotify/internal/attachment"
	"CampusNotify/internal/auth"
	"CampusNotify/internal/directory"
)

// Store persists messages.
type Store interface {
	// Save writes the full document, inserting it when absent.
	Save(ctx context.Context, m *Message) error
	// FindByID returns nil when the message does not exist.
	FindByID(ctx context.Context, id string) (*Message, error)
	Delete(ctx context.Context, id string) error
	// FindDue returns scheduled messages whose time is at or before now,
	// across all tenants.
	FindDue(ctx context.Context, now time.Time) ([]*Message, error)
	// ClaimScheduled moves a message from Scheduled to Dispatching, clearing
	// its schedule time, and reports whether this caller won the claim.
	ClaimScheduled(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context, f Filter) (int64, error)
	// Find returns matching messages, newest first.
	Find(ctx context.Context, f Filter, skip, limit int64) ([]*Message, error)
}

// Directory answers questions about recipient addresses.
type Directory interface {
	RolesByEmail(ctx context.Context, emails []string) (map[string]auth.Role, error)
	StudentContacts(ctx context.Context, emails []string) ([]string, error)
	DisplayNames(ctx context.Context, emails []string) map[string]string
	UserName(ctx context.Context, email string) string
}

// GroupLookup loads a group visible to a tenant; nil when absent.
type GroupLookup interface {
	FindByID(ctx context.Context, id, tenantID string) (*directory.Group, error)
}

// TeacherPermissions lists the groups a teacher may address.
type TeacherPermissions interface {
	AllowedGroups(ctx context.Context, tenantID, email string) ([]string, error)
}

// DeviceTokens resolves push targets.
type DeviceTokens interface {
	TokensForRecipients(ctx context.Context, emails []string, tenantID string) ([]string, error)
}

// Attachments persists and reloads attachment blobs.
type Attachments interface {
	Save(ctx context.Context, tenantID, messageID string, payloads []attachment.Payload) ([]attachment.Metadata, error)
	Load(ctx context.Context, metas []attachment.Metadata) []attachment.Payload
}

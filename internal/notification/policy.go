package notification

import (
	"strings"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/auth"
)

// CanDelete reports whether id may remove m.
func CanDelete(id auth.Identity, m *Message) bool {
	if m == nil {
		return false
	}
	if id.IsGlobal() {
		return true
	}
	switch id.Role {
	case auth.RoleAdmin:
		return m.TenantID == id.Tenant()
	case auth.RoleTeacher:
		return strings.EqualFold(m.SenderEmail, id.Email)
	default:
		return false
	}
}

// CanView reports whether id may read m.
func CanView(id auth.Identity, m *Message) bool {
	if id.IsGlobal() {
		return true
	}
	if m.TenantID != id.Tenant() {
		return false
	}
	return id.Role.CanListTenant() || m.IsRecipient(id.Email) || strings.EqualFold(m.SenderEmail, id.Email)
}

// scopeFilter narrows a list query to what id may see.
func scopeFilter(id auth.Identity, q ListQuery) (Filter, error) {
	f := Filter{Year: strings.TrimSpace(q.Year)}
	email := normalizeAddress(id.Email)

	switch {
	case id.IsGlobal():
		f.TenantID = strings.TrimSpace(q.TenantID)
	case id.Role.CanListTenant():
		f.TenantID = id.Tenant()
	case id.Role == auth.RoleTeacher:
		f.TenantID = id.Tenant()
		f.SenderEmail = email
	case id.Role == auth.RoleStudent || id.Role == auth.RoleGuardian:
		f.TenantID = id.Tenant()
		f.Recipient = email
	default:
		return Filter{}, apperr.Forbid("you cannot list messages")
	}
	if q.Self {
		f.SenderEmail = email
	}
	return f, nil
}

func (m *Message) matches(term string) bool {
	if strings.Contains(strings.ToLower(m.Content), term) ||
		strings.Contains(strings.ToLower(m.SenderName), term) ||
		strings.Contains(strings.ToLower(m.SenderEmail), term) ||
		strings.Contains(strings.ToLower(m.Reason), term) {
		return true
	}
	for _, r := range m.Recipients {
		if strings.Contains(r, term) {
			return true
		}
	}
	return false
}

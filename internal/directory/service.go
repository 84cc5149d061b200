package directory

import (
	"context"
	"strings"

	"CampusNotify/internal/auth"

	"go.uber.org/zap"
)

// Users looks up platform accounts.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	RolesByEmail(ctx context.Context, emails []string) (map[string]auth.Role, error)
}

// Students looks up students by their own or a guardian's address.
type Students interface {
	FindByContact(ctx context.Context, emails []string) ([]Student, error)
}

// Service answers the recipient questions the message pipeline asks.
type Service struct {
	users    Users
	students Students
	logger   *zap.Logger
}

func NewService(users *UserRepository, students *StudentRepository, logger *zap.Logger) *Service {
	return NewServiceWith(users, students, logger)
}

// NewServiceWith builds a Service over arbitrary lookups.
func NewServiceWith(users Users, students Students, logger *zap.Logger) *Service {
	return &Service{users: users, students: students, logger: logger}
}

func (s *Service) RolesByEmail(ctx context.Context, emails []string) (map[string]auth.Role, error) {
	return s.users.RolesByEmail(ctx, emails)
}

// UserName returns the account name for email, or "" when unknown.
func (s *Service) UserName(ctx context.Context, email string) string {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("user lookup failed", zap.String("email", email), zap.Error(err))
		return ""
	}
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.Name)
}

// StudentContacts returns, in input order, the addresses that belong to a
// student or a student's guardian.
func (s *Service) StudentContacts(ctx context.Context, emails []string) ([]string, error) {
	students, err := s.students.FindByContact(ctx, emails)
	if err != nil {
		return nil, err
	}
	known := map[string]bool{}
	for _, st := range students {
		known[strings.ToLower(strings.TrimSpace(st.Email))] = true
		for _, g := range st.Guardians {
			known[strings.ToLower(strings.TrimSpace(g.Email))] = true
		}
	}
	var out []string
	for _, e := range emails {
		if e != "" && known[e] {
			out = append(out, e)
		}
	}
	return out, nil
}

// DisplayNames resolves a friendly name per address: the account name, then
// the student's name, then the guardian's name or "Guardian of <student>".
// Addresses without a name are left out.
func (s *Service) DisplayNames(ctx context.Context, emails []string) map[string]string {
	names := make(map[string]string, len(emails))
	var pending []string
	for _, e := range emails {
		if n := s.UserName(ctx, e); n != "" {
			names[e] = n
		} else {
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		return names
	}
	students, err := s.students.FindByContact(ctx, pending)
	if err != nil {
		s.logger.Warn("student lookup failed", zap.Error(err))
		return names
	}
	for _, e := range pending {
		if n := nameFromStudents(students, e); n != "" {
			names[e] = n
		}
	}
	return names
}

func nameFromStudents(students []Student, email string) string {
	for _, st := range students {
		full := st.FullName()
		if strings.EqualFold(strings.TrimSpace(st.Email), email) && full != "" {
			return full
		}
		for _, g := range st.Guardians {
			if !strings.EqualFold(strings.TrimSpace(g.Email), email) {
				continue
			}
			if strings.TrimSpace(g.Name) != "" {
				return strings.TrimSpace(g.Name)
			}
			if full != "" {
				return "Guardian of " + full
			}
		}
	}
	return ""
}

// Package directory reads the people, groups and schools that messages are
// addressed to. Records are owned by other services; this package only
// queries them.
package directory

import (
	"strings"
	"time"
)

// User is a platform account.
type User struct {
	ID       string `bson:"_id,omitempty"`
	Email    string `bson:"email"`
	Name     string `bson:"name"`
	Role     string `bson:"role"`
	TenantID string `bson:"tenant_id"`
}

// Guardian is a contact registered on a student record.
type Guardian struct {
	Name  string `bson:"name"`
	Email string `bson:"email"`
}

// Student is an enrolled student and the guardians attached to them.
type Student struct {
	ID             string     `bson:"_id,omitempty"`
	TenantID       string     `bson:"tenant_id"`
	Year           string     `bson:"year"`
	Course         string     `bson:"course"`
	FirstName      string     `bson:"first_name"`
	LastNameFather string     `bson:"last_name_father"`
	LastNameMother string     `bson:"last_name_mother"`
	Email          string     `bson:"email"`
	Guardians      []Guardian `bson:"guardians"`
}

// FullName joins the student's name parts.
func (s Student) FullName() string {
	return strings.Join(strings.Fields(s.FirstName+" "+s.LastNameFather+" "+s.LastNameMother), " ")
}

const (
	SystemAllStudents  = "all_students"
	SystemAllCommunity = "all_community"
)

// Group is a named set of member addresses.
type Group struct {
	ID          string    `bson:"_id"`
	TenantID    string    `bson:"tenant_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`
	MemberIDs   []string  `bson:"member_ids"`
	Year        string    `bson:"year"`
	System      bool      `bson:"system"`
	SystemType  string    `bson:"system_type,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

// IsBroadcast reports whether the group is one of the tenant-wide system groups.
func (g Group) IsBroadcast() bool {
	if !g.System {
		return false
	}
	return strings.EqualFold(g.SystemType, SystemAllStudents) || strings.EqualFold(g.SystemType, SystemAllCommunity)
}

// SystemID returns the id of the system group of the given type and year,
// e.g. sysAllStudents2024.
func SystemID(systemType, year string) string {
	switch systemType {
	case SystemAllStudents:
		return "sysAllStudents" + year
	case SystemAllCommunity:
		return "sysAllCommunity" + year
	default:
		return ""
	}
}

// TeacherPermission lists the groups a teacher may message.
type TeacherPermission struct {
	TenantID string   `bson:"tenant_id"`
	Email    string   `bson:"email"`
	GroupIDs []string `bson:"group_ids"`
}

// School is the tenant's branding.
type School struct {
	ID      string `bson:"_id" json:"id"`
	Name    string `bson:"name" json:"name"`
	LogoURL string `bson:"logo_url" json:"logoUrl"`
}

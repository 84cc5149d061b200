package directory

import (
	"context"
	"errors"
	"testing"

	"CampusNotify/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

func (m *mockUsers) RolesByEmail(ctx context.Context, emails []string) (map[string]auth.Role, error) {
	args := m.Called(ctx, emails)
	r, _ := args.Get(0).(map[string]auth.Role)
	return r, args.Error(1)
}

type mockStudents struct{ mock.Mock }

func (m *mockStudents) FindByContact(ctx context.Context, emails []string) ([]Student, error) {
	args := m.Called(ctx, emails)
	s, _ := args.Get(0).([]Student)
	return s, args.Error(1)
}

var luis = Student{
	FirstName: "Luis", LastNameFather: "Rojas",
	Email:     "luis@students.org",
	Guardians: []Guardian{{Email: "marta@mail.org", Name: "Marta Rojas"}, {Email: "pedro@mail.org"}},
}

func TestStudentContactsKeepsInputOrder(t *testing.T) {
	students := &mockStudents{}
	emails := []string{"teacher@school.org", "pedro@mail.org", "luis@students.org"}
	students.On("FindByContact", mock.Anything, emails).Return([]Student{luis}, nil)

	svc := NewServiceWith(&mockUsers{}, students, zap.NewNop())
	got, err := svc.StudentContacts(context.Background(), emails)

	require.NoError(t, err)
	assert.Equal(t, []string{"pedro@mail.org", "luis@students.org"}, got)
	students.AssertExpectations(t)
}

func TestStudentContactsPropagatesErrors(t *testing.T) {
	students := &mockStudents{}
	students.On("FindByContact", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	_, err := NewServiceWith(&mockUsers{}, students, zap.NewNop()).StudentContacts(context.Background(), []string{"a@b.org"})
	assert.Error(t, err)
}

func TestDisplayNames(t *testing.T) {
	users := &mockUsers{}
	users.On("FindByEmail", mock.Anything, "ana@school.org").Return(&User{Name: "Ana Soto"}, nil)
	users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, nil)
	students := &mockStudents{}
	students.On("FindByContact", mock.Anything, mock.Anything).Return([]Student{luis}, nil)

	svc := NewServiceWith(users, students, zap.NewNop())
	names := svc.DisplayNames(context.Background(), []string{"ana@school.org", "luis@students.org", "marta@mail.org", "pedro@mail.org", "ghost@x.org"})

	assert.Equal(t, map[string]string{
		"ana@school.org":    "Ana Soto",
		"luis@students.org": "Luis Rojas",
		"marta@mail.org":    "Marta Rojas",
		"pedro@mail.org":    "Guardian of Luis Rojas",
	}, names)
}

func TestUserNameSwallowsLookupErrors(t *testing.T) {
	users := &mockUsers{}
	users.On("FindByEmail", mock.Anything, "x@y.org").Return(nil, errors.New("timeout"))

	assert.Equal(t, "", NewServiceWith(users, &mockStudents{}, zap.NewNop()).UserName(context.Background(), "x@y.org"))
}

func TestSystemGroups(t *testing.T) {
	assert.Equal(t, "sysAllStudents2024", SystemID(SystemAllStudents, "2024"))
	assert.Equal(t, "sysAllCommunity2025", SystemID(SystemAllCommunity, "2025"))
	assert.Equal(t, "", SystemID("custom", "2025"))

	assert.True(t, Group{System: true, SystemType: "ALL_STUDENTS"}.IsBroadcast())
	assert.False(t, Group{System: false, SystemType: SystemAllStudents}.IsBroadcast())
	assert.False(t, Group{System: true, SystemType: "staff"}.IsBroadcast())
}

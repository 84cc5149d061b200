package directory

import (
	"context"
	"errors"
	"strings"

	"CampusNotify/internal/auth"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection("users")}
}

// FindByEmail returns nil when no user has the address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.collection.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// RolesByEmail returns the role of every address that belongs to a user.
func (r *UserRepository) RolesByEmail(ctx context.Context, emails []string) (map[string]auth.Role, error) {
	roles := make(map[string]auth.Role, len(emails))
	if len(emails) == 0 {
		return roles, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"email": bson.M{"$in": emails}})
	if err != nil {
		return nil, err
	}
	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if role, ok := auth.ParseRole(u.Role); ok {
			roles[strings.ToLower(u.Email)] = role
		}
	}
	return roles, nil
}

type StudentRepository struct {
	collection *mongo.Collection
}

func NewStudentRepository(db *mongo.Database) *StudentRepository {
	return &StudentRepository{collection: db.Collection("students")}
}

// FindByContact returns students whose own or guardian address is in emails.
func (r *StudentRepository) FindByContact(ctx context.Context, emails []string) ([]Student, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	filter := bson.M{"$or": bson.A{
		bson.M{"email": bson.M{"$in": emails}},
		bson.M{"guardians.email": bson.M{"$in": emails}},
	}}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var students []Student
	if err := cursor.All(ctx, &students); err != nil {
		return nil, err
	}
	return students, nil
}

type GroupRepository struct {
	collection *mongo.Collection
}

func NewGroupRepository(db *mongo.Database) *GroupRepository {
	return &GroupRepository{collection: db.Collection("groups")}
}

// FindByID returns the group visible to tenantID, or nil.
func (r *GroupRepository) FindByID(ctx context.Context, id, tenantID string) (*Group, error) {
	filter := bson.M{"_id": id}
	if tenantID != "" && tenantID != auth.GlobalTenant {
		filter["tenant_id"] = bson.M{"$in": bson.A{tenantID, auth.GlobalTenant}}
	}
	var g Group
	if err := r.collection.FindOne(ctx, filter).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

type TeacherPermissionRepository struct {
	collection *mongo.Collection
}

func NewTeacherPermissionRepository(db *mongo.Database) *TeacherPermissionRepository {
	return &TeacherPermissionRepository{collection: db.Collection("teacher_permissions")}
}

// AllowedGroups lists the group ids the teacher may address in the tenant.
func (r *TeacherPermissionRepository) AllowedGroups(ctx context.Context, tenantID, email string) ([]string, error) {
	var p TeacherPermission
	err := r.collection.FindOne(ctx, bson.M{"tenant_id": tenantID, "email": strings.ToLower(email)}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return p.GroupIDs, nil
}

type SchoolRepository struct {
	collection *mongo.Collection
}

func NewSchoolRepository(db *mongo.Database) *SchoolRepository {
	return &SchoolRepository{collection: db.Collection("schools")}
}

// FindSchool returns nil when the tenant has no school record.
func (r *SchoolRepository) FindSchool(ctx context.Context, id string) (*School, error) {
	var s School
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

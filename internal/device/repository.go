package device

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository persists device tokens.
type Repository interface {
	DeleteByToken(ctx context.Context, token string) (int64, error)
	DeleteOwned(ctx context.Context, email, token string) (int64, error)
	Insert(ctx context.Context, d *DeviceToken) error
	Tokens(ctx context.Context, emails []string, tenantID string) ([]string, error)
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{collection: db.Collection("device_tokens")}
}

// DeleteByToken removes every registration of token across tenants.
func (r *MongoRepository) DeleteByToken(ctx context.Context, token string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"token": token})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteOwned removes token only where it is registered to email.
func (r *MongoRepository) DeleteOwned(ctx context.Context, email, token string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"token": token, "email": email})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) Insert(ctx context.Context, d *DeviceToken) error {
	_, err := r.collection.InsertOne(ctx, d)
	return err
}

// Tokens returns the distinct tokens registered for emails, restricted to
// tenantID when it is set.
func (r *MongoRepository) Tokens(ctx context.Context, emails []string, tenantID string) ([]string, error) {
	filter := bson.M{"email": bson.M{"$in": emails}}
	if tenantID != "" {
		filter["tenant_id"] = tenantID
	}
	values, err := r.collection.Distinct(ctx, "token", filter)
	if err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			tokens = append(tokens, s)
		}
	}
	return tokens, nil
}

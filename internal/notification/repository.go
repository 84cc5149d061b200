package notification

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{collection: db.Collection("messages")}
}

func (r *MongoRepository) Save(ctx context.Context, m *Message) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": m.ID}, m, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*Message, error) {
	var m Message
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoRepository) FindDue(ctx context.Context, now time.Time) ([]*Message, error) {
	filter := bson.M{
		"status":       StatusScheduled,
		"scheduled_at": bson.M{"$lte": now},
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*Message
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimScheduled flips the status only if it is still Scheduled, so exactly
// one caller wins. The schedule time is cleared with the flip.
func (r *MongoRepository) ClaimScheduled(ctx context.Context, id string) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusScheduled},
		bson.M{
			"$set":   bson.M{"status": StatusDispatching},
			"$unset": bson.M{"scheduled_at": ""},
		},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoRepository) Count(ctx context.Context, f Filter) (int64, error) {
	return r.collection.CountDocuments(ctx, filterDoc(f))
}

func (r *MongoRepository) Find(ctx context.Context, f Filter, skip, limit int64) ([]*Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filterDoc(f), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*Message
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func filterDoc(f Filter) bson.M {
	doc := bson.M{}
	if f.TenantID != "" {
		doc["tenant_id"] = f.TenantID
	}
	if f.Year != "" {
		doc["year"] = f.Year
	}
	if f.SenderEmail != "" {
		doc["sender_email"] = f.SenderEmail
	}
	if f.Recipient != "" {
		doc["recipients"] = f.Recipient
	}
	return doc
}

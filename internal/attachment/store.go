package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ObjectStore persists attachment blobs by key.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// ErrObjectNotFound is returned by Get for unknown keys.
var ErrObjectNotFound = errors.New("object not found")

// GridFSStore keeps blobs in a MongoDB GridFS bucket, using the object key as
// the file id.
type GridFSStore struct {
	db      *mongo.Database
	bucket  string
	timeout time.Duration
}

func NewGridFSStore(db *mongo.Database) *GridFSStore {
	return &GridFSStore{db: db, bucket: "attachments", timeout: 30 * time.Second}
}

func (s *GridFSStore) open(ctx context.Context) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.bucket))
	if err != nil {
		return nil, err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.timeout)
	}
	if err := b.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	if err := b.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	return b, nil
}

// Put stores data under key, replacing any previous blob.
func (s *GridFSStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	b, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("open bucket: %w", err)
	}
	if err := b.DeleteContext(ctx, key); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType}})
	if err := b.UploadFromStreamWithID(key, key, bytes.NewReader(data), opts); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Get loads the blob stored under key.
func (s *GridFSStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	var buf bytes.Buffer
	if _, err := b.DownloadToStream(key, &buf); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

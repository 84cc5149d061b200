package attachment

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestGridFSStoreRoundTrip(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	db := client.Database("campusnotify_test_" + uuid.NewString()[:8])
	defer db.Drop(context.Background())

	store := NewGridFSStore(db)
	key := ObjectKey("t", "m", "notes.txt")
	require.NoError(t, store.Put(ctx, key, "text/plain", []byte("first")))
	require.NoError(t, store.Put(ctx, key, "text/plain", []byte("second")))

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

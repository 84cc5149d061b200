package notification

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestMongoRepository(t *testing.T) {
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
	repo := NewMongoRepository(db)

	now := time.Now().UTC().Truncate(time.Millisecond)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	due := &Message{ID: "due", TenantID: "t1", Year: "2024", Status: StatusScheduled, ScheduledAt: &past,
		SenderEmail: "a@school.test", Recipients: []string{"kid@school.test"}, CreatedAt: now}
	later := &Message{ID: "later", TenantID: "t2", Year: "2024", Status: StatusScheduled, ScheduledAt: &future,
		SenderEmail: "b@school.test", Recipients: []string{"mom@home.test"}, CreatedAt: now.Add(time.Second)}
	require.NoError(t, repo.Save(ctx, due))
	require.NoError(t, repo.Save(ctx, later))

	found, err := repo.FindDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "due", found[0].ID)

	var wg sync.WaitGroup
	wins := make([]bool, 3)
	for i := range wins {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			won, err := repo.ClaimScheduled(ctx, "due")
			assert.NoError(t, err)
			wins[i] = won
		}(i)
	}
	wg.Wait()
	claimed := 0
	for _, w := range wins {
		if w {
			claimed++
		}
	}
	assert.Equal(t, 1, claimed)

	claimedDoc, err := repo.FindByID(ctx, "due")
	require.NoError(t, err)
	assert.Equal(t, StatusDispatching, claimedDoc.Status)
	assert.Nil(t, claimedDoc.ScheduledAt)

	n, err := repo.Count(ctx, Filter{Recipient: "kid@school.test"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	page, err := repo.Find(ctx, Filter{Year: "2024"}, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "later", page[0].ID)

	require.NoError(t, repo.Delete(ctx, "due"))
	gone, err := repo.FindByID(ctx, "due")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

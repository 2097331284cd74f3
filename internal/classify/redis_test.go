package classify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/abhisek/bloomsbot/internal/bloom"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a live server: BLOOMSBOT_TEST_REDIS_ADDR=localhost:6379.
func TestRedisCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("BLOOMSBOT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BLOOMSBOT_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	cache := NewRedisCache(client, "bloomsbot-test:"+uuid.NewString())

	_, ok, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := &Result{Level: bloom.Apply, Verb: "implement", Confidence: 0.9, Classifier: "llm"}
	require.NoError(t, cache.Set(ctx, "k", want, time.Minute))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/gradebook/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisDocumentRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisDocumentRepository(rdb), mr
}

func TestRedisDocumentRepository(t *testing.T) {
	store, _ := newRedisStore(t)
	testDocumentStore(t, store)
}

func TestRedisDocumentRepositoryTracksWriteTimes(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	clock := time.Date(2026, 9, 1, 8, 0, 0, 123000, time.UTC)
	store.now = func() time.Time { return clock }

	require.NoError(t, store.Write(ctx, "A", []byte(`{}`)))
	clock = clock.Add(time.Minute)
	require.NoError(t, store.Write(ctx, "B", []byte(`{}`)))
	clock = clock.Add(time.Minute)
	require.NoError(t, store.Write(ctx, "A", []byte(`{"x": {}}`)))

	docs, err := store.List(ctx)
	require.NoError(t, err)
	latest, _ := model.MostRecent(docs)
	assert.Equal(t, "A", latest.Name)
	assert.True(t, latest.ModifiedAt.Equal(clock), "got %v", latest.ModifiedAt)

	require.NoError(t, store.Rename(ctx, "B", "C"))
	docs, _ = store.List(ctx)
	prev, _ := model.MostRecent(docs, "A")
	assert.Equal(t, "C", prev.Name)
	assert.True(t, prev.ModifiedAt.Equal(clock.Add(-time.Minute)))

	fields, err := mr.HKeys(redisDocumentsKey)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "C"}, fields)
	assert.Equal(t, `{"x": {}}`, mr.HGet(redisDocumentsKey, "A"))
}

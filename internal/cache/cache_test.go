package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

type cachedValue struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSetGetJSON(t *testing.T) {
	setupCache(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, "post:p-1", cachedValue{Name: "hello", Count: 3}, time.Minute))

	var got cachedValue
	found, err := GetJSON(ctx, "post:p-1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestGetJSON_Miss(t *testing.T) {
	setupCache(t)

	var got cachedValue
	found, err := GetJSON(context.Background(), "post:absent", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetJSON_TTLExpires(t *testing.T) {
	mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, "posts:1:10", cachedValue{Name: "page"}, PostsListTTL))
	mr.FastForward(PostsListTTL + time.Second)

	var got cachedValue
	found, err := GetJSON(ctx, "posts:1:10", &got)
	require.NoError(t, err)
	assert.False(t, found, "entry should not outlive its TTL")
}

func TestAside_MissThenHit(t *testing.T) {
	setupCache(t)
	ctx := context.Background()

	fetches := 0
	fetch := func(dest *cachedValue) func() error {
		return func() error {
			fetches++
			*dest = cachedValue{Name: "from source", Count: fetches}
			return nil
		}
	}

	var first cachedValue
	require.NoError(t, Aside(ctx, "post:p-1", &first, time.Minute, fetch(&first)))
	var second cachedValue
	require.NoError(t, Aside(ctx, "post:p-1", &second, time.Minute, fetch(&second)))

	assert.Equal(t, 1, fetches, "second read should be a cache hit")
	assert.Equal(t, first, second)
}

func TestAside_NilClientFetchesEveryTime(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	fetches := 0
	for i := 0; i < 2; i++ {
		var got cachedValue
		require.NoError(t, Aside(ctx, "post:p-1", &got, time.Minute, func() error {
			fetches++
			got.Name = "from source"
			return nil
		}))
	}
	assert.Equal(t, 2, fetches)
}

func TestInvalidatePattern(t *testing.T) {
	mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, PostsListKey(1, 10), cachedValue{Name: "page1"}, time.Minute))
	require.NoError(t, SetJSON(ctx, PostsListKey(2, 10), cachedValue{Name: "page2"}, time.Minute))
	require.NoError(t, SetJSON(ctx, PostKey("p-1"), cachedValue{Name: "single"}, time.Minute))

	require.NoError(t, InvalidatePattern(ctx, PostsListPattern))

	assert.False(t, mr.Exists(PostsListKey(1, 10)))
	assert.False(t, mr.Exists(PostsListKey(2, 10)))
	assert.True(t, mr.Exists(PostKey("p-1")), "pattern must not touch single-post keys")
}

func TestInvalidatePost(t *testing.T) {
	mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, PostKey("p-1"), cachedValue{Name: "single"}, time.Minute))
	require.NoError(t, SetJSON(ctx, PostsListKey(1, 10), cachedValue{Name: "page1"}, time.Minute))

	require.NoError(t, InvalidatePost(ctx, "p-1"))

	assert.False(t, mr.Exists(PostKey("p-1")))
	assert.False(t, mr.Exists(PostsListKey(1, 10)))
}

func TestKeyClass(t *testing.T) {
	assert.Equal(t, "post", keyClass("post:p-1"))
	assert.Equal(t, "posts", keyClass("posts:1:10"))
	assert.Equal(t, "bare", keyClass("bare"))
}

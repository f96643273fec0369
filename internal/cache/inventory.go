package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PostKeyPrefix      = "post:%s"
	PostsListKeyPrefix = "posts:%d:%d"
	PostsListPattern   = "posts:*"
)

// TTLs bound staleness when an invalidation is missed: an entry never
// outlives its TTL even if the best-effort delete failed.
const (
	PostTTL      = time.Hour
	PostsListTTL = 5 * time.Minute
)

func PostKey(postID string) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func PostsListKey(page, limit int) string {
	return fmt.Sprintf(PostsListKeyPrefix, page, limit)
}

// Invalidate deletes a single cache key, best-effort.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidatePattern deletes every key matching the glob pattern via SCAN.
// Best-effort: a partial failure leaves entries to expire by TTL.
func InvalidatePattern(ctx context.Context, pattern string) error {
	if client == nil {
		return nil
	}
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		client.Del(ctx, iter.Val())
	}
	return iter.Err()
}

// InvalidatePost deletes the single-post key and every paginated list key,
// since a post write shifts list ordering on any page.
func InvalidatePost(ctx context.Context, postID string) error {
	Invalidate(ctx, PostKey(postID))
	return InvalidatePattern(ctx, PostsListPattern)
}

package cache

import (
	"context"
	"time"
)

// NoopPostCache always misses. Used when caching is disabled.
type NoopPostCache struct{}

func (NoopPostCache) Get(context.Context, string) (*PostCacheResult, error) {
	return nil, ErrCacheMiss
}

func (NoopPostCache) Version(context.Context, string) (int64, error) { return 0, nil }

func (NoopPostCache) SetIfVersion(context.Context, string, int64, *PostCacheResult, time.Duration) (bool, error) {
	return false, nil
}

func (NoopPostCache) Invalidate(context.Context, string) error { return nil }

func (NoopPostCache) BuildKeyByID(postID string) string { return "post:id:" + postID }

func (NoopPostCache) Close() error { return nil }

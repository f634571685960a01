package cache

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/snapgram/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// PostCacheResult is a cached post detail, comment tree included.
type PostCacheResult struct {
	Post domain.Post `json:"post"`
}

// PostCache stores post details by post id. Every post carries a version
// that Invalidate bumps; a fill only lands while the version it read
// before loading the post is still current.
type PostCache interface {
	Get(ctx context.Context, postID string) (*PostCacheResult, error)
	// Version returns the invalidation counter of a post, 0 if it was never invalidated.
	Version(ctx context.Context, postID string) (int64, error)
	// SetIfVersion stores result only while the post's version equals version.
	SetIfVersion(ctx context.Context, postID string, version int64, result *PostCacheResult, ttl time.Duration) (bool, error)
	// Invalidate bumps the version and drops the cached detail.
	Invalidate(ctx context.Context, postID string) error
	BuildKeyByID(postID string) string
	Close() error
}

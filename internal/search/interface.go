package search

import (
	"context"

	"github.com/weiawesome/snapgram/internal/domain"
)

// Page is one page of search results. NextCursor is the id of the last
// match when the engine filled the page, even if that match no longer
// loads from the store; empty means there is nothing further.
type Page struct {
	Posts      []domain.Post
	NextCursor string
}

// PostSearcher finds posts whose caption matches a query, newest first,
// starting strictly after page.Cursor.
type PostSearcher interface {
	Search(ctx context.Context, query string, page domain.PageRequest) (*Page, error)
}

// nextCursor returns the last id when ids filled a page of limit.
func nextCursor(ids []string, limit int) string {
	if len(ids) == 0 || len(ids) < limit {
		return ""
	}
	return ids[len(ids)-1]
}

// PostIndexer keeps an external index in step with post writes.
type PostIndexer interface {
	Index(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, postID string) error
}

// PostLoader hydrates index hits from the primary store.
type PostLoader interface {
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Post, error)
	Search(ctx context.Context, query string, page domain.PageRequest) ([]domain.Post, error)
}

// Engine is a searcher that may also need index maintenance.
type Engine interface {
	PostSearcher
	PostIndexer
}

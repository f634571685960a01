package search

import (
	"context"

	"github.com/weiawesome/snapgram/internal/domain"
)

// DatabaseEngine searches captions with a LIKE query on the primary store.
// Index maintenance is a no-op.
type DatabaseEngine struct {
	posts PostLoader
}

func NewDatabaseEngine(posts PostLoader) *DatabaseEngine {
	return &DatabaseEngine{posts: posts}
}

func (e *DatabaseEngine) Search(ctx context.Context, query string, page domain.PageRequest) (*Page, error) {
	posts, err := e.posts.Search(ctx, query, page)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return &Page{Posts: posts, NextCursor: nextCursor(ids, page.Limit)}, nil
}

func (e *DatabaseEngine) Index(context.Context, *domain.Post) error { return nil }

func (e *DatabaseEngine) Delete(context.Context, string) error { return nil }

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/internal/repository"
)

const postsMapping = `{
  "mappings": {
    "properties": {
      "id":        {"type": "keyword"},
      "caption":   {"type": "text"},
      "owner_id":  {"type": "keyword"},
      "timestamp": {"type": "date_nanos"}
    }
  }
}`

// postDocument is the indexed form of a post.
type postDocument struct {
	ID        string    `json:"id"`
	Caption   string    `json:"caption"`
	OwnerID   string    `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ESEngine searches captions in Elasticsearch and hydrates hits from the
// primary store, so results always carry current relations and counts.
type ESEngine struct {
	client *elasticsearch.Client
	index  string
	posts  PostLoader
}

func NewESEngine(client *elasticsearch.Client, index string, posts PostLoader) *ESEngine {
	if index == "" {
		index = "posts"
	}
	return &ESEngine{client: client, index: index, posts: posts}
}

// EnsureIndex creates the posts index with its mapping if it is missing.
func (e *ESEngine) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(strings.NewReader(postsMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

func (e *ESEngine) Index(ctx context.Context, post *domain.Post) error {
	data, err := json.Marshal(postDocument{
		ID:        post.ID,
		Caption:   post.Caption,
		OwnerID:   post.OwnerID,
		Timestamp: post.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := e.client.Index(
		e.index,
		bytes.NewReader(data),
		e.client.Index.WithContext(ctx),
		e.client.Index.WithDocumentID(post.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to index post: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

func (e *ESEngine) Delete(ctx context.Context, postID string) error {
	res, err := e.client.Delete(e.index, postID, e.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete post document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// Search runs the caption match and hydrates hits in hit order. Hits whose
// post is gone from the store are skipped, but the cursor still advances
// past them.
func (e *ESEngine) Search(ctx context.Context, query string, page domain.PageRequest) (*Page, error) {
	body := map[string]interface{}{
		"size": page.Limit,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"caption": map[string]interface{}{
					"query":    query,
					"operator": "and",
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"timestamp": "desc"},
			map[string]interface{}{"id": "desc"},
		},
		"_source": false,
	}

	if page.Cursor != "" {
		anchor, err := e.anchor(ctx, page.Cursor)
		if err != nil {
			return nil, err
		}
		body["search_after"] = []interface{}{anchor.UnixNano(), page.Cursor}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var result esResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	ids := make([]string, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	posts, err := e.posts.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &Page{Posts: posts, NextCursor: nextCursor(ids, page.Limit)}, nil
}

// anchor resolves the timestamp of a cursor post. A post deleted from the
// store whose document is still indexed keeps working as a cursor.
func (e *ESEngine) anchor(ctx context.Context, id string) (time.Time, error) {
	post, err := e.posts.GetByID(ctx, id)
	if err == nil {
		return post.Timestamp, nil
	}
	if !errors.Is(err, repository.ErrPostNotFound) {
		return time.Time{}, err
	}

	res, err := e.client.Get(e.index, id, e.client.Get.WithContext(ctx))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get post document: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return time.Time{}, repository.ErrInvalidCursor
	}
	if res.IsError() {
		return time.Time{}, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var doc struct {
		Source postDocument `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc.Source.Timestamp, nil
}

type esResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

package search

import (
	"context"
	"testing"

	"github.com/weiawesome/snapgram/internal/domain"
)

func TestDatabaseEngineNextCursor(t *testing.T) {
	loader := &fakeLoader{matches: []domain.Post{{ID: "p2"}, {ID: "p1"}}}
	engine := NewDatabaseEngine(loader)

	got, err := engine.Search(context.Background(), "sunset", domain.PageRequest{Limit: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got.NextCursor != "p1" {
		t.Fatalf("NextCursor = %q, want p1", got.NextCursor)
	}

	got, err = engine.Search(context.Background(), "sunset", domain.PageRequest{Limit: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got.NextCursor != "" {
		t.Fatalf("NextCursor = %q, want none", got.NextCursor)
	}
}

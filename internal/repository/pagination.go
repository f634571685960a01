package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// afterCursor restricts q to rows strictly after the cursor row of table in
// (created_at DESC, id DESC) order. An unknown cursor is ErrInvalidCursor.
func afterCursor(ctx context.Context, db *gorm.DB, q *gorm.DB, table, cursor string) (*gorm.DB, error) {
	if cursor == "" {
		return q, nil
	}

	var anchor struct {
		CreatedAt time.Time
	}
	err := db.WithContext(ctx).Table(table).Select("created_at").Where("id = ?", cursor).Take(&anchor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCursor
		}
		return nil, fmt.Errorf("failed to resolve cursor: %w", err)
	}

	col := table + ".created_at"
	id := table + ".id"
	return q.Where(
		fmt.Sprintf("(%s < ?) OR (%s = ? AND %s < ?)", col, col, id),
		anchor.CreatedAt, anchor.CreatedAt, cursor,
	), nil
}

// newestFirst orders table rows by (created_at DESC, id DESC).
func newestFirst(q *gorm.DB, table string) *gorm.DB {
	return q.Order(table + ".created_at DESC").Order(table + ".id DESC")
}

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '!'.
func likePattern(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

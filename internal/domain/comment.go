package domain

import (
	"sort"
	"time"
)

// Comment is either top-level (ParentCommentID nil) or a reply to a
// top-level comment of the same post.
type Comment struct {
	ID              string        `json:"id"`
	Body            string        `json:"body"`
	PostID          string        `json:"postId"`
	AuthorID        string        `json:"authorId"`
	ParentCommentID *string       `json:"parentCommentId"`
	Timestamp       time.Time     `json:"timestamp"`
	Author          *UserPreview  `json:"author,omitempty"`
	LikedBy         []UserPreview `json:"liked_by"`
	Replies         []Comment     `json:"replies,omitempty"`
	Post            *Post         `json:"post,omitempty"`
	Count           *CommentCount `json:"_count,omitempty"`
}

// IsTopLevel reports whether the comment has no parent.
func (c *Comment) IsTopLevel() bool {
	return c.ParentCommentID == nil
}

// CommentCount carries aggregate counts for a comment.
type CommentCount struct {
	Replies int64 `json:"replies"`
	LikedBy int64 `json:"liked_by"`
}

// CreateCommentRequest represents comment creation. AuthorID defaults to the caller.
type CreateCommentRequest struct {
	PostID          string  `json:"postId" binding:"required"`
	Body            string  `json:"body" binding:"required,max=2200"`
	AuthorID        string  `json:"authorId"`
	ParentCommentID *string `json:"parentCommentId"`
}

// UpdateCommentRequest represents comment edit.
type UpdateCommentRequest struct {
	Body string `json:"body" binding:"required,max=2200"`
}

// ListCommentsQuery selects top-level comments of a post, or replies of
// one comment when ParentCommentID is set.
type ListCommentsQuery struct {
	PostID          string `form:"postId" binding:"required"`
	ParentCommentID string `form:"parentCommentId"`
}

// NewerFirst orders comments by timestamp descending, id descending.
func NewerFirst(a, b *Comment) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}

// BuildCommentTree groups the comments of one post into top-level comments,
// newest first, each carrying its replies oldest first and its counts.
// Replies whose parent is not in the input are dropped.
func BuildCommentTree(comments []Comment) []Comment {
	top := make([]Comment, 0)
	replies := make(map[string][]Comment)
	for _, c := range comments {
		if c.ParentCommentID == nil {
			top = append(top, c)
			continue
		}
		replies[*c.ParentCommentID] = append(replies[*c.ParentCommentID], c)
	}

	sort.SliceStable(top, func(i, j int) bool { return NewerFirst(&top[i], &top[j]) })

	for i := range top {
		rs := replies[top[i].ID]
		sort.SliceStable(rs, func(a, b int) bool { return NewerFirst(&rs[b], &rs[a]) })
		for j := range rs {
			rs[j].Count = &CommentCount{LikedBy: int64(len(rs[j].LikedBy))}
		}
		top[i].Replies = rs
		top[i].Count = &CommentCount{
			Replies: int64(len(rs)),
			LikedBy: int64(len(top[i].LikedBy)),
		}
	}
	return top
}

package pubsub

import "fmt"

// ChannelEvents is the Redis channel pattern; the suffix is the event type.
const ChannelEvents = "snapgram:events:%s"

// Event types.
const (
	EventUserRegistered = "user.registered"
	EventUserUpdated    = "user.updated"

	EventPostCreated = "post.created"
	EventPostUpdated = "post.updated"
	EventPostDeleted = "post.deleted"

	EventCommentCreated = "comment.created"
	EventCommentUpdated = "comment.updated"
	EventCommentDeleted = "comment.deleted"

	EventPostLiked      = "post.liked"
	EventPostUnliked    = "post.unliked"
	EventPostSaved      = "post.saved"
	EventPostUnsaved    = "post.unsaved"
	EventPostShared     = "post.shared"
	EventCommentLiked   = "comment.liked"
	EventCommentUnliked = "comment.unliked"
)

// EventsChannel returns the Redis channel for an event type.
func EventsChannel(eventType string) string {
	return fmt.Sprintf(ChannelEvents, eventType)
}

// UserPayload accompanies user.* events.
type UserPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// PostPayload accompanies post.created, post.updated and post.deleted.
type PostPayload struct {
	PostID    string `json:"post_id"`
	OwnerID   string `json:"owner_id"`
	Caption   string `json:"caption"`
	MediaURL  string `json:"media_url"`
	Timestamp int64  `json:"timestamp"` // unix ms
}

// CommentPayload accompanies comment.* events.
type CommentPayload struct {
	CommentID       string  `json:"comment_id"`
	PostID          string  `json:"post_id"`
	AuthorID        string  `json:"author_id"`
	ParentCommentID *string `json:"parent_comment_id,omitempty"`
}

// RelationPayload accompanies like/save/share toggles.
type RelationPayload struct {
	TargetID string `json:"target_id"`
	UserID   string `json:"user_id"`
}

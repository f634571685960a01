package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/snapgram/internal/domain"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already exists")
	ErrUsernameExists  = errors.New("username already exists")
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrInvalidCursor   = errors.New("invalid cursor")
)

// Relation names a user-to-post membership set.
type Relation string

const (
	RelationLike  Relation = "like"
	RelationSave  Relation = "save"
	RelationShare Relation = "share"
)

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByLogin matches either the email or the username.
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	List(ctx context.Context, limit int) ([]domain.User, error)
	Update(ctx context.Context, id string, fields *domain.UserUpdateFields) (*domain.User, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// PostRepository defines the interface for post data persistence.
// Listings are ordered newest first (timestamp DESC, id DESC) and start
// strictly after page.Cursor.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Post, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, page domain.PageRequest) ([]domain.Post, error)
	ListByOwner(ctx context.Context, ownerID string, page domain.PageRequest) ([]domain.Post, error)
	Search(ctx context.Context, query string, page domain.PageRequest) ([]domain.Post, error)
	ListByRelation(ctx context.Context, rel Relation, userID string, limit int) ([]domain.Post, error)
	// UpdateOwned and DeleteOwned only match posts owned by ownerID;
	// anything else is ErrPostNotFound.
	UpdateOwned(ctx context.Context, id, ownerID string, req *domain.UpdatePostRequest) (*domain.Post, error)
	DeleteOwned(ctx context.Context, id, ownerID string) (*domain.Post, error)
	AddRelation(ctx context.Context, rel Relation, postID, userID string) error
	RemoveRelation(ctx context.Context, rel Relation, postID, userID string) error
	Members(ctx context.Context, rel Relation, postID string) ([]domain.UserPreview, error)
}

// CommentRepository defines the interface for comment data persistence.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	ListTopLevel(ctx context.Context, postID string) ([]domain.Comment, error)
	ListReplies(ctx context.Context, parentID string) ([]domain.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]domain.Comment, error)
	ListLikedBy(ctx context.Context, userID string, limit int) ([]domain.Comment, error)
	// UpdateOwned and DeleteOwned only match comments written by authorID;
	// anything else is ErrCommentNotFound.
	UpdateOwned(ctx context.Context, id, authorID, body string) (*domain.Comment, error)
	DeleteOwned(ctx context.Context, id, authorID string) (*domain.Comment, error)
	Like(ctx context.Context, commentID, userID string) error
	Unlike(ctx context.Context, commentID, userID string) error
	Likers(ctx context.Context, commentID string) ([]domain.UserPreview, error)
}

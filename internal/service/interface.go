package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/weiawesome/snapgram/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingLogin       = errors.New("login is required")
	ErrUserNotFound       = errors.New("user not found")
	ErrPostNotFound       = errors.New("post not found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrParentNotFound     = errors.New("parent comment not found")
	ErrReplyDepth         = errors.New("reply depth exceeded")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("username or email already in use")
	ErrInvalidCursor      = errors.New("invalid cursor")
	ErrEmptyQuery         = errors.New("search query is required")
	ErrUnsupportedMedia   = errors.New("unsupported media type")
	ErrPresignUnsupported = errors.New("presigned uploads require the s3 storage driver")
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Generate(userID, username string) (string, time.Time, error)
}

// AuthService registers and logs in users.
type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
}

// UserService reads and edits user profiles.
type UserService interface {
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	ListUsers(ctx context.Context, limit int) ([]domain.UserPreview, error)
	UpdateUser(ctx context.Context, callerID string, req *domain.UpdateUserRequest) (*domain.User, error)
}

// PostService serves the feed and post mutations.
type PostService interface {
	ListFeed(ctx context.Context, page domain.PageRequest) (*domain.PostPage, error)
	ListByOwner(ctx context.Context, ownerID string, page domain.PageRequest) (*domain.PostPage, error)
	Search(ctx context.Context, query string, page domain.PageRequest) (*domain.PostPage, error)
	CreatePost(ctx context.Context, ownerID string, req *domain.CreatePostRequest) (*domain.Post, error)
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	UpdatePost(ctx context.Context, id, callerID string, req *domain.UpdatePostRequest) (*domain.Post, error)
	DeletePost(ctx context.Context, id, callerID string) (*domain.Post, error)
	// Toggle applies a like, unlike, save, unsave or share for the caller.
	Toggle(ctx context.Context, action PostAction, callerID string, req *domain.RelationRequest) (*domain.Membership, error)
}

// CommentService manages the two-level comment tree.
type CommentService interface {
	ListComments(ctx context.Context, q *domain.ListCommentsQuery) ([]domain.Comment, error)
	CreateComment(ctx context.Context, callerID string, req *domain.CreateCommentRequest) (*domain.Comment, error)
	UpdateComment(ctx context.Context, id, callerID string, req *domain.UpdateCommentRequest) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id, callerID string) (*domain.Comment, error)
	Like(ctx context.Context, callerID string, req *domain.RelationRequest) (*domain.Membership, error)
	Unlike(ctx context.Context, callerID string, req *domain.RelationRequest) (*domain.Membership, error)
}

// MediaService stores uploaded photos.
type MediaService interface {
	Upload(ctx context.Context, userID string, r io.Reader) (*domain.UploadResult, error)
	Presign(ctx context.Context, userID string, req *domain.PresignRequest) (*domain.PresignResponse, error)
}

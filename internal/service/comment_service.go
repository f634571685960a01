package service

import (
	"context"
	"errors"

	"github.com/weiawesome/snapgram/internal/audit"
	"github.com/weiawesome/snapgram/internal/cache"
	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/internal/repository"
	"github.com/weiawesome/snapgram/pkg/log"
	"github.com/weiawesome/snapgram/pkg/pubsub"
)

type commentServiceImpl struct {
	comments  repository.CommentRepository
	posts     repository.PostRepository
	users     repository.UserRepository
	cache     cache.PostCache
	publisher pubsub.Publisher
}

// NewCommentService creates a new comment service.
func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	postCache cache.PostCache,
	publisher pubsub.Publisher,
) CommentService {
	return &commentServiceImpl{
		comments:  comments,
		posts:     posts,
		users:     users,
		cache:     postCache,
		publisher: publisher,
	}
}

// ListComments returns the top-level comments of a post, newest first, or
// the replies of one comment, oldest first.
func (s *commentServiceImpl) ListComments(ctx context.Context, q *domain.ListCommentsQuery) ([]domain.Comment, error) {
	l := log.Ctx(ctx)

	var (
		comments []domain.Comment
		err      error
	)
	if q.ParentCommentID != "" {
		comments, err = s.comments.ListReplies(ctx, q.ParentCommentID)
	} else {
		comments, err = s.comments.ListTopLevel(ctx, q.PostID)
	}
	if err != nil {
		l.Error().Err(err).Str(log.FieldPostID, q.PostID).Msg("failed to list comments")
		return nil, err
	}

	if q.ParentCommentID == "" {
		return comments, nil
	}
	out := comments[:0]
	for _, c := range comments {
		if c.PostID == q.PostID {
			out = append(out, c)
		}
	}
	return out, nil
}

// CreateComment adds a comment or a reply. Nothing is written unless the
// author is the caller, the post and author exist, and any parent is a
// top-level comment of the same post.
func (s *commentServiceImpl) CreateComment(ctx context.Context, callerID string, req *domain.CreateCommentRequest) (*domain.Comment, error) {
	l := log.Ctx(ctx)

	authorID := req.AuthorID
	if authorID == "" {
		authorID = callerID
	}
	if authorID != callerID {
		return nil, ErrForbidden
	}

	exists, err := s.posts.Exists(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPostNotFound
	}

	exists, err = s.users.Exists(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	var parentID *string
	if req.ParentCommentID != nil && *req.ParentCommentID != "" {
		parent, err := s.comments.GetByID(ctx, *req.ParentCommentID)
		if err != nil {
			if errors.Is(err, repository.ErrCommentNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
		if parent.PostID != req.PostID {
			return nil, ErrParentNotFound
		}
		if !parent.IsTopLevel() {
			return nil, ErrReplyDepth
		}
		parentID = &parent.ID
	}

	comment := &domain.Comment{
		PostID:          req.PostID,
		AuthorID:        authorID,
		Body:            req.Body,
		ParentCommentID: parentID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		l.Error().Err(err).Str(log.FieldPostID, req.PostID).Msg("failed to create comment")
		return nil, err
	}

	created, err := s.comments.GetByID(ctx, comment.ID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldCommentID, comment.ID).Msg("failed to reload comment")
		return nil, err
	}

	invalidatePost(ctx, s.cache, created.PostID)
	audit.Log(ctx, audit.ActionCreateComment, callerID, created.ID, "comment created")
	publish(ctx, s.publisher, pubsub.EventCommentCreated, created.ID, callerID, commentPayload(created))

	return created, nil
}

func (s *commentServiceImpl) UpdateComment(ctx context.Context, id, callerID string, req *domain.UpdateCommentRequest) (*domain.Comment, error) {
	l := log.Ctx(ctx)

	comment, err := s.comments.UpdateOwned(ctx, id, callerID, req.Body)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return nil, ErrCommentNotFound
		}
		l.Error().Err(err).Str(log.FieldCommentID, id).Msg("failed to update comment")
		return nil, err
	}

	invalidatePost(ctx, s.cache, comment.PostID)
	audit.Log(ctx, audit.ActionUpdateComment, callerID, id, "comment updated")
	publish(ctx, s.publisher, pubsub.EventCommentUpdated, id, callerID, commentPayload(comment))

	return comment, nil
}

func (s *commentServiceImpl) DeleteComment(ctx context.Context, id, callerID string) (*domain.Comment, error) {
	l := log.Ctx(ctx)

	comment, err := s.comments.DeleteOwned(ctx, id, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return nil, ErrCommentNotFound
		}
		l.Error().Err(err).Str(log.FieldCommentID, id).Msg("failed to delete comment")
		return nil, err
	}

	invalidatePost(ctx, s.cache, comment.PostID)
	audit.Log(ctx, audit.ActionDeleteComment, callerID, id, "comment deleted")
	publish(ctx, s.publisher, pubsub.EventCommentDeleted, id, callerID, commentPayload(comment))

	return comment, nil
}

func (s *commentServiceImpl) Like(ctx context.Context, callerID string, req *domain.RelationRequest) (*domain.Membership, error) {
	return s.toggle(ctx, true, callerID, req)
}

func (s *commentServiceImpl) Unlike(ctx context.Context, callerID string, req *domain.RelationRequest) (*domain.Membership, error) {
	return s.toggle(ctx, false, callerID, req)
}

func (s *commentServiceImpl) toggle(ctx context.Context, like bool, callerID string, req *domain.RelationRequest) (*domain.Membership, error) {
	l := log.Ctx(ctx)

	userID, err := actingUser(ctx, s.users, callerID, req.UserID)
	if err != nil {
		return nil, err
	}

	comment, err := s.comments.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}

	eventType := pubsub.EventCommentLiked
	if like {
		err = s.comments.Like(ctx, comment.ID, userID)
	} else {
		eventType = pubsub.EventCommentUnliked
		err = s.comments.Unlike(ctx, comment.ID, userID)
	}
	if err != nil {
		l.Error().Err(err).Str(log.FieldCommentID, comment.ID).Msg("failed to toggle comment like")
		return nil, err
	}

	members, err := s.comments.Likers(ctx, comment.ID)
	if err != nil {
		return nil, err
	}

	invalidatePost(ctx, s.cache, comment.PostID)
	publish(ctx, s.publisher, eventType, comment.ID, userID, pubsub.RelationPayload{
		TargetID: comment.ID,
		UserID:   userID,
	})

	return &domain.Membership{ID: comment.ID, Relation: "liked_by", Members: members}, nil
}

func commentPayload(c *domain.Comment) pubsub.CommentPayload {
	return pubsub.CommentPayload{
		CommentID:       c.ID,
		PostID:          c.PostID,
		AuthorID:        c.AuthorID,
		ParentCommentID: c.ParentCommentID,
	}
}

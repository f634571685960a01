package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/snapgram/internal/audit"
	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/internal/repository"
	"github.com/weiawesome/snapgram/pkg/log"
	"github.com/weiawesome/snapgram/pkg/pubsub"
)

const (
	defaultUserListLimit = 50
	maxUserListLimit     = 100
)

type userServiceImpl struct {
	users        repository.UserRepository
	posts        repository.PostRepository
	comments     repository.CommentRepository
	publisher    pubsub.Publisher
	listLimit    int
	profilePosts int
}

// NewUserService creates a new user service. listLimit is the default size
// of the user list; profilePosts bounds the posts embedded in a profile.
func NewUserService(
	users repository.UserRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	publisher pubsub.Publisher,
	listLimit, profilePosts int,
) UserService {
	if listLimit <= 0 || listLimit > maxUserListLimit {
		listLimit = defaultUserListLimit
	}
	if profilePosts <= 0 {
		profilePosts = 500
	}
	return &userServiceImpl{
		users:        users,
		posts:        posts,
		comments:     comments,
		publisher:    publisher,
		listLimit:    listLimit,
		profilePosts: profilePosts,
	}
}

// GetProfile loads a user with their posts and interactions. The four
// listings are fetched concurrently.
func (s *userServiceImpl) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	l := log.Ctx(ctx)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to get user")
		return nil, err
	}

	profile := &domain.UserProfile{User: *user}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profile.Posts, err = s.posts.ListByOwner(gctx, userID, domain.PageRequest{Limit: s.profilePosts})
		return err
	})
	g.Go(func() (err error) {
		profile.LikedPosts, err = s.posts.ListByRelation(gctx, repository.RelationLike, userID, s.profilePosts)
		return err
	})
	g.Go(func() (err error) {
		profile.SavedPosts, err = s.posts.ListByRelation(gctx, repository.RelationSave, userID, s.profilePosts)
		return err
	})
	g.Go(func() (err error) {
		profile.LikedComments, err = s.comments.ListLikedBy(gctx, userID, s.profilePosts)
		return err
	})
	if err := g.Wait(); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to load profile")
		return nil, err
	}

	return profile, nil
}

// ListUsers returns user previews ordered by username. limit <= 0 uses
// the default; larger values are clamped.
func (s *userServiceImpl) ListUsers(ctx context.Context, limit int) ([]domain.UserPreview, error) {
	if limit <= 0 {
		limit = s.listLimit
	}
	if limit > maxUserListLimit {
		limit = maxUserListLimit
	}

	users, err := s.users.List(ctx, limit)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list users")
		return nil, err
	}

	out := make([]domain.UserPreview, 0, len(users))
	for _, u := range users {
		out = append(out, domain.UserPreview{ID: u.ID, Username: u.Username, Name: u.Name, DpURL: u.DpURL})
	}
	return out, nil
}

// UpdateUser edits the caller's own profile.
func (s *userServiceImpl) UpdateUser(ctx context.Context, callerID string, req *domain.UpdateUserRequest) (*domain.User, error) {
	l := log.Ctx(ctx)

	if req.ID != callerID {
		return nil, ErrForbidden
	}

	user, err := s.users.Update(ctx, req.ID, &req.Data)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrUsernameExists), errors.Is(err, repository.ErrEmailExists):
			return nil, ErrConflict
		}
		l.Error().Err(err).Str(log.FieldUserID, req.ID).Msg("failed to update user")
		return nil, err
	}

	audit.Log(ctx, audit.ActionUpdateProfile, callerID, user.ID, "profile updated")
	publish(ctx, s.publisher, pubsub.EventUserUpdated, user.ID, callerID, pubsub.UserPayload{
		UserID:   user.ID,
		Username: user.Username,
	})

	return user, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/snapgram/internal/audit"
	"github.com/weiawesome/snapgram/internal/cache"
	"github.com/weiawesome/snapgram/internal/config"
	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/internal/repository"
	"github.com/weiawesome/snapgram/internal/search"
	"github.com/weiawesome/snapgram/pkg/log"
	"github.com/weiawesome/snapgram/pkg/pubsub"
)

// PostAction names a post membership toggle.
type PostAction string

const (
	PostLike   PostAction = "like"
	PostUnlike PostAction = "unlike"
	PostSave   PostAction = "save"
	PostUnsave PostAction = "unsave"
	PostShare  PostAction = "share"
)

type toggleSpec struct {
	relation  repository.Relation
	connect   bool
	eventType string
	field     string
}

var postToggles = map[PostAction]toggleSpec{
	PostLike:   {repository.RelationLike, true, pubsub.EventPostLiked, "liked_by"},
	PostUnlike: {repository.RelationLike, false, pubsub.EventPostUnliked, "liked_by"},
	PostSave:   {repository.RelationSave, true, pubsub.EventPostSaved, "saved_by"},
	PostUnsave: {repository.RelationSave, false, pubsub.EventPostUnsaved, "saved_by"},
	PostShare:  {repository.RelationShare, true, pubsub.EventPostShared, "shared_by"},
}

type postServiceImpl struct {
	posts     repository.PostRepository
	comments  repository.CommentRepository
	users     repository.UserRepository
	search    search.Engine
	cache     cache.PostCache
	cacheTTL  time.Duration
	publisher pubsub.Publisher
	feed      config.FeedConfig
	sf        singleflight.Group
}

// NewPostService creates a new post service.
func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	engine search.Engine,
	postCache cache.PostCache,
	cacheTTL time.Duration,
	publisher pubsub.Publisher,
	feed config.FeedConfig,
) PostService {
	if feed.DefaultLimit <= 0 {
		feed.DefaultLimit = 10
	}
	if feed.MaxLimit <= 0 {
		feed.MaxLimit = 100
	}
	if feed.MaxAll <= 0 {
		feed.MaxAll = 500
	}
	return &postServiceImpl{
		posts:     posts,
		comments:  comments,
		users:     users,
		search:    engine,
		cache:     postCache,
		cacheTTL:  cacheTTL,
		publisher: publisher,
		feed:      feed,
	}
}

// bound applies the default, the clamp and the all=true cap.
func (s *postServiceImpl) bound(page domain.PageRequest) domain.PageRequest {
	switch {
	case page.All:
		page.Limit = s.feed.MaxAll
	case page.Limit <= 0:
		page.Limit = s.feed.DefaultLimit
	case page.Limit > s.feed.MaxLimit:
		page.Limit = s.feed.MaxLimit
	}
	return page
}

// toPage sets nextCursor to the last id when the page is full.
func toPage(posts []domain.Post, limit int) *domain.PostPage {
	page := &domain.PostPage{Posts: posts}
	if page.Posts == nil {
		page.Posts = []domain.Post{}
	}
	if len(posts) > 0 && len(posts) >= limit {
		last := posts[len(posts)-1].ID
		page.NextCursor = &last
	}
	return page
}

func (s *postServiceImpl) listed(ctx context.Context, what string, posts []domain.Post, err error, limit int) (*domain.PostPage, error) {
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, ErrInvalidCursor
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list " + what)
		return nil, err
	}
	return toPage(posts, limit), nil
}

func (s *postServiceImpl) ListFeed(ctx context.Context, page domain.PageRequest) (*domain.PostPage, error) {
	page = s.bound(page)
	posts, err := s.posts.List(ctx, page)
	return s.listed(ctx, "feed", posts, err, page.Limit)
}

func (s *postServiceImpl) ListByOwner(ctx context.Context, ownerID string, page domain.PageRequest) (*domain.PostPage, error) {
	exists, err := s.users.Exists(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	page = s.bound(page)
	posts, err := s.posts.ListByOwner(ctx, ownerID, page)
	return s.listed(ctx, "user posts", posts, err, page.Limit)
}

func (s *postServiceImpl) Search(ctx context.Context, query string, page domain.PageRequest) (*domain.PostPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	page = s.bound(page)
	result, err := s.search.Search(ctx, query, page)
	if err != nil {
		return s.listed(ctx, "search results", nil, err, page.Limit)
	}

	out := &domain.PostPage{Posts: result.Posts}
	if out.Posts == nil {
		out.Posts = []domain.Post{}
	}
	if result.NextCursor != "" {
		next := result.NextCursor
		out.NextCursor = &next
	}
	return out, nil
}

func (s *postServiceImpl) CreatePost(ctx context.Context, ownerID string, req *domain.CreatePostRequest) (*domain.Post, error) {
	l := log.Ctx(ctx)

	post := &domain.Post{
		OwnerID:  ownerID,
		Caption:  req.Caption,
		MediaURL: req.MediaURL,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		l.Error().Err(err).Msg("failed to create post")
		return nil, err
	}

	created, err := s.posts.GetByID(ctx, post.ID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldPostID, post.ID).Msg("failed to reload post")
		return nil, err
	}

	s.index(ctx, created)
	audit.Log(ctx, audit.ActionCreatePost, ownerID, created.ID, "post created")
	publish(ctx, s.publisher, pubsub.EventPostCreated, created.ID, ownerID, postPayload(created))

	return created, nil
}

// GetPost returns a post with its comment tree, served from the cache when
// possible. Concurrent misses for one post share a single load.
func (s *postServiceImpl) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	result, err, _ := s.sf.Do(s.cache.BuildKeyByID(id), func() (interface{}, error) {
		return s.fetchWithCache(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	cached, ok := result.(*cache.PostCacheResult)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	post := cached.Post
	return &post, nil
}

// fetchWithCache reads the cache version before loading the post, so a
// mutation that invalidates in between makes the fill a no-op.
func (s *postServiceImpl) fetchWithCache(ctx context.Context, id string) (*cache.PostCacheResult, error) {
	l := log.Ctx(ctx)

	cached, err := s.cache.Get(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn().Err(err).Msg("cache get error")
	}

	version, verErr := s.cache.Version(ctx, id)
	if verErr != nil {
		l.Warn().Err(verErr).Str(log.FieldPostID, id).Msg("cache version error, skipping fill")
	}

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		l.Error().Err(err).Str(log.FieldPostID, id).Msg("failed to get post")
		return nil, err
	}

	comments, err := s.comments.ListByPost(ctx, id)
	if err != nil {
		l.Error().Err(err).Str(log.FieldPostID, id).Msg("failed to load comments")
		return nil, err
	}
	post.Comments = domain.BuildCommentTree(comments)
	post.Count = &domain.PostCount{
		Comments: int64(len(comments)),
		LikedBy:  int64(len(post.LikedBy)),
	}

	result := &cache.PostCacheResult{Post: *post}

	if verErr == nil {
		go func() {
			cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			stored, err := s.cache.SetIfVersion(cacheCtx, id, version, result, s.cacheTTL)
			l := log.L()
			if err != nil {
				l.Warn().Err(err).Msg("cache set error")
				return
			}
			if !stored {
				l.Debug().Str(log.FieldPostID, id).Msg("cache fill skipped, post changed during load")
			}
		}()
	}

	return result, nil
}

func (s *postServiceImpl) UpdatePost(ctx context.Context, id, callerID string, req *domain.UpdatePostRequest) (*domain.Post, error) {
	l := log.Ctx(ctx)

	post, err := s.posts.UpdateOwned(ctx, id, callerID, req)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		l.Error().Err(err).Str(log.FieldPostID, id).Msg("failed to update post")
		return nil, err
	}

	s.invalidate(ctx, id)
	s.index(ctx, post)
	audit.Log(ctx, audit.ActionUpdatePost, callerID, id, "post updated")
	publish(ctx, s.publisher, pubsub.EventPostUpdated, id, callerID, postPayload(post))

	return post, nil
}

func (s *postServiceImpl) DeletePost(ctx context.Context, id, callerID string) (*domain.Post, error) {
	l := log.Ctx(ctx)

	post, err := s.posts.DeleteOwned(ctx, id, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		l.Error().Err(err).Str(log.FieldPostID, id).Msg("failed to delete post")
		return nil, err
	}

	s.invalidate(ctx, id)
	if err := s.search.Delete(ctx, id); err != nil {
		l.Warn().Err(err).Str(log.FieldPostID, id).Msg("failed to remove post from search index")
	}
	audit.Log(ctx, audit.ActionDeletePost, callerID, id, "post deleted")
	publish(ctx, s.publisher, pubsub.EventPostDeleted, id, callerID, postPayload(post))

	return post, nil
}

func (s *postServiceImpl) Toggle(ctx context.Context, action PostAction, callerID string, req *domain.RelationRequest) (*domain.Membership, error) {
	l := log.Ctx(ctx)

	toggle, ok := postToggles[action]
	if !ok {
		return nil, fmt.Errorf("unknown post action %q", action)
	}

	userID, err := actingUser(ctx, s.users, callerID, req.UserID)
	if err != nil {
		return nil, err
	}

	exists, err := s.posts.Exists(ctx, req.ID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldPostID, req.ID).Msg("failed to check post")
		return nil, err
	}
	if !exists {
		return nil, ErrPostNotFound
	}

	if toggle.connect {
		err = s.posts.AddRelation(ctx, toggle.relation, req.ID, userID)
	} else {
		err = s.posts.RemoveRelation(ctx, toggle.relation, req.ID, userID)
	}
	if err != nil {
		l.Error().Err(err).Str(log.FieldPostID, req.ID).Str("action", string(action)).Msg("failed to toggle post relation")
		return nil, err
	}

	members, err := s.posts.Members(ctx, toggle.relation, req.ID)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, req.ID)
	publish(ctx, s.publisher, toggle.eventType, req.ID, userID, pubsub.RelationPayload{
		TargetID: req.ID,
		UserID:   userID,
	})

	return &domain.Membership{ID: req.ID, Relation: toggle.field, Members: members}, nil
}

func (s *postServiceImpl) invalidate(ctx context.Context, postID string) {
	invalidatePost(ctx, s.cache, postID)
}

func (s *postServiceImpl) index(ctx context.Context, post *domain.Post) {
	if err := s.search.Index(ctx, post); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldPostID, post.ID).Msg("failed to index post")
	}
}

// invalidatePost bumps the cache version of a post and drops its entry.
// Failures are logged.
func invalidatePost(ctx context.Context, c cache.PostCache, postID string) {
	if err := c.Invalidate(ctx, postID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldPostID, postID).Msg("cache invalidate error")
	}
}

// actingUser resolves the user a toggle acts for. A userId naming someone
// other than the caller is forbidden; the user must exist.
func actingUser(ctx context.Context, users repository.UserRepository, callerID, requested string) (string, error) {
	if requested != "" && requested != callerID {
		return "", ErrForbidden
	}

	exists, err := users.Exists(ctx, callerID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrUserNotFound
	}
	return callerID, nil
}

func postPayload(p *domain.Post) pubsub.PostPayload {
	return pubsub.PostPayload{
		PostID:    p.ID,
		OwnerID:   p.OwnerID,
		Caption:   p.Caption,
		MediaURL:  p.MediaURL,
		Timestamp: p.Timestamp.UnixMilli(),
	}
}

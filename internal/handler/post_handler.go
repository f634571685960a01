package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/internal/service"
	"github.com/weiawesome/snapgram/pkg/log"
	"github.com/weiawesome/snapgram/pkg/middleware"
	"github.com/weiawesome/snapgram/pkg/response"
)

// ListPosts returns one page of the global feed.
func (h *Handler) ListPosts(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.posts.ListFeed(c.Request.Context(), page)
	if err != nil {
		fail(c, err, "failed to list posts")
		return
	}
	response.Success(c, result)
}

// SearchPosts returns one page of posts whose caption matches q.
func (h *Handler) SearchPosts(c *gin.Context) {
	var q domain.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	page, err := toPageRequest(q.PageQuery)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.posts.Search(c.Request.Context(), q.Q, page)
	if err != nil {
		fail(c, err, "failed to search posts")
		return
	}
	response.Success(c, result)
}

func (h *Handler) CreatePost(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid create post request")
		response.BadRequest(c, err.Error())
		return
	}

	post, err := h.posts.CreatePost(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err, "failed to create post")
		return
	}
	response.Created(c, post)
}

// GetPost returns a post with its owner, memberships and comment tree.
func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.posts.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "failed to get post")
		return
	}
	response.Success(c, post)
}

func (h *Handler) UpdatePost(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid update post request")
		response.BadRequest(c, err.Error())
		return
	}

	post, err := h.posts.UpdatePost(ctx, c.Param("id"), middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err, "failed to update post")
		return
	}
	response.Success(c, post)
}

func (h *Handler) DeletePost(c *gin.Context) {
	post, err := h.posts.DeletePost(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err, "failed to delete post")
		return
	}
	response.Success(c, post)
}

// togglePost builds the handler of one post membership action.
func (h *Handler) togglePost(action service.PostAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var req domain.RelationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str("action", string(action)).Msg("invalid relation request")
			response.BadRequest(c, err.Error())
			return
		}

		membership, err := h.posts.Toggle(ctx, action, middleware.GetUserID(c), &req)
		if err != nil {
			fail(c, err, "failed to "+string(action)+" post")
			return
		}
		response.Success(c, membership)
	}
}

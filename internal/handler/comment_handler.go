package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/pkg/log"
	"github.com/weiawesome/snapgram/pkg/middleware"
	"github.com/weiawesome/snapgram/pkg/response"
)

// ListComments returns top-level comments of a post, or the replies of
// parentCommentId when given.
func (h *Handler) ListComments(c *gin.Context) {
	var q domain.ListCommentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "postId is required")
		return
	}

	comments, err := h.comments.ListComments(c.Request.Context(), &q)
	if err != nil {
		fail(c, err, "failed to list comments")
		return
	}
	response.Success(c, comments)
}

func (h *Handler) CreateComment(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid create comment request")
		response.BadRequest(c, err.Error())
		return
	}

	comment, err := h.comments.CreateComment(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err, "failed to create comment")
		return
	}
	response.Created(c, comment)
}

func (h *Handler) UpdateComment(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid update comment request")
		response.BadRequest(c, err.Error())
		return
	}

	comment, err := h.comments.UpdateComment(ctx, c.Param("id"), middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err, "failed to update comment")
		return
	}
	response.Success(c, comment)
}

func (h *Handler) DeleteComment(c *gin.Context) {
	comment, err := h.comments.DeleteComment(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err, "failed to delete comment")
		return
	}
	response.Success(c, comment)
}

func (h *Handler) LikeComment(c *gin.Context) {
	var req domain.RelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	membership, err := h.comments.Like(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err, "failed to like comment")
		return
	}
	response.Success(c, membership)
}

func (h *Handler) UnlikeComment(c *gin.Context) {
	var req domain.RelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	membership, err := h.comments.Unlike(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err, "failed to unlike comment")
		return
	}
	response.Success(c, membership)
}

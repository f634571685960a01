package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/pkg/log"
	"github.com/weiawesome/snapgram/pkg/middleware"
	"github.com/weiawesome/snapgram/pkg/response"
)

// ListUsers returns user previews ordered by username.
func (h *Handler) ListUsers(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(c, errInvalidLimit.Error())
			return
		}
		limit = n
	}

	users, err := h.users.ListUsers(c.Request.Context(), limit)
	if err != nil {
		fail(c, err, "failed to list users")
		return
	}
	response.Success(c, users)
}

// GetUser returns a profile with posts and interactions.
func (h *Handler) GetUser(c *gin.Context) {
	profile, err := h.users.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "failed to get user")
		return
	}
	response.Success(c, profile)
}

// ListUserPosts returns one page of a user's posts.
func (h *Handler) ListUserPosts(c *gin.Context) {
	page, err := parsePage(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.posts.ListByOwner(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		fail(c, err, "failed to list user posts")
		return
	}
	response.Success(c, result)
}

// UpdateUser edits the caller's profile.
func (h *Handler) UpdateUser(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid update user request")
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.UpdateUser(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err, "failed to update user")
		return
	}
	response.Success(c, user)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/pkg/log"
	"github.com/weiawesome/snapgram/pkg/middleware"
	"github.com/weiawesome/snapgram/pkg/response"
)

// Register handles user registration.
func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid register request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.auth.Register(ctx, &req)
	if err != nil {
		fail(c, err, "failed to register user")
		return
	}

	response.Created(c, result)
}

// Login handles user login by email or username.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid login request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.auth.Login(ctx, &req)
	if err != nil {
		fail(c, err, "failed to login")
		return
	}

	response.Success(c, result)
}

// Me returns the caller's profile.
func (h *Handler) Me(c *gin.Context) {
	profile, err := h.users.GetProfile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err, "failed to get profile")
		return
	}
	response.Success(c, profile)
}

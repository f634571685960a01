package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/internal/service"
	"github.com/weiawesome/snapgram/pkg/log"
	"github.com/weiawesome/snapgram/pkg/middleware"
	"github.com/weiawesome/snapgram/pkg/response"
)

var (
	errInvalidLimit = errors.New("limit must be a positive integer")
	errInvalidAll   = errors.New("all must be true or false")
)

// Services groups the business services the handler calls.
type Services struct {
	Auth     service.AuthService
	Users    service.UserService
	Posts    service.PostService
	Comments service.CommentService
	Media    service.MediaService
}

// Handler handles HTTP requests.
type Handler struct {
	auth           service.AuthService
	users          service.UserService
	posts          service.PostService
	comments       service.CommentService
	media          service.MediaService
	authMiddleware *middleware.AuthMiddleware
	maxUploadBytes int64
}

// NewHandler creates a new HTTP handler.
func NewHandler(svc Services, authMiddleware *middleware.AuthMiddleware, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{
		auth:           svc.Auth,
		users:          svc.Users,
		posts:          svc.Posts,
		comments:       svc.Comments,
		media:          svc.Media,
		authMiddleware: authMiddleware,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	requireAuth := h.authMiddleware.RequireAuth()

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.GET("/me", requireAuth, h.Me)
	}

	posts := r.Group("/post")
	posts.Use(requireAuth)
	{
		posts.GET("", h.ListPosts)
		posts.POST("", h.CreatePost)
		posts.GET("/search", h.SearchPosts)
		posts.GET("/:id", h.GetPost)
		posts.PUT("/:id", h.UpdatePost)
		posts.DELETE("/:id", h.DeletePost)
	}

	comments := r.Group("/comment")
	comments.Use(requireAuth)
	{
		comments.GET("", h.ListComments)
		comments.POST("", h.CreateComment)
		comments.PUT("/:id", h.UpdateComment)
		comments.DELETE("/:id", h.DeleteComment)
	}

	users := r.Group("/user")
	users.Use(requireAuth)
	{
		users.GET("", h.ListUsers)
		users.PUT("", h.UpdateUser)
		users.GET("/:id", h.GetUser)
		users.GET("/:id/posts", h.ListUserPosts)

		users.POST("/like/post", h.togglePost(service.PostLike))
		users.POST("/unlike/post", h.togglePost(service.PostUnlike))
		users.POST("/save/post", h.togglePost(service.PostSave))
		users.POST("/unsave/post", h.togglePost(service.PostUnsave))
		users.POST("/share/post", h.togglePost(service.PostShare))
		users.POST("/like/comment", h.LikeComment)
		users.POST("/unlike/comment", h.UnlikeComment)
	}

	media := r.Group("/media")
	media.Use(requireAuth)
	{
		media.POST("/upload", h.UploadMedia)
		media.POST("/presign", h.PresignMedia)
	}
}

// parsePage reads cursor, limit and all from the query string. A missing
// limit is left at zero for the service default.
func parsePage(c *gin.Context) (domain.PageRequest, error) {
	var q domain.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return domain.PageRequest{}, err
	}
	return toPageRequest(q)
}

func toPageRequest(q domain.PageQuery) (domain.PageRequest, error) {
	page := domain.PageRequest{Cursor: q.Cursor}

	if q.Limit != "" {
		limit, err := strconv.Atoi(q.Limit)
		if err != nil || limit < 1 {
			return page, errInvalidLimit
		}
		page.Limit = limit
	}

	if q.All != "" {
		all, err := strconv.ParseBool(q.All)
		if err != nil {
			return page, errInvalidAll
		}
		page.All = all
	}
	return page, nil
}

// fail maps a service error to its HTTP response. Unclassified errors are
// logged and answered with a generic message.
func fail(c *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrCommentNotFound),
		errors.Is(err, service.ErrParentNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrReplyDepth),
		errors.Is(err, service.ErrInvalidCursor),
		errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, service.ErrMissingLogin),
		errors.Is(err, service.ErrUnsupportedMedia),
		errors.Is(err, service.ErrPresignUnsupported):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, err.Error())
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg(internalMsg)
		response.InternalError(c, internalMsg)
	}
}

package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/pkg/middleware"
	"github.com/weiawesome/snapgram/pkg/response"
)

var uploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// UploadMedia stores the multipart field "file" after sniffing its type.
func (h *Handler) UploadMedia(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RequestTooLarge(c, "file exceeds upload limit")
			return
		}
		response.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "failed to read file")
		return
	}
	head = head[:n]
	if !uploadTypes[http.DetectContentType(head)] {
		response.BadRequest(c, "unsupported media type")
		return
	}

	result, err := h.media.Upload(c.Request.Context(), middleware.GetUserID(c), io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		fail(c, err, "failed to upload media")
		return
	}
	response.Created(c, result)
}

// PresignMedia returns a direct upload URL when the object store supports it.
func (h *Handler) PresignMedia(c *gin.Context) {
	var req domain.PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.media.Presign(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err, "failed to presign upload")
		return
	}
	response.Success(c, result)
}

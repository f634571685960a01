package domain

// UploadResult describes a stored and resized image.
type UploadResult struct {
	Key          string `json:"key"`
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// PresignRequest asks for a direct upload URL.
type PresignRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// PresignResponse carries a presigned PUT URL and where the object will be served.
type PresignResponse struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
	MediaURL  string `json:"media_url"`
	ExpiresIn int64  `json:"expires_in"`
}

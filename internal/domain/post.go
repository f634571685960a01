package domain

import "time"

// Post is a photo with a caption.
type Post struct {
	ID        string        `json:"id"`
	Caption   string        `json:"caption"`
	MediaURL  string        `json:"media_url"`
	OwnerID   string        `json:"ownerId"`
	Timestamp time.Time     `json:"timestamp"`
	Owner     *UserPreview  `json:"owner,omitempty"`
	LikedBy   []UserPreview `json:"liked_by"`
	SavedBy   []UserPreview `json:"saved_by"`
	SharedBy  []UserPreview `json:"shared_by"`
	Comments  []Comment     `json:"comments,omitempty"`
	Count     *PostCount    `json:"_count,omitempty"`
}

// PostCount carries aggregate counts for feed entries.
type PostCount struct {
	Comments int64 `json:"comments"`
	LikedBy  int64 `json:"liked_by"`
}

// CreatePostRequest represents post creation request.
type CreatePostRequest struct {
	Caption  string `json:"caption" binding:"max=2200"`
	MediaURL string `json:"media_url" binding:"required,max=1024"`
}

// UpdatePostRequest represents a partial post update.
type UpdatePostRequest struct {
	Caption  *string `json:"caption" binding:"omitempty,max=2200"`
	MediaURL *string `json:"media_url" binding:"omitempty,min=1,max=1024"`
}

// PostPage is one page of a cursor-paginated post listing. NextCursor is
// nil when there is nothing further to fetch.
type PostPage struct {
	Posts      []Post  `json:"posts"`
	NextCursor *string `json:"nextCursor"`
}

// Membership is the result of a like, save or share toggle.
type Membership struct {
	ID       string        `json:"id"`
	Relation string        `json:"relation"`
	Members  []UserPreview `json:"members"`
}

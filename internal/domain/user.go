package domain

import (
	"strings"
	"time"
)

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Bio          string    `json:"bio"`
	PhoneNumber  string    `json:"phone_number"`
	DpURL        string    `json:"dp_url"`
	Gender       string    `json:"gender"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPreview is the public subset of a user embedded in posts and comments.
type UserPreview struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	DpURL    string `json:"dp_url"`
}

// UserProfile is a user with their posts and interactions.
type UserProfile struct {
	User
	Posts         []Post    `json:"posts"`
	LikedPosts    []Post    `json:"liked_posts"`
	SavedPosts    []Post    `json:"saved_posts"`
	LikedComments []Comment `json:"liked_comments"`
}

// RegisterRequest represents registration request.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginRequest represents login request. Login holds an email or a
// username; the email and username fields are accepted as aliases.
type LoginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

// Identifier returns the first non-empty login handle.
func (r *LoginRequest) Identifier() string {
	for _, s := range []string{r.Login, r.Email, r.Username} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// AuthResponse represents the response of register and login.
type AuthResponse struct {
	Message   string `json:"message"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// UpdateUserRequest represents a profile update. ID must be the caller.
type UpdateUserRequest struct {
	ID   string           `json:"id" binding:"required"`
	Data UserUpdateFields `json:"data"`
}

// UserUpdateFields holds the optional profile fields; nil leaves a field unchanged.
type UserUpdateFields struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Username    *string `json:"username" binding:"omitempty,min=1,max=50"`
	Email       *string `json:"email" binding:"omitempty,email,max=255"`
	Bio         *string `json:"bio"`
	DpURL       *string `json:"dp_url" binding:"omitempty,max=1024"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=32"`
	Gender      *string `json:"gender" binding:"omitempty,max=32"`
}

// Empty reports whether no field is set.
func (f *UserUpdateFields) Empty() bool {
	return f.Name == nil && f.Username == nil && f.Email == nil && f.Bio == nil &&
		f.DpURL == nil && f.PhoneNumber == nil && f.Gender == nil
}

// RelationRequest toggles a like, save or share. UserID defaults to the caller.
type RelationRequest struct {
	ID     string `json:"id" binding:"required"`
	UserID string `json:"userId"`
}

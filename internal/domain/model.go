package domain

import "time"

// UserModel is the GORM model for users table.
type UserModel struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	Name         string    `gorm:"type:varchar(100)"`
	Bio          string    `gorm:"type:text"`
	PhoneNumber  string    `gorm:"column:phone_number;type:varchar(32)"`
	DpURL        string    `gorm:"column:dp_url;type:varchar(1024)"`
	Gender       string    `gorm:"type:varchar(32)"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

// PostModel is the GORM model for posts table. Feed queries walk the
// (timestamp, id) index backwards.
type PostModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey;index:idx_posts_feed,priority:2"`
	OwnerID   string    `gorm:"type:varchar(36);not null;index"`
	Caption   string    `gorm:"type:text"`
	MediaURL  string    `gorm:"column:media_url;type:varchar(1024)"`
	Timestamp time.Time `gorm:"column:created_at;not null;index:idx_posts_feed,priority:1"`

	Owner    UserModel   `gorm:"foreignKey:OwnerID"`
	LikedBy  []UserModel `gorm:"many2many:post_likes;joinForeignKey:PostID;joinReferences:UserID"`
	SavedBy  []UserModel `gorm:"many2many:post_saves;joinForeignKey:PostID;joinReferences:UserID"`
	SharedBy []UserModel `gorm:"many2many:post_shares;joinForeignKey:PostID;joinReferences:UserID"`
}

func (PostModel) TableName() string {
	return "posts"
}

// CommentModel is the GORM model for comments table. ParentCommentID is
// nil for top-level comments.
type CommentModel struct {
	ID              string    `gorm:"type:varchar(36);primaryKey"`
	PostID          string    `gorm:"type:varchar(36);not null;index:idx_comments_post_parent,priority:1"`
	AuthorID        string    `gorm:"type:varchar(36);not null;index"`
	ParentCommentID *string   `gorm:"type:varchar(36);index:idx_comments_post_parent,priority:2;index:idx_comments_parent"`
	Body            string    `gorm:"type:text;not null"`
	Timestamp       time.Time `gorm:"column:created_at;not null"`

	Author  UserModel   `gorm:"foreignKey:AuthorID"`
	LikedBy []UserModel `gorm:"many2many:comment_likes;joinForeignKey:CommentID;joinReferences:UserID"`
}

func (CommentModel) TableName() string {
	return "comments"
}

// Relation rows. The composite primary key makes a repeated connect a no-op.

type PostLikeModel struct {
	PostID    string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (PostLikeModel) TableName() string { return "post_likes" }

type PostSaveModel struct {
	PostID    string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (PostSaveModel) TableName() string { return "post_saves" }

type PostShareModel struct {
	PostID    string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (PostShareModel) TableName() string { return "post_shares" }

type CommentLikeModel struct {
	CommentID string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (CommentLikeModel) TableName() string { return "comment_likes" }

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Name:         m.Name,
		Bio:          m.Bio,
		PhoneNumber:  m.PhoneNumber,
		DpURL:        m.DpURL,
		Gender:       m.Gender,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ToPreview converts UserModel to the public UserPreview.
func (m *UserModel) ToPreview() UserPreview {
	return UserPreview{
		ID:       m.ID,
		Username: m.Username,
		Name:     m.Name,
		DpURL:    m.DpURL,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Bio:          u.Bio,
		PhoneNumber:  u.PhoneNumber,
		DpURL:        u.DpURL,
		Gender:       u.Gender,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func previews(models []UserModel) []UserPreview {
	out := make([]UserPreview, 0, len(models))
	for i := range models {
		out = append(out, models[i].ToPreview())
	}
	return out
}

// ToDomain converts PostModel to domain Post. Associations that were not
// preloaded come out as empty lists.
func (m *PostModel) ToDomain() *Post {
	p := &Post{
		ID:        m.ID,
		Caption:   m.Caption,
		MediaURL:  m.MediaURL,
		OwnerID:   m.OwnerID,
		Timestamp: m.Timestamp,
		LikedBy:   previews(m.LikedBy),
		SavedBy:   previews(m.SavedBy),
		SharedBy:  previews(m.SharedBy),
	}
	if m.Owner.ID != "" {
		owner := m.Owner.ToPreview()
		p.Owner = &owner
	}
	return p
}

// PostToModel converts domain Post to PostModel without associations.
func PostToModel(p *Post) *PostModel {
	return &PostModel{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Caption:   p.Caption,
		MediaURL:  p.MediaURL,
		Timestamp: p.Timestamp,
	}
}

// ToDomain converts CommentModel to domain Comment.
func (m *CommentModel) ToDomain() *Comment {
	c := &Comment{
		ID:              m.ID,
		Body:            m.Body,
		PostID:          m.PostID,
		AuthorID:        m.AuthorID,
		ParentCommentID: m.ParentCommentID,
		Timestamp:       m.Timestamp,
		LikedBy:         previews(m.LikedBy),
	}
	if m.Author.ID != "" {
		author := m.Author.ToPreview()
		c.Author = &author
	}
	return c
}

// CommentToModel converts domain Comment to CommentModel without associations.
func CommentToModel(c *Comment) *CommentModel {
	return &CommentModel{
		ID:              c.ID,
		PostID:          c.PostID,
		AuthorID:        c.AuthorID,
		ParentCommentID: c.ParentCommentID,
		Body:            c.Body,
		Timestamp:       c.Timestamp,
	}
}

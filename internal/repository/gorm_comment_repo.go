package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/pkg/idgen"
)

const commentsTable = "comments"

// GormCommentRepository implements CommentRepository using GORM.
type GormCommentRepository struct {
	db    *gorm.DB
	idGen idgen.Generator
	now   func() time.Time
}

// NewGormCommentRepository creates a new GORM-based comment repository.
func NewGormCommentRepository(db *gorm.DB, idGen idgen.Generator) *GormCommentRepository {
	return &GormCommentRepository{db: db, idGen: idGen, now: time.Now}
}

func (r *GormCommentRepository) withAuthor(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Author").Preload("LikedBy")
}

func toComments(models []domain.CommentModel) []domain.Comment {
	out := make([]domain.Comment, 0, len(models))
	for i := range models {
		out = append(out, *models[i].ToDomain())
	}
	return out
}

// Create creates a new comment. A zero Timestamp is set to now.
func (r *GormCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	id, err := r.idGen.Generate()
	if err != nil {
		return err
	}
	comment.ID = id
	if comment.Timestamp.IsZero() {
		comment.Timestamp = r.now().UTC().Truncate(time.Microsecond)
	}

	return r.db.WithContext(ctx).Omit(clause.Associations).Create(domain.CommentToModel(comment)).Error
}

// GetByID retrieves a comment with its author.
func (r *GormCommentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	var model domain.CommentModel
	if err := r.withAuthor(ctx).Take(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListTopLevel returns a post's comments without parent, newest first, with
// reply and like counts.
func (r *GormCommentRepository) ListTopLevel(ctx context.Context, postID string) ([]domain.Comment, error) {
	var models []domain.CommentModel
	q := r.withAuthor(ctx).Where("post_id = ? AND parent_comment_id IS NULL", postID)
	if err := newestFirst(q, commentsTable).Find(&models).Error; err != nil {
		return nil, err
	}

	comments := toComments(models)
	if len(comments) == 0 {
		return comments, nil
	}

	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}

	var rows []struct {
		RefID string
		Total int64
	}
	err := r.db.WithContext(ctx).Model(&domain.CommentModel{}).
		Select("parent_comment_id AS ref_id, COUNT(*) AS total").
		Where("parent_comment_id IN ?", ids).
		Group("parent_comment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count replies: %w", err)
	}

	replies := make(map[string]int64, len(rows))
	for _, row := range rows {
		replies[row.RefID] = row.Total
	}
	for i := range comments {
		comments[i].Count = &domain.CommentCount{
			Replies: replies[comments[i].ID],
			LikedBy: int64(len(comments[i].LikedBy)),
		}
	}
	return comments, nil
}

// ListReplies returns the replies of a comment, oldest first.
func (r *GormCommentRepository) ListReplies(ctx context.Context, parentID string) ([]domain.Comment, error) {
	var models []domain.CommentModel
	err := r.withAuthor(ctx).
		Where("parent_comment_id = ?", parentID).
		Order("comments.created_at ASC").Order("comments.id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	comments := toComments(models)
	for i := range comments {
		comments[i].Count = &domain.CommentCount{LikedBy: int64(len(comments[i].LikedBy))}
	}
	return comments, nil
}

// ListByPost returns every comment of a post, both levels, in no particular order.
func (r *GormCommentRepository) ListByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	var models []domain.CommentModel
	if err := r.withAuthor(ctx).Where("post_id = ?", postID).Find(&models).Error; err != nil {
		return nil, err
	}
	return toComments(models), nil
}

// ListLikedBy returns up to limit comments a user liked, newest first, each
// with its post. A limit of zero or less means no cap.
func (r *GormCommentRepository) ListLikedBy(ctx context.Context, userID string, limit int) ([]domain.Comment, error) {
	sub := r.db.Table(domain.CommentLikeModel{}.TableName()).Select("comment_id").Where("user_id = ?", userID)

	var models []domain.CommentModel
	q := newestFirst(r.db.WithContext(ctx).Preload("Author").Where("id IN (?)", sub), commentsTable)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	comments := toComments(models)
	if len(comments) == 0 {
		return comments, nil
	}

	postIDs := make([]string, 0, len(comments))
	for _, c := range comments {
		postIDs = append(postIDs, c.PostID)
	}

	var posts []domain.PostModel
	if err := r.db.WithContext(ctx).Preload("Owner").Where("id IN ?", postIDs).Find(&posts).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Post, len(posts))
	for i := range posts {
		byID[posts[i].ID] = posts[i].ToDomain()
	}
	for i := range comments {
		comments[i].Post = byID[comments[i].PostID]
	}
	return comments, nil
}

// UpdateOwned changes the body of a comment written by authorID.
func (r *GormCommentRepository) UpdateOwned(ctx context.Context, id, authorID, body string) (*domain.Comment, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model domain.CommentModel
		if err := tx.Take(&model, "id = ? AND author_id = ?", id, authorID).Error; err != nil {
			return err
		}
		return tx.Model(&model).Omit(clause.Associations).Update("body", body).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// DeleteOwned deletes a comment written by authorID. Deleting a top-level
// comment also deletes its replies; likes go with them.
func (r *GormCommentRepository) DeleteOwned(ctx context.Context, id, authorID string) (*domain.Comment, error) {
	var model domain.CommentModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Author").Take(&model, "id = ? AND author_id = ?", id, authorID).Error; err != nil {
			return err
		}

		ids := []string{id}
		if model.ParentCommentID == nil {
			var replyIDs []string
			if err := tx.Model(&domain.CommentModel{}).Where("parent_comment_id = ?", id).Pluck("id", &replyIDs).Error; err != nil {
				return err
			}
			ids = append(ids, replyIDs...)
		}

		if err := tx.Where("comment_id IN ?", ids).Delete(&domain.CommentLikeModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&domain.CommentModel{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Like connects a user to a comment. Liking twice is a no-op.
func (r *GormCommentRepository) Like(ctx context.Context, commentID, userID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.CommentLikeModel{CommentID: commentID, UserID: userID}).Error
}

// Unlike disconnects a user from a comment.
func (r *GormCommentRepository) Unlike(ctx context.Context, commentID, userID string) error {
	return r.db.WithContext(ctx).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Delete(&domain.CommentLikeModel{CommentID: commentID, UserID: userID}).Error
}

// Likers returns the users who liked a comment, earliest first.
func (r *GormCommentRepository) Likers(ctx context.Context, commentID string) ([]domain.UserPreview, error) {
	var models []domain.UserModel
	err := r.db.WithContext(ctx).
		Joins("JOIN comment_likes ON comment_likes.user_id = users.id").
		Where("comment_likes.comment_id = ?", commentID).
		Order("comment_likes.created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.UserPreview, 0, len(models))
	for i := range models {
		out = append(out, models[i].ToPreview())
	}
	return out, nil
}

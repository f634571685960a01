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

const postsTable = "posts"

// GormPostRepository implements PostRepository using GORM.
type GormPostRepository struct {
	db    *gorm.DB
	idGen idgen.Generator
	now   func() time.Time
}

// NewGormPostRepository creates a new GORM-based post repository.
func NewGormPostRepository(db *gorm.DB, idGen idgen.Generator) *GormPostRepository {
	return &GormPostRepository{db: db, idGen: idGen, now: time.Now}
}

// relationTable maps a relation to its join table.
func relationTable(rel Relation) (string, error) {
	switch rel {
	case RelationLike:
		return domain.PostLikeModel{}.TableName(), nil
	case RelationSave:
		return domain.PostSaveModel{}.TableName(), nil
	case RelationShare:
		return domain.PostShareModel{}.TableName(), nil
	default:
		return "", fmt.Errorf("unknown relation %q", rel)
	}
}

func relationRow(rel Relation, postID, userID string) (interface{}, error) {
	switch rel {
	case RelationLike:
		return &domain.PostLikeModel{PostID: postID, UserID: userID}, nil
	case RelationSave:
		return &domain.PostSaveModel{PostID: postID, UserID: userID}, nil
	case RelationShare:
		return &domain.PostShareModel{PostID: postID, UserID: userID}, nil
	default:
		return nil, fmt.Errorf("unknown relation %q", rel)
	}
}

// withRelations preloads the owner and every membership list.
func withRelations(q *gorm.DB) *gorm.DB {
	return q.Preload("Owner").Preload("LikedBy").Preload("SavedBy").Preload("SharedBy")
}

// Create creates a new post. A zero Timestamp is set to now.
func (r *GormPostRepository) Create(ctx context.Context, post *domain.Post) error {
	id, err := r.idGen.Generate()
	if err != nil {
		return err
	}
	post.ID = id
	if post.Timestamp.IsZero() {
		post.Timestamp = r.now().UTC().Truncate(time.Microsecond)
	}

	model := domain.PostToModel(post)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
		return err
	}
	return nil
}

// GetByID retrieves a post with its owner and memberships.
func (r *GormPostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	var model domain.PostModel
	err := withRelations(r.db.WithContext(ctx)).Take(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetByIDs retrieves posts in the order of ids, skipping ids that no longer exist.
func (r *GormPostRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Post, error) {
	if len(ids) == 0 {
		return []domain.Post{}, nil
	}

	var models []domain.PostModel
	if err := withRelations(r.db.WithContext(ctx)).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.PostModel, len(models))
	for i := range models {
		byID[models[i].ID] = &models[i]
	}

	posts := make([]domain.Post, 0, len(models))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			posts = append(posts, *m.ToDomain())
		}
	}
	return posts, r.attachCounts(ctx, posts)
}

// Exists reports whether a post with the given ID exists.
func (r *GormPostRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.PostModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check post: %w", err)
	}
	return count > 0, nil
}

// List returns one page of the global feed.
func (r *GormPostRepository) List(ctx context.Context, page domain.PageRequest) ([]domain.Post, error) {
	return r.listPage(ctx, nil, page)
}

// ListByOwner returns one page of a user's posts.
func (r *GormPostRepository) ListByOwner(ctx context.Context, ownerID string, page domain.PageRequest) ([]domain.Post, error) {
	return r.listPage(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("posts.owner_id = ?", ownerID)
	}, page)
}

// Search returns one page of posts whose caption contains query, ignoring case.
func (r *GormPostRepository) Search(ctx context.Context, query string, page domain.PageRequest) ([]domain.Post, error) {
	pattern := likePattern(query)
	return r.listPage(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("LOWER(posts.caption) LIKE ? ESCAPE '!'", pattern)
	}, page)
}

func (r *GormPostRepository) listPage(ctx context.Context, scope func(*gorm.DB) *gorm.DB, page domain.PageRequest) ([]domain.Post, error) {
	q := r.db.WithContext(ctx).Model(&domain.PostModel{})
	if scope != nil {
		q = scope(q)
	}

	q, err := afterCursor(ctx, r.db, q, postsTable, page.Cursor)
	if err != nil {
		return nil, err
	}

	var models []domain.PostModel
	err = withRelations(newestFirst(q, postsTable)).Limit(page.Limit).Find(&models).Error
	if err != nil {
		return nil, err
	}

	posts := make([]domain.Post, 0, len(models))
	for i := range models {
		posts = append(posts, *models[i].ToDomain())
	}
	return posts, r.attachCounts(ctx, posts)
}

// ListByRelation returns up to limit posts a user liked, saved or shared,
// newest first. A limit of zero or less means no cap.
func (r *GormPostRepository) ListByRelation(ctx context.Context, rel Relation, userID string, limit int) ([]domain.Post, error) {
	table, err := relationTable(rel)
	if err != nil {
		return nil, err
	}

	sub := r.db.Table(table).Select("post_id").Where("user_id = ?", userID)

	var models []domain.PostModel
	q := newestFirst(r.db.WithContext(ctx).Preload("Owner").Where("id IN (?)", sub), postsTable)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	posts := make([]domain.Post, 0, len(models))
	for i := range models {
		posts = append(posts, *models[i].ToDomain())
	}
	return posts, nil
}

// attachCounts fills Count for every post with one grouped query.
func (r *GormPostRepository) attachCounts(ctx context.Context, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	var rows []struct {
		RefID string
		Total int64
	}
	err := r.db.WithContext(ctx).Model(&domain.CommentModel{}).
		Select("post_id AS ref_id, COUNT(*) AS total").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to count comments: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.RefID] = row.Total
	}
	for i := range posts {
		posts[i].Count = &domain.PostCount{
			Comments: counts[posts[i].ID],
			LikedBy:  int64(len(posts[i].LikedBy)),
		}
	}
	return nil
}

// UpdateOwned applies the non-nil fields to a post owned by ownerID.
func (r *GormPostRepository) UpdateOwned(ctx context.Context, id, ownerID string, req *domain.UpdatePostRequest) (*domain.Post, error) {
	updates := map[string]interface{}{}
	if req.Caption != nil {
		updates["caption"] = *req.Caption
	}
	if req.MediaURL != nil {
		updates["media_url"] = *req.MediaURL
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model domain.PostModel
		if err := tx.Take(&model, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&model).Omit(clause.Associations).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// DeleteOwned deletes a post owned by ownerID together with its comments
// and every relation row, in one transaction.
func (r *GormPostRepository) DeleteOwned(ctx context.Context, id, ownerID string) (*domain.Post, error) {
	var model domain.PostModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Owner").Take(&model, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
			return err
		}

		comments := tx.Model(&domain.CommentModel{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("comment_id IN (?)", comments).Delete(&domain.CommentLikeModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&domain.CommentModel{}).Error; err != nil {
			return err
		}
		for _, row := range []interface{}{&domain.PostLikeModel{}, &domain.PostSaveModel{}, &domain.PostShareModel{}} {
			if err := tx.Where("post_id = ?", id).Delete(row).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&domain.PostModel{}, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	return model.ToDomain(), nil
}

// AddRelation connects a user to a post. Connecting twice is a no-op.
func (r *GormPostRepository) AddRelation(ctx context.Context, rel Relation, postID, userID string) error {
	row, err := relationRow(rel, postID, userID)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
}

// RemoveRelation disconnects a user from a post. Removing a missing pair is a no-op.
func (r *GormPostRepository) RemoveRelation(ctx context.Context, rel Relation, postID, userID string) error {
	row, err := relationRow(rel, postID, userID)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(row).Error
}

// Members returns the users in a post's relation, earliest first.
func (r *GormPostRepository) Members(ctx context.Context, rel Relation, postID string) ([]domain.UserPreview, error) {
	table, err := relationTable(rel)
	if err != nil {
		return nil, err
	}

	var models []domain.UserModel
	err = r.db.WithContext(ctx).
		Joins(fmt.Sprintf("JOIN %s ON %s.user_id = users.id", table, table)).
		Where(table+".post_id = ?", postID).
		Order(table + ".created_at ASC").
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

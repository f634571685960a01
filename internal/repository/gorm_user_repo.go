package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/pkg/database"
	"github.com/weiawesome/snapgram/pkg/idgen"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db    *gorm.DB
	idGen idgen.Generator
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB, idGen idgen.Generator) *GormUserRepository {
	return &GormUserRepository{db: db, idGen: idGen}
}

// Create creates a new user.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	id, err := r.idGen.Generate()
	if err != nil {
		return err
	}
	user.ID = id

	model := domain.UserToModel(user)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return r.handleError(ctx, err, user.ID, &user.Email, &user.Username)
	}

	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a user by ID.
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model domain.UserModel
	if err := r.db.WithContext(ctx).Take(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetByLogin retrieves a user whose email or username equals login.
func (r *GormUserRepository) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	var model domain.UserModel
	err := r.db.WithContext(ctx).
		Where("email = ? OR username = ?", login, login).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns up to limit users ordered by username.
func (r *GormUserRepository) List(ctx context.Context, limit int) ([]domain.User, error) {
	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Order("username ASC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(models))
	for i := range models {
		users = append(users, *models[i].ToDomain())
	}
	return users, nil
}

// Update applies the non-nil profile fields and returns the updated user.
func (r *GormUserRepository) Update(ctx context.Context, id string, fields *domain.UserUpdateFields) (*domain.User, error) {
	if fields == nil || fields.Empty() {
		return r.GetByID(ctx, id)
	}

	updates := map[string]interface{}{}
	set := func(column string, v *string) {
		if v != nil {
			updates[column] = *v
		}
	}
	set("name", fields.Name)
	set("username", fields.Username)
	set("email", fields.Email)
	set("bio", fields.Bio)
	set("dp_url", fields.DpURL)
	set("phone_number", fields.PhoneNumber)
	set("gender", fields.Gender)

	var model domain.UserModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&model, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Model(&model).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, r.handleError(ctx, err, id, fields.Email, fields.Username)
	}

	return r.GetByID(ctx, id)
}

// Exists reports whether a user with the given ID exists.
func (r *GormUserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.UserModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return count > 0, nil
}

// handleError converts unique violations to domain errors. The translated
// error does not name the column, so the conflicting field is looked up
// among users other than id.
func (r *GormUserRepository) handleError(ctx context.Context, err error, id string, email, username *string) error {
	if !database.IsUniqueViolation(err) {
		return err
	}

	taken := func(column string, value *string) bool {
		if value == nil {
			return false
		}
		var count int64
		r.db.WithContext(ctx).Model(&domain.UserModel{}).
			Where(column+" = ? AND id <> ?", *value, id).
			Count(&count)
		return count > 0
	}

	switch {
	case taken("email", email):
		return ErrEmailExists
	case taken("username", username):
		return ErrUsernameExists
	default:
		return err
	}
}

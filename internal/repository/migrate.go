package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/weiawesome/snapgram/internal/domain"
	"github.com/weiawesome/snapgram/pkg/database"
)

// Migrate registers the relation tables as join models and migrates the schema.
func Migrate(db *gorm.DB) error {
	joins := []struct {
		model interface{}
		field string
		join  interface{}
	}{
		{&domain.PostModel{}, "LikedBy", &domain.PostLikeModel{}},
		{&domain.PostModel{}, "SavedBy", &domain.PostSaveModel{}},
		{&domain.PostModel{}, "SharedBy", &domain.PostShareModel{}},
		{&domain.CommentModel{}, "LikedBy", &domain.CommentLikeModel{}},
	}
	for _, j := range joins {
		if err := db.SetupJoinTable(j.model, j.field, j.join); err != nil {
			return fmt.Errorf("setup join table %s: %w", j.field, err)
		}
	}

	return database.AutoMigrate(db,
		&domain.UserModel{},
		&domain.PostModel{},
		&domain.CommentModel{},
		&domain.PostLikeModel{},
		&domain.PostSaveModel{},
		&domain.PostShareModel{},
		&domain.CommentLikeModel{},
	)
}

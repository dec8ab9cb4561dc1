// internal/auth/repository.go
package auth

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"classquiz/internal/apperr"
	"classquiz/internal/models"
	"classquiz/pkg/database"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user")
		}
		log.Printf("Error finding user %s: %v", username, err)
		return nil, errors.Wrapf(err, "find user %q", username)
	}
	return &user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, errors.Wrapf(err, "find user %d", id)
	}
	return &user, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.New(apperr.KindConflict, "username already taken")
		}
		return errors.Wrap(err, "create user")
	}
	log.Printf("Created %s %s with ID: %d", user.Role, user.Username, user.ID)
	return nil
}

func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Model(user).
		Select("FullName", "Email", "Password").
		Updates(user).Error
	return errors.Wrapf(err, "update user %d", user.ID)
}

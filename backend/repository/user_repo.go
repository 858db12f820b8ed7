package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// RoleOf returns the role currently stored for userID. A deleted or unknown
// user yields ErrUserNotFound.
func (r *UserRepository) RoleOf(ctx context.Context, userID uint) (models.Role, error) {
	var user models.User
	err := r.db.WithContext(ctx).Select("id", "role").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("user role: %w", err)
	}
	return user.Role, nil
}

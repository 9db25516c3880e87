package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"brainbox/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByLogin looks a user up by username or email.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ? OR email = ?", login, login).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Taken reports whether username or email is already registered.
func (r *UserRepository) Taken(ctx context.Context, username, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return count > 0, nil
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LinkTelegram binds telegramID to userID, detaching it from any other account first.
func (r *UserRepository) LinkTelegram(ctx context.Context, userID uint, telegramID int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.User{}).Where("telegram_id = ? AND id <> ?", telegramID, userID).
		Update("telegram_id", nil).Error; err != nil {
		return fmt.Errorf("unlink telegram: %w", err)
	}
	if err := db.Model(&model.User{}).Where("id = ?", userID).
		Update("telegram_id", telegramID).Error; err != nil {
		return fmt.Errorf("link telegram: %w", err)
	}
	return nil
}

// FindByUsername is used by the offline CLI.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"brainbox/internal/model"
)

// SettingsRepository stores the per-user AppSettings row.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns nil, nil when the user never saved settings.
func (r *SettingsRepository) Get(ctx context.Context, userID uint) (*model.AppSettings, error) {
	var settings model.AppSettings
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error
	switch {
	case err == nil:
		return &settings, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find settings: %w", err)
	}
}

func (r *SettingsRepository) Upsert(ctx context.Context, settings *model.AppSettings) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"theme", "current_project_id", "updated_at"}),
	}).Create(settings).Error
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// RepointCurrentProject moves current_project_id from one project to another,
// if it currently points at from.
func (r *SettingsRepository) RepointCurrentProject(ctx context.Context, userID uint, from, to string) error {
	if err := r.db.WithContext(ctx).Model(&model.AppSettings{}).
		Where("user_id = ? AND current_project_id = ?", userID, from).
		Update("current_project_id", to).Error; err != nil {
		return fmt.Errorf("repoint current project: %w", err)
	}
	return nil
}

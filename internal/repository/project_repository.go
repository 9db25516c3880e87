package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"brainbox/internal/model"
)

// ProjectRepository manages projects. Every query is scoped by user_id.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) error {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// EnsureDefault inserts the default project unless it is already there.
func (r *ProjectRepository) EnsureDefault(ctx context.Context, userID uint, now time.Time) error {
	project := model.NewDefaultProject(userID, now)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&project).Error; err != nil {
		return fmt.Errorf("ensure default project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) ListByUser(ctx context.Context, userID uint) ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) ListDeleted(ctx context.Context, userID uint) ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, model.ProjectDeleted).
		Order("deleted_at DESC, id ASC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, userID uint, id string) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// NameTaken reports whether an active project other than excludeID already uses
// name. Names are folded in Go because SQLite's LOWER only folds ASCII.
func (r *ProjectRepository) NameTaken(ctx context.Context, userID uint, name, excludeID string) (bool, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("user_id = ? AND status = ? AND id <> ?", userID, model.ProjectActive, excludeID).
		Pluck("name", &names).Error; err != nil {
		return false, fmt.Errorf("check project name: %w", err)
	}
	for _, existing := range names {
		if strings.EqualFold(strings.TrimSpace(existing), name) {
			return true, nil
		}
	}
	return false, nil
}

// SetStatus moves a project between active and deleted. Only rows currently in
// status from are touched; the default project never is.
func (r *ProjectRepository) SetStatus(ctx context.Context, userID uint, id string, from, to model.ProjectStatus, deletedAt *time.Time, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("user_id = ? AND id = ? AND status = ? AND is_default = ?", userID, id, from, false).
		Updates(map[string]any{
			"status":     to,
			"deleted_at": deletedAt,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("update project status: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes a non-default project row.
func (r *ProjectRepository) Delete(ctx context.Context, userID uint, id string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ? AND is_default = ?", userID, id, false).
		Delete(&model.Project{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete project: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Upsert inserts project or overwrites the mutable fields of the existing row.
func (r *ProjectRepository) Upsert(ctx context.Context, project *model.Project) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "status", "is_default", "deleted_at", "updated_at"}),
	}).Create(project).Error
	if err != nil {
		return fmt.Errorf("upsert project %s: %w", project.ID, err)
	}
	return nil
}

// IDs returns every project id of the user, used to seed id sequences.
func (r *ProjectRepository) IDs(ctx context.Context, userID uint) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.Project{}).Where("user_id = ?", userID).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	return ids, nil
}

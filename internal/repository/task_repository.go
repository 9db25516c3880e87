package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"brainbox/internal/model"
)

// TaskRepository handles CRUD for tasks. Every query is scoped by user_id.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	task.SyncScheduleColumns()
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListBin returns completed and deleted tasks, most recently binned first.
func (r *TaskRepository) ListBin(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []model.TaskStatus{model.TaskCompleted, model.TaskDeleted}).
		Order("deleted_at DESC, updated_at DESC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListScheduled returns the active tasks that sit on the timeline.
func (r *TaskRepository) ListScheduled(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND is_scheduled = ?", userID, model.TaskActive, true).
		Order("start_time ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) ListByProject(ctx context.Context, userID uint, projectID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND project_id = ?", userID, projectID).
		Order("created_at ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID uint, taskID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Update applies fields to one task and returns the number of rows changed.
func (r *TaskRepository) Update(ctx context.Context, userID uint, taskID string, fields map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", userID, taskID).
		Updates(fields)
	if res.Error != nil {
		return 0, fmt.Errorf("update task %s: %w", taskID, res.Error)
	}
	return res.RowsAffected, nil
}

// SoftDeleteByProject bins every task of the project that is not already
// deleted and takes it off the timeline.
func (r *TaskRepository) SoftDeleteByProject(ctx context.Context, userID uint, projectID string, now time.Time) ([]model.Task, error) {
	var affected []model.Task
	db := r.db.WithContext(ctx)
	if err := db.Where("user_id = ? AND project_id = ? AND status <> ?", userID, projectID, model.TaskDeleted).
		Find(&affected).Error; err != nil {
		return nil, fmt.Errorf("find project tasks: %w", err)
	}
	if len(affected) == 0 {
		return nil, nil
	}

	fields := model.ScheduleColumns(nil)
	fields["status"] = model.TaskDeleted
	fields["deleted_at"] = now
	fields["deleted_reason"] = model.ReasonProjectSoftDeleted
	fields["updated_at"] = now

	if err := db.Model(&model.Task{}).
		Where("user_id = ? AND id IN ?", userID, taskIDs(affected)).
		Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("soft delete project tasks: %w", err)
	}
	return r.reload(ctx, userID, affected)
}

// RecoverByProject restores the tasks that were binned together with the project.
func (r *TaskRepository) RecoverByProject(ctx context.Context, userID uint, projectID string, now time.Time) ([]model.Task, error) {
	var affected []model.Task
	db := r.db.WithContext(ctx)
	if err := db.Where("user_id = ? AND project_id = ? AND deleted_reason = ?", userID, projectID, model.ReasonProjectSoftDeleted).
		Find(&affected).Error; err != nil {
		return nil, fmt.Errorf("find binned project tasks: %w", err)
	}
	if len(affected) == 0 {
		return nil, nil
	}

	if err := db.Model(&model.Task{}).
		Where("user_id = ? AND id IN ?", userID, taskIDs(affected)).
		Updates(map[string]any{
			"status":         model.TaskActive,
			"deleted_at":     nil,
			"deleted_reason": nil,
			"updated_at":     now,
		}).Error; err != nil {
		return nil, fmt.Errorf("recover project tasks: %w", err)
	}
	return r.reload(ctx, userID, affected)
}

func (r *TaskRepository) DeleteByProject(ctx context.Context, userID uint, projectID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND project_id = ?", userID, projectID).Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete project tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes a task for the given user.
func (r *TaskRepository) Delete(ctx context.Context, userID uint, taskID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete task: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Upsert inserts task or overwrites the mutable fields of the existing row.
func (r *TaskRepository) Upsert(ctx context.Context, task *model.Task) error {
	task.SyncScheduleColumns()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"project_id", "text", "status", "is_scheduled", "start_time", "duration",
			"schedule_description", "deleted_at", "deleted_reason", "updated_at",
		}),
	}).Create(task).Error
	if err != nil {
		return fmt.Errorf("upsert task %s: %w", task.ID, err)
	}
	return nil
}

func (r *TaskRepository) IDs(ctx context.Context, userID uint) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("user_id = ?", userID).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list task ids: %w", err)
	}
	return ids, nil
}

func (r *TaskRepository) reload(ctx context.Context, userID uint, tasks []model.Task) ([]model.Task, error) {
	var fresh []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, taskIDs(tasks)).
		Order("created_at ASC, id ASC").
		Find(&fresh).Error; err != nil {
		return nil, fmt.Errorf("reload tasks: %w", err)
	}
	return fresh, nil
}

func taskIDs(tasks []model.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"brainbox/internal/model"
	"brainbox/internal/repository"
)

// ScheduleInput places a task on the timeline.
type ScheduleInput struct {
	StartTime   int
	Duration    int
	Description string
}

// TaskResult is the canonical row after an update. UpToDate is set when the
// write changed nothing and the row was only re-read.
type TaskResult struct {
	Task     model.Task
	UpToDate bool
}

// TaskService wraps task lifecycle and scheduling rules.
type TaskService struct {
	store *repository.Store
	now   Clock
}

func NewTaskService(store *repository.Store, now Clock) *TaskService {
	if now == nil {
		now = systemClock
	}
	return &TaskService{store: store, now: now}
}

// Create adds an active, unscheduled task to an active project of the actor.
func (s *TaskService) Create(ctx context.Context, actor Actor, projectID, text string) (*model.Task, error) {
	text = strings.TrimSpace(text)
	projectID = strings.TrimSpace(projectID)
	if text == "" || projectID == "" {
		return nil, validationErr("Task text and project ID are required.")
	}

	var task model.Task
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := activeProject(ctx, tx, actor, projectID); err != nil {
			return err
		}

		n, err := tx.Sequences.Next(ctx, actor.UserID, model.EntityTask, func() ([]string, error) {
			return tx.Tasks.IDs(ctx, actor.UserID)
		})
		if err != nil {
			return err
		}

		now := s.now()
		task = model.Task{
			UserID:    actor.UserID,
			ID:        model.FormatID(model.EntityTask, n),
			ProjectID: projectID,
			Text:      text,
			Status:    model.TaskActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Tasks.Create(ctx, &task)
	})
	if err != nil {
		return nil, passthrough(err, "Failed to add task.")
	}

	log.Info().Uint("user", actor.UserID).Str("task", task.ID).Str("project", projectID).Msg("task created")
	return &task, nil
}

// Complete marks a task done and moves it to the bin. Completing an already
// completed task is a plain re-write.
func (s *TaskService) Complete(ctx context.Context, actor Actor, taskID string) (*TaskResult, error) {
	task, err := s.find(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == model.TaskDeleted {
		return nil, conflictErr("Deleted tasks cannot be completed; recover the task first.")
	}

	now := s.now()
	fields := model.ScheduleColumns(nil)
	fields["status"] = model.TaskCompleted
	fields["deleted_at"] = now
	fields["deleted_reason"] = model.ReasonTaskCompleted
	return s.update(ctx, actor, taskID, fields, "completed")
}

// SoftDelete moves a task to the bin. reason defaults to individual_deletion.
func (s *TaskService) SoftDelete(ctx context.Context, actor Actor, taskID string, reason model.DeletedReason) (*TaskResult, error) {
	if reason == "" {
		reason = model.ReasonIndividualDeletion
	}
	if !reason.Valid() {
		return nil, validationErr("Unknown deletion reason %q.", reason)
	}
	if _, err := s.find(ctx, actor, taskID); err != nil {
		return nil, err
	}

	now := s.now()
	fields := model.ScheduleColumns(nil)
	fields["status"] = model.TaskDeleted
	fields["deleted_at"] = now
	fields["deleted_reason"] = reason
	return s.update(ctx, actor, taskID, fields, "moved to bin")
}

// Recover brings a completed or deleted task back to active. The parent project
// must exist and be active.
func (s *TaskService) Recover(ctx context.Context, actor Actor, taskID string) (*TaskResult, error) {
	task, err := s.find(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	project, err := s.store.Projects.FindByID(ctx, actor.UserID, task.ProjectID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, conflictErr("Cannot recover: parent project no longer exists.")
	case err != nil:
		return nil, storageErr("Database error.", err)
	case !project.Active():
		return nil, conflictErr("Cannot recover: parent project is deleted or not active.")
	}
	if task.Active() {
		return &TaskResult{Task: *task, UpToDate: true}, nil
	}

	return s.update(ctx, actor, taskID, map[string]any{
		"status":         model.TaskActive,
		"deleted_at":     nil,
		"deleted_reason": nil,
	}, "recovered")
}

// PermanentlyDelete removes a task for good.
func (s *TaskService) PermanentlyDelete(ctx context.Context, actor Actor, taskID string) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return validationErr("Task ID is required.")
	}
	n, err := s.store.Tasks.Delete(ctx, actor.UserID, taskID)
	if err != nil {
		return storageErr("Failed to delete task.", err)
	}
	if n == 0 {
		return notFoundErr("Task not found.")
	}
	log.Info().Uint("user", actor.UserID).Str("task", taskID).Msg("task permanently deleted")
	return nil
}

// Schedule puts an active task on the timeline. Invalid input leaves the task
// untouched.
func (s *TaskService) Schedule(ctx context.Context, actor Actor, taskID string, in ScheduleInput) (*TaskResult, error) {
	schedule := model.Schedule{Start: in.StartTime, Duration: in.Duration}
	if err := schedule.Validate(); err != nil {
		return nil, validationErr("Invalid schedule: %s.", err)
	}
	task, err := s.find(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Active() {
		return nil, conflictErr("Only active tasks can be scheduled; recover the task first.")
	}

	fields := model.ScheduleColumns(&schedule)
	fields["schedule_description"] = strings.TrimSpace(in.Description)
	return s.update(ctx, actor, taskID, fields, "scheduled")
}

// Unschedule takes a task off the timeline. The schedule description is kept.
func (s *TaskService) Unschedule(ctx context.Context, actor Actor, taskID string) (*TaskResult, error) {
	return s.update(ctx, actor, taskID, model.ScheduleColumns(nil), "unscheduled")
}

func (s *TaskService) find(ctx context.Context, actor Actor, taskID string) (*model.Task, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, validationErr("Task ID is required.")
	}
	task, err := s.store.Tasks.FindByID(ctx, actor.UserID, taskID)
	if err != nil {
		return nil, lookupErr(err, "Task not found.")
	}
	return task, nil
}

// update writes fields to one owned task and re-reads it. Zero affected rows
// mean either "not found" or, when the row is still there, "already up to date".
func (s *TaskService) update(ctx context.Context, actor Actor, taskID string, fields map[string]any, verb string) (*TaskResult, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, validationErr("Task ID is required.")
	}
	fields["updated_at"] = s.now()

	n, err := s.store.Tasks.Update(ctx, actor.UserID, taskID, fields)
	if err != nil {
		return nil, storageErr("Failed to update task.", err)
	}
	task, err := s.store.Tasks.FindByID(ctx, actor.UserID, taskID)
	if err != nil {
		return nil, lookupErr(err, "Task not found.")
	}

	if n > 0 {
		log.Info().Uint("user", actor.UserID).Str("task", taskID).Msgf("task %s", verb)
	}
	return &TaskResult{Task: *task, UpToDate: n == 0}, nil
}

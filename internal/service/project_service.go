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

// ProjectChange is a project together with the tasks a lifecycle step touched.
type ProjectChange struct {
	Project model.Project
	Tasks   []model.Task
}

// ProjectService implements the project lifecycle: create, soft delete,
// recover and permanent delete.
type ProjectService struct {
	store *repository.Store
	now   Clock
}

func NewProjectService(store *repository.Store, now Clock) *ProjectService {
	if now == nil {
		now = systemClock
	}
	return &ProjectService{store: store, now: now}
}

// Create adds a project named name with the next proj_<n> id.
func (s *ProjectService) Create(ctx context.Context, actor Actor, name string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErr("Project name cannot be empty.")
	}

	var project model.Project
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		taken, err := tx.Projects.NameTaken(ctx, actor.UserID, name, "")
		if err != nil {
			return err
		}
		if taken {
			return conflictErr("A project named %q already exists.", name)
		}

		n, err := tx.Sequences.Next(ctx, actor.UserID, model.EntityProject, func() ([]string, error) {
			return tx.Projects.IDs(ctx, actor.UserID)
		})
		if err != nil {
			return err
		}

		now := s.now()
		project = model.Project{
			UserID:    actor.UserID,
			ID:        model.FormatID(model.EntityProject, n),
			Name:      name,
			Status:    model.ProjectActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Projects.Create(ctx, &project)
	})
	if err != nil {
		return nil, passthrough(err, "Failed to add project.")
	}

	log.Info().Uint("user", actor.UserID).Str("project", project.ID).Msg("project created")
	return &project, nil
}

// SoftDelete moves a project and all of its live tasks to the recycle bin.
// Tasks are unscheduled and marked project_soft_deleted so that Recover can
// bring exactly them back.
func (s *ProjectService) SoftDelete(ctx context.Context, actor Actor, projectID string) (*ProjectChange, error) {
	if err := guardDefault(projectID); err != nil {
		return nil, err
	}

	var change ProjectChange
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		project, err := tx.Projects.FindByID(ctx, actor.UserID, projectID)
		if err != nil {
			return lookupErr(err, "Project not found.")
		}
		if project.IsDefault {
			return forbiddenErr("The default project cannot be deleted.")
		}
		if !project.Active() {
			return conflictErr("Project is already in the recycle bin.")
		}

		now := s.now()
		if _, err := tx.Projects.SetStatus(ctx, actor.UserID, projectID, model.ProjectActive, model.ProjectDeleted, &now, now); err != nil {
			return err
		}
		tasks, err := tx.Tasks.SoftDeleteByProject(ctx, actor.UserID, projectID, now)
		if err != nil {
			return err
		}
		if err := tx.Settings.RepointCurrentProject(ctx, actor.UserID, projectID, model.DefaultProjectID); err != nil {
			return err
		}

		project, err = tx.Projects.FindByID(ctx, actor.UserID, projectID)
		if err != nil {
			return err
		}
		change = ProjectChange{Project: *project, Tasks: tasks}
		return nil
	})
	if err != nil {
		return nil, passthrough(err, "Failed to delete project.")
	}

	log.Info().Uint("user", actor.UserID).Str("project", projectID).Int("tasks", len(change.Tasks)).Msg("project moved to bin")
	return &change, nil
}

// Recover reactivates a binned project together with the tasks that were binned
// because of it. Tasks deleted individually stay in the bin.
func (s *ProjectService) Recover(ctx context.Context, actor Actor, projectID string) (*ProjectChange, error) {
	if err := guardDefault(projectID); err != nil {
		return nil, err
	}

	var change ProjectChange
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		project, err := tx.Projects.FindByID(ctx, actor.UserID, projectID)
		if err != nil {
			return lookupErr(err, "Project not found.")
		}
		if project.Active() {
			return conflictErr("Project is not in the recycle bin.")
		}
		taken, err := tx.Projects.NameTaken(ctx, actor.UserID, project.Name, project.ID)
		if err != nil {
			return err
		}
		if taken {
			return conflictErr("Another active project is already named %q.", project.Name)
		}

		now := s.now()
		if _, err := tx.Projects.SetStatus(ctx, actor.UserID, projectID, model.ProjectDeleted, model.ProjectActive, nil, now); err != nil {
			return err
		}
		tasks, err := tx.Tasks.RecoverByProject(ctx, actor.UserID, projectID, now)
		if err != nil {
			return err
		}

		project, err = tx.Projects.FindByID(ctx, actor.UserID, projectID)
		if err != nil {
			return err
		}
		change = ProjectChange{Project: *project, Tasks: tasks}
		return nil
	})
	if err != nil {
		return nil, passthrough(err, "Failed to recover project.")
	}

	log.Info().Uint("user", actor.UserID).Str("project", projectID).Int("tasks", len(change.Tasks)).Msg("project recovered")
	return &change, nil
}

// PermanentlyDelete removes a project and every task in it. Irreversible.
func (s *ProjectService) PermanentlyDelete(ctx context.Context, actor Actor, projectID string) (int64, error) {
	if err := guardDefault(projectID); err != nil {
		return 0, err
	}

	var removedTasks int64
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		project, err := tx.Projects.FindByID(ctx, actor.UserID, projectID)
		if err != nil {
			return lookupErr(err, "Project not found.")
		}
		if project.IsDefault {
			return forbiddenErr("The default project cannot be deleted.")
		}

		removedTasks, err = tx.Tasks.DeleteByProject(ctx, actor.UserID, projectID)
		if err != nil {
			return err
		}
		n, err := tx.Projects.Delete(ctx, actor.UserID, projectID)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFoundErr("Project not found.")
		}
		return tx.Settings.RepointCurrentProject(ctx, actor.UserID, projectID, model.DefaultProjectID)
	})
	if err != nil {
		return 0, passthrough(err, "Failed to permanently delete project.")
	}

	log.Info().Uint("user", actor.UserID).Str("project", projectID).Int64("tasks", removedTasks).Msg("project permanently deleted")
	return removedTasks, nil
}

// activeProject loads a project and requires it to be active.
func activeProject(ctx context.Context, store *repository.Store, actor Actor, projectID string) (*model.Project, error) {
	project, err := store.Projects.FindByID(ctx, actor.UserID, projectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundErr("Project not found.")
	}
	if err != nil {
		return nil, storageErr("Database error.", err)
	}
	if !project.Active() {
		return nil, conflictErr("Project %q is in the recycle bin.", project.Name)
	}
	return project, nil
}

func guardDefault(projectID string) error {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return validationErr("Project ID is required.")
	}
	if projectID == model.DefaultProjectID {
		return forbiddenErr("The default project cannot be deleted or recovered.")
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"brainbox/internal/model"
	"brainbox/internal/repository"
)

// ImportPolicy decides what a bad row does to the rest of an import.
type ImportPolicy string

const (
	// ImportSkip skips bad rows and reports them.
	ImportSkip ImportPolicy = "skip"
	// ImportAbort rolls the whole import back on the first bad row.
	ImportAbort ImportPolicy = "abort"
)

// ParseImportPolicy accepts "skip" or "abort"; empty means fallback.
func ParseImportPolicy(s string, fallback ImportPolicy) (ImportPolicy, error) {
	switch p := ImportPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return fallback, nil
	case ImportSkip, ImportAbort:
		return p, nil
	default:
		return "", validationErr("Unknown import policy %q; use skip or abort.", s)
	}
}

// ImportDocument is the body of an import: the same shape as an export.
type ImportDocument struct {
	Projects    []model.Project `json:"projects"`
	Tasks       []model.Task    `json:"tasks"`
	AppSettings *SettingsInput  `json:"appSettings"`
}

type ImportCounts struct {
	Projects int  `json:"projects"`
	Tasks    int  `json:"tasks"`
	Settings bool `json:"settings"`
}

// ImportFailure is one row that did not make it in.
type ImportFailure struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type ImportReport struct {
	Policy   ImportPolicy    `json:"policy"`
	Imported ImportCounts    `json:"imported"`
	Skipped  int             `json:"skipped"`
	Failures []ImportFailure `json:"failures"`
}

// Import upserts every project, then every task, then the settings of doc by
// id. Existing rows are overwritten (last write wins). Everything runs in one
// transaction and each row in its own savepoint, so under ImportSkip a bad row
// is dropped alone while under ImportAbort it undoes the whole import.
func (s *DataService) Import(ctx context.Context, actor Actor, doc ImportDocument, policy ImportPolicy) (*ImportReport, error) {
	if policy == "" {
		policy = s.policy
	}
	report := &ImportReport{Policy: policy, Failures: []ImportFailure{}}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		now := s.now()
		if err := tx.Projects.EnsureDefault(ctx, actor.UserID, now); err != nil {
			return err
		}

		row := func(entity, id string, fn func(rtx *repository.Store) error) error {
			err := tx.Transaction(ctx, fn)
			if err == nil {
				return nil
			}
			if fatalImportErr(err) {
				return err
			}
			failure := ImportFailure{Entity: entity, ID: id, Reason: importReason(err)}
			if policy == ImportAbort {
				return validationErr("Import aborted at %s %q: %s", entity, id, failure.Reason)
			}
			logImportFailure(actor, failure)
			report.Failures = append(report.Failures, failure)
			return nil
		}

		for i := range doc.Projects {
			p := doc.Projects[i]
			failed := len(report.Failures)
			if err := row("project", p.ID, func(rtx *repository.Store) error {
				return s.importProject(ctx, rtx, actor, p)
			}); err != nil {
				return err
			}
			if len(report.Failures) == failed {
				report.Imported.Projects++
			}
		}

		for i := range doc.Tasks {
			t := doc.Tasks[i]
			failed := len(report.Failures)
			if err := row("task", t.ID, func(rtx *repository.Store) error {
				return s.importTask(ctx, rtx, actor, t)
			}); err != nil {
				return err
			}
			if len(report.Failures) == failed {
				report.Imported.Tasks++
			}
		}

		if doc.AppSettings != nil {
			failed := len(report.Failures)
			if err := row("appSettings", "", func(rtx *repository.Store) error {
				settings, err := s.settingsFromInput(ctx, rtx, actor, *doc.AppSettings)
				if err != nil {
					return err
				}
				return rtx.Settings.Upsert(ctx, settings)
			}); err != nil {
				return err
			}
			report.Imported.Settings = len(report.Failures) == failed
		}
		return nil
	})
	if err != nil {
		return nil, passthrough(err, "Import failed.")
	}

	report.Skipped = len(report.Failures)
	log.Info().Uint("user", actor.UserID).Str("policy", string(policy)).
		Int("projects", report.Imported.Projects).Int("tasks", report.Imported.Tasks).
		Int("skipped", report.Skipped).Msg("import finished")
	return report, nil
}

func (s *DataService) importProject(ctx context.Context, tx *repository.Store, actor Actor, p model.Project) error {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	n, ok := model.ParseID(model.EntityProject, p.ID)
	if !ok {
		return validationErr("invalid project id")
	}
	if p.Name == "" {
		return validationErr("project name is empty")
	}
	if p.Status == "" {
		p.Status = model.ProjectActive
	}
	if !p.Status.Valid() {
		return validationErr("unknown project status %q", p.Status)
	}

	now := s.now()
	p.UserID = actor.UserID
	p.IsDefault = p.ID == model.DefaultProjectID
	if p.IsDefault {
		p.Name = model.DefaultProjectName
		p.Status = model.ProjectActive
	}
	switch {
	case p.Active():
		p.DeletedAt = nil
	case p.DeletedAt == nil:
		p.DeletedAt = &now
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if p.Active() && !p.IsDefault {
		taken, err := tx.Projects.NameTaken(ctx, actor.UserID, p.Name, p.ID)
		if err != nil {
			return err
		}
		if taken {
			return conflictErr("another active project is already named %q", p.Name)
		}
	}

	if err := tx.Projects.Upsert(ctx, &p); err != nil {
		return err
	}
	if !p.Active() {
		// a binned project takes its live tasks with it
		if _, err := tx.Tasks.SoftDeleteByProject(ctx, actor.UserID, p.ID, now); err != nil {
			return err
		}
		if err := tx.Settings.RepointCurrentProject(ctx, actor.UserID, p.ID, model.DefaultProjectID); err != nil {
			return err
		}
	}
	return tx.Sequences.Observe(ctx, actor.UserID, model.EntityProject, n, func() ([]string, error) {
		return tx.Projects.IDs(ctx, actor.UserID)
	})
}

func (s *DataService) importTask(ctx context.Context, tx *repository.Store, actor Actor, t model.Task) error {
	t.ID = strings.TrimSpace(t.ID)
	t.ProjectID = strings.TrimSpace(t.ProjectID)
	t.Text = strings.TrimSpace(t.Text)
	n, ok := model.ParseID(model.EntityTask, t.ID)
	if !ok {
		return validationErr("invalid task id")
	}
	if t.Text == "" {
		return validationErr("task text is empty")
	}
	if t.Status == "" {
		t.Status = model.TaskActive
	}
	if !t.Status.Valid() {
		return validationErr("unknown task status %q", t.Status)
	}
	if t.DeletedReason != nil && !t.DeletedReason.Valid() {
		return validationErr("unknown deletion reason %q", *t.DeletedReason)
	}
	if t.Schedule != nil {
		if err := t.Schedule.Validate(); err != nil {
			return validationErr("invalid schedule: %s", err)
		}
	}

	project, err := tx.Projects.FindByID(ctx, actor.UserID, t.ProjectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr(fmt.Sprintf("project %q does not exist", t.ProjectID))
	}
	if err != nil {
		return err
	}
	if t.Active() && !project.Active() {
		return conflictErr("project %q is in the recycle bin", t.ProjectID)
	}

	now := s.now()
	t.UserID = actor.UserID
	if t.Active() {
		t.DeletedAt = nil
		t.DeletedReason = nil
	} else {
		// binned tasks never sit on the timeline
		t.Schedule = nil
		if t.DeletedAt == nil {
			t.DeletedAt = &now
		}
		if t.DeletedReason == nil {
			reason := model.ReasonIndividualDeletion
			if t.Status == model.TaskCompleted {
				reason = model.ReasonTaskCompleted
			}
			t.DeletedReason = &reason
		}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	if err := tx.Tasks.Upsert(ctx, &t); err != nil {
		return err
	}
	return tx.Sequences.Observe(ctx, actor.UserID, model.EntityTask, n, func() ([]string, error) {
		return tx.Tasks.IDs(ctx, actor.UserID)
	})
}

// fatalImportErr reports whether err is a storage failure rather than a bad
// row. Constraint violations still count as bad rows.
func fatalImportErr(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return false
	}
	return !errors.Is(err, gorm.ErrDuplicatedKey) && !errors.Is(err, gorm.ErrForeignKeyViolated)
}

// importReason is the text recorded for a failed row.
func importReason(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

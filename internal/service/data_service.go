package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"brainbox/internal/model"
	"brainbox/internal/repository"
	"brainbox/internal/timeline"
)

// Snapshot is everything a client needs to render, and also the export file format.
type Snapshot struct {
	Projects    []model.Project    `json:"projects"`
	Tasks       []model.Task       `json:"tasks"`
	AppSettings *model.AppSettings `json:"appSettings"`
}

// SettingsInput is a save_app_settings request. An empty CurrentProjectID
// clears the selection.
type SettingsInput struct {
	Theme            string  `json:"theme"`
	CurrentProjectID *string `json:"currentProjectId"`
}

// BinTask is a recycle-bin entry with whether it can be recovered right now.
type BinTask struct {
	model.Task
	ProjectName string `json:"projectName"`
	Recoverable bool   `json:"recoverable"`
}

// RecycleBin lists binned projects and tasks, most recent first.
type RecycleBin struct {
	Projects []model.Project `json:"projects"`
	Tasks    []BinTask       `json:"tasks"`
}

// DataService covers whole-account reads, settings, export and import.
type DataService struct {
	store  *repository.Store
	now    Clock
	policy ImportPolicy
}

func NewDataService(store *repository.Store, now Clock, policy ImportPolicy) *DataService {
	if now == nil {
		now = systemClock
	}
	if policy == "" {
		policy = ImportSkip
	}
	return &DataService{store: store, now: now, policy: policy}
}

// DefaultPolicy is the import policy used when a request does not pick one.
func (s *DataService) DefaultPolicy() ImportPolicy {
	return s.policy
}

// GetAll returns the actor's projects, tasks and settings, creating the default
// project on first use.
func (s *DataService) GetAll(ctx context.Context, actor Actor) (*Snapshot, error) {
	if err := s.store.Projects.EnsureDefault(ctx, actor.UserID, s.now()); err != nil {
		return nil, storageErr("Could not prepare the default project.", err)
	}
	return s.snapshot(ctx, s.store, actor)
}

// Export returns the same document as GetAll, for download.
func (s *DataService) Export(ctx context.Context, actor Actor) (*Snapshot, error) {
	return s.GetAll(ctx, actor)
}

func (s *DataService) snapshot(ctx context.Context, store *repository.Store, actor Actor) (*Snapshot, error) {
	projects, err := store.Projects.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, storageErr("Could not load projects.", err)
	}
	tasks, err := store.Tasks.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, storageErr("Could not load tasks.", err)
	}
	settings, err := store.Settings.Get(ctx, actor.UserID)
	if err != nil {
		return nil, storageErr("Could not load settings.", err)
	}
	if projects == nil {
		projects = []model.Project{}
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	if settings == nil {
		defaults := model.DefaultAppSettings(actor.UserID)
		settings = &defaults
	}
	return &Snapshot{Projects: projects, Tasks: tasks, AppSettings: settings}, nil
}

// SaveSettings stores theme and current project. The current project must be
// one of the actor's projects.
func (s *DataService) SaveSettings(ctx context.Context, actor Actor, in SettingsInput) (*model.AppSettings, error) {
	settings, err := s.settingsFromInput(ctx, s.store, actor, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.Settings.Upsert(ctx, settings); err != nil {
		return nil, storageErr("Failed to save settings.", err)
	}
	return settings, nil
}

func (s *DataService) settingsFromInput(ctx context.Context, store *repository.Store, actor Actor, in SettingsInput) (*model.AppSettings, error) {
	theme := strings.TrimSpace(in.Theme)
	if theme == "" {
		theme = model.DefaultTheme
	}
	if len(theme) > 32 {
		return nil, validationErr("Theme name is too long.")
	}

	var current *string
	if in.CurrentProjectID != nil {
		id := strings.TrimSpace(*in.CurrentProjectID)
		if id != "" {
			if _, err := store.Projects.FindByID(ctx, actor.UserID, id); err != nil {
				return nil, lookupErr(err, fmt.Sprintf("Current project %q not found.", id))
			}
			current = &id
		}
	}
	return &model.AppSettings{UserID: actor.UserID, Theme: theme, CurrentProjectID: current, UpdatedAt: s.now()}, nil
}

// RecycleBin lists binned projects and tasks.
func (s *DataService) RecycleBin(ctx context.Context, actor Actor) (*RecycleBin, error) {
	projects, err := s.store.Projects.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, storageErr("Could not load projects.", err)
	}
	tasks, err := s.store.Tasks.ListBin(ctx, actor.UserID)
	if err != nil {
		return nil, storageErr("Could not load tasks.", err)
	}
	deleted, err := s.store.Projects.ListDeleted(ctx, actor.UserID)
	if err != nil {
		return nil, storageErr("Could not load projects.", err)
	}

	byID := make(map[string]model.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}

	bin := &RecycleBin{Projects: deleted, Tasks: make([]BinTask, 0, len(tasks))}
	if bin.Projects == nil {
		bin.Projects = []model.Project{}
	}
	for _, t := range tasks {
		entry := BinTask{Task: t, ProjectName: "Unknown Project"}
		if p, ok := byID[t.ProjectID]; ok {
			entry.ProjectName = p.Name
			entry.Recoverable = p.Active()
		}
		bin.Tasks = append(bin.Tasks, entry)
	}
	return bin, nil
}

// Timeline projects the actor's active scheduled tasks.
func (s *DataService) Timeline(ctx context.Context, actor Actor) ([]timeline.Block, error) {
	tasks, err := s.store.Tasks.ListScheduled(ctx, actor.UserID)
	if err != nil {
		return nil, storageErr("Could not load scheduled tasks.", err)
	}
	return timeline.Build(tasks), nil
}

func logImportFailure(actor Actor, f ImportFailure) {
	log.Warn().Uint("user", actor.UserID).Str("entity", f.Entity).Str("id", f.ID).Str("reason", f.Reason).Msg("import row skipped")
}

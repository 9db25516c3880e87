package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"brainbox/internal/model"
	"brainbox/internal/repository"
	"brainbox/internal/service"
)

type fixture struct {
	store    *repository.Store
	actor    service.Actor
	projects *service.ProjectService
	tasks    *service.TaskService
	data     *service.DataService
}

// steppingClock advances one second per call so timestamps order writes.
func steppingClock() service.Clock {
	var mu sync.Mutex
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := repository.NewDB("sqlite", filepath.Join(t.TempDir(), "brainbox.db"))
	require.NoError(t, err)
	store := repository.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newUser(t *testing.T, store *repository.Store, username string) service.Actor {
	t.Helper()
	user := &model.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, store.Users.Create(context.Background(), user))
	return service.Actor{UserID: user.ID, Username: username}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newStore(t)
	clock := steppingClock()
	f := &fixture{
		store:    store,
		actor:    newUser(t, store, "alice"),
		projects: service.NewProjectService(store, clock),
		tasks:    service.NewTaskService(store, clock),
		data:     service.NewDataService(store, clock, service.ImportSkip),
	}
	_, err := f.data.GetAll(context.Background(), f.actor)
	require.NoError(t, err)
	return f
}

func (f *fixture) project(t *testing.T, name string) *model.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), f.actor, name)
	require.NoError(t, err)
	return p
}

func (f *fixture) task(t *testing.T, projectID, text string) *model.Task {
	t.Helper()
	task, err := f.tasks.Create(context.Background(), f.actor, projectID, text)
	require.NoError(t, err)
	return task
}

func (f *fixture) reload(t *testing.T, taskID string) *model.Task {
	t.Helper()
	task, err := f.store.Tasks.FindByID(context.Background(), f.actor.UserID, taskID)
	require.NoError(t, err)
	return task
}

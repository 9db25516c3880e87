package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainbox/internal/model"
	"brainbox/internal/repository"
	"brainbox/internal/service"
	"brainbox/internal/web"
)

const password = "password123"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newClient(t *testing.T) *Client {
	t.Helper()

	db, err := repository.NewDB("sqlite", filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	store := repository.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })

	auth := service.NewAuthService(store, nil, service.AuthOptions{RegistrationCode: "code"})
	ctx := context.Background()
	token, err := auth.VerifyCode(ctx, "", "code")
	require.NoError(t, err)
	_, err = auth.Register(ctx, token, service.RegisterInput{Username: "dana", Email: "dana@example.com", Password: password})
	require.NoError(t, err)

	server := web.NewServer(web.Services{
		Auth:     auth,
		Projects: service.NewProjectService(store, nil),
		Tasks:    service.NewTaskService(store, nil),
		Data:     service.NewDataService(store, nil, service.ImportSkip),
	}, web.Options{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	c, err := New(ts.URL+"/", nil)
	require.NoError(t, err)
	return c
}

func loggedIn(t *testing.T) *Client {
	t.Helper()
	c := newClient(t)
	actor, err := c.Login(context.Background(), "dana", password)
	require.NoError(t, err)
	require.Equal(t, "dana", actor.Username)
	require.NoError(t, c.Refresh(context.Background()))
	return c
}

func TestLoginRequired(t *testing.T) {
	t.Parallel()

	c := newClient(t)
	err := c.Refresh(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, service.KindUnauthorized, apiErr.Kind)

	_, err = c.Login(context.Background(), "dana", "wrong-password")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, service.KindUnauthorized, apiErr.Kind)
}

func TestMirrorFollowsServer(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	ctx := context.Background()
	c := loggedIn(t)

	state := c.State()
	require.Len(t, state.Projects, 1)
	assert.Equal(model.DefaultProjectID, state.Projects[0].ID)

	project, err := c.AddProject(ctx, "Work")
	require.NoError(t, err)
	task, err := c.AddTask(ctx, project.ID, "Write report")
	require.NoError(t, err)

	_, err = c.ScheduleTask(ctx, task.ID, 540, 30, "draft")
	require.NoError(t, err)
	blocks := c.Timeline()
	require.Len(t, blocks, 1)
	assert.Equal(task.ID, blocks[0].TaskID)

	// a rejected write leaves the mirror alone
	_, err = c.ScheduleTask(ctx, task.ID, -5, 30, "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(service.KindValidation, apiErr.Kind)
	assert.Len(c.Timeline(), 1)

	_, err = c.SaveSettings(ctx, service.SettingsInput{Theme: "dark", CurrentProjectID: &project.ID})
	require.NoError(t, err)

	require.NoError(t, c.SoftDeleteProject(ctx, project.ID))
	state = c.State()
	assert.Empty(c.Timeline())
	require.NotNil(t, state.Settings.CurrentProjectID)
	assert.Equal(model.DefaultProjectID, *state.Settings.CurrentProjectID)

	require.NoError(t, c.RecoverProject(ctx, project.ID))
	for _, tk := range c.State().Tasks {
		if tk.ID == task.ID {
			assert.Equal(model.TaskActive, tk.Status)
			assert.Nil(tk.Schedule)
		}
	}

	done, err := c.CompleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(model.TaskCompleted, done.Status)

	recovered, err := c.RecoverTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(model.TaskActive, recovered.Status)

	_, err = c.UnscheduleTask(ctx, task.ID)
	require.NoError(t, err)
	_, err = c.SoftDeleteTask(ctx, task.ID)
	require.NoError(t, err)
	require.NoError(t, c.PermanentlyDeleteTask(ctx, task.ID))
	assert.Empty(c.State().Tasks)

	require.NoError(t, c.PermanentlyDeleteProject(ctx, project.ID))
	assert.Len(c.State().Projects, 1)

	require.NoError(t, c.Logout(ctx))
	assert.Empty(c.State().Projects)
}

func TestDropTask(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	ctx := context.Background()
	c := loggedIn(t)

	task, err := c.AddTask(ctx, model.DefaultProjectID, "Stretch")
	require.NoError(t, err)

	dropped, err := c.DropTask(ctx, task.ID, 548)
	require.NoError(t, err)
	require.NotNil(t, dropped.Schedule)
	assert.Equal(555, dropped.Schedule.Start)
	assert.Equal(45, dropped.Schedule.Duration)

	_, err = c.ScheduleTask(ctx, task.ID, 600, 20, "warm up")
	require.NoError(t, err)
	moved, err := c.DropTask(ctx, task.ID, 5000)
	require.NoError(t, err)
	assert.Equal(1425, moved.Schedule.Start)
	assert.Equal(20, moved.Schedule.Duration)
	assert.Equal("warm up", moved.ScheduleDescription)

	_, err = c.DropTask(ctx, "task_99", 10)
	assert.Error(err)
}

func TestExportAndImport(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	ctx := context.Background()

	src := loggedIn(t)
	_, err := src.AddTask(ctx, model.DefaultProjectID, "Carry over")
	require.NoError(t, err)
	snap, err := src.Export(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Tasks, 1)

	dst := loggedIn(t)
	report, err := dst.Import(ctx, service.ImportDocument{
		Projects: snap.Projects,
		Tasks:    snap.Tasks,
	}, "")
	require.NoError(t, err)
	assert.Equal(service.ImportSkip, report.Policy)
	assert.Equal(1, report.Imported.Tasks)
	assert.Empty(report.Failures)

	state := dst.State()
	require.Len(t, state.Tasks, 1)
	assert.Equal("Carry over", state.Tasks[0].Text)

	anon := newClient(t)
	_, err = anon.Export(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(http.StatusUnauthorized, apiErr.Status)
}

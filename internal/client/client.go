// Package client talks to the brainbox JSON API and keeps a local mirror of
// the account. The mirror only changes after the server confirmed a write, and
// then takes the server's version of every entity it returned.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"

	"brainbox/internal/model"
	"brainbox/internal/service"
	"brainbox/internal/timeline"
)

// APIError is a {success:false} response.
type APIError struct {
	Status  int
	Kind    service.ErrorKind
	Message string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s (%s, HTTP %d)", e.Message, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// State is the client's copy of the account.
type State struct {
	Projects []model.Project
	Tasks    []model.Task
	Settings *model.AppSettings
}

type Client struct {
	base string
	http *http.Client

	mu    sync.Mutex
	state State
}

// New returns a client for the server at baseURL. A nil httpClient gets a
// default one with a cookie jar for the session.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: httpClient}, nil
}

type envelope map[string]json.RawMessage

func (e envelope) decode(key string, dst any) error {
	raw, ok := e[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (envelope, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s %s: decode response (HTTP %d): %w", method, path, resp.StatusCode, err)
	}

	var success bool
	_ = env.decode("success", &success)
	if !success || resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = env.decode("message", &apiErr.Message)
		_ = env.decode("errorKind", &apiErr.Kind)
		if apiErr.Message == "" {
			apiErr.Message = "request failed"
		}
		return nil, apiErr
	}
	return env, nil
}

func (c *Client) action(ctx context.Context, name string, payload map[string]any) (envelope, error) {
	return c.do(ctx, http.MethodPost, "/api/data/"+name, payload)
}

// Login starts a session.
func (c *Client) Login(ctx context.Context, login, password string) (service.Actor, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"username": login, "password": password})
	if err != nil {
		return service.Actor{}, err
	}
	var actor service.Actor
	err = env.decode("user", &actor)
	return actor, err
}

// Logout ends the session and forgets the local state.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil); err != nil {
		return err
	}
	c.mu.Lock()
	c.state = State{}
	c.mu.Unlock()
	return nil
}

// Refresh replaces the local state with the server's.
func (c *Client) Refresh(ctx context.Context) error {
	env, err := c.action(ctx, "get_all_data", nil)
	if err != nil {
		return err
	}
	var next State
	if err := env.decode("projects", &next.Projects); err != nil {
		return err
	}
	if err := env.decode("tasks", &next.Tasks); err != nil {
		return err
	}
	if err := env.decode("appSettings", &next.Settings); err != nil {
		return err
	}

	c.mu.Lock()
	c.state = next
	c.mu.Unlock()
	return nil
}

// State returns a copy of the local mirror.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := State{
		Projects: append([]model.Project(nil), c.state.Projects...),
		Tasks:    append([]model.Task(nil), c.state.Tasks...),
	}
	if c.state.Settings != nil {
		settings := *c.state.Settings
		out.Settings = &settings
	}
	return out
}

// Timeline projects the mirrored tasks onto the day view.
func (c *Client) Timeline() []timeline.Block {
	return timeline.Build(c.State().Tasks)
}

func (c *Client) AddProject(ctx context.Context, name string) (*model.Project, error) {
	env, err := c.action(ctx, "add_project", map[string]any{"project": map[string]string{"name": name}})
	if err != nil {
		return nil, err
	}
	var project model.Project
	if err := env.decode("project", &project); err != nil {
		return nil, err
	}
	c.putProject(project)
	return &project, nil
}

// SoftDeleteProject bins a project. The server also bins its tasks and may
// repoint the current project, so the whole state is reloaded.
func (c *Client) SoftDeleteProject(ctx context.Context, projectID string) error {
	if _, err := c.action(ctx, "soft_delete_project", map[string]any{"projectId": projectID}); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

func (c *Client) RecoverProject(ctx context.Context, projectID string) error {
	env, err := c.action(ctx, "recover_project", map[string]any{"projectId": projectID})
	if err != nil {
		return err
	}
	var project model.Project
	var tasks []model.Task
	if err := env.decode("recoveredProject", &project); err != nil {
		return err
	}
	if err := env.decode("recoveredTasks", &tasks); err != nil {
		return err
	}
	c.putProject(project)
	for _, t := range tasks {
		c.putTask(t)
	}
	return nil
}

func (c *Client) PermanentlyDeleteProject(ctx context.Context, projectID string) error {
	if _, err := c.action(ctx, "permanently_delete_project", map[string]any{"projectId": projectID}); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	projects := c.state.Projects[:0]
	for _, p := range c.state.Projects {
		if p.ID != projectID {
			projects = append(projects, p)
		}
	}
	c.state.Projects = projects
	tasks := c.state.Tasks[:0]
	for _, t := range c.state.Tasks {
		if t.ProjectID != projectID {
			tasks = append(tasks, t)
		}
	}
	c.state.Tasks = tasks
	if s := c.state.Settings; s != nil && s.CurrentProjectID != nil && *s.CurrentProjectID == projectID {
		def := model.DefaultProjectID
		s.CurrentProjectID = &def
	}
	return nil
}

func (c *Client) AddTask(ctx context.Context, projectID, text string) (*model.Task, error) {
	return c.taskAction(ctx, "add_task", map[string]any{"task": map[string]string{"projectId": projectID, "text": text}})
}

func (c *Client) CompleteTask(ctx context.Context, taskID string) (*model.Task, error) {
	return c.taskAction(ctx, "update_task_status", map[string]any{"taskId": taskID, "status": model.TaskCompleted})
}

func (c *Client) SoftDeleteTask(ctx context.Context, taskID string) (*model.Task, error) {
	return c.taskAction(ctx, "soft_delete_task", map[string]any{"taskId": taskID})
}

func (c *Client) RecoverTask(ctx context.Context, taskID string) (*model.Task, error) {
	return c.taskAction(ctx, "recover_task", map[string]any{"taskId": taskID})
}

func (c *Client) ScheduleTask(ctx context.Context, taskID string, start, duration int, description string) (*model.Task, error) {
	return c.taskAction(ctx, "update_task_schedule", map[string]any{
		"taskId":              taskID,
		"startTime":           start,
		"duration":            duration,
		"scheduleDescription": description,
	})
}

// DropTask schedules a task dropped at offset y of the timeline. The start
// snaps to the grid; a task that is already scheduled keeps its duration.
func (c *Client) DropTask(ctx context.Context, taskID string, y int) (*model.Task, error) {
	c.mu.Lock()
	var found *model.Task
	for i := range c.state.Tasks {
		if c.state.Tasks[i].ID == taskID {
			t := c.state.Tasks[i]
			found = &t
			break
		}
	}
	c.mu.Unlock()
	if found == nil {
		return nil, fmt.Errorf("task %q is not loaded", taskID)
	}

	duration := timeline.DefaultDuration
	if found.Schedule != nil {
		duration = found.Schedule.Duration
	}
	return c.ScheduleTask(ctx, taskID, timeline.SnapDrop(y), duration, found.ScheduleDescription)
}

func (c *Client) UnscheduleTask(ctx context.Context, taskID string) (*model.Task, error) {
	return c.taskAction(ctx, "unschedule_task", map[string]any{"taskId": taskID})
}

func (c *Client) PermanentlyDeleteTask(ctx context.Context, taskID string) error {
	if _, err := c.action(ctx, "permanently_delete_task", map[string]any{"taskId": taskID}); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.state.Tasks {
		if t.ID == taskID {
			c.state.Tasks = append(c.state.Tasks[:i], c.state.Tasks[i+1:]...)
			break
		}
	}
	return nil
}

func (c *Client) SaveSettings(ctx context.Context, in service.SettingsInput) (*model.AppSettings, error) {
	env, err := c.action(ctx, "save_app_settings", map[string]any{"settings": in})
	if err != nil {
		return nil, err
	}
	var settings model.AppSettings
	if err := env.decode("appSettings", &settings); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.state.Settings = &settings
	c.mu.Unlock()
	return &settings, nil
}

// Export downloads the export document.
func (c *Client) Export(ctx context.Context) (*service.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/export", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode, Message: "export failed"}
		var env envelope
		if json.NewDecoder(resp.Body).Decode(&env) == nil {
			_ = env.decode("message", &apiErr.Message)
			_ = env.decode("errorKind", &apiErr.Kind)
		}
		return nil, apiErr
	}

	var snap service.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return &snap, nil
}

// Import uploads doc and reloads the state afterwards.
func (c *Client) Import(ctx context.Context, doc service.ImportDocument, policy service.ImportPolicy) (*service.ImportReport, error) {
	env, err := c.action(ctx, "import_data", map[string]any{
		"projects":    doc.Projects,
		"tasks":       doc.Tasks,
		"appSettings": doc.AppSettings,
		"policy":      policy,
	})
	if err != nil {
		return nil, err
	}
	var report service.ImportReport
	for key, dst := range map[string]any{
		"policy":   &report.Policy,
		"imported": &report.Imported,
		"skipped":  &report.Skipped,
		"failures": &report.Failures,
	} {
		if err := env.decode(key, dst); err != nil {
			return nil, err
		}
	}
	return &report, c.Refresh(ctx)
}

func (c *Client) taskAction(ctx context.Context, name string, payload map[string]any) (*model.Task, error) {
	env, err := c.action(ctx, name, payload)
	if err != nil {
		return nil, err
	}
	var task model.Task
	if err := env.decode("task", &task); err != nil {
		return nil, err
	}
	c.putTask(task)
	return &task, nil
}

func (c *Client) putProject(p model.Project) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.state.Projects {
		if c.state.Projects[i].ID == p.ID {
			c.state.Projects[i] = p
			return
		}
	}
	c.state.Projects = append(c.state.Projects, p)
}

func (c *Client) putTask(t model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.state.Tasks {
		if c.state.Tasks[i].ID == t.ID {
			c.state.Tasks[i] = t
			return
		}
	}
	c.state.Tasks = append(c.state.Tasks, t)
}

package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainbox/internal/repository"
	"brainbox/internal/service"
)

const testCode = "letmein"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type apiClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	db, err := repository.NewDB("sqlite", filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	store := repository.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })

	server := NewServer(Services{
		Auth:     service.NewAuthService(store, nil, service.AuthOptions{RegistrationCode: testCode}),
		Projects: service.NewProjectService(store, nil),
		Tasks:    service.NewTaskService(store, nil),
		Data:     service.NewDataService(store, nil, service.ImportSkip),
	}, Options{
		Now: func() time.Time { return time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC) },
	})
	return server.Handler()
}

func newTestServer(t *testing.T) *apiClient {
	t.Helper()
	ts := httptest.NewServer(newTestHandler(t))
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &apiClient{t: t, base: ts.URL, http: &http.Client{Jar: jar}}
}

func (a *apiClient) do(method, path string, body any) (int, map[string]any, http.Header) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.base+path, reader)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.http.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out, resp.Header
}

func (a *apiClient) post(path string, body any) (int, map[string]any) {
	a.t.Helper()
	status, out, _ := a.do(http.MethodPost, path, body)
	return status, out
}

// signUp registers and logs in a fresh user.
func (a *apiClient) signUp(username string) {
	a.t.Helper()
	status, out := a.post("/api/verify_code", gin.H{"verification_code": testCode})
	require.Equal(a.t, http.StatusOK, status, out)
	status, out = a.post("/api/auth/register", gin.H{"username": username, "email": username + "@example.com", "password": "password123"})
	require.Equal(a.t, http.StatusOK, status, out)
	status, out = a.post("/api/auth/login", gin.H{"username": username, "password": "password123"})
	require.Equal(a.t, http.StatusOK, status, out)
}

func TestDataRequiresLogin(t *testing.T) {
	t.Parallel()

	api := newTestServer(t)
	status, out := api.post("/api/data/get_all_data", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "unauthorized", out["errorKind"])
	assert.Equal(t, "Authentication required. Please login.", out["message"])

	status, out, _ = api.do(http.MethodGet, "/api/auth/check_auth", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, out["authenticated"])
}

func TestRegistrationGate(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	api := newTestServer(t)

	status, out := api.post("/api/auth/register", gin.H{"username": "x", "email": "x@example.com", "password": "password123"})
	assert.Equal(http.StatusForbidden, status)
	assert.Equal("forbidden", out["errorKind"])

	status, out = api.post("/api/verify_code", gin.H{"verification_code": "nope"})
	assert.Equal(http.StatusForbidden, status)
	assert.Equal("Invalid verification code. Please try again.", out["message"])

	status, out = api.post("/api/verify_code", gin.H{"verification_code": ""})
	assert.Equal(http.StatusBadRequest, status)
	assert.Equal("validation", out["errorKind"])

	status, out = api.post("/api/auth/unknown", nil)
	assert.Equal(http.StatusBadRequest, status)
	assert.Equal("Invalid action specified.", out["message"])
}

func TestEmptyChunkedBody(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/verify_code", strings.NewReader(""))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(http.StatusBadRequest, rec.Code)
	assert.Equal("validation", out["errorKind"])
	assert.Equal("Verification code cannot be empty.", out["message"])

	req = httptest.NewRequest(http.MethodPost, "/api/verify_code", strings.NewReader("{nope"))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	out = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal("Request body must be valid JSON.", out["message"])
}

func TestProjectAndTaskFlow(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	api := newTestServer(t)
	api.signUp("alice")

	status, out, _ := api.do(http.MethodGet, "/api/auth/check_auth", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(true, out["authenticated"])

	status, out = api.post("/api/data/add_project", gin.H{"project": gin.H{"name": "Work"}})
	require.Equal(t, http.StatusOK, status, out)
	project := out["project"].(map[string]any)
	assert.Equal("proj_1", project["id"])

	status, out = api.post("/api/data", gin.H{"action": "add_task", "task": gin.H{"projectId": "proj_1", "text": "Write report"}})
	require.Equal(t, http.StatusOK, status, out)
	task := out["task"].(map[string]any)
	assert.Equal("task_1", task["id"])

	status, out = api.post("/api/data/update_task_schedule", gin.H{"taskId": "task_1", "startTime": 540, "duration": 30, "scheduleDescription": "draft"})
	require.Equal(t, http.StatusOK, status, out)

	status, out = api.post("/api/data/update_task_schedule", gin.H{"taskId": "task_1", "startTime": 2000, "duration": 30})
	assert.Equal(http.StatusBadRequest, status)
	assert.Equal("validation", out["errorKind"])

	status, out, _ = api.do(http.MethodGet, "/api/timeline", nil)
	require.Equal(t, http.StatusOK, status)
	blocks := out["blocks"].([]any)
	require.Len(t, blocks, 1)
	assert.Equal("09:00 - 09:30", blocks[0].(map[string]any)["label"])
	assert.Len(out["slots"].([]any), 24)

	status, out = api.post("/api/data/soft_delete_project", gin.H{"projectId": "proj_1"})
	require.Equal(t, http.StatusOK, status, out)
	assert.Len(out["tasks"].([]any), 1)

	status, out = api.post("/api/data/recover_task", gin.H{"taskId": "task_1"})
	assert.Equal(http.StatusConflict, status)
	assert.Equal("conflict", out["errorKind"])

	status, out, _ = api.do(http.MethodGet, "/api/recycle_bin", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(out["projects"].([]any), 1)
	binned := out["tasks"].([]any)[0].(map[string]any)
	assert.Equal("project_soft_deleted", binned["deletedReason"])
	assert.Equal(false, binned["recoverable"])

	status, out = api.post("/api/data/recover_project", gin.H{"projectId": "proj_1"})
	require.Equal(t, http.StatusOK, status, out)
	recovered := out["recoveredTasks"].([]any)[0].(map[string]any)
	assert.Equal("active", recovered["status"])
	assert.Nil(recovered["schedule"])
	assert.Equal("draft", recovered["scheduleDescription"])

	status, out = api.post("/api/data/recover_task", gin.H{"taskId": "task_1"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(true, out["upToDate"])
	assert.Equal("Task already up to date.", out["message"])

	status, out = api.post("/api/data/update_task_status", gin.H{"taskId": "task_1", "status": "archived"})
	assert.Equal(http.StatusBadRequest, status)

	status, out = api.post("/api/data/update_task_status", gin.H{"taskId": "task_1", "status": "completed"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal("completed", out["task"].(map[string]any)["status"])

	status, out = api.post("/api/data/permanently_delete_project", gin.H{"projectId": "proj_1"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(float64(1), out["removedTasks"])

	status, out = api.post("/api/data/soft_delete_project", gin.H{"projectId": "proj_0"})
	assert.Equal(http.StatusForbidden, status)

	status, out = api.post("/api/data/frobnicate", nil)
	assert.Equal(http.StatusBadRequest, status)
	assert.Equal("Invalid data action specified.", out["message"])

	status, out = api.post("/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = api.post("/api/data/get_all_data", nil)
	assert.Equal(http.StatusUnauthorized, status)
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	api := newTestServer(t)
	api.signUp("bob")

	status, out := api.post("/api/data/add_task", gin.H{"task": gin.H{"projectId": "proj_0", "text": "Inbox item"}})
	require.Equal(t, http.StatusOK, status, out)

	status, exported, header := api.do(http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(header.Get("Content-Disposition"), "brainbox-data-2024-05-06.json")
	assert.Len(exported["tasks"].([]any), 1)

	other := newTestServer(t)
	other.signUp("bob")
	body := gin.H{
		"projects":    exported["projects"],
		"tasks":       exported["tasks"],
		"appSettings": exported["appSettings"],
	}
	for i := 0; i < 2; i++ {
		status, out = other.post("/api/data/import_data", body)
		require.Equal(t, http.StatusOK, status, out)
		assert.Equal("skip", out["policy"])
		assert.Equal(float64(0), out["skipped"])
	}

	status, out = other.post("/api/data/get_all_data", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(out["tasks"].([]any), 1)
	assert.Len(out["projects"].([]any), 1)

	body["policy"] = "sometimes"
	status, out = other.post("/api/data/import_data", body)
	assert.Equal(http.StatusBadRequest, status)
}

func TestSaveSettings(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	api := newTestServer(t)
	api.signUp("carol")

	status, out := api.post("/api/data/save_app_settings", gin.H{"settings": gin.H{"theme": "dark", "currentProjectId": "proj_0"}})
	require.Equal(t, http.StatusOK, status, out)

	status, out = api.post("/api/data/get_all_data", nil)
	require.Equal(t, http.StatusOK, status)
	settings := out["appSettings"].(map[string]any)
	assert.Equal("dark", settings["theme"])
	assert.Equal("proj_0", settings["currentProjectId"])

	status, out = api.post("/api/data/save_app_settings", nil)
	assert.Equal(http.StatusBadRequest, status)
}

func TestNoRoute(t *testing.T) {
	t.Parallel()

	api := newTestServer(t)
	status, out, _ := api.do(http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, out["success"])
}

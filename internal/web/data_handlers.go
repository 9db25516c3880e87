package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"brainbox/internal/model"
	"brainbox/internal/service"
	"brainbox/internal/timeline"
)

// dataRequest is the union of every data action payload.
type dataRequest struct {
	Action string `json:"action"`

	Project *struct {
		Name string `json:"name"`
	} `json:"project"`
	ProjectID string `json:"projectId"`

	Task *struct {
		ProjectID string `json:"projectId"`
		Text      string `json:"text"`
	} `json:"task"`
	TaskID string `json:"taskId"`
	Status string `json:"status"`
	Reason string `json:"reason"`

	StartTime           *int   `json:"startTime"`
	Duration            *int   `json:"duration"`
	ScheduleDescription string `json:"scheduleDescription"`

	Settings *service.SettingsInput `json:"settings"`

	Projects    []model.Project        `json:"projects"`
	Tasks       []model.Task           `json:"tasks"`
	AppSettings *service.SettingsInput `json:"appSettings"`
	Policy      string                 `json:"policy"`
}

type dataAction func(c *gin.Context, actor service.Actor, req *dataRequest) (string, gin.H, error)

func (s *Server) actions() map[string]dataAction {
	return map[string]dataAction{
		"get_all_data":               s.getAllData,
		"save_app_settings":          s.saveAppSettings,
		"add_project":                s.addProject,
		"soft_delete_project":        s.softDeleteProject,
		"recover_project":            s.recoverProject,
		"permanently_delete_project": s.permanentlyDeleteProject,
		"add_task":                   s.addTask,
		"update_task_status":         s.updateTaskStatus,
		"soft_delete_task":           s.softDeleteTask,
		"recover_task":               s.recoverTask,
		"permanently_delete_task":    s.permanentlyDeleteTask,
		"update_task_schedule":       s.updateTaskSchedule,
		"unschedule_task":            s.unscheduleTask,
		"import_data":                s.importData,
	}
}

// handleData dispatches on the action named in the path, the query string or
// the body, in that order.
func (s *Server) handleData(c *gin.Context) {
	var req dataRequest
	if !bindJSON(c, s, &req) {
		return
	}

	name := c.Param("action")
	if name == "" {
		name = c.Query("action")
	}
	if name == "" {
		name = req.Action
	}

	action, found := s.actions()[name]
	if !found {
		s.writeError(c, &service.Error{Kind: service.KindValidation, Message: "Invalid data action specified."})
		return
	}

	message, payload, err := action(c, actorFrom(c), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, message, payload)
}

func (s *Server) handleGetAllData(c *gin.Context) {
	message, payload, err := s.getAllData(c, actorFrom(c), &dataRequest{})
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, message, payload)
}

func (s *Server) getAllData(c *gin.Context, actor service.Actor, _ *dataRequest) (string, gin.H, error) {
	snap, err := s.svc.Data.GetAll(c.Request.Context(), actor)
	if err != nil {
		return "", nil, err
	}
	return "", gin.H{"projects": snap.Projects, "tasks": snap.Tasks, "appSettings": snap.AppSettings}, nil
}

func (s *Server) saveAppSettings(c *gin.Context, actor service.Actor, req *dataRequest) (string, gin.H, error) {
	if req.Settings == nil {
		return "", nil, &service.Error{Kind: service.KindValidation, Message: "Settings are required."}
	}
	settings, err := s.svc.Data.SaveSettings(c.Request.Context(), actor, *req.Settings)
	if err != nil {
		return "", nil, err
	}
	return "Settings saved.", gin.H{"appSettings": settings}, nil
}

func (s *Server) addProject(c *gin.Context, actor service.Actor, req *dataRequest) (string, gin.H, error) {
	var name string
	if req.Project != nil {
		name = req.Project.Name
	}
	project, err := s.svc.Projects.Create(c.Request.Context(), actor, name)
	if err != nil {
		return "", nil, err
	}
	return "Project added.", gin.H{"project": project}, nil
}

func (s *Server) softDeleteProject(c *gin.Context, actor service.Actor, req *dataRequest) (string, gin.H, error) {
	change, err := s.svc.Projects.SoftDelete(c.Request.Context(), actor, req.ProjectID)
	if err != nil {
		return "", nil, err
	}
	return "Project moved to recycle bin.", gin.H{"project": change.Project, "tasks": nonNil(change.Tasks)}, nil
}

func (s *Server) recoverProject(c *gin.Context, actor service.Actor, req *dataRequest) (string, gin.H, error) {
	change, err := s.svc.Projects.Recover(c.Request.Context(), actor, req.ProjectID)
	if err != nil {
		return "", nil, err
	}
	return "Project recovered.", gin.H{"recoveredProject": change.Project, "recoveredTasks": nonNil(change.Tasks)}, nil
}

func (s *Server) permanentlyDeleteProject(c *gin.Context, actor service.Actor, req *dataRequest) (string, gin.H, error) {
	removed, err := s.svc.Projects.PermanentlyDelete(c.Request.Context(), actor, req.ProjectID)
	if err != nil {
		return "", nil, err
	}
	return "Project permanently deleted.", gin.H{"projectId": req.ProjectID, "removedTasks": removed}, nil
}

func (s *Server) addTask(c *gin.Context, actor service.Actor, req *dataRequest) (string, gin.H, error) {
	var projectID, text string
	if req.Task != nil {
		projectID, text = req.Task.ProjectID, req.Task.Text
	}
	task, err := s.svc.Tasks.Create(c.Request.Context(), actor, projectID, text)
	if err != nil {
		return "", nil, err
	}
	return "Task added.", gin.H{"task": task}, nil
}

// updateTaskStatus only supports completion.
func (s *Server) updateTaskStatus(c *gin.Context, actor service.Actor, req *dataRequest) (string, gin.H, error) {
	if status := strings.TrimSpace(req.Status); status != "" && status != string(model.TaskCompleted) {
		return "", nil, &service.Error{Kind: service.KindValidation, Message: fmt.Sprintf("Unsupported task status %q.", status)}
	}
	return taskResult(s.svc.Tasks.Complete(c.Request.Context(), actor, req.TaskID))("Task completed.")
}

func (s *Server) softDeleteTask(c *gin.Context, actor service.Actor, req *dataRequest) (string, gin.H, error) {
	reason := model.DeletedReason(strings.TrimSpace(req.Reason))
	return taskResult(s.svc.Tasks.SoftDelete(c.Request.Context(), actor, req.TaskID, reason))("Task moved to recycle bin.")
}

func (s *Server) recoverTask(c *gin.Context, actor service.Actor, req *dataRequest) (string, gin.H, error) {
	return taskResult(s.svc.Tasks.Recover(c.Request.Context(), actor, req.TaskID))("Task recovered.")
}

func (s *Server) permanentlyDeleteTask(c *gin.Context, actor service.Actor, req *dataRequest) (string, gin.H, error) {
	if err := s.svc.Tasks.PermanentlyDelete(c.Request.Context(), actor, req.TaskID); err != nil {
		return "", nil, err
	}
	return "Task permanently deleted.", gin.H{"taskId": req.TaskID}, nil
}

func (s *Server) updateTaskSchedule(c *gin.Context, actor service.Actor, req *dataRequest) (string, gin.H, error) {
	if strings.TrimSpace(req.TaskID) == "" || req.StartTime == nil || req.Duration == nil {
		return "", nil, &service.Error{Kind: service.KindValidation, Message: "Task ID, start time and duration are required."}
	}
	return taskResult(s.svc.Tasks.Schedule(c.Request.Context(), actor, req.TaskID, service.ScheduleInput{
		StartTime:   *req.StartTime,
		Duration:    *req.Duration,
		Description: req.ScheduleDescription,
	}))("Task scheduled.")
}

func (s *Server) unscheduleTask(c *gin.Context, actor service.Actor, req *dataRequest) (string, gin.H, error) {
	return taskResult(s.svc.Tasks.Unschedule(c.Request.Context(), actor, req.TaskID))("Task unscheduled.")
}

func (s *Server) importData(c *gin.Context, actor service.Actor, req *dataRequest) (string, gin.H, error) {
	policy, err := service.ParseImportPolicy(req.Policy, s.svc.Data.DefaultPolicy())
	if err != nil {
		return "", nil, err
	}
	report, err := s.svc.Data.Import(c.Request.Context(), actor, service.ImportDocument{
		Projects:    req.Projects,
		Tasks:       req.Tasks,
		AppSettings: req.AppSettings,
	}, policy)
	if err != nil {
		return "", nil, err
	}
	message := "Data imported."
	if report.Skipped > 0 {
		message = fmt.Sprintf("Data imported with %d skipped row(s).", report.Skipped)
	}
	return message, gin.H{
		"policy":   report.Policy,
		"imported": report.Imported,
		"skipped":  report.Skipped,
		"failures": report.Failures,
	}, nil
}

// taskResult adapts a task service result into a response, flagging rows that
// did not change.
func taskResult(res *service.TaskResult, err error) func(message string) (string, gin.H, error) {
	return func(message string) (string, gin.H, error) {
		if err != nil {
			return "", nil, err
		}
		payload := gin.H{"task": res.Task}
		if res.UpToDate {
			payload["upToDate"] = true
			message = "Task already up to date."
		}
		return message, payload, nil
	}
}

func (s *Server) handleExport(c *gin.Context) {
	snap, err := s.svc.Data.Export(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	filename := fmt.Sprintf("brainbox-data-%s.json", s.opts.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.IndentedJSON(http.StatusOK, snap)
}

func (s *Server) handleRecycleBin(c *gin.Context) {
	bin, err := s.svc.Data.RecycleBin(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, "", gin.H{"projects": bin.Projects, "tasks": bin.Tasks})
}

func (s *Server) handleTimeline(c *gin.Context) {
	blocks, err := s.svc.Data.Timeline(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, "", gin.H{"blocks": blocks, "slots": timeline.HourSlots()})
}

func nonNil(tasks []model.Task) []model.Task {
	if tasks == nil {
		return []model.Task{}
	}
	return tasks
}

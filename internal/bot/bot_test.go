package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"brainbox/internal/model"
)

func TestCurrentProjectID(t *testing.T) {
	t.Parallel()

	work, empty := "proj_3", ""
	assert.Equal(t, model.DefaultProjectID, currentProjectID(nil))
	assert.Equal(t, model.DefaultProjectID, currentProjectID(&model.AppSettings{CurrentProjectID: &empty}))
	assert.Equal(t, work, currentProjectID(&model.AppSettings{CurrentProjectID: &work}))
}

func TestConfirmationInput(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	assert.True(isConfirmInput(btnConfirm))
	assert.True(isConfirmInput(" YES "))
	assert.False(isConfirmInput("maybe"))
	assert.True(isCancelInput(btnCancel))
	assert.True(isCancelInput("no"))
}

func TestFormatting(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	assert.Equal("short", shortText(" short ", 10))
	assert.Equal("abcd…", shortText("abcdefgh", 5))

	line := formatTask(model.Task{
		ID:                  "task_2",
		Text:                "a <b>",
		Schedule:            &model.Schedule{Start: 75, Duration: 30},
		ScheduleDescription: "room 1",
	})
	assert.Contains(line, "<code>task_2</code> a &lt;b&gt;")
	assert.Contains(line, "01:15 - 01:45")
	assert.Contains(line, "room 1")

	tasks := []model.Task{
		{ProjectID: "proj_1", Status: model.TaskActive},
		{ProjectID: "proj_1", Status: model.TaskCompleted},
		{ProjectID: "proj_2", Status: model.TaskActive},
	}
	assert.Equal(1, countOpen(tasks, "proj_1"))
}

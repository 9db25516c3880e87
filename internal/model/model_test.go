package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		entity, id string
		want       int64
		ok         bool
	}{
		{EntityTask, "task_12", 12, true},
		{EntityProject, "proj_0", 0, true},
		{EntityTask, "proj_3", 0, false},
		{EntityTask, "task_", 0, false},
		{EntityTask, "task_007", 0, false},
		{EntityTask, "task_-1", 0, false},
		{EntityTask, "task_1a", 0, false},
	}
	for _, tc := range cases {
		n, ok := ParseID(tc.entity, tc.id)
		assert.Equal(t, tc.ok, ok, tc.id)
		assert.Equal(t, tc.want, n, tc.id)
	}
	assert.Equal(t, "task_12", FormatID(EntityTask, 12))
}

func TestScheduleValidate(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	assert.NoError(Schedule{Start: 0, Duration: 1}.Validate())
	assert.NoError(Schedule{Start: 1439, Duration: 120}.Validate())
	assert.ErrorIs(Schedule{Start: -1, Duration: 10}.Validate(), ErrStartOutOfRange)
	assert.ErrorIs(Schedule{Start: 1440, Duration: 10}.Validate(), ErrStartOutOfRange)
	assert.ErrorIs(Schedule{Start: 10, Duration: 0}.Validate(), ErrBadDuration)
}

func TestScheduleOverlaps(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	a := Schedule{Start: 0, Duration: 60}
	assert.True(a.Overlaps(Schedule{Start: 30, Duration: 60}))
	assert.False(a.Overlaps(Schedule{Start: 60, Duration: 30}))
	assert.True(Schedule{Start: 30, Duration: 60}.Overlaps(a))
	assert.Equal(60, a.End())
}

func TestTaskUnmarshalLegacyFields(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	var legacy Task
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "task_4", "projectId": "proj_1", "text": "legacy",
		"status": "active", "isScheduled": true, "startTime": 480, "duration": 30
	}`), &legacy))
	require.NotNil(t, legacy.Schedule)
	assert.Equal(Schedule{Start: 480, Duration: 30}, *legacy.Schedule)
	assert.True(legacy.IsScheduled)

	var current Task
	require.NoError(t, json.Unmarshal([]byte(`{"id": "task_5", "schedule": {"start": 60, "duration": 15}, "isScheduled": false}`), &current))
	require.NotNil(t, current.Schedule)
	assert.Equal(60, current.Schedule.Start)

	var unscheduled Task
	require.NoError(t, json.Unmarshal([]byte(`{"id": "task_6", "isScheduled": false, "startTime": 480, "duration": 30}`), &unscheduled))
	assert.Nil(unscheduled.Schedule)
	assert.False(unscheduled.IsScheduled)
}

func TestStatusHelpers(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	assert.True(TaskCompleted.InBin())
	assert.True(TaskDeleted.InBin())
	assert.False(TaskActive.InBin())
	assert.False(TaskStatus("archived").Valid())
	assert.True(ReasonProjectSoftDeleted.Valid())
	assert.False(DeletedReason("whim").Valid())
	assert.False(ProjectStatus("paused").Valid())

	settings := DefaultAppSettings(7)
	require.NotNil(t, settings.CurrentProjectID)
	assert.Equal(DefaultProjectID, *settings.CurrentProjectID)
	assert.Equal(DefaultTheme, settings.Theme)
}

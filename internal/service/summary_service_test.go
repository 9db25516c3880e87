package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainbox/internal/model"
	"brainbox/internal/service"
)

func TestSummaryToday(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	f := newFixture(t)
	ctx := context.Background()
	summary := service.NewSummaryService(f.store)

	work := f.project(t, "Work & Co")
	standup := f.task(t, work.ID, "Standup")
	f.task(t, work.ID, "Review <PR>")
	_, err := f.tasks.Schedule(ctx, f.actor, standup.ID, service.ScheduleInput{StartTime: 555, Duration: 15, Description: "zoom"})
	require.NoError(t, err)

	text, err := summary.Today(ctx, f.actor, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(text, "2024-03-01")
	assert.Contains(text, "09:15 - 09:30 Standup")
	assert.Contains(text, "zoom")
	assert.Contains(text, "Work &amp; Co")
	assert.Contains(text, "Review &lt;PR&gt;")
	assert.NotContains(text, "overlaps")
}

func TestSummaryBin(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	f := newFixture(t)
	ctx := context.Background()
	summary := service.NewSummaryService(f.store)

	empty, err := f.data.RecycleBin(ctx, f.actor)
	require.NoError(t, err)
	assert.Contains(summary.Bin(empty), "empty")

	work := f.project(t, "Work")
	f.task(t, work.ID, "Draft")
	done := f.task(t, model.DefaultProjectID, "Done thing")
	_, err = f.tasks.Complete(ctx, f.actor, done.ID)
	require.NoError(t, err)
	_, err = f.projects.SoftDelete(ctx, f.actor, work.ID)
	require.NoError(t, err)

	bin, err := f.data.RecycleBin(ctx, f.actor)
	require.NoError(t, err)
	text := summary.Bin(bin)
	assert.Contains(text, "Work <code>proj_1</code>")
	assert.Contains(text, "Draft")
	assert.Contains(text, "project in bin")
	assert.Contains(text, "Done thing")
}

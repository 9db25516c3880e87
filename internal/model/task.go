package model

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskActive    TaskStatus = "active"
	TaskCompleted TaskStatus = "completed"
	TaskDeleted   TaskStatus = "deleted"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskActive, TaskCompleted, TaskDeleted:
		return true
	}
	return false
}

// InBin reports whether a task with this status belongs in the recycle bin.
func (s TaskStatus) InBin() bool {
	return s == TaskCompleted || s == TaskDeleted
}

type DeletedReason string

const (
	ReasonTaskCompleted      DeletedReason = "task_completed"
	ReasonIndividualDeletion DeletedReason = "individual_deletion"
	ReasonProjectSoftDeleted DeletedReason = "project_soft_deleted"
)

func (r DeletedReason) Valid() bool {
	switch r {
	case ReasonTaskCompleted, ReasonIndividualDeletion, ReasonProjectSoftDeleted:
		return true
	}
	return false
}

const MinutesPerDay = 24 * 60

var (
	ErrStartOutOfRange = errors.New("startTime must be between 0 and 1439")
	ErrBadDuration     = errors.New("duration must be a positive number of minutes")
)

// Schedule places a task on the day timeline as the half-open interval
// [Start, Start+Duration) in minutes since midnight.
type Schedule struct {
	Start    int `json:"start"`
	Duration int `json:"duration"`
}

func (s Schedule) Validate() error {
	if s.Start < 0 || s.Start >= MinutesPerDay {
		return ErrStartOutOfRange
	}
	if s.Duration <= 0 {
		return ErrBadDuration
	}
	return nil
}

func (s Schedule) End() int {
	return s.Start + s.Duration
}

// Overlaps reports whether the two intervals intersect. Touching endpoints do not.
func (s Schedule) Overlaps(o Schedule) bool {
	return s.Start < o.End() && o.Start < s.End()
}

// Task is a unit of work inside a project.
//
// Schedule is the source of truth for timeline placement; the is_scheduled,
// start_time and duration columns are derived from it on every write and read
// back into it by AfterFind.
type Task struct {
	UserID              uint           `gorm:"primaryKey;autoIncrement:false" json:"-"`
	ID                  string         `gorm:"primaryKey;size:64" json:"id"`
	ProjectID           string         `gorm:"size:64;not null;index" json:"projectId"`
	Text                string         `gorm:"type:text;not null" json:"text"`
	Status              TaskStatus     `gorm:"size:16;not null;default:active;index" json:"status"`
	Schedule            *Schedule      `gorm:"-" json:"schedule"`
	ScheduleDescription string         `gorm:"type:text" json:"scheduleDescription"`
	DeletedAt           *time.Time     `json:"deletedAt"`
	DeletedReason       *DeletedReason `gorm:"size:32" json:"deletedReason"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`

	IsScheduled bool `gorm:"not null;default:false" json:"-"`
	StartTime   *int `json:"-"`
	Duration    *int `json:"-"`
}

// AfterFind rebuilds Schedule from the stored columns.
func (t *Task) AfterFind(_ *gorm.DB) error {
	t.Schedule = nil
	if t.IsScheduled && t.StartTime != nil && t.Duration != nil {
		t.Schedule = &Schedule{Start: *t.StartTime, Duration: *t.Duration}
	}
	return nil
}

// SyncScheduleColumns copies Schedule into the stored columns before a full-row write.
func (t *Task) SyncScheduleColumns() {
	cols := ScheduleColumns(t.Schedule)
	t.IsScheduled = cols["is_scheduled"].(bool)
	t.StartTime, _ = cols["start_time"].(*int)
	t.Duration, _ = cols["duration"].(*int)
}

// ScheduleColumns is the column assignment for s, for partial updates. A nil s
// clears all three columns.
func ScheduleColumns(s *Schedule) map[string]any {
	if s == nil {
		return map[string]any{"is_scheduled": false, "start_time": (*int)(nil), "duration": (*int)(nil)}
	}
	start, duration := s.Start, s.Duration
	return map[string]any{"is_scheduled": true, "start_time": &start, "duration": &duration}
}

func (t Task) Active() bool {
	return t.Status == TaskActive
}

func (t Task) Scheduled() bool {
	return t.Schedule != nil
}

// UnmarshalJSON also accepts the flat isScheduled/startTime/duration encoding
// used by older export files.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		*plain
		IsScheduled *bool `json:"isScheduled"`
		StartTime   *int  `json:"startTime"`
		Duration    *int  `json:"duration"`
	}{plain: (*plain)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if t.Schedule == nil && aux.IsScheduled != nil && *aux.IsScheduled && aux.StartTime != nil && aux.Duration != nil {
		t.Schedule = &Schedule{Start: *aux.StartTime, Duration: *aux.Duration}
	}
	t.SyncScheduleColumns()
	return nil
}

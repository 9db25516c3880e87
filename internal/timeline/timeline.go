// Package timeline projects scheduled tasks onto the 24-hour day view.
//
// The view is one pixel per minute. Overlap flags are a rendering hint only;
// nothing here ever refuses a schedule.
package timeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"brainbox/internal/model"
)

const (
	// MinBlockHeight keeps very short tasks clickable.
	MinBlockHeight = 15
	// SnapMinutes is the granularity of a drop onto the timeline.
	SnapMinutes = 15
	// DefaultDuration is proposed when an unscheduled task is dropped.
	DefaultDuration = 45
)

// Block is one scheduled task as drawn on the timeline.
type Block struct {
	TaskID      string `json:"taskId"`
	ProjectID   string `json:"projectId"`
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
	Start       int    `json:"start"`
	Duration    int    `json:"duration"`
	Top         int    `json:"top"`
	Height      int    `json:"height"`
	Label       string `json:"label"`
	Overlapping bool   `json:"overlapping"`
}

// Slot is one hour row of the timeline.
type Slot struct {
	Hour  int    `json:"hour"`
	Label string `json:"label"`
}

// Build returns the blocks for every active scheduled task, ordered by start.
func Build(tasks []model.Task) []Block {
	var visible []model.Task
	for _, t := range tasks {
		if t.Active() && t.Scheduled() {
			visible = append(visible, t)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].Schedule.Start != visible[j].Schedule.Start {
			return visible[i].Schedule.Start < visible[j].Schedule.Start
		}
		return visible[i].ID < visible[j].ID
	})

	schedules := make([]model.Schedule, len(visible))
	for i, t := range visible {
		schedules[i] = *t.Schedule
	}
	overlapping := Overlaps(schedules)

	blocks := make([]Block, len(visible))
	for i, t := range visible {
		s := *t.Schedule
		blocks[i] = Block{
			TaskID:      t.ID,
			ProjectID:   t.ProjectID,
			Text:        t.Text,
			Description: t.ScheduleDescription,
			Start:       s.Start,
			Duration:    s.Duration,
			Top:         s.Start,
			Height:      max(MinBlockHeight, s.Duration),
			Label:       FormatClock(s.Start) + " - " + FormatClock(s.End()),
			Overlapping: overlapping[i],
		}
	}
	return blocks
}

// Overlaps flags every schedule that intersects at least one other. Pairwise,
// which is fine for the tens of tasks a person puts on one day.
func Overlaps(schedules []model.Schedule) []bool {
	flags := make([]bool, len(schedules))
	for i := range schedules {
		for j := i + 1; j < len(schedules); j++ {
			if schedules[i].Overlaps(schedules[j]) {
				flags[i] = true
				flags[j] = true
			}
		}
	}
	return flags
}

// HourSlots returns the 24 labelled hour rows.
func HourSlots() []Slot {
	slots := make([]Slot, 24)
	for h := range slots {
		slots[h] = Slot{Hour: h, Label: FormatClock(h*60) + " - " + FormatClock((h+1)*60)}
	}
	return slots
}

// FormatClock renders minutes since midnight as HH:MM, wrapping past midnight.
func FormatClock(minutes int) string {
	minutes %= model.MinutesPerDay
	if minutes < 0 {
		minutes += model.MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseClock turns "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hours, err := strconv.Atoi(hh)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hours*60 + minutes, nil
}

// SnapDrop converts a drop offset in pixels into a start time: clamped to the
// day and rounded to the nearest SnapMinutes.
func SnapDrop(y int) int {
	y = min(max(y, 0), model.MinutesPerDay-1)
	start := (y + SnapMinutes/2) / SnapMinutes * SnapMinutes
	if start >= model.MinutesPerDay {
		start -= SnapMinutes
	}
	return start
}

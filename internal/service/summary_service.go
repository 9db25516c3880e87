package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"brainbox/internal/model"
	"brainbox/internal/repository"
	"brainbox/internal/timeline"
)

// SummaryService builds human-readable HTML summaries for chat front-ends.
type SummaryService struct {
	store *repository.Store
}

func NewSummaryService(store *repository.Store) *SummaryService {
	return &SummaryService{store: store}
}

// Today renders the timeline followed by the unscheduled active tasks,
// grouped by project.
func (s *SummaryService) Today(ctx context.Context, actor Actor, now time.Time) (string, error) {
	tasks, err := s.store.Tasks.ListByUser(ctx, actor.UserID)
	if err != nil {
		return "", storageErr("Could not load tasks.", err)
	}
	projects, err := s.store.Projects.ListByUser(ctx, actor.UserID)
	if err != nil {
		return "", storageErr("Could not load projects.", err)
	}
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Today</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))

	builder.WriteString("🕒 <b>Timeline</b>\n")
	blocks := timeline.Build(tasks)
	if len(blocks) == 0 {
		builder.WriteString("nothing scheduled\n")
	}
	for _, b := range blocks {
		builder.WriteString(formatBlock(b, names))
	}

	builder.WriteString("\n📝 <b>Unscheduled</b>\n")
	var open int
	for _, p := range projects {
		if !p.Active() {
			continue
		}
		var lines []string
		for _, t := range tasks {
			if t.ProjectID == p.ID && t.Active() && !t.Scheduled() {
				lines = append(lines, fmt.Sprintf("   • %s <code>%s</code>", html.EscapeString(t.Text), t.ID))
			}
		}
		if len(lines) == 0 {
			continue
		}
		open += len(lines)
		builder.WriteString(fmt.Sprintf("<i>%s</i>\n%s\n", html.EscapeString(p.Name), strings.Join(lines, "\n")))
	}
	if open == 0 {
		builder.WriteString("no open tasks\n")
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatBlock(b timeline.Block, projectNames map[string]string) string {
	var sb strings.Builder

	icon := "🟢"
	if b.Overlapping {
		icon = "⚠️"
	}
	sb.WriteString(fmt.Sprintf("%s %s %s <code>%s</code>", icon, b.Label, html.EscapeString(b.Text), b.TaskID))
	if name := strings.TrimSpace(projectNames[b.ProjectID]); name != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name)))
	}
	if b.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(b.Description)))
	}
	if b.Overlapping {
		sb.WriteString("\n   overlaps another task")
	}
	sb.WriteByte('\n')
	return sb.String()
}

// Bin renders the recycle bin.
func (s *SummaryService) Bin(bin *RecycleBin) string {
	var builder strings.Builder
	builder.WriteString("🗑 <b>Recycle bin</b>\n")
	if len(bin.Projects) == 0 && len(bin.Tasks) == 0 {
		builder.WriteString("empty")
		return builder.String()
	}
	for _, p := range bin.Projects {
		builder.WriteString(fmt.Sprintf("📁 %s <code>%s</code>\n", html.EscapeString(p.Name), p.ID))
	}
	for _, t := range bin.Tasks {
		icon := "🗑"
		if t.Status == model.TaskCompleted {
			icon = "✅"
		}
		line := fmt.Sprintf("%s %s <code>%s</code> <i>(%s)</i>", icon, html.EscapeString(t.Text), t.ID, html.EscapeString(t.ProjectName))
		if !t.Recoverable {
			line += " · project in bin"
		}
		builder.WriteString(line + "\n")
	}
	return strings.TrimSpace(builder.String())
}

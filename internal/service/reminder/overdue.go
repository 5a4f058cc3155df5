package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/notify"
)

// maxListedTitles caps how many item titles a summary names.
const maxListedTitles = 5

// OverdueEngine sends at most one overdue summary per user per category per
// day.
type OverdueEngine struct {
	deps         Deps
	stakeholders notify.StakeholderResolver
	logger       *slog.Logger
}

// NewOverdueEngine returns an overdue summary engine.
func NewOverdueEngine(deps Deps) *OverdueEngine {
	deps.normalize()
	return &OverdueEngine{deps: deps, logger: deps.Logger.With(slog.String("component", "overdue_engine"))}
}

// CheckOverdueTasks summarizes overdue tasks for their owners. Collaborators
// are not told about tasks they do not own.
func (e *OverdueEngine) CheckOverdueTasks(ctx context.Context) (Report, error) {
	today := domain.DateOf(e.deps.Now(), e.deps.Location)
	tasks, err := e.deps.Tasks.ListOverdue(ctx, today)
	if err != nil {
		return Report{}, fmt.Errorf("list overdue tasks: %w", err)
	}

	g := newGrouping()
	for _, t := range tasks {
		g.add(t.OwnerID, t.Title)
	}
	report := e.summarize(ctx, g, domain.NotificationOverdueTasks, "Task")
	report.Checked = len(tasks)
	return report, nil
}

// CheckOverdueProjects summarizes overdue projects for every stakeholder.
func (e *OverdueEngine) CheckOverdueProjects(ctx context.Context) (Report, error) {
	today := domain.DateOf(e.deps.Now(), e.deps.Location)
	projects, err := e.deps.Projects.ListOverdue(ctx, today)
	if err != nil {
		return Report{}, fmt.Errorf("list overdue projects: %w", err)
	}

	g := newGrouping()
	for _, p := range projects {
		for _, userID := range e.stakeholders.ForProject(p) {
			g.add(userID, p.Name)
		}
	}
	report := e.summarize(ctx, g, domain.NotificationOverdueProjects, "Project")
	report.Checked = len(projects)
	return report, nil
}

func (e *OverdueEngine) summarize(ctx context.Context, g *grouping, typ domain.NotificationType, noun string) Report {
	var report Report
	for _, userID := range g.order {
		titles := g.titles[userID]
		n := &domain.Notification{
			UserID:   userID,
			Type:     typ,
			Title:    overdueTitle(noun, len(titles)),
			Message:  overdueMessage(noun, titles),
			Priority: domain.PriorityHigh,
		}
		report.Add(sendCounted(ctx, e.deps.Notifier, e.logger, n, notify.SinceMidnight()))
	}
	return report
}

// grouping collects titles per user in first-seen order.
type grouping struct {
	order  []uuid.UUID
	titles map[uuid.UUID][]string
}

func newGrouping() *grouping {
	return &grouping{titles: make(map[uuid.UUID][]string)}
}

func (g *grouping) add(userID uuid.UUID, title string) {
	if userID == uuid.Nil {
		return
	}
	if _, ok := g.titles[userID]; !ok {
		g.order = append(g.order, userID)
	}
	g.titles[userID] = append(g.titles[userID], title)
}

func overdueTitle(noun string, count int) string {
	if count == 1 {
		return fmt.Sprintf("1 Overdue %s", noun)
	}
	return fmt.Sprintf("%d Overdue %ss", count, noun)
}

func overdueMessage(noun string, titles []string) string {
	listed := titles
	if len(listed) > maxListedTitles {
		listed = listed[:maxListedTitles]
	}
	msg := fmt.Sprintf("Overdue %ss: %s", strings.ToLower(noun), strings.Join(listed, ", "))
	if extra := len(titles) - len(listed); extra > 0 {
		msg += fmt.Sprintf(" and %d more", extra)
	}
	return msg
}

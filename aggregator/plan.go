package aggregator

import (
	"strconv"
	"strings"

	"github.com/sessionwatch/sessionwatch/event"
)

// applyPlanEvents tracks the ambient state plan mode needs between its
// tool_use triggers: the running accumulation of assistant text while plan
// mode is active, the latest user prompt (used if EnterPlanMode needs
// context), and the most recent Write/Edit target path and content, which
// ExitPlanMode falls back to when no plan file under .claude/plans/ was
// written directly. EnterPlanMode, ExitPlanMode
// and the Codex-style UpdatePlan tool itself are dispatched from
// handleTaskToolUse alongside the other pseudo-tools, since they arrive as
// ordinary tool_use blocks.
func (a *Aggregator) applyPlanEvents(e *event.Event, d *Delta) {
	if e.Type == event.TypeUser {
		if text := firstText(e.ContentBlocks()); text != "" {
			a.planLastUserText = text
		}
	}

	if a.plan != nil && a.plan.Active && e.Type == event.TypeAssistant {
		if text := firstText(e.ContentBlocks()); text != "" {
			a.planAssistantText = append(a.planAssistantText, text)
		}
	}

	for _, b := range e.ContentBlocks() {
		tu, ok := b.(event.ToolUsePart)
		if !ok {
			continue
		}
		if tu.Name != "Write" && tu.Name != "Edit" {
			continue
		}
		path, _ := fieldString(tu.Input, "file_path")
		if path == "" {
			continue
		}
		a.lastEditTarget = path
		if isPlanFilePath(path) {
			a.lastPlanFilePath = path
			if content, ok := fieldString(tu.Input, "content"); ok {
				a.lastPlanFileText = content
			}
		}
	}
}

func isPlanFilePath(path string) bool {
	p := strings.ToLower(path)
	return strings.Contains(p, ".claude/plans/") && strings.HasSuffix(p, ".md")
}

func (a *Aggregator) enterPlanMode(e *event.Event) {
	revision := 0
	if a.plan != nil {
		revision = a.plan.Revision + 1
	}
	ts := e.Timestamp
	a.plan = &PlanState{Active: true, EnteredAt: &ts, Revision: revision}
	a.planAssistantText = nil
}

func (a *Aggregator) exitPlanMode(e *event.Event, d *Delta) {
	if a.plan == nil || !a.plan.Active {
		return
	}

	raw, source := a.resolvePlanMarkdown()
	title, steps := parsePlanMarkdown(raw)

	a.plan.Title = title
	a.plan.Steps = steps
	a.plan.Source = source
	a.plan.RawMarkdown = raw
	ts := e.Timestamp
	a.plan.ExitedAt = &ts
	a.plan.Active = false
	if a.plan.EnteredAt != nil {
		a.plan.TotalDurationMS = ts.Sub(*a.plan.EnteredAt).Milliseconds()
		if a.plan.TotalDurationMS < 0 {
			a.plan.TotalDurationMS = 0
		}
	}
	a.plan.CompletionRate = planCompletionRate(steps)

	for i, step := range steps {
		id := "plan-" + strconv.Itoa(i)
		if _, ok := a.tasks[id]; !ok {
			a.tasks[id] = &TrackedTask{
				ID:        id,
				Subject:   step.Description,
				Status:    TaskPending,
				CreatedAt: ts,
				UpdatedAt: ts,
			}
			a.recomputeGoalGate(a.tasks[id])
		}
	}

	d.PlanChanged = true
}

func planCompletionRate(steps []*PlanStep) float64 {
	if len(steps) == 0 {
		return 0
	}
	completed := 0
	for _, s := range steps {
		if s.Status == StepCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(steps))
}

// resolvePlanMarkdown picks the plan source by precedence: a directly
// written .claude/plans/*.md file, else the assistant text accumulated
// while plan mode was active, else the injected ReadPlanFile callback
// against the last-seen edit target.
func (a *Aggregator) resolvePlanMarkdown() (string, string) {
	if a.lastPlanFileText != "" {
		return a.lastPlanFileText, "plan_file"
	}
	if len(a.planAssistantText) > 0 {
		return strings.Join(a.planAssistantText, "\n\n"), "assistant_text"
	}
	if a.opts.ReadPlanFile != nil && a.lastEditTarget != "" {
		if content, ok := a.opts.ReadPlanFile(a.lastEditTarget); ok {
			return content, "read_plan_file"
		}
	}
	return "", "empty"
}

// parsePlanMarkdown extracts a title (the first non-empty line that is not a
// list item, with any leading "#" marks stripped) and ordered step
// descriptions (list items starting with "-", "*", "N." or "N)") from a
// freeform plan document.
func parsePlanMarkdown(raw string) (string, []*PlanStep) {
	if raw == "" {
		return "", nil
	}
	lines := strings.Split(raw, "\n")
	title := ""
	var steps []*PlanStep

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if title == "" {
			if strings.HasPrefix(trimmed, "#") {
				title = strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
				continue
			}
			if !isListItem(trimmed) {
				title = trimmed
				continue
			}
		}
		if desc, ok := listItemText(trimmed); ok {
			steps = append(steps, &PlanStep{
				ID:          "step-" + strconv.Itoa(len(steps)),
				Description: desc,
				Status:      StepPending,
			})
		}
	}
	return title, steps
}

func isListItem(s string) bool {
	if strings.HasPrefix(s, "- ") || strings.HasPrefix(s, "* ") || strings.HasPrefix(s, "-[") || strings.HasPrefix(s, "*[") {
		return true
	}
	_, ok := listItemText(s)
	return ok
}

func listItemText(s string) (string, bool) {
	switch {
	case strings.HasPrefix(s, "- [ ] "):
		return strings.TrimSpace(s[6:]), true
	case strings.HasPrefix(s, "- [x] "), strings.HasPrefix(s, "- [X] "):
		return strings.TrimSpace(s[6:]), true
	case strings.HasPrefix(s, "- "):
		return strings.TrimSpace(s[2:]), true
	case strings.HasPrefix(s, "* "):
		return strings.TrimSpace(s[2:]), true
	}
	// "1. text", "2) text"
	for i, r := range s {
		if r >= '0' && r <= '9' {
			continue
		}
		if (r == '.' || r == ')') && i > 0 {
			return strings.TrimSpace(s[i+1:]), true
		}
		break
	}
	return "", false
}

// applyUpdatePlan handles the Codex-style UpdatePlan tool: a full
// snapshot of {step, status} entries replacing the current plan.
func (a *Aggregator) applyUpdatePlan(input any, e *event.Event, d *Delta) {
	items := fieldList(input, "plan")
	if items == nil {
		items = fieldList(input, "steps")
	}
	if items == nil {
		return
	}

	revision := 0
	if a.plan != nil {
		revision = a.plan.Revision + 1
	}
	ts := e.Timestamp
	plan := &PlanState{Active: true, EnteredAt: &ts, Revision: revision, Source: "update_plan"}

	for i, raw := range items {
		step, _ := fieldString(raw, "step")
		if step == "" {
			step, _ = fieldString(raw, "description")
		}
		status, _ := fieldString(raw, "status")
		ps := &PlanStep{
			ID:          "step-" + strconv.Itoa(i),
			Description: step,
			Status:      mapPlanStepStatus(status),
		}
		plan.Steps = append(plan.Steps, ps)

		id := "plan-" + strconv.Itoa(i)
		t := &TrackedTask{
			ID:        id,
			Subject:   step,
			Status:    mapTodoStatus(status),
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		a.tasks[id] = t
		a.recomputeGoalGate(t)
	}

	plan.CompletionRate = planCompletionRate(plan.Steps)
	a.plan = plan
	d.PlanChanged = true
}

func mapPlanStepStatus(s string) PlanStepStatus {
	switch s {
	case "in_progress", "in-progress":
		return StepInProgress
	case "completed", "done", "complete":
		return StepCompleted
	case "failed", "error":
		return StepFailed
	case "skipped":
		return StepSkipped
	default:
		return StepPending
	}
}

// Plan returns a copy of the current plan state, or nil if no plan has
// been started.
func (a *Aggregator) Plan() *PlanState {
	if a.plan == nil {
		return nil
	}
	cp := *a.plan
	cp.Steps = make([]*PlanStep, len(a.plan.Steps))
	for i, s := range a.plan.Steps {
		stepCopy := *s
		cp.Steps[i] = &stepCopy
	}
	return &cp
}

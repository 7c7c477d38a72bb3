package aggregator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sessionwatch/sessionwatch/event"
)

// goalGateKeywords matches task subject/description text that marks a task
// as a goal gate regardless of how many tasks it blocks.
var goalGateKeywords = regexp.MustCompile(`(?i)\b(CRITICAL|MUST|blocker|required|must.?complete|goal.?gate|essential|do.?not.?skip|blocking)\b`)

// taskNumberFromText extracts a numeric task id from free-text
// ("Task #N created") or a JSON-ish {"taskId": N} fragment.
var taskNumberFromText = regexp.MustCompile(`(?i)task\s*#(\d+)\s*created`)
var taskIDFromJSON = regexp.MustCompile(`"taskId"\s*:\s*(\d+)`)

// blockingReferenceRe finds "blocked by X", "depends on X", "waiting on X",
// "requires X" phrases in todo text for the TodoWrite second pass.
var blockingReferenceRe = regexp.MustCompile(`(?i)(?:blocked by|depends on|waiting on|requires)\s+(.+)$`)

const taskNameTaskCreate = "TaskCreate"
const taskNameTaskUpdate = "TaskUpdate"
const taskNameTask = "Task"
const taskNameTodoWrite = "TodoWrite"
const taskNameUpdatePlan = "UpdatePlan"
const taskNameEnterPlanMode = "EnterPlanMode"
const taskNameExitPlanMode = "ExitPlanMode"

// applyTaskEvents dispatches tool_use/tool_result blocks naming one of the
// task/plan pseudo-tools to the task state machine.
func (a *Aggregator) applyTaskEvents(e *event.Event, d *Delta) {
	for _, b := range e.ContentBlocks() {
		switch v := b.(type) {
		case event.ToolUsePart:
			a.handleTaskToolUse(v, e, d)
		case event.ToolResultPart:
			a.handleTaskToolResult(v, e, d)
		}
	}
}

func (a *Aggregator) handleTaskToolUse(v event.ToolUsePart, e *event.Event, d *Delta) {
	switch v.Name {
	case taskNameTaskCreate:
		subject, _ := fieldString(v.Input, "subject")
		if subject == "" {
			subject, _ = fieldString(v.Input, "description")
		}
		if v.ID != "" {
			a.pendingTaskCreates[v.ID] = subject
		}

	case taskNameTaskUpdate:
		a.applyTaskUpdate(v.Input, e, d)

	case taskNameTask:
		a.startSubagentTask(v, e, d)

	case taskNameTodoWrite:
		a.applyTodoWrite(v.Input, e, d)

	case taskNameUpdatePlan:
		a.applyUpdatePlan(v.Input, e, d)

	case taskNameEnterPlanMode:
		a.enterPlanMode(e)

	case taskNameExitPlanMode:
		a.exitPlanMode(e, d)
	}
}

func (a *Aggregator) handleTaskToolResult(v event.ToolResultPart, e *event.Event, d *Delta) {
	if subject, ok := a.pendingTaskCreates[v.ToolUseID]; ok {
		delete(a.pendingTaskCreates, v.ToolUseID)
		if v.IsError {
			return
		}
		id := extractTaskID(v.Content)
		if id == "" {
			return
		}
		t := &TrackedTask{
			ID:        id,
			Subject:   subject,
			Status:    TaskPending,
			CreatedAt: e.Timestamp,
			UpdatedAt: e.Timestamp,
		}
		a.tasks[id] = t
		a.recomputeGoalGate(t)
		d.TaskChanged = true
		return
	}

	// Subagent completion: Task tool_use synthesized id "agent-<tool_use_id>".
	agentID := "agent-" + v.ToolUseID
	if t, ok := a.tasks[agentID]; ok && t.IsSubagent {
		t.UpdatedAt = e.Timestamp
		if v.IsError {
			t.Status = TaskDeleted
			if a.activeTaskID == t.ID {
				a.activeTaskID = ""
			}
		} else {
			t.Status = TaskCompleted
			if a.activeTaskID == t.ID {
				a.activeTaskID = ""
			}
		}
		a.recomputeGoalGate(t)
		d.TaskChanged = true
	}
}

func extractTaskID(content string) string {
	if m := taskNumberFromText.FindStringSubmatch(content); len(m) == 2 {
		return m[1]
	}
	if m := taskIDFromJSON.FindStringSubmatch(content); len(m) == 2 {
		return m[1]
	}
	return ""
}

func (a *Aggregator) applyTaskUpdate(input any, e *event.Event, d *Delta) {
	id, _ := fieldString(input, "taskId")
	if id == "" {
		id, _ = fieldString(input, "task_id")
	}
	if id == "" {
		return
	}
	t, ok := a.tasks[id]
	if !ok {
		t = &TrackedTask{ID: id, Status: TaskPending, CreatedAt: e.Timestamp}
		a.tasks[id] = t
	}
	t.UpdatedAt = e.Timestamp

	if s, ok := fieldString(input, "subject"); ok {
		t.Subject = s
	}
	if s, ok := fieldString(input, "description"); ok {
		t.Description = s
	}
	if s, ok := fieldString(input, "activeForm"); ok {
		t.ActiveForm = s
	}
	for _, bid := range fieldStringList(input, "blockedBy") {
		t.BlockedBy = appendUnique(t.BlockedBy, bid)
	}
	for _, bid := range fieldStringList(input, "blocks") {
		t.Blocks = appendUnique(t.Blocks, bid)
	}

	if s, ok := fieldString(input, "status"); ok {
		newStatus := TaskStatus(s)
		wasActive := a.activeTaskID == id
		if newStatus == TaskDeleted {
			delete(a.tasks, id)
			if wasActive {
				a.activeTaskID = ""
			}
			d.TaskChanged = true
			return
		}
		t.Status = newStatus
		if newStatus == TaskInProgress {
			a.activeTaskID = id
		} else if wasActive {
			a.activeTaskID = ""
		}
	}

	a.recomputeGoalGate(t)
	d.TaskChanged = true
}

func (a *Aggregator) startSubagentTask(v event.ToolUsePart, e *event.Event, d *Delta) {
	if v.ID == "" {
		return
	}
	id := "agent-" + v.ID
	subagentType, _ := fieldString(v.Input, "subagent_type")
	description, _ := fieldString(v.Input, "description")
	if description == "" {
		description, _ = fieldString(v.Input, "prompt")
	}
	t := &TrackedTask{
		ID:           id,
		Subject:      description,
		Status:       TaskInProgress,
		CreatedAt:    e.Timestamp,
		UpdatedAt:    e.Timestamp,
		IsSubagent:   true,
		SubagentType: subagentType,
	}
	a.tasks[id] = t
	a.activeTaskID = id
	a.recomputeGoalGate(t)
	d.TaskChanged = true
}

// applyTodoWrite replaces the entire non-subagent task set with the provided
// ordered todo list, then resolves blocking references by substring match
// against the other todos' text.
func (a *Aggregator) applyTodoWrite(input any, e *event.Event, d *Delta) {
	items := fieldList(input, "todos")
	if items == nil {
		return
	}

	var wasActiveSubagent *TrackedTask
	if t, ok := a.tasks[a.activeTaskID]; ok && t.IsSubagent {
		wasActiveSubagent = t
	}

	newTasks := make(map[string]*TrackedTask)
	for id, t := range a.tasks {
		if t.IsSubagent {
			newTasks[id] = t
		}
	}

	type todoEntry struct {
		id   string
		text string
	}
	var entries []todoEntry

	for i, raw := range items {
		content, _ := fieldString(raw, "content")
		if content == "" {
			content, _ = fieldString(raw, "text")
		}
		status, _ := fieldString(raw, "status")
		activeForm, _ := fieldString(raw, "activeForm")
		id := "todo-" + strconv.Itoa(i)
		t := &TrackedTask{
			ID:         id,
			Subject:    content,
			Status:     mapTodoStatus(status),
			ActiveForm: activeForm,
			CreatedAt:  e.Timestamp,
			UpdatedAt:  e.Timestamp,
		}
		newTasks[id] = t
		entries = append(entries, todoEntry{id: id, text: content})
		if t.Status == TaskInProgress {
			a.activeTaskID = id
		}
	}

	if wasActiveSubagent == nil {
		a.activeTaskID = ""
		for _, t := range newTasks {
			if t.Status == TaskInProgress {
				a.activeTaskID = t.ID
			}
		}
	}

	// Second pass: resolve blocking references by case-insensitive substring
	// match of referenced todo text against other todos' text.
	for _, entry := range entries {
		m := blockingReferenceRe.FindStringSubmatch(entry.text)
		if len(m) != 2 {
			continue
		}
		ref := strings.ToLower(strings.TrimRight(m[1], ").,;"))
		for _, other := range entries {
			if other.id == entry.id {
				continue
			}
			if strings.Contains(strings.ToLower(other.text), ref) || strings.Contains(ref, strings.ToLower(other.text)) {
				newTasks[entry.id].BlockedBy = appendUnique(newTasks[entry.id].BlockedBy, other.id)
				newTasks[other.id].Blocks = appendUnique(newTasks[other.id].Blocks, entry.id)
			}
		}
	}

	a.tasks = newTasks
	for _, t := range a.tasks {
		a.recomputeGoalGate(t)
	}
	d.TaskChanged = true
}

func mapTodoStatus(s string) TaskStatus {
	switch s {
	case "in_progress", "in-progress":
		return TaskInProgress
	case "completed", "done":
		return TaskCompleted
	default:
		return TaskPending
	}
}

// recomputeGoalGate re-derives IsGoalGate after every mutation.
func (a *Aggregator) recomputeGoalGate(t *TrackedTask) {
	if goalGateKeywords.MatchString(t.Subject) || goalGateKeywords.MatchString(t.Description) {
		t.IsGoalGate = true
		return
	}
	t.IsGoalGate = len(t.Blocks) >= GoalGateBlocksThreshold
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

// Tasks returns an independent copy of the tracked task set, keyed by id.
func (a *Aggregator) Tasks() map[string]TrackedTask {
	out := make(map[string]TrackedTask, len(a.tasks))
	for k, v := range a.tasks {
		out[k] = *v
	}
	return out
}

// ActiveTaskID returns the id of the in-progress task, or "".
func (a *Aggregator) ActiveTaskID() string { return a.activeTaskID }

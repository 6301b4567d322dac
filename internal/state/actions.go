package state

import "focustodo/internal/models"

// Action is a state transition request handled by Reduce.
type Action interface {
	actionName() string
}

type (
	// AddTask prepends a new task to the active list.
	AddTask struct{ Task models.Task }
	// CompleteTask moves an active task to the completed list.
	CompleteTask struct{ ID string }
	// ActivateTask moves a completed task back to the active list.
	ActivateTask struct{ ID string }
	// DeleteTask removes a task and holds it for undo.
	DeleteTask struct{ ID string }
	// UndoDelete restores the pending deleted task.
	UndoDelete struct{}
	// PermanentlyDelete drops the pending deleted task. When TaskID is set
	// the notification is only cleared if it still holds that task.
	PermanentlyDelete struct{ TaskID string }
	// LoadTasks replaces both task lists.
	LoadTasks struct{ Tasks []models.Task }
	// LoadSessions replaces the archived session log.
	LoadSessions struct{ Sessions []models.TimerSession }
	// UpdateTask merges the set fields of Patch into a task.
	UpdateTask struct {
		ID    string
		Patch TaskPatch
	}

	StartTimer struct {
		TaskID   string
		Mode     models.TimerMode
		Duration int64
	}
	PauseTimer  struct{}
	ResumeTimer struct{}
	// StopTimer archives the active session with the elapsed Duration (ms).
	// When TaskID is set the stop only applies to the session that task
	// started at StartedAt.
	StopTimer struct {
		Duration  int64
		TaskID    string
		StartedAt int64
	}

	AddSubtask struct {
		TaskID  string
		Subtask models.Subtask
	}
	UpdateSubtask struct {
		TaskID    string
		SubtaskID string
		Patch     SubtaskPatch
	}
	DeleteSubtask struct {
		TaskID    string
		SubtaskID string
	}
	ToggleSubtask struct {
		TaskID    string
		SubtaskID string
	}
	AddSubtaskImage struct {
		TaskID    string
		SubtaskID string
		Image     models.SubtaskImage
	}
	DeleteSubtaskImage struct {
		TaskID    string
		SubtaskID string
		ImageID   string
	}
)

// TaskPatch lists the task fields UpdateTask may change. Nil means "leave as
// is"; a Clear flag unsets the optional field and loses to a value set in the
// same patch.
type TaskPatch struct {
	Description           *string          `json:"description,omitempty"`
	DueDate               *int64           `json:"dueDate,omitempty"`
	ClearDueDate          bool             `json:"clearDueDate,omitempty"`
	EstimatedMinutes      *int             `json:"estimatedMinutes,omitempty"`
	ClearEstimatedMinutes bool             `json:"clearEstimatedMinutes,omitempty"`
	ActualMinutes         *int             `json:"actualMinutes,omitempty"`
	ClearActualMinutes    bool             `json:"clearActualMinutes,omitempty"`
	Priority              *models.Priority `json:"priority,omitempty"`
	ClearPriority         bool             `json:"clearPriority,omitempty"`
	Tags                  []string         `json:"tags,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p TaskPatch) IsZero() bool {
	return p.Description == nil && p.DueDate == nil && !p.ClearDueDate &&
		p.EstimatedMinutes == nil && !p.ClearEstimatedMinutes &&
		p.ActualMinutes == nil && !p.ClearActualMinutes &&
		p.Priority == nil && !p.ClearPriority && p.Tags == nil
}

// SubtaskPatch lists the subtask fields UpdateSubtask may change.
type SubtaskPatch struct {
	Description  *string          `json:"description,omitempty"`
	Completed    *bool            `json:"completed,omitempty"`
	Priority     *models.Priority `json:"priority,omitempty"`
	DueDate      *int64           `json:"dueDate,omitempty"`
	ClearDueDate bool             `json:"clearDueDate,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
}

func (AddTask) actionName() string            { return "add_task" }
func (CompleteTask) actionName() string       { return "complete_task" }
func (ActivateTask) actionName() string       { return "activate_task" }
func (DeleteTask) actionName() string         { return "delete_task" }
func (UndoDelete) actionName() string         { return "undo_delete" }
func (PermanentlyDelete) actionName() string  { return "permanently_delete" }
func (LoadTasks) actionName() string          { return "load_tasks" }
func (LoadSessions) actionName() string       { return "load_sessions" }
func (UpdateTask) actionName() string         { return "update_task" }
func (StartTimer) actionName() string         { return "start_timer" }
func (PauseTimer) actionName() string         { return "pause_timer" }
func (ResumeTimer) actionName() string        { return "resume_timer" }
func (StopTimer) actionName() string          { return "stop_timer" }
func (AddSubtask) actionName() string         { return "add_subtask" }
func (UpdateSubtask) actionName() string      { return "update_subtask" }
func (DeleteSubtask) actionName() string      { return "delete_subtask" }
func (ToggleSubtask) actionName() string      { return "toggle_subtask" }
func (AddSubtaskImage) actionName() string    { return "add_subtask_image" }
func (DeleteSubtaskImage) actionName() string { return "delete_subtask_image" }

// Name returns a stable identifier for an action, used in logs.
func Name(a Action) string {
	if a == nil {
		return "nil"
	}
	return a.actionName()
}

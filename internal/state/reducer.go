// Package state owns the in-memory task lists, the timer session and the
// pending undo, and applies actions to them.
package state

import (
	"cmp"
	"slices"

	"focustodo/internal/migrate"
	"focustodo/internal/models"
)

// UndoNotification holds the most recently deleted task. The task's
// Completed flag records which list it came from.
type UndoNotification struct {
	Task    models.Task `json:"todo"`
	Visible bool        `json:"visible"`
}

// State is an immutable snapshot. Both task lists are newest first and a
// task id appears in at most one of them. Reduce never mutates the slices
// of a State it was given, so snapshots may be shared freely; callers must
// treat them as read-only.
type State struct {
	Active    []models.Task         `json:"activeTodos"`
	Completed []models.Task         `json:"completedTodos"`
	Undo      *UndoNotification     `json:"undoNotification"`
	Timer     models.TimerState     `json:"timer"`
	Sessions  []models.TimerSession `json:"timerSessions"`

	// TasksRev and SessionsRev increase whenever the task lists or the
	// session log change.
	TasksRev    uint64 `json:"-"`
	SessionsRev uint64 `json:"-"`
}

// Initial returns the empty state.
func Initial() State {
	return State{
		Active:    []models.Task{},
		Completed: []models.Task{},
		Timer:     models.TimerState{Mode: models.TimerFree},
		Sessions:  []models.TimerSession{},
	}
}

// AllTasks returns active tasks followed by completed tasks.
func (s State) AllTasks() []models.Task {
	all := make([]models.Task, 0, len(s.Active)+len(s.Completed))
	all = append(all, s.Active...)
	return append(all, s.Completed...)
}

// FindTask looks a task up in either list.
func (s State) FindTask(id string) (models.Task, bool) {
	if i := indexOf(s.Active, id); i >= 0 {
		return s.Active[i], true
	}
	if i := indexOf(s.Completed, id); i >= 0 {
		return s.Completed[i], true
	}
	return models.Task{}, false
}

// Reduce applies a to s at time now (epoch ms) and returns the new state.
// Actions that target a missing task, subtask or image return s unchanged.
func Reduce(s State, a Action, now int64) State {
	switch a := a.(type) {
	case AddTask:
		if a.Task.ID == "" || s.has(a.Task.ID) {
			return s
		}
		t := migrate.Normalize(a.Task.Clone())
		t.Completed = false
		t.CompletedAt = nil
		s.Active = prepend(t, s.Active)
		s.TasksRev++

	case CompleteTask:
		i := indexOf(s.Active, a.ID)
		if i < 0 {
			return s
		}
		done := completeTask(s.Active[i], now)
		s.Active = without(s.Active, i)
		s.Completed = prepend(done, s.Completed)
		s.TasksRev++

	case ActivateTask:
		i := indexOf(s.Completed, a.ID)
		if i < 0 {
			return s
		}
		t := s.Completed[i].Clone()
		t.Completed = false
		t.CompletedAt = nil
		s.Completed = without(s.Completed, i)
		s.Active = prepend(t, s.Active)
		s.TasksRev++

	case DeleteTask:
		var removed models.Task
		if i := indexOf(s.Active, a.ID); i >= 0 {
			removed = s.Active[i]
			s.Active = without(s.Active, i)
		} else if i := indexOf(s.Completed, a.ID); i >= 0 {
			removed = s.Completed[i]
			s.Completed = without(s.Completed, i)
		} else {
			return s
		}
		s.Undo = &UndoNotification{Task: removed, Visible: true}
		s.TasksRev++

	case UndoDelete:
		if s.Undo == nil {
			return s
		}
		t := s.Undo.Task
		s.Undo = nil
		if s.has(t.ID) {
			return s
		}
		if t.Completed {
			s.Completed = prepend(t, s.Completed)
		} else {
			s.Active = prepend(t, s.Active)
		}
		s.TasksRev++

	case PermanentlyDelete:
		if s.Undo == nil {
			return s
		}
		if a.TaskID != "" && s.Undo.Task.ID != a.TaskID {
			return s
		}
		s.Undo = nil

	case LoadTasks:
		s.Active, s.Completed = partition(a.Tasks)
		s.TasksRev++

	case LoadSessions:
		s.Sessions = append([]models.TimerSession{}, a.Sessions...)
		s.SessionsRev++

	case UpdateTask:
		return s.updateTask(a.ID, func(t *models.Task) bool {
			applyTaskPatch(t, a.Patch)
			return true
		})

	case StartTimer:
		return startTimer(s, a, now)

	case PauseTimer:
		if s.Timer.Active == nil || s.Timer.Paused {
			return s
		}
		s.Timer.PausedTime += max(0, now-s.Timer.Active.StartTime)
		s.Timer.Paused = true

	case ResumeTimer:
		if s.Timer.Active == nil || !s.Timer.Paused {
			return s
		}
		session := *s.Timer.Active
		session.StartTime = now
		s.Timer.Active = &session
		s.Timer.Paused = false

	case StopTimer:
		if s.Timer.Active == nil {
			return s
		}
		if a.TaskID != "" && (s.Timer.Active.TaskID != a.TaskID || s.Timer.Active.StartedAt != a.StartedAt) {
			return s
		}
		s = archiveSession(s, max(0, a.Duration), now)

	case AddSubtask:
		if a.Subtask.ID == "" {
			return s
		}
		return s.updateTask(a.TaskID, func(t *models.Task) bool {
			if indexOfSubtask(t.Subtasks, a.Subtask.ID) >= 0 {
				return false
			}
			st := a.Subtask.Clone()
			if st.Images == nil {
				st.Images = []models.SubtaskImage{}
			}
			t.Subtasks = append(t.Subtasks, st)
			return true
		})

	case UpdateSubtask:
		return s.updateSubtask(a.TaskID, a.SubtaskID, func(st *models.Subtask) bool {
			applySubtaskPatch(st, a.Patch)
			return true
		})

	case DeleteSubtask:
		return s.updateTask(a.TaskID, func(t *models.Task) bool {
			j := indexOfSubtask(t.Subtasks, a.SubtaskID)
			if j < 0 {
				return false
			}
			t.Subtasks = slices.Delete(t.Subtasks, j, j+1)
			return true
		})

	case ToggleSubtask:
		return toggleSubtask(s, a, now)

	case AddSubtaskImage:
		if a.Image.ID == "" {
			return s
		}
		return s.updateSubtask(a.TaskID, a.SubtaskID, func(st *models.Subtask) bool {
			if slices.ContainsFunc(st.Images, func(img models.SubtaskImage) bool { return img.ID == a.Image.ID }) {
				return false
			}
			st.Images = append(st.Images, a.Image)
			return true
		})

	case DeleteSubtaskImage:
		return s.updateSubtask(a.TaskID, a.SubtaskID, func(st *models.Subtask) bool {
			n := len(st.Images)
			st.Images = slices.DeleteFunc(st.Images, func(img models.SubtaskImage) bool { return img.ID == a.ImageID })
			return len(st.Images) != n
		})

	default:
		return s
	}
	return s
}

// completeTask marks t and all of its subtasks completed.
func completeTask(t models.Task, now int64) models.Task {
	done := t.Clone()
	done.Completed = true
	at := now
	done.CompletedAt = &at
	for i := range done.Subtasks {
		done.Subtasks[i].Completed = true
	}
	if done.Subtasks == nil {
		done.Subtasks = []models.Subtask{}
	}
	return done
}

func toggleSubtask(s State, a ToggleSubtask, now int64) State {
	inActive := true
	i := indexOf(s.Active, a.TaskID)
	if i < 0 {
		inActive = false
		if i = indexOf(s.Completed, a.TaskID); i < 0 {
			return s
		}
	}
	list := s.Active
	if !inActive {
		list = s.Completed
	}

	t := list[i].Clone()
	j := indexOfSubtask(t.Subtasks, a.SubtaskID)
	if j < 0 {
		return s
	}
	t.Subtasks[j].Completed = !t.Subtasks[j].Completed

	if inActive && t.Subtasks[j].Completed && !t.Completed && t.AllSubtasksCompleted() {
		s.Active = without(s.Active, i)
		s.Completed = prepend(completeTask(t, now), s.Completed)
		s.TasksRev++
		return s
	}

	if inActive {
		s.Active = replaced(s.Active, i, t)
	} else {
		s.Completed = replaced(s.Completed, i, t)
	}
	s.TasksRev++
	return s
}

func startTimer(s State, a StartTimer, now int64) State {
	if a.TaskID == "" {
		return s
	}
	if s.Timer.Active != nil {
		s = archiveSession(s, s.Timer.Elapsed(now), now)
	}

	mode := a.Mode
	duration := a.Duration
	switch mode {
	case models.TimerFree:
		duration = 0
	default:
		mode = models.TimerPomodoro
		if duration <= 0 {
			duration = models.DefaultPomodoroMillis
		}
	}

	s.Timer = models.TimerState{
		Active: &models.ActiveSession{
			TaskID:    a.TaskID,
			StartedAt: now,
			StartTime: now,
			Duration:  duration,
			Mode:      mode,
		},
		Mode: mode,
	}
	return s
}

// archiveSession appends the active session to the log and resets the timer.
func archiveSession(s State, elapsed, now int64) State {
	active := s.Timer.Active
	record := models.TimerSession{
		TaskID:    active.TaskID,
		StartTime: active.StartedAt,
		EndTime:   now,
		Duration:  elapsed,
		Mode:      active.Mode,
	}
	sessions := make([]models.TimerSession, 0, len(s.Sessions)+1)
	sessions = append(sessions, s.Sessions...)
	s.Sessions = append(sessions, record)
	s.SessionsRev++
	s.Timer = models.TimerState{Mode: models.TimerFree}
	return s
}

func applyTaskPatch(t *models.Task, p TaskPatch) {
	if p.Description != nil {
		if desc, err := models.NormalizeDescription(*p.Description); err == nil {
			t.Description = desc
		}
	}
	if p.ClearDueDate {
		t.DueDate = nil
	}
	if p.DueDate != nil {
		v := *p.DueDate
		t.DueDate = &v
	}
	if p.ClearEstimatedMinutes {
		t.EstimatedMinutes = nil
	}
	if p.EstimatedMinutes != nil {
		v := *p.EstimatedMinutes
		t.EstimatedMinutes = &v
	}
	if p.ClearActualMinutes {
		t.ActualMinutes = nil
	}
	if p.ActualMinutes != nil {
		v := *p.ActualMinutes
		t.ActualMinutes = &v
	}
	if p.ClearPriority {
		t.Priority = ""
	}
	if p.Priority != nil {
		if _, ok := models.ValidPriorities[*p.Priority]; ok {
			t.Priority = *p.Priority
		}
	}
	if p.Tags != nil {
		t.Tags = append([]string{}, p.Tags...)
	}
}

func applySubtaskPatch(st *models.Subtask, p SubtaskPatch) {
	if p.Description != nil {
		if desc, err := models.NormalizeDescription(*p.Description); err == nil {
			st.Description = desc
		}
	}
	if p.Completed != nil {
		st.Completed = *p.Completed
	}
	if p.Priority != nil {
		if _, ok := models.ValidPriorities[*p.Priority]; ok {
			st.Priority = *p.Priority
		}
	}
	if p.ClearDueDate {
		st.DueDate = nil
	}
	if p.DueDate != nil {
		v := *p.DueDate
		st.DueDate = &v
	}
	if p.Notes != nil && models.ValidateNotes(*p.Notes) == nil {
		st.Notes = *p.Notes
	}
}

// updateTask applies fn to a copy of the task with the given id, wherever
// it lives. fn reports whether it changed anything.
func (s State) updateTask(id string, fn func(t *models.Task) bool) State {
	if i := indexOf(s.Active, id); i >= 0 {
		t := s.Active[i].Clone()
		if !fn(&t) {
			return s
		}
		s.Active = replaced(s.Active, i, t)
		s.TasksRev++
		return s
	}
	if i := indexOf(s.Completed, id); i >= 0 {
		t := s.Completed[i].Clone()
		if !fn(&t) {
			return s
		}
		s.Completed = replaced(s.Completed, i, t)
		s.TasksRev++
	}
	return s
}

func (s State) updateSubtask(taskID, subtaskID string, fn func(st *models.Subtask) bool) State {
	return s.updateTask(taskID, func(t *models.Task) bool {
		j := indexOfSubtask(t.Subtasks, subtaskID)
		if j < 0 {
			return false
		}
		return fn(&t.Subtasks[j])
	})
}

func (s State) has(id string) bool {
	return indexOf(s.Active, id) >= 0 || indexOf(s.Completed, id) >= 0
}

// partition splits tasks by completion, each side newest first. Ties keep
// their input order; later duplicates of an id are dropped.
func partition(tasks []models.Task) (active, completed []models.Task) {
	active = []models.Task{}
	completed = []models.Task{}
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		t = migrate.Normalize(t.Clone())
		if t.Completed {
			completed = append(completed, t)
		} else {
			active = append(active, t)
		}
	}
	newestFirst := func(a, b models.Task) int { return cmp.Compare(b.CreatedAt, a.CreatedAt) }
	slices.SortStableFunc(active, newestFirst)
	slices.SortStableFunc(completed, newestFirst)
	return active, completed
}

func indexOf(tasks []models.Task, id string) int {
	return slices.IndexFunc(tasks, func(t models.Task) bool { return t.ID == id })
}

func indexOfSubtask(subtasks []models.Subtask, id string) int {
	return slices.IndexFunc(subtasks, func(st models.Subtask) bool { return st.ID == id })
}

func prepend(t models.Task, tasks []models.Task) []models.Task {
	out := make([]models.Task, 0, len(tasks)+1)
	out = append(out, t)
	return append(out, tasks...)
}

func without(tasks []models.Task, i int) []models.Task {
	out := make([]models.Task, 0, len(tasks)-1)
	out = append(out, tasks[:i]...)
	return append(out, tasks[i+1:]...)
}

func replaced(tasks []models.Task, i int, t models.Task) []models.Task {
	out := slices.Clone(tasks)
	out[i] = t
	return out
}

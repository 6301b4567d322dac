package state

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"focustodo/internal/models"
)

func task(id string, createdAt int64) models.Task {
	t, err := models.NewTask(id, "task "+id, createdAt)
	if err != nil {
		panic(err)
	}
	return t
}

func taskWithSubtasks(id string, createdAt int64, subtaskIDs ...string) models.Task {
	t := task(id, createdAt)
	for _, sid := range subtaskIDs {
		st, err := models.NewSubtask(sid, "sub "+sid, createdAt+1)
		if err != nil {
			panic(err)
		}
		t.Subtasks = append(t.Subtasks, st)
	}
	return t
}

func ids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func reduceAll(s State, now int64, actions ...Action) State {
	for _, a := range actions {
		s = Reduce(s, a, now)
	}
	return s
}

func TestScenarioAddCompleteDeleteUndo(t *testing.T) {
	s := Initial()
	s = Reduce(s, AddTask{Task: task("A", 1000)}, 1000)
	s = Reduce(s, AddTask{Task: task("B", 2000)}, 2000)
	if got := ids(s.Active); !reflect.DeepEqual(got, []string{"B", "A"}) {
		t.Fatalf("expected active [B A], got %v", got)
	}

	s = Reduce(s, CompleteTask{ID: "B"}, 3000)
	if !reflect.DeepEqual(ids(s.Active), []string{"A"}) || !reflect.DeepEqual(ids(s.Completed), []string{"B"}) {
		t.Fatalf("after complete: active=%v completed=%v", ids(s.Active), ids(s.Completed))
	}

	s = Reduce(s, DeleteTask{ID: "A"}, 4000)
	if len(s.Active) != 0 || s.Undo == nil || s.Undo.Task.ID != "A" || !s.Undo.Visible {
		t.Fatalf("after delete: active=%v undo=%+v", ids(s.Active), s.Undo)
	}

	s = Reduce(s, UndoDelete{}, 5000)
	if !reflect.DeepEqual(ids(s.Active), []string{"A"}) || s.Undo != nil {
		t.Fatalf("after undo: active=%v undo=%+v", ids(s.Active), s.Undo)
	}
}

func TestAddTask(t *testing.T) {
	t.Run("forces active membership", func(t *testing.T) {
		in := task("A", 1)
		in.Completed = true
		s := Reduce(Initial(), AddTask{Task: in}, 1)
		if len(s.Active) != 1 || s.Active[0].Completed {
			t.Errorf("expected an active, not completed task, got %+v", s.Active)
		}
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		s := reduceAll(Initial(), 1, AddTask{Task: task("A", 1)}, CompleteTask{ID: "A"})
		before := s
		s = Reduce(s, AddTask{Task: task("A", 2)}, 2)
		if !reflect.DeepEqual(s, before) {
			t.Error("expected duplicate add to be a no-op")
		}
	})

	t.Run("rejects empty id", func(t *testing.T) {
		s := Reduce(Initial(), AddTask{Task: models.Task{Description: "x"}}, 1)
		if len(s.Active) != 0 {
			t.Error("expected task without id to be ignored")
		}
	})
}

func TestCompleteCascadesToSubtasks(t *testing.T) {
	s := Reduce(Initial(), AddTask{Task: taskWithSubtasks("A", 1, "s1", "s2", "s3")}, 1)
	s = Reduce(s, CompleteTask{ID: "A"}, 500)

	done := s.Completed[0]
	if !done.Completed || done.CompletedAt == nil || *done.CompletedAt != 500 {
		t.Fatalf("expected completed task with completedAt=500, got %+v", done)
	}
	for _, st := range done.Subtasks {
		if !st.Completed {
			t.Errorf("subtask %s not completed", st.ID)
		}
	}

	s = Reduce(s, ActivateTask{ID: "A"}, 600)
	active := s.Active[0]
	if active.Completed || active.CompletedAt != nil {
		t.Errorf("expected reactivated task, got %+v", active)
	}
	for _, st := range active.Subtasks {
		if !st.Completed {
			t.Errorf("reactivation must not reopen subtask %s", st.ID)
		}
	}
}

func TestMissingTargetsAreNoOps(t *testing.T) {
	base := reduceAll(Initial(), 1,
		AddTask{Task: taskWithSubtasks("A", 1, "s1")},
		AddTask{Task: task("B", 2)},
		CompleteTask{ID: "B"},
	)
	actions := []Action{
		CompleteTask{ID: "missing"},
		CompleteTask{ID: "B"},
		ActivateTask{ID: "A"},
		ActivateTask{ID: "missing"},
		DeleteTask{ID: "missing"},
		UndoDelete{},
		PermanentlyDelete{},
		UpdateTask{ID: "missing", Patch: TaskPatch{Tags: []string{"x"}}},
		AddSubtask{TaskID: "missing", Subtask: models.Subtask{ID: "z"}},
		AddSubtask{TaskID: "A", Subtask: models.Subtask{ID: "s1"}},
		UpdateSubtask{TaskID: "A", SubtaskID: "missing"},
		DeleteSubtask{TaskID: "A", SubtaskID: "missing"},
		ToggleSubtask{TaskID: "A", SubtaskID: "missing"},
		ToggleSubtask{TaskID: "missing", SubtaskID: "s1"},
		AddSubtaskImage{TaskID: "A", SubtaskID: "missing", Image: models.SubtaskImage{ID: "i"}},
		DeleteSubtaskImage{TaskID: "A", SubtaskID: "s1", ImageID: "missing"},
		PauseTimer{},
		ResumeTimer{},
		StopTimer{Duration: 10},
		StartTimer{TaskID: ""},
	}
	for _, a := range actions {
		t.Run(fmt.Sprintf("%s %+v", Name(a), a), func(t *testing.T) {
			got := Reduce(base, a, 99)
			if !reflect.DeepEqual(got, base) {
				t.Errorf("expected unchanged state, got %+v", got)
			}
		})
	}
}

func TestDeleteReplacesPendingUndo(t *testing.T) {
	s := reduceAll(Initial(), 1,
		AddTask{Task: task("A", 1)},
		AddTask{Task: task("B", 2)},
		DeleteTask{ID: "A"},
		DeleteTask{ID: "B"},
	)
	if s.Undo == nil || s.Undo.Task.ID != "B" {
		t.Fatalf("expected B pending, got %+v", s.Undo)
	}
	s = Reduce(s, UndoDelete{}, 3)
	if !reflect.DeepEqual(ids(s.Active), []string{"B"}) {
		t.Errorf("expected only B restored, got %v", ids(s.Active))
	}
	if _, ok := s.FindTask("A"); ok {
		t.Error("A should no longer be recoverable")
	}
}

func TestUndoRestoresCompletedTaskToFront(t *testing.T) {
	s := reduceAll(Initial(), 1,
		AddTask{Task: taskWithSubtasks("A", 1, "s1")},
		AddTask{Task: task("B", 2)},
		AddTask{Task: task("C", 3)},
		CompleteTask{ID: "A"},
		CompleteTask{ID: "B"},
	)
	deleted := s.Completed[1]
	s = Reduce(s, DeleteTask{ID: "A"}, 4)
	s = Reduce(s, UndoDelete{}, 5)

	if !reflect.DeepEqual(ids(s.Completed), []string{"A", "B"}) {
		t.Errorf("expected A restored at front of completed, got %v", ids(s.Completed))
	}
	if !reflect.DeepEqual(s.Completed[0], deleted) {
		t.Errorf("restored task differs:\n got %+v\nwant %+v", s.Completed[0], deleted)
	}
	if !reflect.DeepEqual(ids(s.Active), []string{"C"}) {
		t.Errorf("active list changed: %v", ids(s.Active))
	}
}

func TestPermanentlyDelete(t *testing.T) {
	s := reduceAll(Initial(), 1, AddTask{Task: task("A", 1)}, DeleteTask{ID: "A"})

	if got := Reduce(s, PermanentlyDelete{TaskID: "other"}, 2); got.Undo == nil {
		t.Error("expiry for another task must not clear the notification")
	}
	s = Reduce(s, PermanentlyDelete{TaskID: "A"}, 2)
	if s.Undo != nil || len(s.Active) != 0 {
		t.Errorf("expected notification cleared without restore, got %+v", s)
	}
	if got := Reduce(s, UndoDelete{}, 3); len(got.Active) != 0 {
		t.Error("undo after permanent delete must do nothing")
	}
}

func TestLoadTasksPartitionsAndSorts(t *testing.T) {
	a := task("a", 100)
	b := task("b", 300)
	c := task("c", 200)
	c.Completed = true
	d := task("d", 300)
	e := task("e", 50)
	e.Completed = true

	s := Reduce(Initial(), LoadTasks{Tasks: []models.Task{a, b, c, d, e, a}}, 1)

	if got := ids(s.Active); !reflect.DeepEqual(got, []string{"b", "d", "a"}) {
		t.Errorf("expected stable newest-first active [b d a], got %v", got)
	}
	if got := ids(s.Completed); !reflect.DeepEqual(got, []string{"c", "e"}) {
		t.Errorf("expected completed [c e], got %v", got)
	}
}

func TestUpdateTask(t *testing.T) {
	s := reduceAll(Initial(), 1, AddTask{Task: task("A", 1)}, AddTask{Task: task("B", 2)}, CompleteTask{ID: "B"})
	due := int64(777)
	high := models.PriorityHigh
	bad := models.Priority("urgent")
	blank := "   "
	est := 45

	s = Reduce(s, UpdateTask{ID: "B", Patch: TaskPatch{DueDate: &due, Priority: &high, Tags: []string{"x"}, EstimatedMinutes: &est}}, 3)
	got, _ := s.FindTask("B")
	if got.DueDate == nil || *got.DueDate != 777 || got.Priority != high || got.Tags[0] != "x" || *got.EstimatedMinutes != 45 {
		t.Errorf("patch not applied to completed task: %+v", got)
	}
	if !got.Completed {
		t.Error("update must not change completion")
	}

	s = Reduce(s, UpdateTask{ID: "B", Patch: TaskPatch{Description: &blank, Priority: &bad, ClearDueDate: true}}, 4)
	got, _ = s.FindTask("B")
	if got.Description != "task B" || got.Priority != high || got.DueDate != nil {
		t.Errorf("expected invalid fields ignored and due date cleared, got %+v", got)
	}

	unset := TaskPatch{ClearEstimatedMinutes: true, ClearActualMinutes: true, ClearPriority: true}
	if unset.IsZero() {
		t.Fatal("a patch with clear flags is not empty")
	}
	s = Reduce(s, UpdateTask{ID: "B", Patch: unset}, 5)
	got, _ = s.FindTask("B")
	if got.EstimatedMinutes != nil || got.ActualMinutes != nil || got.Priority != "" {
		t.Errorf("expected optional fields cleared, got %+v", got)
	}

	low := models.PriorityLow
	s = Reduce(s, UpdateTask{ID: "B", Patch: TaskPatch{ClearPriority: true, Priority: &low}}, 6)
	if got, _ = s.FindTask("B"); got.Priority != low {
		t.Errorf("expected a set value to win over clear, got %q", got.Priority)
	}
}

func TestToggleSubtaskCascade(t *testing.T) {
	t.Run("last subtask closes active parent", func(t *testing.T) {
		s := reduceAll(Initial(), 1,
			AddTask{Task: taskWithSubtasks("A", 1, "s1", "s2")},
			ToggleSubtask{TaskID: "A", SubtaskID: "s1"},
		)
		if len(s.Active) != 1 {
			t.Fatal("parent closed too early")
		}
		s = Reduce(s, ToggleSubtask{TaskID: "A", SubtaskID: "s2"}, 900)
		if len(s.Active) != 0 || len(s.Completed) != 1 {
			t.Fatalf("expected parent moved to completed, active=%v completed=%v", ids(s.Active), ids(s.Completed))
		}
		parent := s.Completed[0]
		if !parent.Completed || parent.CompletedAt == nil || *parent.CompletedAt != 900 {
			t.Errorf("expected completed parent with timestamp, got %+v", parent)
		}
	})

	t.Run("untoggle after closure does not reopen parent", func(t *testing.T) {
		s := reduceAll(Initial(), 1,
			AddTask{Task: taskWithSubtasks("A", 1, "s1")},
			ToggleSubtask{TaskID: "A", SubtaskID: "s1"},
			ToggleSubtask{TaskID: "A", SubtaskID: "s1"},
		)
		if len(s.Completed) != 1 || s.Completed[0].Subtasks[0].Completed {
			t.Errorf("expected parent to stay completed with subtask reopened, got %+v", s.Completed)
		}
	})

	t.Run("unchecking in active parent only flips subtask", func(t *testing.T) {
		s := reduceAll(Initial(), 1,
			AddTask{Task: taskWithSubtasks("A", 1, "s1", "s2")},
			UpdateSubtask{TaskID: "A", SubtaskID: "s1", Patch: SubtaskPatch{Completed: ptrBool(true)}},
			UpdateSubtask{TaskID: "A", SubtaskID: "s2", Patch: SubtaskPatch{Completed: ptrBool(true)}},
		)
		if len(s.Active) != 1 {
			t.Fatal("update subtask must not cascade")
		}
		s = Reduce(s, ToggleSubtask{TaskID: "A", SubtaskID: "s2"}, 2)
		if len(s.Active) != 1 || s.Active[0].Subtasks[1].Completed {
			t.Errorf("expected only s2 reopened, got %+v", s.Active)
		}
	})
}

func TestSubtaskLifecycle(t *testing.T) {
	s := Reduce(Initial(), AddTask{Task: task("A", 1)}, 1)
	st, _ := models.NewSubtask("s1", "first", 2)
	st2, _ := models.NewSubtask("s2", "second", 3)
	s = reduceAll(s, 2, AddSubtask{TaskID: "A", Subtask: st}, AddSubtask{TaskID: "A", Subtask: st2})

	got, _ := s.FindTask("A")
	if len(got.Subtasks) != 2 || got.Subtasks[0].ID != "s1" {
		t.Fatalf("expected subtasks in insertion order, got %+v", got.Subtasks)
	}

	notes := "remember"
	s = Reduce(s, UpdateSubtask{TaskID: "A", SubtaskID: "s2", Patch: SubtaskPatch{Notes: &notes}}, 4)
	img := models.SubtaskImage{ID: "i1", Data: "aGk=", Name: "a.png", Size: 3, CompressedSize: 2, UploadedAt: 5}
	s = Reduce(s, AddSubtaskImage{TaskID: "A", SubtaskID: "s2", Image: img}, 5)
	s = Reduce(s, AddSubtaskImage{TaskID: "A", SubtaskID: "s2", Image: img}, 5)

	got, _ = s.FindTask("A")
	if got.Subtasks[1].Notes != "remember" || len(got.Subtasks[1].Images) != 1 {
		t.Fatalf("expected notes and one image, got %+v", got.Subtasks[1])
	}

	s = Reduce(s, DeleteSubtaskImage{TaskID: "A", SubtaskID: "s2", ImageID: "i1"}, 6)
	s = Reduce(s, DeleteSubtask{TaskID: "A", SubtaskID: "s1"}, 7)
	got, _ = s.FindTask("A")
	if len(got.Subtasks) != 1 || got.Subtasks[0].ID != "s2" || len(got.Subtasks[0].Images) != 0 {
		t.Errorf("unexpected subtasks after deletes: %+v", got.Subtasks)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := reduceAll(Initial(), 1, AddTask{Task: taskWithSubtasks("A", 1, "s1", "s2")}, AddTask{Task: task("B", 2)})
	snapshot := reduceAll(Initial(), 1, AddTask{Task: taskWithSubtasks("A", 1, "s1", "s2")}, AddTask{Task: task("B", 2)})

	img := models.SubtaskImage{ID: "i"}
	_ = reduceAll(s, 5,
		ToggleSubtask{TaskID: "A", SubtaskID: "s1"},
		AddSubtaskImage{TaskID: "A", SubtaskID: "s2", Image: img},
		UpdateTask{ID: "B", Patch: TaskPatch{Tags: []string{"t"}}},
		CompleteTask{ID: "A"},
		DeleteTask{ID: "B"},
	)
	if !reflect.DeepEqual(s, snapshot) {
		t.Error("Reduce mutated a prior snapshot")
	}
}

func TestTimerTransitions(t *testing.T) {
	s := Reduce(Initial(), AddTask{Task: task("A", 1)}, 1)

	s = Reduce(s, StartTimer{TaskID: "A", Mode: models.TimerPomodoro, Duration: 25 * 60 * 1000}, 10_000)
	if got := s.Timer.Remaining(10_000); got != 1_500_000 {
		t.Fatalf("expected 1,500,000 remaining, got %d", got)
	}

	s = Reduce(s, PauseTimer{}, 20_000)
	if !s.Timer.Paused || s.Timer.PausedTime != 10_000 {
		t.Fatalf("expected paused with 10s accumulated, got %+v", s.Timer)
	}
	if again := Reduce(s, PauseTimer{}, 30_000); !reflect.DeepEqual(again, s) {
		t.Error("pausing twice must be a no-op")
	}

	s = Reduce(s, ResumeTimer{}, 500_000)
	if got := s.Timer.Remaining(500_000); got != 1_490_000 {
		t.Errorf("expected 1,490,000 remaining after resume, got %d", got)
	}

	s = Reduce(s, StopTimer{Duration: 15_000}, 505_000)
	if s.Timer.Active != nil || s.Timer.Paused || s.Timer.PausedTime != 0 || s.Timer.Mode != models.TimerFree {
		t.Errorf("expected timer reset, got %+v", s.Timer)
	}
	want := models.TimerSession{TaskID: "A", StartTime: 10_000, EndTime: 505_000, Duration: 15_000, Mode: models.TimerPomodoro}
	if len(s.Sessions) != 1 || s.Sessions[0] != want {
		t.Errorf("unexpected session log %+v", s.Sessions)
	}
}

func TestStopTimerTargetsSession(t *testing.T) {
	s := Reduce(Initial(), StartTimer{TaskID: "A", Mode: models.TimerPomodoro, Duration: 60_000}, 1000)
	s = Reduce(s, StartTimer{TaskID: "B", Mode: models.TimerFree}, 61_000)

	stale := []StopTimer{
		{Duration: 60_000, TaskID: "A", StartedAt: 1000},
		{Duration: 60_000, TaskID: "B", StartedAt: 1000},
	}
	for _, stop := range stale {
		if got := Reduce(s, stop, 61_000); !reflect.DeepEqual(got, s) {
			t.Errorf("expected %+v to leave session B running, got %+v", stop, got.Timer)
		}
	}

	s = Reduce(s, StopTimer{Duration: 4000, TaskID: "B", StartedAt: 61_000}, 65_000)
	if s.Timer.Active != nil || len(s.Sessions) != 2 || s.Sessions[1].TaskID != "B" || s.Sessions[1].Duration != 4000 {
		t.Errorf("expected B archived, got %+v / %+v", s.Timer, s.Sessions)
	}
}

func TestStartTimerDefaultsAndOverwrite(t *testing.T) {
	s := Reduce(Initial(), StartTimer{TaskID: "A", Mode: models.TimerPomodoro}, 1000)
	if s.Timer.Active.Duration != models.DefaultPomodoroMillis {
		t.Errorf("expected default pomodoro length, got %d", s.Timer.Active.Duration)
	}

	s = Reduce(s, StartTimer{TaskID: "B", Mode: models.TimerFree, Duration: 999}, 61_000)
	if s.Timer.Active.TaskID != "B" || s.Timer.Active.Duration != 0 || s.Timer.Mode != models.TimerFree {
		t.Errorf("expected unbounded free session for B, got %+v", s.Timer.Active)
	}
	if len(s.Sessions) != 1 || s.Sessions[0].TaskID != "A" || s.Sessions[0].Duration != 60_000 {
		t.Errorf("expected overwritten session archived with its elapsed time, got %+v", s.Sessions)
	}
}

func TestMembershipInvariantUnderRandomActions(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	idsPool := []string{"a", "b", "c", "d", "e"}
	s := Initial()

	for step := 0; step < 2000; step++ {
		id := idsPool[rng.Intn(len(idsPool))]
		var a Action
		switch rng.Intn(6) {
		case 0:
			a = AddTask{Task: task(id, int64(step))}
		case 1:
			a = CompleteTask{ID: id}
		case 2:
			a = ActivateTask{ID: id}
		case 3:
			a = DeleteTask{ID: id}
		case 4:
			a = UndoDelete{}
		case 5:
			a = PermanentlyDelete{}
		}
		s = Reduce(s, a, int64(step))

		seen := map[string]int{}
		for _, tk := range s.Active {
			seen[tk.ID]++
			if tk.Completed {
				t.Fatalf("step %d: active task %s flagged completed", step, tk.ID)
			}
		}
		for _, tk := range s.Completed {
			seen[tk.ID]++
			if !tk.Completed {
				t.Fatalf("step %d: completed task %s flagged active", step, tk.ID)
			}
		}
		for id, n := range seen {
			if n > 1 {
				t.Fatalf("step %d: task %s present %d times", step, id, n)
			}
		}
	}
}

func ptrBool(b bool) *bool { return &b }

// Package app wires the storage gateway, the state store and the components
// that observe it into one running application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"focustodo/internal/clock"
	"focustodo/internal/models"
	"focustodo/internal/state"
	"focustodo/internal/storage"
	"focustodo/internal/timer"
)

// ErrNotFound is returned when an operation names a task or subtask that
// does not exist.
var ErrNotFound = errors.New("not found")

type Options struct {
	KV              storage.KV
	Clock           clock.Clock
	Logger          *slog.Logger
	SaveDelay       time.Duration
	UndoWindow      time.Duration
	Tick            time.Duration
	PomodoroMinutes int
	OnTimerComplete func(models.TimerSession)
}

type App struct {
	Store   *state.Store
	Gateway *storage.Gateway
	Timer   *timer.Engine
	Clock   clock.Clock

	pomodoroMinutes int
	logger          *slog.Logger
	persister       *state.Persister
	undo            *state.UndoBuffer
}

// New hydrates the store from storage and starts persisting, expiring
// deletions and driving the timer.
func New(ctx context.Context, opts Options) *App {
	if opts.KV == nil {
		panic("app: nil key-value store")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PomodoroMinutes <= 0 {
		opts.PomodoroMinutes = int(models.DefaultPomodoroMillis / int64(time.Minute/time.Millisecond))
	}

	gateway := storage.NewGateway(opts.KV, opts.Logger)
	store := state.NewStore(state.Initial(), opts.Clock, opts.Logger)
	store.Dispatch(state.LoadTasks{Tasks: gateway.LoadTasks(ctx)})
	store.Dispatch(state.LoadSessions{Sessions: gateway.LoadSessions(ctx)})

	loaded := store.State()
	opts.Logger.Info("state loaded",
		slog.Int("active", len(loaded.Active)),
		slog.Int("completed", len(loaded.Completed)),
		slog.Int("sessions", len(loaded.Sessions)))

	a := &App{
		Store:           store,
		Gateway:         gateway,
		Clock:           opts.Clock,
		pomodoroMinutes: opts.PomodoroMinutes,
		logger:          opts.Logger,
	}
	a.persister = state.NewPersister(store, gateway, opts.Clock, opts.SaveDelay, opts.Logger)
	a.undo = state.NewUndoBuffer(store, opts.Clock, opts.UndoWindow, opts.Logger)
	a.Timer = timer.NewEngine(store, opts.Clock, timer.Options{
		Tick:       opts.Tick,
		OnComplete: opts.OnTimerComplete,
		Logger:     opts.Logger,
	})
	return a
}

// PomodoroMinutes is the configured default session length.
func (a *App) PomodoroMinutes() int { return a.pomodoroMinutes }

// StartPomodoro starts a bounded session, using the configured length when
// minutes is not positive.
func (a *App) StartPomodoro(taskID string, minutes int) error {
	if minutes <= 0 {
		minutes = a.pomodoroMinutes
	}
	return a.Timer.StartPomodoro(taskID, minutes)
}

// Now returns the application clock's current time.
func (a *App) Now() time.Time { return a.Clock.Now() }

// NewID returns a fresh identifier for tasks, subtasks and images.
func NewID() string { return uuid.NewString() }

// AddTask validates description and adds a new active task.
func (a *App) AddTask(description string, patch state.TaskPatch) (models.Task, error) {
	t, err := models.NewTask(NewID(), description, clock.NowMillis(a.Clock))
	if err != nil {
		return models.Task{}, err
	}
	if patch.Priority != nil {
		if _, ok := models.ValidPriorities[*patch.Priority]; !ok {
			return models.Task{}, fmt.Errorf("%w: %q", models.ErrInvalidPriority, *patch.Priority)
		}
	}
	a.Store.Dispatch(state.AddTask{Task: t})
	if !patch.IsZero() {
		a.Store.Dispatch(state.UpdateTask{ID: t.ID, Patch: patch})
	}
	return a.Task(t.ID)
}

// AddSubtask validates description and appends a subtask to taskID.
func (a *App) AddSubtask(taskID, description string) (models.Subtask, error) {
	if _, err := a.Task(taskID); err != nil {
		return models.Subtask{}, err
	}
	st, err := models.NewSubtask(NewID(), description, clock.NowMillis(a.Clock))
	if err != nil {
		return models.Subtask{}, err
	}
	a.Store.Dispatch(state.AddSubtask{TaskID: taskID, Subtask: st})
	return st, nil
}

// AddImage attaches an image record to a subtask.
func (a *App) AddImage(taskID, subtaskID string, img models.SubtaskImage) (models.SubtaskImage, error) {
	if err := img.Validate(); err != nil {
		return models.SubtaskImage{}, err
	}
	if _, err := a.Subtask(taskID, subtaskID); err != nil {
		return models.SubtaskImage{}, err
	}
	if img.ID == "" {
		img.ID = NewID()
	}
	if img.UploadedAt == 0 {
		img.UploadedAt = clock.NowMillis(a.Clock)
	}
	a.Store.Dispatch(state.AddSubtaskImage{TaskID: taskID, SubtaskID: subtaskID, Image: img})
	return img, nil
}

// Task looks a task up in the current state.
func (a *App) Task(id string) (models.Task, error) {
	t, ok := a.Store.State().FindTask(id)
	if !ok {
		return models.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, nil
}

func (a *App) Subtask(taskID, subtaskID string) (models.Subtask, error) {
	t, err := a.Task(taskID)
	if err != nil {
		return models.Subtask{}, err
	}
	for _, st := range t.Subtasks {
		if st.ID == subtaskID {
			return st, nil
		}
	}
	return models.Subtask{}, fmt.Errorf("subtask %s: %w", subtaskID, ErrNotFound)
}

// Flush writes pending changes now.
func (a *App) Flush() { a.persister.Flush() }

// Close stops the timer and undo countdowns and flushes pending writes.
func (a *App) Close() {
	a.Timer.Close()
	a.undo.Close()
	a.persister.Close()
}

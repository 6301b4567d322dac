package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"focustodo/internal/clock"
	"focustodo/internal/models"
	"focustodo/internal/storage"
)

// DefaultSaveDelay is the quiet period before a state change is written.
const DefaultSaveDelay = 500 * time.Millisecond

// Persister writes the task lists and the session log to the gateway after
// changes settle. Each write uses the snapshot captured when it was
// scheduled, so a burst of N dispatches produces one write of the last state.
type Persister struct {
	gateway *storage.Gateway
	logger  *slog.Logger

	tasks    *clock.Debouncer
	sessions *clock.Debouncer

	mu          sync.Mutex
	tasksRev    uint64
	sessionsRev uint64
	unsubscribe func()
}

// NewPersister subscribes to store and starts persisting its changes.
func NewPersister(store *Store, gateway *storage.Gateway, c clock.Clock, delay time.Duration, logger *slog.Logger) *Persister {
	if store == nil || gateway == nil {
		panic("state: persister needs a store and a gateway")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	current := store.State()
	p := &Persister{
		gateway:     gateway,
		logger:      logger,
		tasks:       clock.NewDebouncer(c, delay),
		sessions:    clock.NewDebouncer(c, delay),
		tasksRev:    current.TasksRev,
		sessionsRev: current.SessionsRev,
	}
	p.unsubscribe = store.Subscribe(p.observe)
	return p
}

func (p *Persister) observe(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.TasksRev != p.tasksRev {
		p.tasksRev = s.TasksRev
		snapshot := s.AllTasks()
		p.tasks.Schedule(func() { p.saveTasks(snapshot) })
	}
	if s.SessionsRev != p.sessionsRev {
		p.sessionsRev = s.SessionsRev
		snapshot := s.Sessions
		p.sessions.Schedule(func() { p.saveSessions(snapshot) })
	}
}

// saveTasks skips writing an empty list over an already empty store.
func (p *Persister) saveTasks(tasks []models.Task) {
	ctx := context.Background()
	if len(tasks) == 0 && len(p.gateway.LoadTasks(ctx)) == 0 {
		return
	}
	if !p.gateway.SaveTasks(ctx, tasks) {
		p.logger.Warn("tasks not saved; continuing in memory", slog.Int("count", len(tasks)))
	}
}

func (p *Persister) saveSessions(sessions []models.TimerSession) {
	ctx := context.Background()
	if len(sessions) == 0 && len(p.gateway.LoadSessions(ctx)) == 0 {
		return
	}
	if !p.gateway.SaveSessions(ctx, sessions) {
		p.logger.Warn("timer sessions not saved; continuing in memory", slog.Int("count", len(sessions)))
	}
}

// Flush writes any pending snapshot immediately.
func (p *Persister) Flush() {
	p.tasks.Flush()
	p.sessions.Flush()
}

// Close stops observing the store and flushes pending writes.
func (p *Persister) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
	p.Flush()
}

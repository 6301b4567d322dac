package state

import (
	"log/slog"
	"sync"
	"time"

	"focustodo/internal/clock"
)

// DefaultUndoWindow is how long a deleted task stays recoverable.
const DefaultUndoWindow = 5 * time.Second

// UndoBuffer expires pending deletions. When a deletion appears it arms a
// countdown that dispatches PermanentlyDelete; a newer deletion, an undo or
// a dismissal disarms the previous countdown first.
type UndoBuffer struct {
	store  *Store
	clock  clock.Clock
	window time.Duration
	logger *slog.Logger

	mu          sync.Mutex
	armedFor    *UndoNotification
	timer       clock.Timer
	gen         uint64
	unsubscribe func()
}

// NewUndoBuffer subscribes to store.
func NewUndoBuffer(store *Store, c clock.Clock, window time.Duration, logger *slog.Logger) *UndoBuffer {
	if store == nil {
		panic("state: undo buffer needs a store")
	}
	if window <= 0 {
		window = DefaultUndoWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	u := &UndoBuffer{store: store, clock: c, window: window, logger: logger}
	u.unsubscribe = store.Subscribe(u.observe)
	return u
}

// observe compares notifications by identity: every DeleteTask allocates a
// new one, so deleting the same task twice still re-arms the countdown.
func (u *UndoBuffer) observe(s State) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if s.Undo == u.armedFor {
		return
	}
	u.disarmLocked()
	if s.Undo == nil || !s.Undo.Visible {
		return
	}

	u.armedFor = s.Undo
	u.gen++
	gen := u.gen
	taskID := s.Undo.Task.ID
	u.timer = u.clock.AfterFunc(u.window, func() { u.expire(gen, taskID) })
}

func (u *UndoBuffer) expire(gen uint64, taskID string) {
	u.mu.Lock()
	current := gen == u.gen && u.armedFor != nil
	u.mu.Unlock()
	if !current {
		return
	}
	u.logger.Debug("undo window expired", slog.String("task_id", taskID))
	u.store.Dispatch(PermanentlyDelete{TaskID: taskID})
}

func (u *UndoBuffer) disarmLocked() {
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
	u.armedFor = nil
	u.gen++
}

// Close stops the countdown and detaches from the store.
func (u *UndoBuffer) Close() {
	if u.unsubscribe != nil {
		u.unsubscribe()
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.disarmLocked()
}

// Package timer derives remaining and elapsed time from the store's timer
// state and closes bounded sessions when they run out.
package timer

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"focustodo/internal/clock"
	"focustodo/internal/models"
	"focustodo/internal/state"
)

// DefaultTick is how often a running session is recomputed.
const DefaultTick = time.Second

var (
	ErrNoTask      = errors.New("timer: task id is required")
	ErrUnknownTask = errors.New("timer: task not found")
	ErrNotActive   = errors.New("timer: no active session")
	ErrPaused      = errors.New("timer: session is paused")
	ErrRunning     = errors.New("timer: session is running")
)

// Reading is a point-in-time view of the timer.
type Reading struct {
	TaskID    string           `json:"taskId,omitempty"`
	Mode      models.TimerMode `json:"mode"`
	Active    bool             `json:"active"`
	Paused    bool             `json:"paused"`
	Bounded   bool             `json:"bounded"`
	Duration  int64            `json:"duration"`
	Elapsed   int64            `json:"elapsed"`
	Remaining int64            `json:"remaining"`
	// Progress is the elapsed fraction of a bounded session, 0 otherwise.
	Progress float64 `json:"progress"`
}

// Read derives a Reading from t at now.
func Read(t models.TimerState, now int64) Reading {
	r := Reading{Mode: t.Mode}
	if t.Active == nil {
		if r.Mode == "" {
			r.Mode = models.TimerFree
		}
		return r
	}
	r.TaskID = t.Active.TaskID
	r.Mode = t.Active.Mode
	r.Active = true
	r.Paused = t.Paused
	r.Bounded = t.Active.Bounded()
	r.Elapsed = t.Elapsed(now)
	if r.Bounded {
		r.Duration = t.Active.Duration
		r.Remaining = t.Remaining(now)
		r.Progress = min(1, float64(r.Elapsed)/float64(r.Duration))
	}
	return r
}

// Options configure an Engine.
type Options struct {
	Tick time.Duration
	// OnTick receives a fresh Reading after every recomputation.
	OnTick func(Reading)
	// OnComplete receives the archived record of a session that ran out.
	OnComplete func(models.TimerSession)
	Logger     *slog.Logger
}

// Engine watches the store's timer. While a session runs it recomputes the
// reading every tick; pause, resume, start and stop recompute immediately.
// When a bounded session reaches zero the engine dispatches StopTimer with
// the elapsed time and reports the archived session.
type Engine struct {
	store  *state.Store
	clock  clock.Clock
	tick   time.Duration
	logger *slog.Logger

	onTick     func(Reading)
	onComplete func(models.TimerSession)

	mu          sync.Mutex
	current     models.TimerState
	last        Reading
	ticker      clock.Timer
	gen         uint64
	unsubscribe func()
}

// NewEngine subscribes to store.
func NewEngine(store *state.Store, c clock.Clock, opts Options) *Engine {
	if store == nil || c == nil {
		panic("timer: engine needs a store and a clock")
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	e := &Engine{
		store:      store,
		clock:      c,
		tick:       opts.Tick,
		logger:     opts.Logger,
		onTick:     opts.OnTick,
		onComplete: opts.OnComplete,
	}
	e.mu.Lock()
	e.applyLocked(store.State().Timer)
	e.mu.Unlock()
	e.unsubscribe = store.Subscribe(e.observe)
	return e
}

// Reading returns the timer as of now.
func (e *Engine) Reading() Reading {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Read(e.current, clock.NowMillis(e.clock))
}

// Last returns the reading computed by the most recent tick or transition.
func (e *Engine) Last() Reading {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// StartPomodoro starts a bounded session of the given length. A non-positive
// minutes value uses the default pomodoro length.
func (e *Engine) StartPomodoro(taskID string, minutes int) error {
	if err := e.checkTask(taskID); err != nil {
		return err
	}
	var d int64
	if minutes > 0 {
		d = int64(minutes) * int64(time.Minute/time.Millisecond)
	}
	e.store.Dispatch(state.StartTimer{TaskID: taskID, Mode: models.TimerPomodoro, Duration: d})
	return nil
}

// StartFree starts an unbounded session.
func (e *Engine) StartFree(taskID string) error {
	if err := e.checkTask(taskID); err != nil {
		return err
	}
	e.store.Dispatch(state.StartTimer{TaskID: taskID, Mode: models.TimerFree})
	return nil
}

func (e *Engine) Pause() error {
	t := e.store.State().Timer
	switch {
	case t.Active == nil:
		return ErrNotActive
	case t.Paused:
		return ErrPaused
	}
	e.store.Dispatch(state.PauseTimer{})
	return nil
}

func (e *Engine) Resume() error {
	t := e.store.State().Timer
	switch {
	case t.Active == nil:
		return ErrNotActive
	case !t.Paused:
		return ErrRunning
	}
	e.store.Dispatch(state.ResumeTimer{})
	return nil
}

// Stop archives the active session with its elapsed time.
func (e *Engine) Stop() (models.TimerSession, error) {
	s := e.store.State()
	if s.Timer.Active == nil {
		return models.TimerSession{}, ErrNotActive
	}
	active := *s.Timer.Active
	e.store.Dispatch(state.StopTimer{
		Duration:  s.Timer.Elapsed(clock.NowMillis(e.clock)),
		TaskID:    active.TaskID,
		StartedAt: active.StartedAt,
	})
	session, err := lastSession(e.store.State())
	if err != nil || !archived(session, active) {
		return models.TimerSession{}, ErrNotActive
	}
	return session, nil
}

// Close stops ticking and detaches from the store.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) checkTask(taskID string) error {
	if taskID == "" {
		return ErrNoTask
	}
	if _, ok := e.store.State().FindTask(taskID); !ok {
		return ErrUnknownTask
	}
	return nil
}

// observe runs inside Dispatch, so OnTick must not dispatch from here.
func (e *Engine) observe(s state.State) {
	e.mu.Lock()
	changed := e.transitionLocked(s.Timer)
	reading := e.applyLocked(s.Timer)
	e.mu.Unlock()
	if changed && e.onTick != nil {
		e.onTick(reading)
	}
}

// transitionLocked reports whether t differs from the state the last
// reading was computed from. Caller holds e.mu.
func (e *Engine) transitionLocked(t models.TimerState) bool {
	return e.last.Active != (t.Active != nil) || e.last.Paused != t.Paused ||
		(t.Active != nil && e.last.TaskID != t.Active.TaskID)
}

// applyLocked records t, recomputes the reading and arms or stops the
// ticker. Caller holds e.mu.
func (e *Engine) applyLocked(t models.TimerState) Reading {
	prev := e.current
	e.current = t
	running := t.Active != nil && !t.Paused
	sameRun := running && prev.Active == t.Active && !prev.Paused

	if !running {
		e.stopLocked()
	} else if !sameRun || e.ticker == nil {
		e.stopLocked()
		e.armLocked()
	}
	e.last = Read(t, clock.NowMillis(e.clock))
	return e.last
}

// armLocked schedules the next tick, early enough to land exactly on the
// end of a bounded session. Caller holds e.mu.
func (e *Engine) armLocked() {
	delay := e.tick
	if e.current.Active.Bounded() {
		left := time.Duration(e.current.Remaining(clock.NowMillis(e.clock))) * time.Millisecond
		delay = min(delay, left)
	}
	e.gen++
	gen := e.gen
	e.ticker = e.clock.AfterFunc(delay, func() { e.fire(gen) })
}

func (e *Engine) stopLocked() {
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
	e.gen++
}

func (e *Engine) fire(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.current.Active == nil || e.current.Paused {
		e.mu.Unlock()
		return
	}
	now := clock.NowMillis(e.clock)
	e.last = Read(e.current, now)
	reading := e.last
	active := *e.current.Active
	done := reading.Bounded && reading.Remaining <= 0
	e.ticker = nil
	if done {
		e.stopLocked()
	} else {
		e.armLocked()
	}
	e.mu.Unlock()

	if e.onTick != nil {
		e.onTick(reading)
	}
	if !done {
		return
	}

	e.logger.Info("timer session completed",
		slog.String("task_id", reading.TaskID),
		slog.Int64("elapsed_ms", reading.Elapsed))
	e.store.Dispatch(state.StopTimer{
		Duration:  reading.Elapsed,
		TaskID:    active.TaskID,
		StartedAt: active.StartedAt,
	})
	session, err := lastSession(e.store.State())
	if err == nil && archived(session, active) && e.onComplete != nil {
		e.onComplete(session)
	}
}

// archived reports whether session is the archive record of active.
func archived(session models.TimerSession, active models.ActiveSession) bool {
	return session.TaskID == active.TaskID && session.StartTime == active.StartedAt
}

func lastSession(s state.State) (models.TimerSession, error) {
	if len(s.Sessions) == 0 {
		return models.TimerSession{}, ErrNotActive
	}
	return s.Sessions[len(s.Sessions)-1], nil
}

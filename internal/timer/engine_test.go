package timer

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"focustodo/internal/clock"
	"focustodo/internal/models"
	"focustodo/internal/state"
)

var start = time.UnixMilli(1_700_000_000_000)

func newEngine(t *testing.T, opts Options) (*Engine, *state.Store, *clock.Fake) {
	t.Helper()
	c := clock.NewFake(start)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := state.NewStore(state.Initial(), c, logger)
	task, err := models.NewTask("A", "write report", start.UnixMilli())
	if err != nil {
		t.Fatal(err)
	}
	store.Dispatch(state.AddTask{Task: task})
	opts.Logger = logger
	e := NewEngine(store, c, opts)
	t.Cleanup(e.Close)
	return e, store, c
}

func TestRead(t *testing.T) {
	idle := Read(models.TimerState{Mode: models.TimerFree}, 0)
	if idle.Active || idle.Mode != models.TimerFree {
		t.Errorf("unexpected idle reading %+v", idle)
	}

	running := models.TimerState{
		Active: &models.ActiveSession{TaskID: "A", StartedAt: 0, StartTime: 0, Duration: 1000, Mode: models.TimerPomodoro},
		Mode:   models.TimerPomodoro,
	}
	r := Read(running, 250)
	if !r.Bounded || r.Elapsed != 250 || r.Remaining != 750 || r.Progress != 0.25 {
		t.Errorf("unexpected running reading %+v", r)
	}
	if r := Read(running, 5000); r.Remaining != 0 || r.Progress != 1 {
		t.Errorf("expected clamped reading, got %+v", r)
	}

	free := models.TimerState{
		Active: &models.ActiveSession{TaskID: "A", StartTime: 100, Mode: models.TimerFree},
		Mode:   models.TimerFree,
	}
	if r := Read(free, 600); r.Bounded || r.Remaining != 0 || r.Elapsed != 500 {
		t.Errorf("unexpected free reading %+v", r)
	}
}

func TestPomodoroPauseResumePreservesRemaining(t *testing.T) {
	e, _, c := newEngine(t, Options{})

	if err := e.StartPomodoro("A", 25); err != nil {
		t.Fatal(err)
	}
	if got := e.Reading().Remaining; got != 1_500_000 {
		t.Fatalf("expected 1,500,000 ms remaining, got %d", got)
	}

	c.Advance(10 * time.Second)
	if err := e.Pause(); err != nil {
		t.Fatal(err)
	}
	if got := e.Last().Remaining; got != 1_490_000 {
		t.Errorf("pause must recompute immediately, got %d", got)
	}

	c.Advance(2 * time.Hour)
	if c.Pending() != 0 {
		t.Errorf("paused engine must not tick, %d pending", c.Pending())
	}
	if err := e.Resume(); err != nil {
		t.Fatal(err)
	}
	if got := e.Reading().Remaining; got != 1_490_000 {
		t.Errorf("expected 1,490,000 ms after resume, got %d", got)
	}
}

func TestEngineTicksEverySecond(t *testing.T) {
	var ticks []Reading
	e, _, c := newEngine(t, Options{OnTick: func(r Reading) { ticks = append(ticks, r) }})

	if err := e.StartFree("A"); err != nil {
		t.Fatal(err)
	}
	ticks = nil
	c.Advance(3500 * time.Millisecond)

	if len(ticks) != 3 {
		t.Fatalf("expected 3 ticks, got %d", len(ticks))
	}
	for i, r := range ticks {
		if want := int64(i+1) * 1000; r.Elapsed != want {
			t.Errorf("tick %d: expected elapsed %d, got %d", i, want, r.Elapsed)
		}
	}
}

func TestEngineCompletesBoundedSession(t *testing.T) {
	var completed []models.TimerSession
	e, store, c := newEngine(t, Options{OnComplete: func(s models.TimerSession) { completed = append(completed, s) }})

	if err := e.StartPomodoro("A", 1); err != nil {
		t.Fatal(err)
	}
	c.Advance(30 * time.Second)
	if err := e.Pause(); err != nil {
		t.Fatal(err)
	}
	c.Advance(time.Minute)
	if err := e.Resume(); err != nil {
		t.Fatal(err)
	}
	c.Advance(30 * time.Second)

	if len(completed) != 1 {
		t.Fatalf("expected one completion, got %d", len(completed))
	}
	got := completed[0]
	if got.TaskID != "A" || got.Duration != 60_000 || got.Mode != models.TimerPomodoro || got.StartTime != start.UnixMilli() {
		t.Errorf("unexpected archived session %+v", got)
	}
	if store.State().Timer.Active != nil {
		t.Error("expected the timer reset after completion")
	}
	if c.Pending() != 0 {
		t.Errorf("expected no further ticks, %d pending", c.Pending())
	}
}

func TestEngineGuards(t *testing.T) {
	e, _, _ := newEngine(t, Options{})

	cases := []struct {
		name string
		err  error
		want error
	}{
		{"start without task", e.StartFree(""), ErrNoTask},
		{"start unknown task", e.StartPomodoro("missing", 25), ErrUnknownTask},
		{"pause idle", e.Pause(), ErrNotActive},
		{"resume idle", e.Resume(), ErrNotActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, tc.err)
			}
		})
	}

	if _, err := e.Stop(); !errors.Is(err, ErrNotActive) {
		t.Errorf("expected ErrNotActive stopping idle timer, got %v", err)
	}
	if err := e.StartFree("A"); err != nil {
		t.Fatal(err)
	}
	if err := e.Resume(); !errors.Is(err, ErrRunning) {
		t.Errorf("expected ErrRunning, got %v", err)
	}
}

func TestEngineStopArchivesElapsed(t *testing.T) {
	e, store, c := newEngine(t, Options{})

	if err := e.StartFree("A"); err != nil {
		t.Fatal(err)
	}
	c.Advance(90 * time.Second)
	session, err := e.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if session.Duration != 90_000 || session.Mode != models.TimerFree {
		t.Errorf("unexpected session %+v", session)
	}
	if n := len(store.State().Sessions); n != 1 {
		t.Errorf("expected one archived session, got %d", n)
	}
	if c.Pending() != 0 {
		t.Errorf("stopped engine left %d timers armed", c.Pending())
	}
}

package models

// TimerMode selects between a fixed-length and an open-ended session.
type TimerMode string

const (
	TimerPomodoro TimerMode = "pomodoro"
	TimerFree     TimerMode = "free"
)

// DefaultPomodoroMillis is the default pomodoro length (25 minutes).
const DefaultPomodoroMillis int64 = 25 * 60 * 1000

// ActiveSession describes the session currently being timed.
//
// StartTime is the anchor for the running stretch and moves forward on
// resume. StartedAt is when the session was first started.
type ActiveSession struct {
	TaskID    string    `json:"taskId"`
	StartedAt int64     `json:"startedAt"`
	StartTime int64     `json:"startTime"`
	Duration  int64     `json:"duration"`
	Mode      TimerMode `json:"mode"`
}

// Bounded reports whether the session has a budget that can run out.
func (s ActiveSession) Bounded() bool {
	return s.Mode == TimerPomodoro && s.Duration > 0
}

// TimerState is the timer part of the application state. At most one
// session is active at any time.
type TimerState struct {
	Active     *ActiveSession `json:"activeSession"`
	Paused     bool           `json:"isPaused"`
	PausedTime int64          `json:"pausedTime"`
	Mode       TimerMode      `json:"mode"`
}

// TimerSession is an archived session record in the session log.
type TimerSession struct {
	TaskID    string    `json:"taskId"`
	StartTime int64     `json:"startTime"`
	EndTime   int64     `json:"endTime,omitempty"`
	Duration  int64     `json:"duration"`
	Mode      TimerMode `json:"mode"`
}

// Elapsed returns the milliseconds the active session has run, excluding
// time spent paused. It is 0 without an active session.
func (t TimerState) Elapsed(now int64) int64 {
	if t.Active == nil {
		return 0
	}
	if t.Paused {
		return t.PausedTime
	}
	return t.PausedTime + max(0, now-t.Active.StartTime)
}

// Remaining returns the milliseconds left in a bounded session, never
// negative. It is 0 without an active session and for free sessions.
func (t TimerState) Remaining(now int64) int64 {
	if t.Active == nil || !t.Active.Bounded() {
		return 0
	}
	return max(0, t.Active.Duration-t.Elapsed(now))
}

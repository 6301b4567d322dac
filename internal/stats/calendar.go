package stats

import (
	"time"

	"focustodo/internal/models"
)

// DefaultUpcomingDays is the look-ahead used when none is given.
const DefaultUpcomingDays = 7

type CalendarDay struct {
	Date    string        `json:"date"`
	InMonth bool          `json:"inMonth"`
	Today   bool          `json:"today"`
	Tasks   []models.Task `json:"todos"`
}

// MonthGrid returns whole Sunday-to-Saturday weeks covering the month of
// month, each day carrying the tasks due on it.
func MonthGrid(tasks []models.Task, month, now time.Time) []CalendarDay {
	loc := month.Location()
	y, m, _ := month.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -int(first.Weekday()))
	end := last.AddDate(0, 0, int(time.Saturday-last.Weekday()))

	byDay := dueByDay(tasks, loc)
	today := now.In(loc).Format(time.DateOnly)

	var days []CalendarDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		due := byDay[key]
		if due == nil {
			due = []models.Task{}
		}
		days = append(days, CalendarDay{
			Date:    key,
			InMonth: d.Month() == m,
			Today:   key == today,
			Tasks:   due,
		})
	}
	return days
}

// DueOn returns the tasks whose due date falls on the day of date.
func DueOn(tasks []models.Task, date time.Time) []models.Task {
	key := date.Format(time.DateOnly)
	out := []models.Task{}
	for _, t := range tasks {
		if t.DueDate != nil && dayKey(*t.DueDate, date.Location()) == key {
			out = append(out, t)
		}
	}
	return out
}

// Today returns the tasks due today.
func Today(tasks []models.Task, now time.Time) []models.Task {
	return DueOn(tasks, now)
}

// Overdue returns tasks due before now, excluding anything due today.
// Callers pass the active list.
func Overdue(active []models.Task, now time.Time) []models.Task {
	today := now.Format(time.DateOnly)
	nowMs := now.UnixMilli()
	out := []models.Task{}
	for _, t := range active {
		if t.DueDate == nil || *t.DueDate >= nowMs {
			continue
		}
		if dayKey(*t.DueDate, now.Location()) == today {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Upcoming returns active tasks due after now and no later than days from now.
func Upcoming(active []models.Task, now time.Time, days int) []models.Task {
	if days <= 0 {
		days = DefaultUpcomingDays
	}
	from := now.UnixMilli()
	until := now.AddDate(0, 0, days).UnixMilli()
	out := []models.Task{}
	for _, t := range active {
		if t.DueDate != nil && *t.DueDate > from && *t.DueDate <= until {
			out = append(out, t)
		}
	}
	return out
}

func dueByDay(tasks []models.Task, loc *time.Location) map[string][]models.Task {
	out := make(map[string][]models.Task)
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		key := dayKey(*t.DueDate, loc)
		out[key] = append(out[key], t)
	}
	return out
}

// Package stats computes the statistics panel and calendar views from the
// task lists. All day boundaries use the location of the supplied time.
package stats

import (
	"math"
	"time"

	"focustodo/internal/models"
)

// DailyWindow is the number of days covered by Summary.Daily.
const DailyWindow = 30

type DailyStats struct {
	Date           string `json:"date"`
	Label          string `json:"label"`
	CompletedCount int    `json:"completedCount"`
	AddedCount     int    `json:"addedCount"`
}

type PriorityShare struct {
	Priority   models.Priority `json:"priority"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// TimeStats compares estimated and actual minutes. Variance is the mean
// absolute difference over tasks that carry both.
type TimeStats struct {
	TotalEstimated   int     `json:"totalEstimated"`
	TotalActual      int     `json:"totalActual"`
	AverageEstimated float64 `json:"averageEstimated"`
	AverageActual    float64 `json:"averageActual"`
	Variance         float64 `json:"variance"`
}

type Summary struct {
	Daily          []DailyStats    `json:"dailyStats"`
	Priorities     []PriorityShare `json:"priorityDistribution"`
	Time           TimeStats       `json:"timeStats"`
	CompletionRate float64         `json:"completionRate"`
	OverdueCount   int             `json:"overdueCount"`
	Total          int             `json:"totalTodos"`
	ActiveCount    int             `json:"activeTodosCount"`
	CompletedCount int             `json:"completedTodosCount"`
}

// Compute builds the summary for the given lists as of now.
func Compute(active, completed []models.Task, now time.Time) Summary {
	all := make([]models.Task, 0, len(active)+len(completed))
	all = append(all, active...)
	all = append(all, completed...)

	s := Summary{
		Daily:          Daily(all, now, DailyWindow),
		Priorities:     Priorities(all),
		Time:           Times(all),
		OverdueCount:   len(Overdue(active, now)),
		Total:          len(all),
		ActiveCount:    len(active),
		CompletedCount: len(completed),
	}
	if s.Total > 0 {
		s.CompletionRate = float64(len(completed)) / float64(s.Total) * 100
	}
	return s
}

// Daily returns one entry per day for the last days days, oldest first.
// A task counts as completed on the day of its completedAt, or on its
// creation day when completedAt was never recorded.
func Daily(tasks []models.Task, now time.Time, days int) []DailyStats {
	if days <= 0 {
		return []DailyStats{}
	}
	loc := now.Location()
	first := startOfDay(now).AddDate(0, 0, -(days - 1))

	index := make(map[string]int, days)
	out := make([]DailyStats, days)
	for i := range out {
		day := first.AddDate(0, 0, i)
		key := day.Format(time.DateOnly)
		out[i] = DailyStats{Date: key, Label: day.Format("Jan 2")}
		index[key] = i
	}

	for _, t := range tasks {
		if i, ok := index[dayKey(t.CreatedAt, loc)]; ok {
			out[i].AddedCount++
		}
		if !t.Completed {
			continue
		}
		at := t.CreatedAt
		if t.CompletedAt != nil {
			at = *t.CompletedAt
		}
		if i, ok := index[dayKey(at, loc)]; ok {
			out[i].CompletedCount++
		}
	}
	return out
}

// Priorities returns the high, medium and low shares in that order.
func Priorities(tasks []models.Task) []PriorityShare {
	counts := map[models.Priority]int{}
	total := 0
	for _, t := range tasks {
		if _, ok := models.ValidPriorities[t.Priority]; !ok {
			continue
		}
		counts[t.Priority]++
		total++
	}

	order := []models.Priority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow}
	out := make([]PriorityShare, len(order))
	for i, p := range order {
		out[i] = PriorityShare{Priority: p, Count: counts[p]}
		if total > 0 {
			out[i].Percentage = float64(counts[p]) / float64(total) * 100
		}
	}
	return out
}

func Times(tasks []models.Task) TimeStats {
	var ts TimeStats
	var estimated, actual, both int
	var diff float64
	for _, t := range tasks {
		est := positive(t.EstimatedMinutes)
		act := positive(t.ActualMinutes)
		if est > 0 {
			ts.TotalEstimated += est
			estimated++
		}
		if act > 0 {
			ts.TotalActual += act
			actual++
		}
		if est > 0 && act > 0 {
			diff += math.Abs(float64(act - est))
			both++
		}
	}
	if estimated > 0 {
		ts.AverageEstimated = float64(ts.TotalEstimated) / float64(estimated)
	}
	if actual > 0 {
		ts.AverageActual = float64(ts.TotalActual) / float64(actual)
	}
	if both > 0 {
		ts.Variance = diff / float64(both)
	}
	return ts
}

func positive(v *int) int {
	if v == nil || *v <= 0 {
		return 0
	}
	return *v
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dayKey(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(time.DateOnly)
}

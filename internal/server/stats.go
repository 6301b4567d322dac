package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"focustodo/internal/stats"
)

func (s *Server) handleStats(c *gin.Context) {
	st := s.app.Store.State()
	respondSuccess(c, http.StatusOK, stats.Compute(st.Active, st.Completed, s.app.Now()))
}

// handleMonth returns the calendar grid for ?month=YYYY-MM, defaulting to
// the current month.
func (s *Server) handleMonth(c *gin.Context) {
	now := s.app.Now()
	month := now
	if raw := c.Query("month"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01", raw, now.Location())
		if err != nil {
			s.respondError(c, http.StatusBadRequest, fmt.Errorf("month must be YYYY-MM: %w", err))
			return
		}
		month = parsed
	}
	days := stats.MonthGrid(s.app.Store.State().AllTasks(), month, now)
	respondSuccess(c, http.StatusOK, gin.H{"month": month.Format("2006-01"), "days": days})
}

func (s *Server) handleToday(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"todos": stats.Today(s.app.Store.State().AllTasks(), s.app.Now())})
}

func (s *Server) handleOverdue(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"todos": stats.Overdue(s.app.Store.State().Active, s.app.Now())})
}

func (s *Server) handleUpcoming(c *gin.Context) {
	days := stats.DefaultUpcomingDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(c, http.StatusBadRequest, fmt.Errorf("days must be a positive integer"))
			return
		}
		days = n
	}
	respondSuccess(c, http.StatusOK, gin.H{"todos": stats.Upcoming(s.app.Store.State().Active, s.app.Now(), days)})
}

func (s *Server) handleDueOn(c *gin.Context) {
	now := s.app.Now()
	date, err := time.ParseInLocation(time.DateOnly, c.Param("date"), now.Location())
	if err != nil {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("date must be YYYY-MM-DD: %w", err))
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"todos": stats.DueOn(s.app.Store.State().AllTasks(), date)})
}

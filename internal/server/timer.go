package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focustodo/internal/models"
)

type startTimerRequest struct {
	TaskID  string           `json:"taskId"`
	Mode    models.TimerMode `json:"mode"`
	Minutes int              `json:"minutes"`
}

func (s *Server) handleTimer(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{
		"timer":           s.app.Timer.Reading(),
		"pomodoroMinutes": s.app.PomodoroMinutes(),
	})
}

// handleStartTimer starts a session, archiving any session already running.
func (s *Server) handleStartTimer(c *gin.Context) {
	var req startTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	var err error
	if req.Mode == models.TimerFree {
		err = s.app.Timer.StartFree(req.TaskID)
	} else {
		err = s.app.StartPomodoro(req.TaskID, req.Minutes)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.handleTimer(c)
}

func (s *Server) handlePauseTimer(c *gin.Context) {
	if err := s.app.Timer.Pause(); err != nil {
		s.fail(c, err)
		return
	}
	s.handleTimer(c)
}

func (s *Server) handleResumeTimer(c *gin.Context) {
	if err := s.app.Timer.Resume(); err != nil {
		s.fail(c, err)
		return
	}
	s.handleTimer(c)
}

func (s *Server) handleStopTimer(c *gin.Context) {
	session, err := s.app.Timer.Stop()
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"session": session})
}

func (s *Server) handleSessions(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"sessions": s.app.Store.State().Sessions})
}

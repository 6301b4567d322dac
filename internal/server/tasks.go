package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"focustodo/internal/models"
	"focustodo/internal/state"
	"focustodo/internal/timer"
)

type taskRequest struct {
	Description           *string          `json:"description"`
	DueDate               *int64           `json:"dueDate"`
	ClearDueDate          bool             `json:"clearDueDate"`
	EstimatedMinutes      *int             `json:"estimatedMinutes"`
	ClearEstimatedMinutes bool             `json:"clearEstimatedMinutes"`
	ActualMinutes         *int             `json:"actualMinutes"`
	ClearActualMinutes    bool             `json:"clearActualMinutes"`
	Priority              *models.Priority `json:"priority"`
	ClearPriority         bool             `json:"clearPriority"`
	Tags                  []string         `json:"tags"`
}

// patch validates the request and converts it to a TaskPatch.
func (r taskRequest) patch() (state.TaskPatch, error) {
	p := state.TaskPatch{
		DueDate:               r.DueDate,
		ClearDueDate:          r.ClearDueDate,
		EstimatedMinutes:      r.EstimatedMinutes,
		ClearEstimatedMinutes: r.ClearEstimatedMinutes,
		ActualMinutes:         r.ActualMinutes,
		ClearActualMinutes:    r.ClearActualMinutes,
		ClearPriority:         r.ClearPriority,
		Tags:                  r.Tags,
	}
	if r.Description != nil {
		desc, err := models.NormalizeDescription(*r.Description)
		if err != nil {
			return state.TaskPatch{}, err
		}
		p.Description = &desc
	}
	if r.Priority != nil {
		prio, err := models.ParsePriority(string(*r.Priority))
		if err != nil {
			return state.TaskPatch{}, err
		}
		p.Priority = &prio
	}
	return p, nil
}

type snapshot struct {
	Active    []models.Task           `json:"activeTodos"`
	Completed []models.Task           `json:"completedTodos"`
	Undo      *state.UndoNotification `json:"undoNotification"`
	Timer     timer.Reading           `json:"timer"`
	Sessions  []models.TimerSession   `json:"timerSessions"`
}

func (s *Server) handleState(c *gin.Context) {
	st := s.app.Store.State()
	respondSuccess(c, http.StatusOK, snapshot{
		Active:    st.Active,
		Completed: st.Completed,
		Undo:      st.Undo,
		Timer:     s.app.Timer.Reading(),
		Sessions:  st.Sessions,
	})
}

func (s *Server) handleListTasks(c *gin.Context) {
	st := s.app.Store.State()
	respondSuccess(c, http.StatusOK, gin.H{"active": st.Active, "completed": st.Completed})
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.app.Task(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleCreateTask adds a new active task.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Description == nil {
		s.fail(c, models.ErrEmptyDescription)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.fail(c, err)
		return
	}
	description := *patch.Description
	patch.Description = nil

	task, err := s.app.AddTask(description, patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleUpdateTask edits task metadata. Completion has its own endpoints.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.app.Task(id); err != nil {
		s.fail(c, err)
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.fail(c, err)
		return
	}

	s.app.Store.Dispatch(state.UpdateTask{ID: id, Patch: patch})
	s.respondTask(c, http.StatusOK, id)
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	s.transition(c, state.CompleteTask{ID: c.Param("id")})
}

func (s *Server) handleActivateTask(c *gin.Context) {
	s.transition(c, state.ActivateTask{ID: c.Param("id")})
}

// handleDeleteTask removes a task; it stays recoverable through /api/undo
// until the undo window closes.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.app.Task(id); err != nil {
		s.fail(c, err)
		return
	}
	s.app.Store.Dispatch(state.DeleteTask{ID: id})
	respondSuccess(c, http.StatusOK, gin.H{"undoNotification": s.app.Store.State().Undo})
}

func (s *Server) handleUndo(c *gin.Context) {
	pending := s.app.Store.State().Undo
	if pending == nil {
		s.respondError(c, http.StatusConflict, errors.New("nothing to undo"))
		return
	}
	s.app.Store.Dispatch(state.UndoDelete{})
	s.respondTask(c, http.StatusOK, pending.Task.ID)
}

// handleDismissUndo makes the pending deletion final immediately.
func (s *Server) handleDismissUndo(c *gin.Context) {
	pending := s.app.Store.State().Undo
	if pending == nil {
		respondSuccess(c, http.StatusNoContent, nil)
		return
	}
	s.app.Store.Dispatch(state.PermanentlyDelete{TaskID: pending.Task.ID})
	respondSuccess(c, http.StatusNoContent, nil)
}

// transition dispatches a after checking the task exists and returns it.
func (s *Server) transition(c *gin.Context, a state.Action) {
	id := c.Param("id")
	if _, err := s.app.Task(id); err != nil {
		s.fail(c, err)
		return
	}
	s.app.Store.Dispatch(a)
	s.respondTask(c, http.StatusOK, id)
}

func (s *Server) respondTask(c *gin.Context, status int, id string) {
	task, err := s.app.Task(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, status, gin.H{"task": task})
}

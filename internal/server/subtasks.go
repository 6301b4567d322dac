package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focustodo/internal/models"
	"focustodo/internal/state"
)

type subtaskRequest struct {
	Description  *string          `json:"description"`
	Completed    *bool            `json:"completed"`
	Priority     *models.Priority `json:"priority"`
	DueDate      *int64           `json:"dueDate"`
	ClearDueDate bool             `json:"clearDueDate"`
	Notes        *string          `json:"notes"`
}

func (r subtaskRequest) patch() (state.SubtaskPatch, error) {
	p := state.SubtaskPatch{
		Completed:    r.Completed,
		DueDate:      r.DueDate,
		ClearDueDate: r.ClearDueDate,
	}
	if r.Description != nil {
		desc, err := models.NormalizeDescription(*r.Description)
		if err != nil {
			return state.SubtaskPatch{}, err
		}
		p.Description = &desc
	}
	if r.Priority != nil {
		prio, err := models.ParsePriority(string(*r.Priority))
		if err != nil {
			return state.SubtaskPatch{}, err
		}
		p.Priority = &prio
	}
	if r.Notes != nil {
		if err := models.ValidateNotes(*r.Notes); err != nil {
			return state.SubtaskPatch{}, err
		}
		p.Notes = r.Notes
	}
	return p, nil
}

func (s *Server) handleCreateSubtask(c *gin.Context) {
	var req subtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Description == nil {
		s.fail(c, models.ErrEmptyDescription)
		return
	}
	st, err := s.app.AddSubtask(c.Param("id"), *req.Description)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"subtask": st})
}

func (s *Server) handleUpdateSubtask(c *gin.Context) {
	taskID, subtaskID := c.Param("id"), c.Param("sid")
	if _, err := s.app.Subtask(taskID, subtaskID); err != nil {
		s.fail(c, err)
		return
	}
	var req subtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.fail(c, err)
		return
	}
	s.app.Store.Dispatch(state.UpdateSubtask{TaskID: taskID, SubtaskID: subtaskID, Patch: patch})
	s.respondTask(c, http.StatusOK, taskID)
}

func (s *Server) handleDeleteSubtask(c *gin.Context) {
	s.subtaskTransition(c, state.DeleteSubtask{TaskID: c.Param("id"), SubtaskID: c.Param("sid")})
}

// handleToggleSubtask flips completion. Completing the last open subtask of
// an active task also completes the task.
func (s *Server) handleToggleSubtask(c *gin.Context) {
	s.subtaskTransition(c, state.ToggleSubtask{TaskID: c.Param("id"), SubtaskID: c.Param("sid")})
}

func (s *Server) handleAddImage(c *gin.Context) {
	var img models.SubtaskImage
	if err := c.ShouldBindJSON(&img); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	added, err := s.app.AddImage(c.Param("id"), c.Param("sid"), img)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"image": added})
}

func (s *Server) handleDeleteImage(c *gin.Context) {
	s.subtaskTransition(c, state.DeleteSubtaskImage{
		TaskID:    c.Param("id"),
		SubtaskID: c.Param("sid"),
		ImageID:   c.Param("iid"),
	})
}

func (s *Server) subtaskTransition(c *gin.Context, a state.Action) {
	taskID := c.Param("id")
	if _, err := s.app.Subtask(taskID, c.Param("sid")); err != nil {
		s.fail(c, err)
		return
	}
	s.app.Store.Dispatch(a)
	s.respondTask(c, http.StatusOK, taskID)
}

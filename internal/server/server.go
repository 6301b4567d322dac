package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"focustodo/internal/app"
	"focustodo/internal/models"
	"focustodo/internal/timer"
)

// Server exposes the task tracker over a local JSON API.
type Server struct {
	engine    *gin.Engine
	app       *app.App
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(a *app.App, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	srv := &Server{
		engine:    router,
		app:       a,
		logger:    logger,
		staticDir: staticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.GET("/state", s.handleState)

		tasks := api.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.GET(":id", s.handleGetTask)
			tasks.PUT(":id", s.handleUpdateTask)
			tasks.DELETE(":id", s.handleDeleteTask)
			tasks.POST(":id/complete", s.handleCompleteTask)
			tasks.POST(":id/activate", s.handleActivateTask)

			tasks.POST(":id/subtasks", s.handleCreateSubtask)
			tasks.PUT(":id/subtasks/:sid", s.handleUpdateSubtask)
			tasks.DELETE(":id/subtasks/:sid", s.handleDeleteSubtask)
			tasks.POST(":id/subtasks/:sid/toggle", s.handleToggleSubtask)
			tasks.POST(":id/subtasks/:sid/images", s.handleAddImage)
			tasks.DELETE(":id/subtasks/:sid/images/:iid", s.handleDeleteImage)
		}

		api.POST("/undo", s.handleUndo)
		api.DELETE("/undo", s.handleDismissUndo)

		timerGroup := api.Group("/timer")
		{
			timerGroup.GET("", s.handleTimer)
			timerGroup.POST("/start", s.handleStartTimer)
			timerGroup.POST("/pause", s.handlePauseTimer)
			timerGroup.POST("/resume", s.handleResumeTimer)
			timerGroup.POST("/stop", s.handleStopTimer)
		}
		api.GET("/sessions", s.handleSessions)

		api.GET("/stats", s.handleStats)
		calendar := api.Group("/calendar")
		{
			calendar.GET("", s.handleMonth)
			calendar.GET("/today", s.handleToday)
			calendar.GET("/overdue", s.handleOverdue)
			calendar.GET("/upcoming", s.handleUpcoming)
			calendar.GET("/date/:date", s.handleDueOn)
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestLogger logs API requests through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.FullPath() == "" {
			return
		}
		logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()))
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrNotFound), errors.Is(err, timer.ErrUnknownTask):
		return http.StatusNotFound
	case errors.Is(err, timer.ErrNotActive), errors.Is(err, timer.ErrPaused), errors.Is(err, timer.ErrRunning):
		return http.StatusConflict
	case errors.Is(err, models.ErrEmptyDescription),
		errors.Is(err, models.ErrDescriptionTooLong),
		errors.Is(err, models.ErrNotesTooLong),
		errors.Is(err, models.ErrInvalidPriority),
		errors.Is(err, models.ErrInvalidImage),
		errors.Is(err, timer.ErrNoTask):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs server-side failures and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, statusFor(err), err)
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

// Package remote serves a thin JSON CRUD API over the relational project
// store.
package remote

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/valter-silva-au/ptrack/internal/core"
	"github.com/valter-silva-au/ptrack/internal/storage"
	"github.com/valter-silva-au/ptrack/pkg/models"
)

// Store is the subset of storage.SQLStore the handlers use.
type Store interface {
	ListProjects(ctx context.Context) ([]storage.ProjectSummary, error)
	CreateProject(ctx context.Context, id, name string, createdAt time.Time) error
	DeleteProject(ctx context.Context, id string) error
	ProjectTasks(ctx context.Context, projectID string) ([]models.Task, error)
	AddTask(ctx context.Context, projectID string, t models.Task) error
	UpdateTask(ctx context.Context, id string, fn func(*models.Task) bool) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Server is the remote CRUD HTTP server.
type Server struct {
	store  Store
	router *gin.Engine
	logger *slog.Logger
	clock  core.Clock
}

// NewServer creates the router. A nil logger discards request logs and a
// nil clock uses the system clock.
func NewServer(store Store, logger *slog.Logger, clock core.Clock) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if clock == nil {
		clock = core.SystemClock
	}

	router := gin.New()
	s := &Server{
		store:  store,
		router: router,
		logger: logger,
		clock:  clock,
	}

	router.Use(gin.Recovery(), s.requestLogger())

	api := router.Group("/api")
	{
		api.GET("/projects", s.handleListProjects)
		api.POST("/projects", s.handleCreateProject)
		api.DELETE("/projects/:id", s.handleDeleteProject)
		api.GET("/projects/:id/tasks", s.handleProjectTasks)
		api.POST("/tasks", s.handleAddTask)
		api.PATCH("/tasks/:id/complete", s.handleCompleteTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return s
}

// Handler returns the HTTP handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("remote server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// requestLogger logs one structured line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.LogAttrs(c.Request.Context(), level, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

package remote

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/valter-silva-au/ptrack/internal/core"
	"github.com/valter-silva-au/ptrack/internal/storage"
	"github.com/valter-silva-au/ptrack/pkg/models"
)

type projectResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	TaskCount int    `json:"task_count"`
	DoneCount int    `json:"done_count"`
	Percent   int    `json:"percent"`
}

type taskResponse struct {
	ID          string   `json:"id"`
	ProjectID   string   `json:"project_id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at"`
	ActiveStart *string  `json:"active_start"`
	ElapsedMs   int64    `json:"elapsed_ms"`
	CompletedAt *string  `json:"completed_at"`
	DueAt       *string  `json:"due_at"`
	Tags        []string `json:"tags"`
}

type createProjectRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type addTaskRequest struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueAt       string  `json:"due_at"`
	Tags        tagList `json:"tags"`
}

// tagList accepts tags as a JSON array or a comma-delimited string.
type tagList []string

func (l *tagList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = models.SplitTags(s)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return errors.New("tags must be an array or a comma-delimited string")
	}
	*l = models.NormalizeTags(arr)
	return nil
}

func (s *Server) handleListProjects(c *gin.Context) {
	summaries, err := s.store.ListProjects(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]projectResponse, len(summaries))
	for i, p := range summaries {
		out[i] = projectResponse{
			ID:        p.ID,
			Name:      p.Name,
			CreatedAt: storage.FormatTime(p.CreatedAt),
			TaskCount: p.TaskCount,
			DoneCount: p.DoneCount,
			Percent:   core.Percent(p.DoneCount, p.TaskCount),
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ID == "" || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id and name required"})
		return
	}

	if err := s.store.CreateProject(c.Request.Context(), req.ID, req.Name, s.clock()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	if err := s.store.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleProjectTasks(c *gin.Context) {
	projectID := c.Param("id")
	tasks, err := s.store.ProjectTasks(c.Request.Context(), projectID)
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]taskResponse, len(tasks))
	for i := range tasks {
		out[i] = toTaskResponse(projectID, &tasks[i])
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAddTask(c *gin.Context) {
	var req addTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.Title = strings.TrimSpace(req.Title)
	if req.ID == "" || req.ProjectID == "" || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id, project_id, title required"})
		return
	}

	task := models.Task{
		ID:          req.ID,
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Status:      models.StatusTodo,
		CreatedAt:   s.clock().UTC(),
		Tags:        []string(req.Tags),
	}
	if req.DueAt != "" {
		due, ok := storage.ParseTime(req.DueAt)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "due_at must be an RFC 3339 timestamp"})
			return
		}
		task.DueAt = &due
	}

	if err := s.store.AddTask(c.Request.Context(), req.ProjectID, task); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	now := s.clock()
	task, err := s.store.UpdateTask(c.Request.Context(), c.Param("id"), func(t *models.Task) bool {
		return core.Complete(t, now)
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "task": toTaskResponse("", &task)})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.store.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// fail maps store errors to status codes: unknown rows are 404, duplicate
// IDs 409, anything else 500.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.logger.Error("remote store failure", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func toTaskResponse(projectID string, t *models.Task) taskResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return taskResponse{
		ID:          t.ID,
		ProjectID:   projectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   storage.FormatTime(t.CreatedAt),
		ActiveStart: formatOptional(t.ActiveStart),
		ElapsedMs:   core.Milliseconds(t.Elapsed),
		CompletedAt: formatOptional(t.CompletedAt),
		DueAt:       formatOptional(t.DueAt),
		Tags:        tags,
	}
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := storage.FormatTime(*t)
	return &s
}

package core

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/valter-silva-au/ptrack/pkg/models"
)

// DefaultStorageKey is the blob key the project collection is stored under.
const DefaultStorageKey = "project-tracker:data:v2"

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrAmbiguousRef    = errors.New("reference matches more than one item")
	ErrEmptyTitle      = errors.New("title must not be empty")
	ErrEmptyName       = errors.New("project name must not be empty")
	ErrInvalidImport   = errors.New("invalid import document")
)

// BlobStore is a key-value store holding opaque blobs. Get returns nil data
// and a nil error when the key is absent. Defining it here keeps core
// independent of the storage package.
type BlobStore interface {
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
}

// ProjectCodec converts the project collection to and from its persisted
// form. Decode must reject documents that are not a list of projects.
type ProjectCodec interface {
	Decode(data []byte) ([]models.Project, error)
	Encode(projects []models.Project) ([]byte, error)
}

// NewTask holds the user-supplied fields of a task being added.
type NewTask struct {
	Title       string
	Description string
	DueAt       *time.Time
	Tags        []string
}

// TaskUpdate holds optional edits to a task. Nil fields are left unchanged;
// ClearDue removes the due date.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueAt       *time.Time
	ClearDue    bool
	Tags        []string
	SetTags     bool
}

// ProjectStore defines the interface for the in-memory project collection
// and its persistence. Every committed mutation rewrites the whole
// collection; persistence failures are logged, never returned.
type ProjectStore interface {
	Load()
	Projects() []models.Project
	Project(ref string) (models.Project, error)
	CreateProject(name, templateID string) (models.Project, error)
	RenameProject(ref, name string) error
	DeleteProject(ref string) error
	AddTask(projectRef string, in NewTask) (models.Task, error)
	UpdateTask(projectRef, taskRef string, upd TaskUpdate) (models.Task, error)
	DeleteTask(projectRef, taskRef string) error
	StartTask(projectRef, taskRef string) (models.Task, error)
	PauseTask(projectRef, taskRef string) (models.Task, error)
	CompleteTask(projectRef, taskRef string) (models.Task, error)
	Import(data []byte) error
	Export() ([]byte, error)
	Now() time.Time
}

// StoreDeps are the collaborators injected into a ProjectStore. Events may
// be nil to disable event logging; Clock and IDs default to the system
// clock and UUIDv7.
type StoreDeps struct {
	Key       string
	Blobs     BlobStore
	Codec     ProjectCodec
	Templates TemplateCatalog
	Clock     Clock
	IDs       IDGenerator
	Events    EventLogger
}

// projectStore implements ProjectStore over an injected BlobStore.
type projectStore struct {
	mu       sync.Mutex
	key      string
	blobs    BlobStore
	codec    ProjectCodec
	tmpl     TemplateCatalog
	clock    Clock
	ids      IDGenerator
	events   EventLogger
	projects []models.Project
}

// NewProjectStore creates a ProjectStore with an empty collection. Call
// Load to restore the persisted state.
func NewProjectStore(deps StoreDeps) ProjectStore {
	s := &projectStore{
		key:    deps.Key,
		blobs:  deps.Blobs,
		codec:  deps.Codec,
		tmpl:   deps.Templates,
		clock:  deps.Clock,
		ids:    deps.IDs,
		events: deps.Events,
	}
	if s.key == "" {
		s.key = DefaultStorageKey
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if s.ids == nil {
		s.ids = NewIDGenerator()
	}
	if s.tmpl == nil {
		s.tmpl = NewTemplateCatalog("")
	}
	return s
}

// Load restores the collection from the blob store. A missing, unreadable
// or corrupt blob yields an empty collection.
func (s *projectStore) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects = nil
	if s.blobs == nil || s.codec == nil {
		return
	}
	data, err := s.blobs.Get(s.key)
	if err != nil {
		s.logEvent("store.load_failed", map[string]any{"key": s.key, "error": err.Error()})
		return
	}
	if len(data) == 0 {
		return
	}
	projects, err := s.codec.Decode(data)
	if err != nil {
		s.logEvent("store.load_failed", map[string]any{"key": s.key, "error": err.Error()})
		return
	}
	s.projects = s.normalizeAll(projects)
}

func (s *projectStore) Projects() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProjects(s.projects)
}

func (s *projectStore) Project(ref string) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.findProject(ref)
	if err != nil {
		return models.Project{}, err
	}
	return p.Clone(), nil
}

// CreateProject adds a project seeded with the tasks of the given template
// at the front of the collection.
func (s *projectStore) CreateProject(name, templateID string) (models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Project{}, fmt.Errorf("creating project: %w", ErrEmptyName)
	}
	tmpl, err := s.tmpl.Get(templateID)
	if err != nil {
		return models.Project{}, fmt.Errorf("creating project: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id, err := s.ids.NewID()
	if err != nil {
		return models.Project{}, fmt.Errorf("creating project: %w", err)
	}
	p := models.Project{ID: id, Name: name, CreatedAt: now, Tasks: []models.Task{}}
	for _, title := range tmpl.Tasks {
		taskID, err := s.ids.NewID()
		if err != nil {
			return models.Project{}, fmt.Errorf("creating project: %w", err)
		}
		p.Tasks = append(p.Tasks, models.Task{
			ID:        taskID,
			Title:     title,
			Status:    models.StatusTodo,
			CreatedAt: now,
		})
	}

	s.projects = append([]models.Project{p}, s.projects...)
	s.persist()
	s.logEvent("project.created", map[string]any{
		"project_id": p.ID,
		"template":   tmpl.ID,
		"task_count": len(p.Tasks),
	})
	return p.Clone(), nil
}

func (s *projectStore) RenameProject(ref, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("renaming project: %w", ErrEmptyName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.findProject(ref)
	if err != nil {
		return fmt.Errorf("renaming project: %w", err)
	}
	if p.Name == name {
		return nil
	}
	p.Name = name
	s.persist()
	s.logEvent("project.renamed", map[string]any{"project_id": p.ID})
	return nil
}

// DeleteProject removes a project and every task it owns.
func (s *projectStore) DeleteProject(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.findProject(ref)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	id := p.ID
	taskCount := len(p.Tasks)
	for i := range s.projects {
		if s.projects[i].ID == id {
			s.projects = append(s.projects[:i], s.projects[i+1:]...)
			break
		}
	}
	s.persist()
	s.logEvent("project.deleted", map[string]any{"project_id": id, "task_count": taskCount})
	return nil
}

// AddTask creates a todo task with zero elapsed time at the front of the
// project's task list.
func (s *projectStore) AddTask(projectRef string, in NewTask) (models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Task{}, fmt.Errorf("adding task: %w", ErrEmptyTitle)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.findProject(projectRef)
	if err != nil {
		return models.Task{}, fmt.Errorf("adding task: %w", err)
	}
	id, err := s.ids.NewID()
	if err != nil {
		return models.Task{}, fmt.Errorf("adding task: %w", err)
	}
	t := models.Task{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      models.StatusTodo,
		CreatedAt:   s.now(),
		DueAt:       utcPtr(in.DueAt),
		Tags:        models.NormalizeTags(in.Tags),
	}
	p.Tasks = append([]models.Task{t}, p.Tasks...)
	s.persist()
	s.logEvent("task.created", map[string]any{"project_id": p.ID, "task_id": t.ID})
	return t.Clone(), nil
}

func (s *projectStore) UpdateTask(projectRef, taskRef string, upd TaskUpdate) (models.Task, error) {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return models.Task{}, fmt.Errorf("updating task: %w", ErrEmptyTitle)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, t, err := s.findTask(projectRef, taskRef)
	if err != nil {
		return models.Task{}, fmt.Errorf("updating task: %w", err)
	}
	if upd.Title != nil {
		t.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		t.Description = strings.TrimSpace(*upd.Description)
	}
	switch {
	case upd.ClearDue:
		t.DueAt = nil
	case upd.DueAt != nil:
		t.DueAt = utcPtr(upd.DueAt)
	}
	if upd.SetTags {
		t.Tags = models.NormalizeTags(upd.Tags)
	}
	s.persist()
	s.logEvent("task.updated", map[string]any{"project_id": p.ID, "task_id": t.ID})
	return t.Clone(), nil
}

func (s *projectStore) DeleteTask(projectRef, taskRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, t, err := s.findTask(projectRef, taskRef)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	taskID := t.ID
	idx := p.TaskIndex(taskID)
	p.Tasks = append(p.Tasks[:idx], p.Tasks[idx+1:]...)
	s.persist()
	s.logEvent("task.deleted", map[string]any{"project_id": p.ID, "task_id": taskID})
	return nil
}

func (s *projectStore) StartTask(projectRef, taskRef string) (models.Task, error) {
	return s.transition(projectRef, taskRef, "task.started", Start)
}

func (s *projectStore) PauseTask(projectRef, taskRef string) (models.Task, error) {
	return s.transition(projectRef, taskRef, "task.paused", Pause)
}

func (s *projectStore) CompleteTask(projectRef, taskRef string) (models.Task, error) {
	return s.transition(projectRef, taskRef, "task.completed", Complete)
}

// transition applies fn to the task at the store's current time. No-op
// transitions are neither persisted nor logged.
func (s *projectStore) transition(projectRef, taskRef, eventType string, fn func(*models.Task, time.Time) bool) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, t, err := s.findTask(projectRef, taskRef)
	if err != nil {
		return models.Task{}, fmt.Errorf("%s: %w", eventType, err)
	}
	if fn(t, s.now()) {
		s.persist()
		s.logEvent(eventType, map[string]any{
			"project_id": p.ID,
			"task_id":    t.ID,
			"elapsed_ms": Milliseconds(t.Elapsed),
		})
	}
	return t.Clone(), nil
}

// Import replaces the whole collection with the decoded document. On any
// decoding error the current collection is left untouched.
func (s *projectStore) Import(data []byte) error {
	if s.codec == nil {
		return fmt.Errorf("importing projects: no codec configured")
	}
	projects, err := s.codec.Decode(data)
	if err != nil {
		return fmt.Errorf("importing projects: %w: %v", ErrInvalidImport, err)
	}
	if err := validateImport(projects); err != nil {
		return fmt.Errorf("importing projects: %w: %v", ErrInvalidImport, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects = s.normalizeAll(projects)
	s.persist()
	s.logEvent("store.imported", map[string]any{"project_count": len(s.projects)})
	return nil
}

// Export encodes the current collection in the persisted format.
func (s *projectStore) Export() ([]byte, error) {
	if s.codec == nil {
		return nil, fmt.Errorf("exporting projects: no codec configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.codec.Encode(s.projects)
	if err != nil {
		return nil, fmt.Errorf("exporting projects: %w", err)
	}
	return data, nil
}

func (s *projectStore) Now() time.Time {
	return s.now()
}

func (s *projectStore) now() time.Time {
	return s.clock().UTC()
}

// persist rewrites the whole collection. Failures are logged and swallowed.
func (s *projectStore) persist() {
	if s.blobs == nil || s.codec == nil {
		return
	}
	data, err := s.codec.Encode(s.projects)
	if err != nil {
		s.logEvent("store.persist_failed", map[string]any{"key": s.key, "error": err.Error()})
		return
	}
	if err := s.blobs.Put(s.key, data); err != nil {
		s.logEvent("store.persist_failed", map[string]any{"key": s.key, "error": err.Error()})
	}
}

func (s *projectStore) logEvent(eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	_ = s.events.LogEvent(eventType, data) // Non-fatal: event log is best effort.
}

// findProject resolves ref by exact ID, then by case-insensitive name, then
// by unique ID prefix. It must be called with s.mu held.
func (s *projectStore) findProject(ref string) (*models.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("project %q: %w", ref, ErrProjectNotFound)
	}
	for i := range s.projects {
		if s.projects[i].ID == ref {
			return &s.projects[i], nil
		}
	}

	idx, err := uniqueMatch(len(s.projects), func(i int) bool {
		return strings.EqualFold(s.projects[i].Name, ref)
	})
	if err == nil && idx < 0 {
		idx, err = uniqueMatch(len(s.projects), func(i int) bool {
			return hasFoldPrefix(s.projects[i].ID, ref)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", ref, err)
	}
	if idx < 0 {
		return nil, fmt.Errorf("project %q: %w", ref, ErrProjectNotFound)
	}
	return &s.projects[idx], nil
}

// findTask resolves a task by exact ID or unique ID prefix inside the
// resolved project. It must be called with s.mu held.
func (s *projectStore) findTask(projectRef, taskRef string) (*models.Project, *models.Task, error) {
	p, err := s.findProject(projectRef)
	if err != nil {
		return nil, nil, err
	}
	taskRef = strings.TrimSpace(taskRef)
	if taskRef == "" {
		return nil, nil, fmt.Errorf("task %q: %w", taskRef, ErrTaskNotFound)
	}
	if i := p.TaskIndex(taskRef); i >= 0 {
		return p, &p.Tasks[i], nil
	}
	idx, err := uniqueMatch(len(p.Tasks), func(i int) bool {
		return hasFoldPrefix(p.Tasks[i].ID, taskRef)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("task %q: %w", taskRef, err)
	}
	if idx < 0 {
		return nil, nil, fmt.Errorf("task %q: %w", taskRef, ErrTaskNotFound)
	}
	return p, &p.Tasks[idx], nil
}

// Placeholders for blank titles and names found in stored data.
const (
	untitledProject = "Untitled project"
	untitledTask    = "Untitled task"
)

// validateImport rejects documents with repeated project IDs, repeated task
// IDs within a project, or blank names and titles.
func validateImport(projects []models.Project) error {
	projectIDs := make(map[string]bool, len(projects))
	for i := range projects {
		p := &projects[i]
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("project %d: %w", i, ErrEmptyName)
		}
		if p.ID != "" {
			if projectIDs[p.ID] {
				return fmt.Errorf("duplicate project id %q", p.ID)
			}
			projectIDs[p.ID] = true
		}
		taskIDs := make(map[string]bool, len(p.Tasks))
		for j := range p.Tasks {
			t := &p.Tasks[j]
			if strings.TrimSpace(t.Title) == "" {
				return fmt.Errorf("project %q task %d: %w", p.Name, j, ErrEmptyTitle)
			}
			if t.ID == "" {
				continue
			}
			if taskIDs[t.ID] {
				return fmt.Errorf("project %q: duplicate task id %q", p.Name, t.ID)
			}
			taskIDs[t.ID] = true
		}
	}
	return nil
}

// normalizeAll enforces the project and task invariants on decoded data.
// Missing or repeated IDs get fresh ones, blank names and titles get
// placeholders, and missing creation times default to now.
func (s *projectStore) normalizeAll(projects []models.Project) []models.Project {
	now := s.now()
	out := make([]models.Project, 0, len(projects))
	seenProjects := make(map[string]bool, len(projects))
	for _, p := range projects {
		p = p.Clone()
		if p.ID == "" || seenProjects[p.ID] {
			p.ID, _ = s.ids.NewID()
		}
		seenProjects[p.ID] = true
		if strings.TrimSpace(p.Name) == "" {
			p.Name = untitledProject
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.CreatedAt = p.CreatedAt.UTC()
		if p.Tasks == nil {
			p.Tasks = []models.Task{}
		}
		seenTasks := make(map[string]bool, len(p.Tasks))
		for i := range p.Tasks {
			t := &p.Tasks[i]
			if t.ID == "" || seenTasks[t.ID] {
				t.ID, _ = s.ids.NewID()
			}
			seenTasks[t.ID] = true
			if strings.TrimSpace(t.Title) == "" {
				t.Title = untitledTask
			}
			if t.CreatedAt.IsZero() {
				t.CreatedAt = p.CreatedAt
			}
			normalizeTask(t)
		}
		out = append(out, p)
	}
	return out
}

// normalizeTask makes ActiveStart and Status agree and canonicalises tags.
func normalizeTask(t *models.Task) {
	t.Tags = models.NormalizeTags(t.Tags)
	t.CreatedAt = t.CreatedAt.UTC()
	t.ActiveStart = utcPtr(t.ActiveStart)
	t.CompletedAt = utcPtr(t.CompletedAt)
	t.DueAt = utcPtr(t.DueAt)
	if t.Elapsed < 0 {
		t.Elapsed = 0
	}
	switch {
	case t.Status == models.StatusDone:
		t.ActiveStart = nil
	case t.ActiveStart != nil:
		t.Status = models.StatusInProgress
	default:
		t.Status = models.StatusTodo
	}
}

// uniqueMatch returns the single index satisfying match, -1 when none does,
// or ErrAmbiguousRef when several do.
func uniqueMatch(n int, match func(int) bool) (int, error) {
	found := -1
	for i := 0; i < n; i++ {
		if !match(i) {
			continue
		}
		if found >= 0 {
			return -1, ErrAmbiguousRef
		}
		found = i
	}
	return found, nil
}

// hasFoldPrefix reports whether s starts with prefix under Unicode case
// folding, comparing rune by rune.
func hasFoldPrefix(s, prefix string) bool {
	for _, pr := range prefix {
		if s == "" {
			return false
		}
		sr, size := utf8.DecodeRuneInString(s)
		if !strings.EqualFold(string(sr), string(pr)) {
			return false
		}
		s = s[size:]
	}
	return true
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func cloneProjects(projects []models.Project) []models.Project {
	out := make([]models.Project, len(projects))
	for i, p := range projects {
		out[i] = p.Clone()
	}
	return out
}

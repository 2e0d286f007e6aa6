package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/ptrack/pkg/models"
)

// memBlobs is an in-memory BlobStore.
type memBlobs struct {
	data    map[string][]byte
	puts    int
	failPut bool
	failGet bool
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: make(map[string][]byte)}
}

func (m *memBlobs) Get(key string) ([]byte, error) {
	if m.failGet {
		return nil, errors.New("disk on fire")
	}
	return m.data[key], nil
}

func (m *memBlobs) Put(key string, data []byte) error {
	if m.failPut {
		return errors.New("quota exceeded")
	}
	m.puts++
	m.data[key] = append([]byte(nil), data...)
	return nil
}

// jsonCodec is a minimal ProjectCodec over the models' own JSON tags.
type jsonCodec struct{}

func (jsonCodec) Decode(data []byte) ([]models.Project, error) {
	if len(data) == 0 || data[0] != '[' {
		return nil, errors.New("not an array")
	}
	var projects []models.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (jsonCodec) Encode(projects []models.Project) ([]byte, error) {
	return json.Marshal(projects)
}

// recordingEvents captures logged event types.
type recordingEvents struct {
	types []string
}

func (r *recordingEvents) LogEvent(eventType string, _ map[string]any) error {
	r.types = append(r.types, eventType)
	return nil
}

// seqIDs returns "id-1", "id-2", ...
type seqIDs struct{ n int }

func (s *seqIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("id-%d", s.n), nil
}

// manualClock is a clock tests advance explicitly.
type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time          { return c.now }
func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type storeFixture struct {
	store  ProjectStore
	blobs  *memBlobs
	events *recordingEvents
	clock  *manualClock
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	f := &storeFixture{
		blobs:  newMemBlobs(),
		events: &recordingEvents{},
		clock:  &manualClock{now: base},
	}
	f.store = NewProjectStore(StoreDeps{
		Blobs:     f.blobs,
		Codec:     jsonCodec{},
		Templates: NewTemplateCatalog(t.TempDir()),
		Clock:     f.clock.Now,
		IDs:       &seqIDs{},
		Events:    f.events,
	})
	f.store.Load()
	return f
}

func (f *storeFixture) lastEvent() string {
	if len(f.events.types) == 0 {
		return ""
	}
	return f.events.types[len(f.events.types)-1]
}

func TestProjectStore_LoadMissingIsEmpty(t *testing.T) {
	f := newStoreFixture(t)
	if n := len(f.store.Projects()); n != 0 {
		t.Fatalf("expected empty collection, got %d projects", n)
	}
}

func TestProjectStore_LoadCorruptIsEmpty(t *testing.T) {
	f := newStoreFixture(t)
	f.blobs.data[DefaultStorageKey] = []byte(`{not json`)
	f.store.Load()
	if n := len(f.store.Projects()); n != 0 {
		t.Fatalf("expected empty collection, got %d projects", n)
	}

	f.blobs.failGet = true
	f.store.Load()
	if n := len(f.store.Projects()); n != 0 {
		t.Fatalf("expected empty collection on read failure, got %d projects", n)
	}
}

func TestProjectStore_CreateProjectFromTemplate(t *testing.T) {
	f := newStoreFixture(t)

	p, err := f.store.CreateProject("  Vessel A ", "vessel")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.Name != "Vessel A" {
		t.Fatalf("expected trimmed name, got %q", p.Name)
	}
	if len(p.Tasks) != 6 {
		t.Fatalf("expected 6 seeded tasks, got %d", len(p.Tasks))
	}
	if p.Tasks[0].Title != "IT Ready Checklist Sent" {
		t.Fatalf("expected template order, got first title %q", p.Tasks[0].Title)
	}
	for _, task := range p.Tasks {
		if task.Status != models.StatusTodo || task.Elapsed != 0 || task.ActiveStart != nil {
			t.Fatalf("expected fresh todo task, got %+v", task)
		}
	}
	if f.blobs.puts != 1 {
		t.Fatalf("expected 1 persist, got %d", f.blobs.puts)
	}
	if f.lastEvent() != "project.created" {
		t.Fatalf("expected project.created event, got %q", f.lastEvent())
	}
}

func TestProjectStore_NewProjectsArePrepended(t *testing.T) {
	f := newStoreFixture(t)
	first, _ := f.store.CreateProject("First", "")
	second, _ := f.store.CreateProject("Second", BlankTemplateID)

	projects := f.store.Projects()
	if projects[0].ID != second.ID || projects[1].ID != first.ID {
		t.Fatalf("expected newest project first, got %s, %s", projects[0].Name, projects[1].Name)
	}
	if len(second.Tasks) != 0 {
		t.Fatalf("expected blank template to seed no tasks, got %d", len(second.Tasks))
	}
}

func TestProjectStore_CreateProjectErrors(t *testing.T) {
	f := newStoreFixture(t)
	if _, err := f.store.CreateProject("  ", ""); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if _, err := f.store.CreateProject("X", "missing"); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if f.blobs.puts != 0 {
		t.Fatalf("expected no persist on failure, got %d", f.blobs.puts)
	}
}

func TestProjectStore_AddTask(t *testing.T) {
	f := newStoreFixture(t)
	p, _ := f.store.CreateProject("P", "")
	dueAt := base.Add(24 * time.Hour)

	older, err := f.store.AddTask(p.ID, NewTask{Title: "Older"})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	task, err := f.store.AddTask(p.ID, NewTask{
		Title:       " Check uplink ",
		Description: "ping",
		DueAt:       &dueAt,
		Tags:        []string{"net", " net", "", "ops"},
	})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if task.Title != "Check uplink" || task.Status != models.StatusTodo || task.Elapsed != 0 {
		t.Fatalf("unexpected task %+v", task)
	}
	if len(task.Tags) != 2 || task.Tags[0] != "net" || task.Tags[1] != "ops" {
		t.Fatalf("expected tags [net ops], got %v", task.Tags)
	}

	got, _ := f.store.Project(p.ID)
	if got.Tasks[0].ID != task.ID || got.Tasks[1].ID != older.ID {
		t.Fatal("expected new task at the front")
	}
}

func TestProjectStore_AddTaskRejectsEmptyTitle(t *testing.T) {
	f := newStoreFixture(t)
	p, _ := f.store.CreateProject("P", "")
	puts := f.blobs.puts

	if _, err := f.store.AddTask(p.ID, NewTask{Title: "   "}); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if f.blobs.puts != puts {
		t.Fatal("expected no persist for rejected task")
	}
}

func TestProjectStore_UnknownRefs(t *testing.T) {
	f := newStoreFixture(t)
	p, _ := f.store.CreateProject("P", "")

	if _, err := f.store.AddTask("nope", NewTask{Title: "x"}); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
	if _, err := f.store.StartTask(p.ID, "nope"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if err := f.store.DeleteProject("nope"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestProjectStore_ResolvesNameAndPrefix(t *testing.T) {
	f := newStoreFixture(t)
	p, _ := f.store.CreateProject("Vessel A", "")

	byName, err := f.store.Project("vessel a")
	if err != nil || byName.ID != p.ID {
		t.Fatalf("expected lookup by name to find %s, got %v", p.ID, err)
	}
	byPrefix, err := f.store.Project("ID-1")
	if err != nil || byPrefix.ID != p.ID {
		t.Fatalf("expected lookup by prefix to find %s, got %v", p.ID, err)
	}

	f.store.CreateProject("Other", "")
	if _, err := f.store.Project("id-"); !errors.Is(err, ErrAmbiguousRef) {
		t.Fatalf("expected ErrAmbiguousRef, got %v", err)
	}
}

func TestProjectStore_TimingScenario(t *testing.T) {
	f := newStoreFixture(t)
	p, _ := f.store.CreateProject("P", "")
	task, _ := f.store.AddTask(p.ID, NewTask{Title: "Run"})

	f.store.StartTask(p.ID, task.ID)
	f.clock.Advance(60 * time.Second)
	paused, _ := f.store.PauseTask(p.ID, task.ID)
	if got := Milliseconds(paused.Elapsed); got != 60000 {
		t.Fatalf("expected 60000 ms, got %d", got)
	}

	f.clock.Advance(60 * time.Second)
	f.store.StartTask(p.ID, task.ID)
	f.clock.Advance(30 * time.Second)
	done, _ := f.store.CompleteTask(p.ID, task.ID)
	if got := Milliseconds(done.Elapsed); got != 90000 {
		t.Fatalf("expected 90000 ms, got %d", got)
	}
	if done.Status != models.StatusDone || done.CompletedAt == nil {
		t.Fatalf("expected completed task, got %+v", done)
	}
}

func TestProjectStore_NoOpTransitionsDoNotPersist(t *testing.T) {
	f := newStoreFixture(t)
	p, _ := f.store.CreateProject("P", "")
	task, _ := f.store.AddTask(p.ID, NewTask{Title: "Run"})
	f.store.CompleteTask(p.ID, task.ID)
	puts := f.blobs.puts
	events := len(f.events.types)

	f.store.StartTask(p.ID, task.ID)
	f.store.PauseTask(p.ID, task.ID)
	f.clock.Advance(time.Hour)
	again, err := f.store.CompleteTask(p.ID, task.ID)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if f.blobs.puts != puts || len(f.events.types) != events {
		t.Fatal("expected no persist or event for no-op transitions")
	}
	if !again.CompletedAt.Equal(base) {
		t.Fatalf("expected CompletedAt to stay %v, got %v", base, *again.CompletedAt)
	}
}

func TestProjectStore_PersistFailureIsSwallowed(t *testing.T) {
	f := newStoreFixture(t)
	f.blobs.failPut = true

	p, err := f.store.CreateProject("P", "")
	if err != nil {
		t.Fatalf("expected no error on persist failure, got %v", err)
	}
	if f.lastEvent() != "project.created" {
		t.Fatalf("expected project.created last, got %q", f.lastEvent())
	}
	found := false
	for _, e := range f.events.types {
		if e == "store.persist_failed" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a store.persist_failed event")
	}
	if _, err := f.store.Project(p.ID); err != nil {
		t.Fatalf("expected in-memory state to keep the project, got %v", err)
	}
}

func TestProjectStore_UpdateTask(t *testing.T) {
	f := newStoreFixture(t)
	p, _ := f.store.CreateProject("P", "")
	dueAt := base.Add(time.Hour)
	task, _ := f.store.AddTask(p.ID, NewTask{Title: "Old", DueAt: &dueAt, Tags: []string{"a"}})

	title := "New"
	updated, err := f.store.UpdateTask(p.ID, task.ID, TaskUpdate{Title: &title, ClearDue: true, SetTags: true, Tags: []string{"b", "b"}})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Title != "New" || updated.DueAt != nil {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "b" {
		t.Fatalf("expected tags [b], got %v", updated.Tags)
	}

	empty := " "
	if _, err := f.store.UpdateTask(p.ID, task.ID, TaskUpdate{Title: &empty}); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestProjectStore_RenameAndDelete(t *testing.T) {
	f := newStoreFixture(t)
	p, _ := f.store.CreateProject("P", "vessel")

	if err := f.store.RenameProject(p.ID, "Renamed"); err != nil {
		t.Fatalf("RenameProject: %v", err)
	}
	got, _ := f.store.Project(p.ID)
	if got.Name != "Renamed" {
		t.Fatalf("expected Renamed, got %q", got.Name)
	}

	if err := f.store.DeleteTask(p.ID, got.Tasks[0].ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	got, _ = f.store.Project(p.ID)
	if len(got.Tasks) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(got.Tasks))
	}

	if err := f.store.DeleteProject(p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if len(f.store.Projects()) != 0 {
		t.Fatal("expected project to be gone")
	}
	if f.lastEvent() != "project.deleted" {
		t.Fatalf("expected project.deleted, got %q", f.lastEvent())
	}
}

func TestProjectStore_ImportRejectsNonArray(t *testing.T) {
	f := newStoreFixture(t)
	p, _ := f.store.CreateProject("Keep", "")
	puts := f.blobs.puts

	err := f.store.Import([]byte(`{"id":"x"}`))
	if !errors.Is(err, ErrInvalidImport) {
		t.Fatalf("expected ErrInvalidImport, got %v", err)
	}
	projects := f.store.Projects()
	if len(projects) != 1 || projects[0].ID != p.ID {
		t.Fatal("expected collection unchanged after failed import")
	}
	if f.blobs.puts != puts {
		t.Fatal("expected no persist after failed import")
	}
}

func TestProjectStore_ImportNormalizesTasks(t *testing.T) {
	f := newStoreFixture(t)
	f.store.CreateProject("Replaced", "")

	start := base.Add(-time.Minute)
	doc, _ := json.Marshal([]models.Project{{
		ID:   "imp",
		Name: "Imported",
		Tasks: []models.Task{
			{ID: "done-running", Title: "A", Status: models.StatusDone, ActiveStart: &start},
			{ID: "todo-running", Title: "B", Status: models.StatusTodo, ActiveStart: &start},
			{ID: "stale", Title: "C", Status: models.StatusInProgress},
			{Title: "D", Status: "weird", Tags: []string{" x ", "x"}},
		},
	}})

	if err := f.store.Import(doc); err != nil {
		t.Fatalf("Import: %v", err)
	}
	projects := f.store.Projects()
	if len(projects) != 1 || projects[0].ID != "imp" {
		t.Fatalf("expected only the imported project, got %d", len(projects))
	}
	tasks := projects[0].Tasks
	if tasks[0].Status != models.StatusDone || tasks[0].ActiveStart != nil {
		t.Fatalf("expected done task without ActiveStart, got %+v", tasks[0])
	}
	if tasks[1].Status != models.StatusInProgress {
		t.Fatalf("expected running task to be in_progress, got %s", tasks[1].Status)
	}
	if tasks[2].Status != models.StatusTodo {
		t.Fatalf("expected in_progress without ActiveStart to become todo, got %s", tasks[2].Status)
	}
	if tasks[3].ID == "" || tasks[3].Status != models.StatusTodo || len(tasks[3].Tags) != 1 {
		t.Fatalf("expected normalized task, got %+v", tasks[3])
	}
	if f.lastEvent() != "store.imported" {
		t.Fatalf("expected store.imported, got %q", f.lastEvent())
	}
}

func TestProjectStore_PersistedStateReloads(t *testing.T) {
	f := newStoreFixture(t)
	p, _ := f.store.CreateProject("P", "vessel")
	f.store.StartTask(p.ID, p.Tasks[0].ID)

	reloaded := NewProjectStore(StoreDeps{Blobs: f.blobs, Codec: jsonCodec{}, Clock: f.clock.Now})
	reloaded.Load()

	got, err := reloaded.Project(p.ID)
	if err != nil {
		t.Fatalf("expected project after reload, got %v", err)
	}
	if len(got.Tasks) != 6 || got.Tasks[0].Status != models.StatusInProgress {
		t.Fatalf("expected running first task after reload, got %+v", got.Tasks[0])
	}
}

func TestProjectStore_ExportMatchesState(t *testing.T) {
	f := newStoreFixture(t)
	f.store.CreateProject("P", "data-collection")

	data, err := f.store.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var projects []models.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}
	if len(projects) != 1 || len(projects[0].Tasks) != 8 {
		t.Fatalf("expected 1 project with 8 tasks, got %+v", projects)
	}
}

func TestProjectStore_ReturnedValuesAreCopies(t *testing.T) {
	f := newStoreFixture(t)
	p, _ := f.store.CreateProject("P", "vessel")
	p.Tasks[0].Title = "mutated"

	got, _ := f.store.Project(p.ID)
	if got.Tasks[0].Title == "mutated" {
		t.Fatal("expected store state to be isolated from returned values")
	}
}

func TestProjectStore_ImportRejectsBrokenInvariants(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"duplicate project id", `[{"id":"p1","name":"A"},{"id":"p1","name":"B"}]`, nil},
		{"duplicate task id", `[{"id":"p1","name":"A","tasks":[{"id":"t1","title":"x"},{"id":"t1","title":"y"}]}]`, nil},
		{"blank title", `[{"id":"p1","name":"A","tasks":[{"id":"t1","title":"  "}]}]`, ErrEmptyTitle},
		{"blank name", `[{"id":"p1","name":""}]`, ErrEmptyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStoreFixture(t)
			keep, _ := f.store.CreateProject("Keep", "")
			puts := f.blobs.puts

			err := f.store.Import([]byte(tt.doc))
			if !errors.Is(err, ErrInvalidImport) {
				t.Fatalf("expected ErrInvalidImport, got %v", err)
			}
			if tt.want != nil && !strings.Contains(err.Error(), tt.want.Error()) {
				t.Errorf("expected error to mention %q, got %v", tt.want, err)
			}
			projects := f.store.Projects()
			if len(projects) != 1 || projects[0].ID != keep.ID {
				t.Fatalf("expected collection unchanged, got %+v", projects)
			}
			if f.blobs.puts != puts {
				t.Fatal("expected no persist after rejected import")
			}
		})
	}
}

func TestProjectStore_LoadRepairsDuplicatesAndBlanks(t *testing.T) {
	f := newStoreFixture(t)
	f.blobs.data[DefaultStorageKey] = []byte(`[
		{"id":"p1","name":"A","tasks":[{"id":"t1","title":"x"},{"id":"t1","title":""}]},
		{"id":"p1","name":" "}
	]`)
	f.store.Load()

	projects := f.store.Projects()
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	ids := map[string]bool{}
	for _, p := range projects {
		if ids[p.ID] {
			t.Fatalf("project id %q loaded twice", p.ID)
		}
		ids[p.ID] = true
	}
	if !ids["p1"] {
		t.Fatal("expected the first p1 to keep its id")
	}

	first, err := f.store.Project("p1")
	if err != nil {
		t.Fatalf("Project(p1): %v", err)
	}
	if first.Name != "A" || len(first.Tasks) != 2 {
		t.Fatalf("expected project A with 2 tasks, got %+v", first)
	}
	if first.Tasks[0].ID == first.Tasks[1].ID {
		t.Fatalf("expected distinct task ids, got %q twice", first.Tasks[0].ID)
	}
	if first.Tasks[1].Title != untitledTask {
		t.Errorf("expected placeholder title, got %q", first.Tasks[1].Title)
	}

	if err := f.store.DeleteProject("p1"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	rest := f.store.Projects()
	if len(rest) != 1 || rest[0].ID == "p1" || rest[0].Name != untitledProject {
		t.Fatalf("expected only the renamed duplicate to remain, got %+v", rest)
	}
}

func TestHasFoldPrefix(t *testing.T) {
	tests := []struct {
		s, prefix string
		want      bool
	}{
		{"abc-123", "ABC", true},
		{"abc", "abcd", false},
		{"ÉTÉ-1", "été", true},
		{"été-1", "ÉT", true},
		{"étè", "été", false},
		{"éx", "É", true},
		{"anything", "", true},
	}
	for _, tt := range tests {
		if got := hasFoldPrefix(tt.s, tt.prefix); got != tt.want {
			t.Errorf("hasFoldPrefix(%q, %q) = %v, want %v", tt.s, tt.prefix, got, tt.want)
		}
	}
}

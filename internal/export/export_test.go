package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valter-silva-au/ptrack/internal/core"
	"github.com/valter-silva-au/ptrack/internal/storage"
	"github.com/xuri/excelize/v2"
)

type memBlobs map[string][]byte

func (m memBlobs) Get(key string) ([]byte, error) { return m[key], nil }

func (m memBlobs) Put(key string, data []byte) error {
	m[key] = append([]byte(nil), data...)
	return nil
}

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

// newStore returns a store with one project: "Write docs" completed after a
// 90 minute session and "Deploy" running for 30 minutes, tagged ops and prod.
func newStore(t *testing.T) core.ProjectStore {
	t.Helper()
	clock := now.Add(-2 * time.Hour)
	store := core.NewProjectStore(core.StoreDeps{
		Blobs: memBlobs{},
		Codec: storage.JSONCodec{},
		Clock: func() time.Time { return clock },
	})

	p, err := store.CreateProject("Launch", "")
	require.NoError(t, err)
	docs, err := store.AddTask(p.ID, core.NewTask{Title: "Write docs", Description: "user guide"})
	require.NoError(t, err)
	deploy, err := store.AddTask(p.ID, core.NewTask{Title: "Deploy", Tags: []string{"ops", "prod"}})
	require.NoError(t, err)

	_, err = store.StartTask(p.ID, docs.ID)
	require.NoError(t, err)
	clock = clock.Add(90 * time.Minute)
	_, err = store.CompleteTask(p.ID, docs.ID)
	require.NoError(t, err)
	_, err = store.StartTask(p.ID, deploy.ID)
	require.NoError(t, err)
	clock = now
	return store
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatXLSX, "xlsx": FormatXLSX, " JSON ": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", in)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	local := time.Date(2024, 6, 3, 23, 30, 0, 0, time.FixedZone("AEST", -10*3600))
	assert.Equal(t, "project-tracker-2024-06-04.xlsx", FileName(FormatXLSX, local))
	assert.Equal(t, "project-tracker-2024-06-03.json", FileName(FormatJSON, now))
}

func TestWriteWorkbook(t *testing.T) {
	store := newStore(t)

	var buf bytes.Buffer
	require.NoError(t, NewExporter(store).WriteTo(&buf, FormatXLSX))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetProjects, SheetTasks, SheetMetrics}, f.GetSheetList())

	projects, err := f.GetRows(SheetProjects)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, projectsHeader, projects[0])
	assert.Equal(t, []string{"Launch", "2", "1", "50"}, []string{projects[1][1], projects[1][3], projects[1][4], projects[1][5]})

	tasks, err := f.GetRows(SheetTasks)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, tasksHeader, tasks[0])

	// Newest task first: Deploy is running since 30 minutes before now.
	deploy := tasks[1]
	assert.Equal(t, "1", deploy[2])
	assert.Equal(t, "Deploy", deploy[4])
	assert.Equal(t, "in_progress", deploy[6])
	assert.NotEmpty(t, deploy[8])
	assert.Equal(t, "0", deploy[9])
	assert.Equal(t, "ops, prod", deploy[12])
	assert.Equal(t, "1800000", deploy[13])
	assert.Equal(t, "30m 0s", deploy[14])

	docs := tasks[2]
	assert.Equal(t, "2", docs[2])
	assert.Equal(t, "Write docs", docs[4])
	assert.Equal(t, "user guide", docs[5])
	assert.Equal(t, "done", docs[6])
	assert.Equal(t, "5400000", docs[9])
	assert.Equal(t, "1h 30m 0s", docs[14])

	metrics, err := f.GetRows(SheetMetrics)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, metricsHeader, metrics[0])
	assert.Equal(t, []string{"2", "1", "50", "5400000", "5400000", "0"}, metrics[1][2:])
}

func TestWriteWorkbookEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, nil, now))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetTasks)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestToDirJSON(t *testing.T) {
	store := newStore(t)
	dir := filepath.Join(t.TempDir(), "out")

	path, err := NewExporter(store).ToDir(dir, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "project-tracker-2024-06-03.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Launch", records[0]["name"])

	// The snapshot is importable as-is.
	other := core.NewProjectStore(core.StoreDeps{Blobs: memBlobs{}, Codec: storage.JSONCodec{}})
	require.NoError(t, other.Import(data))
	assert.Len(t, other.Projects(), 1)
}

func TestToDirXLSX(t *testing.T) {
	store := newStore(t)
	dir := t.TempDir()

	path, err := NewExporter(store).ToDir(dir, FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "project-tracker-2024-06-03.xlsx", filepath.Base(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 3)
}

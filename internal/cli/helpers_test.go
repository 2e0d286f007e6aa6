package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/valter-silva-au/ptrack/internal/core"
	"github.com/valter-silva-au/ptrack/internal/storage"
)

// memBlobs is an in-memory core.BlobStore.
type memBlobs map[string][]byte

func (m memBlobs) Get(key string) ([]byte, error) { return m[key], nil }

func (m memBlobs) Put(key string, data []byte) error {
	m[key] = append([]byte(nil), data...)
	return nil
}

var testNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

// testClock is a clock tests advance explicitly.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// useTestStore swaps the package-level services for a fresh in-memory store
// and restores them when the test ends.
func useTestStore(t *testing.T) *testClock {
	t.Helper()
	clock := &testClock{now: testNow}
	tmpl := core.NewTemplateCatalog(t.TempDir())
	store := core.NewProjectStore(core.StoreDeps{
		Blobs:     memBlobs{},
		Codec:     storage.JSONCodec{},
		Templates: tmpl,
		Clock:     clock.Now,
	})

	origStore, origTemplates, origConfig, origBase := Store, Templates, Config, BasePath
	origAlerts, origMetrics, origNotifier := AlertEngine, MetricsCalc, Notifier
	Store, Templates, Config, BasePath = store, tmpl, nil, t.TempDir()
	t.Cleanup(func() {
		Store, Templates, Config, BasePath = origStore, origTemplates, origConfig, origBase
		AlertEngine, MetricsCalc, Notifier = origAlerts, origMetrics, origNotifier
	})
	return clock
}

// runCmd invokes cmd.RunE with args and returns what it wrote.
func runCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	defer cmd.SetOut(nil)
	err := cmd.RunE(cmd, args)
	return buf.String(), err
}

// setFlag sets a flag for the duration of the test and restores its
// default and changed state afterwards.
func setFlag(t *testing.T, cmd *cobra.Command, name, value string) {
	t.Helper()
	f := cmd.Flags().Lookup(name)
	if f == nil {
		t.Fatalf("flag %q not defined on %s", name, cmd.Name())
	}
	if err := cmd.Flags().Set(name, value); err != nil {
		t.Fatalf("setting --%s: %v", name, err)
	}
	t.Cleanup(func() {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

// mustCreateProject creates a project and returns its ID.
func mustCreateProject(t *testing.T, name string) string {
	t.Helper()
	p, err := Store.CreateProject(name, core.BlankTemplateID)
	if err != nil {
		t.Fatalf("creating project %q: %v", name, err)
	}
	return p.ID
}

// mustAddTask adds a task and returns its ID.
func mustAddTask(t *testing.T, projectID string, in core.NewTask) string {
	t.Helper()
	task, err := Store.AddTask(projectID, in)
	if err != nil {
		t.Fatalf("adding task %q: %v", in.Title, err)
	}
	return task.ID
}

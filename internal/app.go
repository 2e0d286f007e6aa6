// Package internal provides the App struct that wires all components of
// ptrack together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/ptrack/internal/cli"
	"github.com/valter-silva-au/ptrack/internal/core"
	"github.com/valter-silva-au/ptrack/internal/observability"
	"github.com/valter-silva-au/ptrack/internal/storage"
	"github.com/valter-silva-au/ptrack/pkg/models"
)

// EventLogFileName is the JSONL event log kept in the base path.
const EventLogFileName = ".ptrack_events.jsonl"

// App holds all service dependencies of ptrack.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig

	// Storage layer
	Blobs *storage.FileBlobStore

	// Core services
	Templates core.TemplateCatalog
	Store     core.ProjectStore

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components of ptrack. basePath is the
// directory holding .ptrackconfig, the data directory and the event log.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFileName))
	if err != nil {
		// Non-fatal: disable the event log if it can't be created.
		app.EventLog = nil
	}
	thresholds := observability.DefaultAlertThresholds()
	if cfg.Alerts.DueSoonHours > 0 {
		thresholds.DueSoonHours = cfg.Alerts.DueSoonHours
	}
	if cfg.Alerts.LongRunningHours > 0 {
		thresholds.LongRunningHours = cfg.Alerts.LongRunningHours
	}
	app.AlertEngine = observability.NewAlertEngine(app.EventLog, thresholds)
	if app.EventLog != nil {
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL)
	}

	// --- Templates ---
	app.Templates = core.NewTemplateCatalog(basePath)
	if err := app.Templates.Load(); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	// --- Project store ---
	app.Blobs = storage.NewFileBlobStore(core.ResolvePath(basePath, cfg.Storage.Dir))
	var events core.EventLogger
	if app.EventLog != nil {
		events = core.EventLoggerFunc(observability.Recorder(app.EventLog, core.SystemClock))
	}
	app.Store = core.NewProjectStore(core.StoreDeps{
		Key:       cfg.Storage.Key,
		Blobs:     app.Blobs,
		Codec:     storage.JSONCodec{},
		Templates: app.Templates,
		Events:    events,
	})
	app.Store.Load()

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Store = app.Store
	cli.Templates = app.Templates

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the ptrack home directory. It checks the
// PTRACK_HOME env var, then walks up from the current directory looking for
// .ptrackconfig, then falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("PTRACK_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

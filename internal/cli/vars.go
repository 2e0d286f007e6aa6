package cli

import (
	"github.com/valter-silva-au/ptrack/internal/core"
	"github.com/valter-silva-au/ptrack/internal/observability"
	"github.com/valter-silva-au/ptrack/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	// BasePath is the ptrack home directory.
	BasePath string
	// Config is the loaded .ptrackconfig.
	Config *models.GlobalConfig

	Store     core.ProjectStore
	Templates core.TemplateCatalog
)

// Observability service instances. They stay nil when the event log could
// not be opened.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)

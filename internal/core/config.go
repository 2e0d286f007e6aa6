// Package core contains the business logic for ptrack: the task timing
// engine, project metrics, task filtering, the template catalog, the
// project store and configuration.
package core

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/ptrack/pkg/models"
	"golang.org/x/text/language"
)

// ConfigFileName is the name of the YAML configuration file in the base path.
const ConfigFileName = ".ptrackconfig"

// ConfigurationManager defines the interface for loading and validating the
// .ptrackconfig file.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	// basePath is the root directory where .ptrackconfig resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with defaults.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		Storage: models.StorageConfig{
			Key: DefaultStorageKey,
			Dir: "data",
		},
		Locale:     "en",
		ExportDir:  ".",
		ServerAddr: ":8787",
		Database: models.DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "ptrack.db",
		},
		Alerts: models.AlertConfig{
			DueSoonHours:     24,
			LongRunningHours: 8,
		},
	}
}

// LoadGlobalConfig reads .ptrackconfig from the base path. If the file does
// not exist, defaults are returned.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("storage.key", cfg.Storage.Key)
	v.SetDefault("storage.dir", cfg.Storage.Dir)
	v.SetDefault("locale", cfg.Locale)
	v.SetDefault("export.dir", cfg.ExportDir)
	v.SetDefault("server.addr", cfg.ServerAddr)
	v.SetDefault("database.driver", cfg.Database.Driver)
	v.SetDefault("database.dsn", cfg.Database.DSN)
	v.SetDefault("alerts.due_soon_hours", cfg.Alerts.DueSoonHours)
	v.SetDefault("alerts.long_running_hours", cfg.Alerts.LongRunningHours)
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.slack.webhook_url", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	cfg.Storage.Key = v.GetString("storage.key")
	cfg.Storage.Dir = v.GetString("storage.dir")
	cfg.Locale = v.GetString("locale")
	cfg.ExportDir = v.GetString("export.dir")
	cfg.ServerAddr = v.GetString("server.addr")
	cfg.Database.Driver = v.GetString("database.driver")
	cfg.Database.DSN = v.GetString("database.dsn")
	cfg.Alerts.DueSoonHours = v.GetInt("alerts.due_soon_hours")
	cfg.Alerts.LongRunningHours = v.GetInt("alerts.long_running_hours")
	cfg.Notifications.Enabled = v.GetBool("notifications.enabled")
	cfg.Notifications.Slack.WebhookURL = v.GetString("notifications.slack.webhook_url")

	return cfg, nil
}

var validDrivers = map[string]bool{
	"sqlite3":  true,
	"postgres": true,
}

// ValidateConfig checks the configuration for invalid values and reports
// every problem found in a single error.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if strings.TrimSpace(cfg.Storage.Key) == "" {
		errs = append(errs, "storage.key must not be empty")
	}
	if strings.TrimSpace(cfg.Storage.Dir) == "" {
		errs = append(errs, "storage.dir must not be empty")
	}
	if _, err := language.Parse(cfg.Locale); err != nil {
		errs = append(errs, fmt.Sprintf("locale %q is not a valid BCP 47 tag", cfg.Locale))
	}
	if !validDrivers[cfg.Database.Driver] {
		errs = append(errs, fmt.Sprintf(
			"database.driver %q is invalid, must be one of: sqlite3, postgres",
			cfg.Database.Driver,
		))
	}
	if cfg.Alerts.DueSoonHours < 0 {
		errs = append(errs, fmt.Sprintf("alerts.due_soon_hours must be non-negative, got %d", cfg.Alerts.DueSoonHours))
	}
	if cfg.Alerts.LongRunningHours < 0 {
		errs = append(errs, fmt.Sprintf("alerts.long_running_hours must be non-negative, got %d", cfg.Alerts.LongRunningHours))
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL == "" {
		errs = append(errs, "notifications.slack.webhook_url must be set when notifications are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ResolveLocale parses a BCP 47 tag, falling back to English.
func ResolveLocale(tag string) language.Tag {
	t, err := language.Parse(tag)
	if err != nil {
		return language.English
	}
	return t
}

// ResolvePath returns p unchanged when absolute, else joined to basePath.
func ResolvePath(basePath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(basePath, p)
}

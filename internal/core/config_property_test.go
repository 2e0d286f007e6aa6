package core

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// configValues are the settings written to a generated .ptrackconfig.
type configValues struct {
	StorageKey       string
	StorageDir       string
	Locale           string
	ExportDir        string
	Driver           string
	DueSoonHours     int
	LongRunningHours int
}

func genConfigValues(t *rapid.T) configValues {
	return configValues{
		StorageKey:       rapid.StringMatching(`[a-z][a-z0-9-]{0,19}`).Draw(t, "storageKey"),
		StorageDir:       rapid.StringMatching(`[a-z]{1,12}`).Draw(t, "storageDir"),
		Locale:           rapid.SampledFrom([]string{"en", "fr", "de", "pt-BR", "ja", "sv"}).Draw(t, "locale"),
		ExportDir:        rapid.StringMatching(`[a-z]{1,12}`).Draw(t, "exportDir"),
		Driver:           rapid.SampledFrom([]string{"sqlite3", "postgres"}).Draw(t, "driver"),
		DueSoonHours:     rapid.IntRange(0, 500).Draw(t, "dueSoonHours"),
		LongRunningHours: rapid.IntRange(0, 500).Draw(t, "longRunningHours"),
	}
}

func (v configValues) yaml() string {
	var b strings.Builder
	fmt.Fprintf(&b, "storage:\n  key: %q\n  dir: %q\n", v.StorageKey, v.StorageDir)
	fmt.Fprintf(&b, "locale: %q\n", v.Locale)
	fmt.Fprintf(&b, "export:\n  dir: %q\n", v.ExportDir)
	fmt.Fprintf(&b, "database:\n  driver: %q\n", v.Driver)
	fmt.Fprintf(&b, "alerts:\n  due_soon_hours: %d\n  long_running_hours: %d\n", v.DueSoonHours, v.LongRunningHours)
	return b.String()
}

// Feature: ptrack, Property 5: Configuration File Values Override Defaults
// *For any* valid set of values written to .ptrackconfig, LoadGlobalConfig
// SHALL return exactly those values and ValidateConfig SHALL accept them.
func TestProperty5_ConfigurationFileOverridesDefaults(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		vals := genConfigValues(rt)
		dir := t.TempDir()
		writeFile(t, dir, ConfigFileName, vals.yaml())

		cm := NewConfigurationManager(dir)
		cfg, err := cm.LoadGlobalConfig()
		if err != nil {
			rt.Fatalf("LoadGlobalConfig failed: %v", err)
		}

		if cfg.Storage.Key != vals.StorageKey {
			rt.Errorf("Storage.Key: got %q, want %q", cfg.Storage.Key, vals.StorageKey)
		}
		if cfg.Storage.Dir != vals.StorageDir {
			rt.Errorf("Storage.Dir: got %q, want %q", cfg.Storage.Dir, vals.StorageDir)
		}
		if cfg.Locale != vals.Locale {
			rt.Errorf("Locale: got %q, want %q", cfg.Locale, vals.Locale)
		}
		if cfg.ExportDir != vals.ExportDir {
			rt.Errorf("ExportDir: got %q, want %q", cfg.ExportDir, vals.ExportDir)
		}
		if cfg.Database.Driver != vals.Driver {
			rt.Errorf("Database.Driver: got %q, want %q", cfg.Database.Driver, vals.Driver)
		}
		if cfg.Alerts.DueSoonHours != vals.DueSoonHours {
			rt.Errorf("Alerts.DueSoonHours: got %d, want %d", cfg.Alerts.DueSoonHours, vals.DueSoonHours)
		}
		if cfg.Alerts.LongRunningHours != vals.LongRunningHours {
			rt.Errorf("Alerts.LongRunningHours: got %d, want %d", cfg.Alerts.LongRunningHours, vals.LongRunningHours)
		}

		// Keys absent from the file keep their defaults.
		if cfg.ServerAddr != DefaultGlobalConfig().ServerAddr {
			rt.Errorf("ServerAddr: got %q, want default %q", cfg.ServerAddr, DefaultGlobalConfig().ServerAddr)
		}

		if err := cm.ValidateConfig(cfg); err != nil {
			rt.Errorf("ValidateConfig rejected valid values: %v", err)
		}
	})
}

// Feature: ptrack, Property 6: Negative Alert Windows Are Rejected
// *For any* configuration whose alert windows include a negative value,
// ValidateConfig SHALL return an error naming each offending key.
func TestProperty6_NegativeAlertWindowsRejected(t *testing.T) {
	cm := NewConfigurationManager(t.TempDir())

	rapid.Check(t, func(rt *rapid.T) {
		cfg := DefaultGlobalConfig()
		dueNegative := rapid.Bool().Draw(rt, "dueNegative")
		runningNegative := !dueNegative || rapid.Bool().Draw(rt, "runningNegative")
		if dueNegative {
			cfg.Alerts.DueSoonHours = -rapid.IntRange(1, 1000).Draw(rt, "due")
		}
		if runningNegative {
			cfg.Alerts.LongRunningHours = -rapid.IntRange(1, 1000).Draw(rt, "running")
		}

		err := cm.ValidateConfig(cfg)
		if err == nil {
			rt.Fatal("expected validation error for negative alert window")
		}
		if dueNegative && !strings.Contains(err.Error(), "alerts.due_soon_hours") {
			rt.Errorf("expected alerts.due_soon_hours in error, got %v", err)
		}
		if runningNegative && !strings.Contains(err.Error(), "alerts.long_running_hours") {
			rt.Errorf("expected alerts.long_running_hours in error, got %v", err)
		}
	})
}

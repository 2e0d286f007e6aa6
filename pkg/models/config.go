package models

// StorageConfig locates the persisted project blob.
type StorageConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// DatabaseConfig selects the relational store used by the remote CRUD server.
type DatabaseConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// AlertConfig holds the alert windows, in hours.
type AlertConfig struct {
	DueSoonHours     int `yaml:"due_soon_hours" mapstructure:"due_soon_hours"`
	LongRunningHours int `yaml:"long_running_hours" mapstructure:"long_running_hours"`
}

// SlackConfig holds the Slack webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// NotificationConfig controls whether alerts are pushed to external channels.
type NotificationConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Slack   SlackConfig `yaml:"slack" mapstructure:"slack"`
}

// GlobalConfig holds system-wide settings read from .ptrackconfig via Viper.
type GlobalConfig struct {
	Storage       StorageConfig      `yaml:"storage" mapstructure:"storage"`
	Locale        string             `yaml:"locale" mapstructure:"locale"`
	ExportDir     string             `yaml:"export_dir" mapstructure:"export_dir"`
	ServerAddr    string             `yaml:"server_addr" mapstructure:"server_addr"`
	Database      DatabaseConfig     `yaml:"database" mapstructure:"database"`
	Alerts        AlertConfig        `yaml:"alerts" mapstructure:"alerts"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
}

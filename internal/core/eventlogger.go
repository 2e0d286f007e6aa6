package core

// EventLogger receives the store's mutation events. Implementations decide
// where they go; the store ignores their errors.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// EventLoggerFunc lets a plain function serve as an EventLogger.
type EventLoggerFunc func(eventType string, data map[string]any) error

// LogEvent calls f.
func (f EventLoggerFunc) LogEvent(eventType string, data map[string]any) error {
	return f(eventType, data)
}

package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator defines the interface for generating unique project and task IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// uuidGenerator implements IDGenerator with time-ordered UUIDv7 values.
type uuidGenerator struct{}

// NewIDGenerator creates an IDGenerator that produces UUIDv7 strings.
func NewIDGenerator() IDGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating id: %w", err)
	}
	return id.String(), nil
}

// Clock supplies the current time. Tests inject a fixed or stepping clock.
type Clock func() time.Time

// SystemClock returns the wall-clock time in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// NormalizeID trims whitespace and lower-cases an ID so that prefixes typed
// on the command line match stored UUIDs.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

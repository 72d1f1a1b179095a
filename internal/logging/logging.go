// Package logging builds the process loggers. Application code logs through
// slog; the database layer and the command dispatcher log through zerolog.
// Both can mirror records to Graylog over GELF.
package logging

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, service string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", service, sessionStart.UTC().Format("20060102_150405")),
	)
}

// NewGraylogWriter dials the GELF UDP endpoint at address.
func NewGraylogWriter(address, facility string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("dial graylog %s: %w", address, err)
	}
	w.Facility = facility
	return w, nil
}

func normalizeLevel(level string) string {
	return strings.ToUpper(strings.TrimSpace(level))
}

package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kingrea/waypoint/internal/config"
)

// Logger appends timestamped lines to .waypoint/logs/waypoint.log so users
// can inspect routing behavior after a session ends. All methods are safe to
// call on a nil Logger, which makes loggers optional throughout the engine.
type Logger struct {
	file *os.File
}

// New creates (or reuses) the log file for the current project directory.
func New(projectDir string) (*Logger, error) {
	logDir := filepath.Join(projectDir, config.WaypointDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "waypoint.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{file: f}, nil
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Printf writes a single timestamped line to the log file.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	line = strings.TrimRight(line, "\n")
	timestamp := time.Now().Format(time.RFC3339)
	fmt.Fprintf(l.file, "[%s] %s\n", timestamp, line)
}

// Infof logs an informational line.
func (l *Logger) Infof(format string, args ...any) {
	l.Printf("INFO "+format, args...)
}

// Warnf logs a warning line. Registration-time contract issues and absorbed
// decision-time failures land here rather than being surfaced as errors.
func (l *Logger) Warnf(format string, args ...any) {
	l.Printf("WARN "+format, args...)
}

// Errorf logs an error line.
func (l *Logger) Errorf(format string, args ...any) {
	l.Printf("ERROR "+format, args...)
}

// Package logging sets up the slog logger shared by the folio binaries: text
// or JSON records to stdout and to a daily rotating file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v10"
)

const defaultPrefix = "folio"

// DefaultRetentionDays is how long rotated log files are kept.
const DefaultRetentionDays = 14

// envOptions are the logging overrides read from the environment.
type envOptions struct {
	Level     string `env:"FOLIO_LOG_LEVEL"`
	Format    string `env:"FOLIO_LOG_FORMAT" envDefault:"text"`
	Retention int    `env:"FOLIO_LOG_RETENTION_DAYS" envDefault:"14"`
}

func loadEnvOptions() envOptions {
	var opts envOptions
	if err := env.Parse(&opts); err != nil {
		return envOptions{Format: "text", Retention: DefaultRetentionDays}
	}
	return opts
}

// DailyWriter writes logs into a date-based file and prunes old files.
type DailyWriter struct {
	dir           string
	prefix        string
	retentionDays int
	mu            sync.Mutex
	currentDate   string
	file          *os.File
}

// NewDailyWriter creates a daily rotating writer in the provided directory.
func NewDailyWriter(dir string, retentionDays int) (*DailyWriter, error) {
	return NewDailyWriterWithPrefix(dir, defaultPrefix, retentionDays)
}

// NewDailyWriterWithPrefix creates a daily rotating writer with a custom prefix.
func NewDailyWriterWithPrefix(dir, prefix string, retentionDays int) (*DailyWriter, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if prefix == "" {
		prefix = defaultPrefix
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	w := &DailyWriter{
		dir:           dir,
		prefix:        prefix,
		retentionDays: retentionDays,
	}
	if err := w.rotateIfNeeded(time.Now()); err != nil {
		return nil, err
	}
	return w, nil
}

// Write implements io.Writer.
func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateIfNeeded(time.Now()); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

// Close closes the underlying file.
func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

func (w *DailyWriter) rotateIfNeeded(now time.Time) error {
	date := now.Format("20060102")
	if date == w.currentDate && w.file != nil {
		return nil
	}
	if w.file != nil {
		_ = w.file.Close()
	}
	w.currentDate = date
	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.log", w.prefix, date))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = file
	w.cleanup(now)
	return nil
}

func (w *DailyWriter) cleanup(now time.Time) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -w.retentionDays)
	prefix := w.prefix + "-"
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		datePart := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".log")
		if len(datePart) != 8 {
			continue
		}
		date, err := time.Parse("20060102", datePart)
		if err != nil {
			continue
		}
		if date.Before(cutoff) {
			_ = os.Remove(filepath.Join(w.dir, name))
		}
	}
}

// NewLogger creates a slog.Logger writing to stdout and a daily file in
// logDir. FOLIO_LOG_LEVEL overrides level and FOLIO_LOG_FORMAT=json switches
// to JSON records. The logger also becomes the slog default.
func NewLogger(logDir string, level slog.Level) (*slog.Logger, *DailyWriter, error) {
	return NewLoggerTo(logDir, level, os.Stdout)
}

// NewLoggerTo is NewLogger with console records going to console instead of
// stdout.
func NewLoggerTo(logDir string, level slog.Level, console io.Writer) (*slog.Logger, *DailyWriter, error) {
	opts := loadEnvOptions()
	writer, err := NewDailyWriter(logDir, opts.Retention)
	if err != nil {
		return nil, nil, err
	}
	multi := io.MultiWriter(console, writer)
	effective := level
	if parsed, ok := ParseLevel(opts.Level); ok {
		effective = parsed
	}
	logger := slog.New(newHandler(multi, effective, opts.Format)).With("service", defaultPrefix)
	slog.SetDefault(logger)
	return logger, writer, nil
}

// ParseLevel reads a level name (debug, info, warn, error) or a number.
func ParseLevel(value string) (slog.Level, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	if i, err := strconv.Atoi(value); err == nil {
		return slog.Level(i), true
	}
	return 0, false
}

func newHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, options)
	}
	return slog.NewTextHandler(w, options)
}

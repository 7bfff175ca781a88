package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDailyWriterWriteAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewDailyWriterWithPrefix(dir, "", 0)
	if err != nil {
		t.Fatalf("NewDailyWriterWithPrefix: %v", err)
	}
	defer writer.Close()

	_, err = writer.Write([]byte("hello"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	date := time.Now().Format("20060102")
	path := filepath.Join(dir, defaultPrefix+"-"+date+".log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("log content missing")
	}
}

func TestDailyWriterRotateAndCleanup(t *testing.T) {
	dir := t.TempDir()
	prefix := "test"
	retention := 1

	// Create an old log file and a recent one.
	oldDate := time.Now().AddDate(0, 0, -3).Format("20060102")
	recentDate := time.Now().Format("20060102")
	oldPath := filepath.Join(dir, prefix+"-"+oldDate+".log")
	recentPath := filepath.Join(dir, prefix+"-"+recentDate+".log")
	if err := os.WriteFile(oldPath, []byte("old"), 0o644); err != nil {
		t.Fatalf("write old: %v", err)
	}
	if err := os.WriteFile(recentPath, []byte("recent"), 0o644); err != nil {
		t.Fatalf("write recent: %v", err)
	}

	writer, err := NewDailyWriterWithPrefix(dir, prefix, retention)
	if err != nil {
		t.Fatalf("NewDailyWriterWithPrefix: %v", err)
	}
	defer writer.Close()

	if err := writer.rotateIfNeeded(time.Now()); err != nil {
		t.Fatalf("rotateIfNeeded: %v", err)
	}

	if _, err := os.Stat(oldPath); err == nil {
		t.Fatalf("expected old log to be removed")
	}
	if _, err := os.Stat(recentPath); err != nil {
		t.Fatalf("expected recent log to remain: %v", err)
	}
}

func TestDailyWriterCloseNil(t *testing.T) {
	w := &DailyWriter{}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	logger, writer, err := NewLogger(dir, slog.LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if logger == nil || writer == nil {
		t.Fatalf("expected logger and writer")
	}
	_ = writer.Close()
}

func TestNewLoggerEnvOverrides(t *testing.T) {
	t.Setenv("FOLIO_LOG_LEVEL", "debug")
	t.Setenv("FOLIO_LOG_FORMAT", "json")
	dir := t.TempDir()
	var stdout bytes.Buffer
	logger, writer, err := NewLoggerTo(dir, slog.LevelError, &stdout)
	if err != nil {
		t.Fatalf("NewLoggerTo: %v", err)
	}
	defer writer.Close()

	logger.Debug("report built", "report", "growth")
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &record); err != nil {
		t.Fatalf("expected a JSON record, got %q: %v", stdout.String(), err)
	}
	if record["msg"] != "report built" || record["report"] != "growth" || record["service"] != defaultPrefix {
		t.Fatalf("unexpected record: %v", record)
	}

	date := time.Now().Format("20060102")
	data, err := os.ReadFile(filepath.Join(dir, defaultPrefix+"-"+date+".log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "report built") {
		t.Fatalf("log file missing record")
	}
}

func TestNewLoggerTextDefault(t *testing.T) {
	t.Setenv("FOLIO_LOG_LEVEL", "")
	t.Setenv("FOLIO_LOG_FORMAT", "")
	var stdout bytes.Buffer
	logger, writer, err := NewLoggerTo(t.TempDir(), slog.LevelWarn, &stdout)
	if err != nil {
		t.Fatalf("NewLoggerTo: %v", err)
	}
	defer writer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "rows", 3)
	out := stdout.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "rows=3") {
		t.Fatalf("expected text record, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"2", slog.Level(2), true},
		{"", 0, false},
		{"loud", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

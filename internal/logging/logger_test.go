package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"platter/internal/logging"
	"platter/internal/services"
)

func TestNewConsoleWritesFields(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "console.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "pool")
	logger.Info("union mounted",
		logging.String(logging.FieldOperation, "configure"),
		logging.String(logging.FieldPath, "/srv/pool"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO [pool]") {
		t.Fatalf("expected component header, got %q", line)
	}
	if !strings.Contains(line, "configure") {
		t.Fatalf("expected operation subject, got %q", line)
	}
	if !strings.Contains(line, "path=/srv/pool") {
		t.Fatalf("expected inline path field, got %q", line)
	}
}

func TestConsoleOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewJSONLoggerEmitsRenamedKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "daemon.json")

	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	for _, key := range []string{"ts", "level", "msg"} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("expected key %q in %v", key, entry)
		}
	}
	if entry["level"] != "info" {
		t.Fatalf("level = %v, want info", entry["level"])
	}
	if entry["k"] != "v" {
		t.Fatalf("k = %v, want v", entry["k"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "invalid",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("suppressed")
	logger.Info("kept")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "suppressed") {
		t.Fatalf("debug line should be filtered, got %q", content)
	}
	if !strings.Contains(string(content), "kept") {
		t.Fatalf("info line missing, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithOperation(ctx, "sync")
	ctx = services.WithRunID(ctx, "run-xyz")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logging.WithContext(ctx, logger).Info("contextual log")

	out := buf.String()
	if !strings.Contains(out, logging.FieldOperation+"=sync") {
		t.Fatalf("expected operation field, got %q", out)
	}
	if !strings.Contains(out, logging.FieldRunID+"=run-xyz") {
		t.Fatalf("expected run_id field, got %q", out)
	}
}

func TestFormatSubject(t *testing.T) {
	cases := []struct {
		operation, disk, step string
		want                  string
	}{
		{"", "", "", ""},
		{"sync", "", "", "sync"},
		{"configure", "sdb", "", "configure · sdb"},
		{"configure", "sdb", "filesystem-create", "configure · sdb (filesystem-create)"},
		{"", "", "mount", "mount"},
	}
	for _, tc := range cases {
		if got := logging.FormatSubject(tc.operation, tc.disk, tc.step); got != tc.want {
			t.Fatalf("FormatSubject(%q, %q, %q) = %q, want %q", tc.operation, tc.disk, tc.step, got, tc.want)
		}
	}
}

func TestCleanupOldLogsHonorsExclusions(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "platterd-old.log")
	keepPath := filepath.Join(dir, "platterd.log")
	for _, path := range []string{oldPath, keepPath} {
		if err := os.WriteFile(path, []byte("line\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		stale := time.Now().AddDate(0, 0, -30)
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}

	logging.CleanupOldLogs(logging.NewNop(), 7, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "platterd*.log",
		Exclude: []string{keepPath},
	})

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected %s pruned, stat err=%v", oldPath, err)
	}
	if _, err := os.Stat(keepPath); err != nil {
		t.Fatalf("excluded file should remain: %v", err)
	}
}

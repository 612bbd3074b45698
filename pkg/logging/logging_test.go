package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chatkit/pkg/config"
)

func TestInitCreatesLogFile(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "logs", "chatkit.log")

	cfg := config.Default()
	cfg.LogFile = logPath
	cfg.LogFormat = "json"
	cfg.LogLevel = "info"

	logger, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	logger.Info("hello", slog.String("component", "test"))
	logger.Debug("hidden")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 log line at info level, got %d: %s", len(lines), string(data))
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", lines[0], err)
	}
	if entry["msg"] != "hello" {
		t.Fatalf("Expected msg 'hello', got %v", entry["msg"])
	}
	if entry["app"] != "chatkit" {
		t.Fatalf("Expected app attribute, got %v", entry["app"])
	}
	if entry["version"] != "dev" {
		t.Fatalf("Expected version attribute 'dev', got %v", entry["version"])
	}
}

func TestInitUnwritablePathDiscards(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	cfg := config.Default()
	cfg.LogFile = filepath.Join(blocker, "logs", "chatkit.log")

	logger, err := Init(cfg)
	if err == nil {
		t.Fatal("Expected error for a log path under a regular file")
	}
	if logger == nil || slog.Default() != logger {
		t.Fatal("Expected a discarding logger to be installed")
	}
}

func TestOpenWriterStderr(t *testing.T) {
	for _, name := range []string{"-", " stderr "} {
		w, err := openWriter(name)
		if err != nil {
			t.Fatalf("openWriter(%q) error: %v", name, err)
		}
		if w != os.Stderr {
			t.Fatalf("openWriter(%q) = %T, want os.Stderr", name, w)
		}
	}
}

func TestDefaultLogPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	want := filepath.Join(home, ".chatkit", "logs", "chatkit.log")
	if got := DefaultLogPath(); got != want {
		t.Fatalf("DefaultLogPath() = %q, want %q", got, want)
	}
}

func TestInitTextFormat(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	logPath := filepath.Join(t.TempDir(), "chatkit.log")
	cfg := config.Default()
	cfg.LogFile = logPath
	cfg.LogFormat = "text"
	cfg.LogLevel = "debug"

	if _, err := Init(cfg); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	slog.Debug("chat_start", "model", "echo")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.Contains(string(data), "msg=chat_start") {
		t.Fatalf("Expected text formatted debug line, got: %s", string(data))
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warn+2":  slog.LevelWarn + 2,
	}
	for input, want := range tests {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

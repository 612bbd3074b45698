// Package logging installs the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"chatkit/pkg/config"
	"chatkit/pkg/version"

	"gopkg.in/natefinch/lumberjack.v2"
)

// rotation limits for the log file.
var rotation = struct {
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
}{maxSizeMB: 5, maxBackups: 5, maxAgeDays: 14}

// Init builds a logger from cfg and installs it with slog.SetDefault.
// LogFile "-" or "stderr" sends records to standard error; any other value
// names a rotated file, ~/.chatkit/logs/chatkit.log when empty. If the file
// cannot be prepared, records are discarded and the error is returned.
func Init(cfg config.Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)}

	out, err := openWriter(cfg.LogFile)
	if err != nil {
		logger := slog.New(newHandler(cfg.LogFormat, io.Discard, opts))
		slog.SetDefault(logger)
		return logger, err
	}

	logger := slog.New(newHandler(cfg.LogFormat, out, opts)).With(
		slog.String("app", "chatkit"),
		slog.String("version", version.Get().Version),
	)
	slog.SetDefault(logger)
	return logger, nil
}

func openWriter(logFile string) (io.Writer, error) {
	path := strings.TrimSpace(logFile)
	switch path {
	case "-", "stderr":
		return os.Stderr, nil
	case "":
		path = DefaultLogPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotation.maxSizeMB,
		MaxBackups: rotation.maxBackups,
		MaxAge:     rotation.maxAgeDays,
		Compress:   true,
	}, nil
}

// DefaultLogPath returns ~/.chatkit/logs/chatkit.log, relative to the working
// directory when there is no home directory.
func DefaultLogPath() string {
	dir := ".chatkit"
	if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		dir = filepath.Join(home, dir)
	}
	return filepath.Join(dir, "logs", "chatkit.log")
}

// ParseLevel accepts slog level names ("debug", "INFO", "warn+2") plus the
// alias "warning". Anything else is info.
func ParseLevel(level string) slog.Level {
	s := strings.TrimSpace(level)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// newHandler returns a text handler for format "text" and JSON otherwise.
func newHandler(format string, out io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return slog.NewTextHandler(out, opts)
	}
	return slog.NewJSONHandler(out, opts)
}

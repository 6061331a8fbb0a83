package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		"info":     slog.LevelInfo,
		"warn":     slog.LevelWarn,
		"warning":  slog.LevelWarn,
		"error":    slog.LevelError,
		"ERROR":    slog.LevelError,
		"":         slog.LevelInfo,
		"nonsense": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithoutFileOutput(t *testing.T) {
	log, cleanup, err := New(&Config{Level: "info"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()
	if log == nil {
		t.Fatal("expected a logger")
	}
	log.Info("hello")
}

func TestNewWithFileOutput(t *testing.T) {
	dir := t.TempDir()
	log, cleanup, err := New(&Config{
		Level:      "debug",
		FileOutput: true,
		LogDir:     dir,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info("file sink check", "answer", 42)
	cleanup()

	raw, err := os.ReadFile(filepath.Join(dir, DefaultLogOutputName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(raw), "file sink check") {
		t.Errorf("expected log line in file, got %q", raw)
	}
}

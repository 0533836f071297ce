package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}

	for input, want := range tests {
		if got := LevelFromString(input); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewLogger_WritesJSONFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, err := NewLogger(&Config{
		LogDir:    dir,
		FileLevel: zapcore.InfoLevel,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	logger.Named("orchestrator").Info("Calling LLM", String("provider", "openai"), Int("round", 1))
	logger.Debug("filtered out")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("Expected log file, got %v", err)
	}
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("Expected JSON line, got %q: %v", scanner.Text(), err)
		}
		lines = append(lines, entry)
	}

	if len(lines) != 1 {
		t.Fatalf("Expected 1 log line, got %d", len(lines))
	}
	if lines[0]["msg"] != "Calling LLM" {
		t.Errorf("Unexpected msg: %v", lines[0]["msg"])
	}
	if lines[0]["logger"] != "orchestrator" {
		t.Errorf("Unexpected logger name: %v", lines[0]["logger"])
	}
	if lines[0]["provider"] != "openai" {
		t.Errorf("Unexpected provider field: %v", lines[0]["provider"])
	}
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.With(String("k", "v")).Error("ignored")
	if err := logger.Close(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

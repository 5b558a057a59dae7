package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	t.Run("creates log file in directory", func(t *testing.T) {
		dir := t.TempDir()

		logger, err := NewLogger(dir, LevelDebug)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if _, err := os.Stat(filepath.Join(dir, LogFileName)); err != nil {
			t.Errorf("log file was not created: %v", err)
		}
	})

	t.Run("writes to stderr when directory is empty", func(t *testing.T) {
		logger, err := NewLogger("", LevelInfo)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		if logger.sink.writer != nil {
			t.Error("expected no file writer when logging to stderr")
		}
		if err := logger.Close(); err != nil {
			t.Errorf("Close() on stderr logger = %v, want nil", err)
		}
	})
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelWarn)

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (warn+error)", len(entries))
	}
	if entries[0]["msg"] != "warn" || entries[1]["msg"] != "error" {
		t.Errorf("unexpected messages: %v", entries)
	}
}

func TestSetLevel_AppliesToChildren(t *testing.T) {
	var buf bytes.Buffer
	root := NewWriterLogger(&buf, LevelError)
	child := root.WithComponent("monitor")

	child.Info("suppressed")
	root.SetLevel("debug")
	child.Debug("visible", "seq", 7)

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["component"] != "monitor" {
		t.Errorf("component = %v, want monitor", entries[0]["component"])
	}
	if entries[0]["seq"] != float64(7) {
		t.Errorf("seq = %v, want 7", entries[0]["seq"])
	}
	if child.Level() != LevelDebug {
		t.Errorf("Level() = %s, want DEBUG", child.Level())
	}
}

func TestWith_PersistentAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelInfo).WithComponent("bidder").WithTask("task-1").With("bidder", "0xb0b", 42)

	logger.Info("bid placed", "price", 80)

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e["component"] != "bidder" || e["task_id"] != "task-1" || e["bidder"] != "0xb0b" {
		t.Errorf("missing persistent attributes: %v", e)
	}
	if _, ok := e["42"]; ok {
		t.Error("dangling non-string key should be ignored")
	}
}

func TestRotatingWriter_Rotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LogFileName)

	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()

	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 3; i++ {
		if _, err := rw.Write(chunk); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	for _, name := range []string{LogFileName + ".1", LogFileName + ".2"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected backup %s: %v", name, err)
		}
	}
	if rw.CurrentSize() != int64(len(chunk)) {
		t.Errorf("CurrentSize() = %d, want %d", rw.CurrentSize(), len(chunk))
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"Warn":    LevelWarn,
		"error":   LevelError,
		"verbose": LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %q, want %q", in, got, want)
		}
	}
	if len(ValidLevels()) != 4 {
		t.Errorf("ValidLevels() = %v", ValidLevels())
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Error("discarded")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

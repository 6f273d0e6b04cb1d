// internal/logging/logger_test.go
package logging

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSlot(NewLogger("json", "info", &buf), "regexToolState")
	logger.Info("preview updated", "matches", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["slot"] != "regexToolState" {
		t.Errorf("slot = %v", entry["slot"])
	}
	if entry["msg"] != "preview updated" {
		t.Errorf("msg = %v", entry["msg"])
	}
}

func TestNewLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("text", "warn", &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn message missing")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithPattern(t *testing.T) {
	var buf bytes.Buffer
	WithPattern(NewLogger("text", "info", &buf), `\bworld\b`, "gi").Info("compiled")
	if !strings.Contains(buf.String(), "flags=gi") {
		t.Errorf("missing flags attribute: %s", buf.String())
	}
}

func TestSetup_File(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "regexlab.log")
	logger, closer, err := Setup("json", "info", logPath, 1)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	logger.Info("hello")
	closer.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file content = %q", data)
	}
}

func TestRotatingWriter_Writes(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	w, err := NewRotatingWriter(logPath, 1024*1024)
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	msg := "first line\n"
	n, err := w.Write([]byte(msg))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != len(msg) {
		t.Errorf("Write() = %d, want %d", n, len(msg))
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != msg {
		t.Errorf("log content = %q, want %q", string(content), msg)
	}
}

func TestRotatingWriter_RotatesAndCompresses(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	w, err := NewRotatingWriter(logPath, 100)
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	first := strings.Repeat("a", 60) + "\n"
	second := strings.Repeat("b", 60) + "\n"
	w.Write([]byte(first))
	w.Write([]byte(second))

	f, err := os.Open(logPath + ".1.gz")
	if err != nil {
		t.Fatalf("rotated file missing: %v", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("rotated file is not valid gzip: %v", err)
	}
	defer gz.Close()
	old, err := io.ReadAll(gz)
	if err != nil {
		t.Fatal(err)
	}
	if string(old) != first {
		t.Errorf("rotated content = %q, want %q", old, first)
	}

	current, _ := os.ReadFile(logPath)
	if string(current) != second {
		t.Errorf("current content = %q, want %q", current, second)
	}
}

func TestRotatingWriter_MaxRotatedFiles(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	w, err := NewRotatingWriter(logPath, 30)
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	line := strings.Repeat("z", 40) + "\n"
	for i := 0; i < 30; i++ {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	rotated, _ := filepath.Glob(filepath.Join(dir, "test.log.*.gz"))
	if len(rotated) != MaxRotatedFiles {
		t.Errorf("expected %d rotated files, got %d", MaxRotatedFiles, len(rotated))
	}
}

func TestRotatingWriter_ThreadSafe(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "test.log"), 1024)
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				w.Write([]byte("0123456789\n"))
			}
		}()
	}
	wg.Wait()
}

package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyloom/internal/logging"
	"storyloom/internal/services"
)

func TestNewConsoleWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "storyloom.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("segment generated", logging.Int("segment", 3))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "segment generated") {
		t.Fatalf("expected message in log output, got %q", content)
	}
	if !strings.Contains(string(content), "segment=3") {
		t.Fatalf("expected attr in log output, got %q", content)
	}
}

func TestNewConsoleFiltersBelowLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "storyloom.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "warn",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("kept")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "suppressed") {
		t.Fatalf("expected info line to be filtered, got %q", content)
	}
	if !strings.Contains(string(content), "kept") {
		t.Fatalf("expected warn line in output, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsStandardFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "storyloom.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithGroupID(context.Background(), 42)
	ctx = services.WithSegmentNumber(ctx, 7)
	ctx = services.WithStep(ctx, "generation")

	logging.WithContext(ctx, logger).Info("step started")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, fragment := range []string{"group_id=42", "segment=7", "step=generation"} {
		if !strings.Contains(string(content), fragment) {
			t.Fatalf("expected %q in log output, got %q", fragment, content)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("ignored")
	if logger.Enabled(context.Background(), 0) {
		t.Fatal("expected no-op logger to report disabled")
	}
}

package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hikari/internal/config"
	"hikari/internal/logging"
	"hikari/internal/services"
)

func TestNewWritesPrettyLineWithComponentPrefix(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "pretty.log")

	logger, err := logging.New(logging.Options{
		Format:      "pretty",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	component := logging.NewComponentLogger(logger, "downloader")
	component.Info("segment stored", logging.Int("segment", 3), logging.String("note", "has spaces"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO downloader: segment stored") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "segment=3") {
		t.Fatalf("expected flattened attr, got %q", line)
	}
	if !strings.Contains(line, `note="has spaces"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
}

func TestNewJSONRenamesCoreKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")

	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("hello")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, key := range []string{`"ts":`, `"level":"info"`, `"msg":"hello"`} {
		if !strings.Contains(string(content), key) {
			t.Fatalf("expected %s in %q", key, content)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewFromConfigTeesToLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.LogDir = t.TempDir()
	cfg.Logging.Format = "pretty"
	cfg.Logging.Level = "debug"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("daemon booted")

	content, err := os.ReadFile(filepath.Join(cfg.Logging.LogDir, "hikarid.log"))
	if err != nil {
		t.Fatalf("read teed log: %v", err)
	}
	if !strings.Contains(string(content), "daemon booted") {
		t.Fatalf("expected teed line, got %q", content)
	}
}

func TestWithContextStampsRequestFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")

	logger, err := logging.New(logging.Options{
		Format:      "pretty",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithConversationID(context.Background(), 1234)
	ctx = services.WithEpisode(ctx, "Episode 7")
	ctx = services.WithPhase(ctx, "downloading")
	ctx = services.WithRequestID(ctx, "req-1")

	logging.WithContext(ctx, logger).Info("progress")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, frag := range []string{"conversation_id=1234", `episode="Episode 7"`, "phase=downloading", "request_id=req-1"} {
		if !strings.Contains(line, frag) {
			t.Fatalf("missing %s in %q", frag, line)
		}
	}
}

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewManager_TextToConsole(t *testing.T) {
	var buf bytes.Buffer
	mgr, logger := NewManager(DefaultConfig(), &buf)
	defer mgr.Close() //nolint:errcheck

	logger.Info("resolved", slog.String("artist", "Radio Room Allstars"))
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, `artist="Radio Room Allstars"`) {
		t.Errorf("expected text attrs, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug record written at info level")
	}
}

func TestNewManager_JSON(t *testing.T) {
	var buf bytes.Buffer
	mgr, logger := NewManager(Config{Level: "debug", Format: "JSON"}, &buf)
	defer mgr.Close() //nolint:errcheck

	logger.Debug("merged", slog.Int("genres", 2))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "merged" || rec["genres"] != float64(2) {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestManager_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	mgr, logger := NewManager(Config{Level: "info"}, &buf)
	defer mgr.Close() //nolint:errcheck
	child := logger.With(slog.String("component", "resolver"))
	ctx := context.Background()

	if child.Enabled(ctx, slog.LevelDebug) {
		t.Error("expected debug to be disabled")
	}
	mgr.SetLevel("debug")
	if !child.Enabled(ctx, slog.LevelDebug) {
		t.Error("expected derived logger to follow SetLevel")
	}
	mgr.SetLevel("error")
	if child.Enabled(ctx, slog.LevelWarn) {
		t.Error("expected warn to be disabled at error level")
	}
	if mgr.Config().Level != "error" {
		t.Errorf("Config().Level = %q", mgr.Config().Level)
	}
}

func TestManager_FileOutput(t *testing.T) {
	var console bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "localscene.log")

	mgr, logger := NewManager(Config{
		Level:         "info",
		Format:        "json",
		FilePath:      logFile,
		FileMaxSizeMB: 1,
	}, &console)

	logger.Info("written to both")
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to both") {
		t.Errorf("log file missing record: %q", data)
	}
	if !strings.Contains(console.String(), "written to both") {
		t.Errorf("console missing record: %q", console.String())
	}

	// Closing twice is harmless.
	if err := mgr.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValidLevelAndFormat(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(s) {
			t.Errorf("ValidLevel(%q) = false", s)
		}
	}
	if ValidLevel("trace") {
		t.Error("ValidLevel(trace) = true")
	}
	if !ValidFormat("json") || !ValidFormat("text") {
		t.Error("expected json and text to be valid formats")
	}
	if ValidFormat("xml") {
		t.Error("ValidFormat(xml) = true")
	}
}

func TestConfigString(t *testing.T) {
	s := Config{Level: "info", Format: "text"}.String()
	if s != "level=info format=text" {
		t.Errorf("String() = %q", s)
	}
	s = Config{Level: "debug", Format: "json", FilePath: "/tmp/x.log", FileMaxSizeMB: 5, FileMaxFiles: 2, FileMaxAgeDays: 7}.String()
	if !strings.Contains(s, "file=/tmp/x.log max_size=5MB") {
		t.Errorf("String() = %q", s)
	}
}

func TestDiscard(t *testing.T) {
	if Discard().Enabled(context.Background(), slog.LevelError) {
		t.Error("Discard logger should be disabled at every level")
	}
}

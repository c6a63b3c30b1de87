package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestInitRespectsLevel(t *testing.T) {
	t.Cleanup(func() { Init("text", "info", nil) })

	var buf bytes.Buffer
	Init("text", "warn", &buf)

	slog.Info("hidden")
	slog.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info log should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn log should be emitted: %s", out)
	}
}

func TestInitJSON(t *testing.T) {
	t.Cleanup(func() { Init("text", "info", nil) })

	var buf bytes.Buffer
	Init("JSON", "debug", &buf)

	slog.Debug("gstpipe: pipeline created", "stream", "video")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "gstpipe: pipeline created" || rec["stream"] != "video" || rec["level"] != "DEBUG" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if ValidLevel("verbose") {
		t.Error("verbose should not be a valid level")
	}
	if !ValidLevel("Debug") {
		t.Error("Debug should be a valid level")
	}
}

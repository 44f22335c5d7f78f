package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	log := Logger()
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestConfigureFileOutput(t *testing.T) {
	log := Logger()
	path := filepath.Join(t.TempDir(), "run.log")
	if err := log.Configure("debug", "text", path, 0); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := log.Configure("debug", "text", path, 7); err != nil {
		t.Fatalf("configure rotating: %v", err)
	}
}

func TestJSONFieldNamesAndCaller(t *testing.T) {
	log := Logger()
	if err := log.Configure("info", "json", "stdout", 0); err != nil {
		t.Fatalf("configure: %v", err)
	}
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithComponent("merger").WithFields(Fields{"rows": 3}).Info("merged")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["message"] != "merged" || line["component"] != "merger" {
		t.Fatalf("unexpected line: %v", line)
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("timestamp key missing: %v", line)
	}
	if file, _ := line["file"].(string); !strings.HasPrefix(file, "logger_test.go:") {
		t.Fatalf("caller should point at the test, got %q", file)
	}
}

func TestWarningsAreCountedPerComponent(t *testing.T) {
	ResetReport()
	log := Logger()
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithComponent("reader").Warn("skipped file")
	log.WithComponent("reader").Warn("skipped file")
	log.WithComponent("merger").Error("boom")

	if got := Warnings("reader"); got != 2 {
		t.Fatalf("expected 2 reader warnings, got %d", got)
	}
	if got := Warnings("merger"); got != 0 {
		t.Fatalf("expected 0 merger warnings, got %d", got)
	}

	Report(log)
	if !strings.Contains(buf.String(), "run report") {
		t.Fatalf("report line missing: %s", buf.String())
	}
}

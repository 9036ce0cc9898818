package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
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
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestConfigureFileOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "bot.log")
	log := Logger()
	if err := log.Configure("debug", "text", path, 0); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if got := log.GetLevel().String(); got != "debug" {
		t.Fatalf("level = %s, want debug", got)
	}
}

func TestLevelEnvOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	log := Logger()
	if err := log.Configure("debug", "json", "stdout", 0); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if got := log.GetLevel().String(); got != "warning" {
		t.Fatalf("level = %s, want warning", got)
	}
}

func TestJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	log := Logger()
	log.SetOutput(&buf)
	log.WithComponent("pipeline").Info("hello")

	var out map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	for _, key := range []string{"timestamp", "level", "message", "component"} {
		if _, ok := out[key]; !ok {
			t.Errorf("missing %q in %v", key, out)
		}
	}
}

func TestIssueRecorder(t *testing.T) {
	var got []string
	SetIssueRecorder(func(level, component string) {
		got = append(got, level+":"+component)
	})
	defer SetIssueRecorder(nil)

	var buf bytes.Buffer
	log := Logger()
	log.SetOutput(&buf)
	log.WithComponent("cache").Warn("w")
	log.WithComponent("sink").Error("e")
	log.WithFields(Fields{"x": 1}).Warn("no component")

	if len(got) != 2 || got[0] != "warning:cache" || got[1] != "error:sink" {
		t.Fatalf("recorded = %v", got)
	}
}

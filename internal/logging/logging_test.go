package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestInitJSONComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{Level: "disabled", Output: &bytes.Buffer{}}) })

	logger := Component("registry")
	logger.Debug().Str("path", "/tmp/x").Msg("loaded")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["component"] != "registry" || entry["message"] != "loaded" || entry["level"] != "debug" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestInitLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "error", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{Level: "disabled", Output: &bytes.Buffer{}}) })

	logger := Component("x")
	logger.Warn().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected warn to be filtered, got %q", buf.String())
	}
}

func TestInitDefaultsToWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(Config{Level: "bogus", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{Level: "disabled", Output: &bytes.Buffer{}}) })

	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")
	if !bytes.Contains(buf.Bytes(), []byte("kept")) || bytes.Contains(buf.Bytes(), []byte("dropped")) {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

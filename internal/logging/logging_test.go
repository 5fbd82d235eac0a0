package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	Configure(Options{Level: level, Output: buf, JSON: true})
	t.Cleanup(func() { Configure(Options{Level: LevelWarn, JSON: true}) })
	return buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &parsed); err != nil {
		t.Fatalf("failed to parse log line %q: %v", lines[len(lines)-1], err)
	}
	return parsed
}

func TestLoggerCreation(t *testing.T) {
	logger := New("test-component")

	if logger.component != "test-component" {
		t.Errorf("expected component 'test-component', got '%s'", logger.component)
	}
}

func TestLoggerWithDocument(t *testing.T) {
	base := New("component")
	logger := base.WithDocument("agent.json")

	if logger.document != "agent.json" {
		t.Errorf("expected document 'agent.json', got '%s'", logger.document)
	}
	if base.document != "" {
		t.Error("WithDocument must not modify the receiver")
	}
}

func TestInfoWritesJSON(t *testing.T) {
	buf := capture(t, LevelDebug)

	New("compiler").WithDocument("doc.json").Info("tool_compiled", map[string]interface{}{
		"tool": "weather",
	})

	parsed := lastLine(t, buf)
	if parsed["@message"] != "tool_compiled" {
		t.Errorf("expected message 'tool_compiled', got '%v'", parsed["@message"])
	}
	if parsed["@level"] != "info" {
		t.Errorf("expected level 'info', got '%v'", parsed["@level"])
	}
	if parsed["@module"] != "copilot.compiler" {
		t.Errorf("expected module 'copilot.compiler', got '%v'", parsed["@module"])
	}
	if parsed["tool"] != "weather" {
		t.Errorf("expected tool 'weather', got '%v'", parsed["tool"])
	}
	if parsed["document"] != "doc.json" {
		t.Errorf("expected document 'doc.json', got '%v'", parsed["document"])
	}
}

func TestErrorIncludesError(t *testing.T) {
	buf := capture(t, LevelDebug)

	New("editor").Error("save_failed", nil, errors.New("disk full"))

	parsed := lastLine(t, buf)
	if parsed["error"] != "disk full" {
		t.Errorf("expected error 'disk full', got '%v'", parsed["error"])
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelWarn)

	New("x").Debug("hidden", nil)
	New("x").Info("hidden", nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got %q", buf.String())
	}

	New("x").Warn("shown", nil, nil)
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn output, got %q", buf.String())
	}
}

func TestTimedEvent(t *testing.T) {
	buf := capture(t, LevelInfo)

	New("editor").TimedEvent("saved", time.Now().Add(-5*time.Millisecond), nil)

	parsed := lastLine(t, buf)
	if _, ok := parsed["duration_ms"]; !ok {
		t.Error("expected duration_ms field")
	}
}

func TestFromContext(t *testing.T) {
	buf := capture(t, LevelInfo)

	ctx := WithOperationID(context.Background(), "op-1")
	New("editor").FromContext(ctx).Info("step", nil)

	parsed := lastLine(t, buf)
	if parsed["operation"] != "op-1" {
		t.Errorf("expected operation 'op-1', got '%v'", parsed["operation"])
	}
}

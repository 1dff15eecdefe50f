package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"Info", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestForTest_OverridesDefault(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := NewWithCore(core, zapcore.InfoLevel)

	f.Logger().Debug("hidden")
	f.ForTest("quiet", "").Debug("hidden too")
	f.ForTest("unknown level", "LOUD").Debug("still hidden")
	f.ForTest("chatty", "DEBUG").Debug("visible")
	f.ForTest("errors only", "ERROR").Info("suppressed")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d: %v", len(entries), entries)
	}
	if entries[0].Message != "visible" {
		t.Errorf("message = %q", entries[0].Message)
	}
	if entries[0].ContextMap()["test"] != "chatty" {
		t.Errorf("expected test field, got %v", entries[0].ContextMap())
	}
}

func TestNew_WritesConsole(t *testing.T) {
	var buf bytes.Buffer
	f, err := New(Options{Level: "info", NoColor: true, Output: zapcore.AddSync(&buf)})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	f.Logger().Info("suite loaded")
	f.Logger().Debug("not shown")
	_ = f.Sync()

	out := buf.String()
	if !strings.Contains(out, "INFO") || !strings.Contains(out, "suite loaded") {
		t.Errorf("unexpected output: %q", out)
	}
	if strings.Contains(out, "not shown") {
		t.Errorf("debug line leaked: %q", out)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(Options{Level: "chatty"}); err == nil {
		t.Error("expected error")
	}
}

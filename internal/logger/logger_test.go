package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	t.Parallel()
	log := Default()
	if log == nil {
		t.Fatal("Default() returned nil")
	}
	if log.Enabled(slog.LevelDebug) {
		t.Fatal("default logger should not emit debug")
	}
}

func TestJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	log.Info("hello", "key", "value")

	output := buf.String()
	if !strings.Contains(output, `"msg":"hello"`) {
		t.Fatalf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, `"key":"value"`) {
		t.Fatalf("expected key=value in JSON output, got: %s", output)
	}
	if !strings.Contains(output, `"level":"INFO"`) {
		t.Fatalf("expected level INFO in output, got: %s", output)
	}
}

func TestJSONLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelWarn)
	log.Info("should not appear")
	log.Debug("also should not appear")
	if buf.Len() > 0 {
		t.Fatalf("expected no output for info/debug at warn level, got: %s", buf.String())
	}

	log.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("expected warn message in output, got: %s", buf.String())
	}
}

func TestNewFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format Format
		want   string
	}{
		{FormatJSON, `"cursor":42`},
		{FormatText, "cursor=42"},
		{FormatPretty, "cursor=42"},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		NewFormat(&buf, tc.format, slog.LevelInfo, false).Info("progress", "cursor", uint64(42))
		if !strings.Contains(buf.String(), tc.want) {
			t.Errorf("%s: expected %q in %q", tc.format, tc.want, buf.String())
		}
	}
}

func TestNop(t *testing.T) {
	t.Parallel()
	log := Nop()
	if log.Enabled(slog.LevelError) {
		t.Fatal("nop logger should be disabled at every level")
	}
	log.Error("dropped")
}

func TestPrettyWithoutColor(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelInfo, false)
	log.Info("test message", "key", "value")

	output := buf.String()
	if !strings.Contains(output, "INFO  test message key=value") {
		t.Fatalf("unexpected pretty output: %q", output)
	}
	if strings.Contains(output, "\033[") {
		t.Fatalf("expected no escapes without color, got: %q", output)
	}
}

func TestPrettyWithColor(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	Pretty(&buf, slog.LevelInfo, true).Error("failed", "error", errors.New("boom"))

	output := buf.String()
	if !strings.Contains(output, colorRed+"error=boom"+colorReset) {
		t.Fatalf("expected highlighted error, got: %q", output)
	}
}

func TestPrettyDebugLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelDebug, false)
	log.Debug("debug msg")

	if !strings.Contains(buf.String(), "DEBUG debug msg") {
		t.Fatalf("expected debug message at debug level, got: %s", buf.String())
	}
}

func TestPrettyValueKinds(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelInfo, false)
	log.Info("kinds",
		"elapsed", 1234567*time.Microsecond,
		"seed", uint64(1)<<63,
		"rate", 12.3456,
		"note", `a "quoted" value`,
	)

	output := buf.String()
	for _, want := range []string{"elapsed=1.235s", "seed=9223372036854775808", "rate=12.35", `note="a \"quoted\" value"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in %q", want, output)
		}
	}
}

func TestWith(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	log.With("component", "pipeline").Info("child message")

	output := buf.String()
	if !strings.Contains(output, `"component":"pipeline"`) {
		t.Fatalf("expected component in output, got: %s", output)
	}
}

func TestFromContextDefault(t *testing.T) {
	t.Parallel()
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext with no logger returned nil")
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)

	ctx := WithContext(context.Background(), log)
	FromContext(ctx).Info("roundtrip test")
	if !strings.Contains(buf.String(), "roundtrip test") {
		t.Fatalf("expected message via context logger, got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{" Warning ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tc := range tests {
		result, err := ParseLevel(tc.input)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q): unexpected error state %v", tc.input, err)
		}
		if result != tc.expected {
			t.Errorf("ParseLevel(%q): expected %v, got %v", tc.input, tc.expected, result)
		}
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{"": FormatPretty, "JSON": FormatJSON, "text": FormatText} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestPrettyHandlerEnabled(t *testing.T) {
	t.Parallel()
	h := NewPrettyHandler(&bytes.Buffer{}, &PrettyOptions{HandlerOptions: slog.HandlerOptions{Level: slog.LevelWarn}})

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info to be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("expected error to be enabled at warn level")
	}
}

func TestPrettyHandlerGroups(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil)

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("run", "r1")}).WithGroup("a").WithGroup("b"))
	logger.Info("nested", "key", "val")

	output := buf.String()
	if !strings.Contains(output, "run=r1 a.b.key=val") {
		t.Fatalf("expected grouped attrs, got: %s", output)
	}
	if h.WithGroup("") != h {
		t.Fatal("WithGroup empty string should return same handler")
	}
}

func TestPrettyGroupedHandlerAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil)

	slog.New(h.WithGroup("kernel").WithAttrs([]slog.Attr{slog.Int("lookups", 20)})).Info("compiled")
	if !strings.Contains(buf.String(), "kernel.lookups=20") {
		t.Fatalf("expected group-prefixed handler attr, got: %s", buf.String())
	}
}

func TestNeedsQuoting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bool
	}{
		{"simple", false},
		{"has space", true},
		{"has\ttab", true},
		{`has"quote`, true},
		{"k=v", true},
		{"", false},
	}
	for _, tc := range tests {
		if result := needsQuoting(tc.input); result != tc.expected {
			t.Errorf("needsQuoting(%q): expected %v, got %v", tc.input, tc.expected, result)
		}
	}
}

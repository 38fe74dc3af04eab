package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentImport, Output: &buf})

	logger.Info("statement parsed", FieldLines, 3)
	out := buf.String()
	if !strings.Contains(out, "component=import") || !strings.Contains(out, "lines=3") {
		t.Fatalf("unexpected output: %q", out)
	}

	buf.Reset()
	logger.WithComponent(ComponentStorage).Debug("stored")
	if !strings.Contains(buf.String(), "component=storage") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestLoggerJSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: "json", Output: &buf})

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %q", buf.String())
	}

	logger.WithFields(NewFields().WithError(errors.New("boom")).WithOperation(OpStore)).Warn("failed")
	out := buf.String()
	for _, want := range []string{`"component":"app"`, `"error":"boom"`, `"operation":"store"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %q", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFieldsToSliceSorted(t *testing.T) {
	got := NewFields().WithImport("id-1", "releve.csv", "boursobank").ToSlice()
	want := []any{FieldImportID, "id-1", FieldLayout, "boursobank", FieldSource, "releve.csv"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for raw, want := range cases {
		got, err := ParseLevel(raw)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", raw, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("ParseLevel(loud) expected error")
	}
}

func TestContextAttrsMergeAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithLogger(context.Background(), logger)
	ctx = WithAttrs(ctx, slog.String("component", "usecase.compliance"), slog.String("operation", "a"))
	ctx = WithAttrs(ctx, slog.String("operation", "close_finding"))

	Debug(ctx, "hidden")
	Info(ctx, "finding closed", slog.String("finding_id", "f-1"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line logged at info level: %q", out)
	}
	for _, want := range []string{"component=usecase.compliance", "operation=close_finding", "finding_id=f-1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "operation=a ") {
		t.Fatalf("replaced attr still logged: %q", out)
	}
}

func TestInheritCopiesLoggerAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	base := WithAttrs(WithLogger(context.Background(), logger), slog.String("component", "transport.httpapi"))

	type reqKey struct{}
	req := context.WithValue(context.Background(), reqKey{}, "r-1")
	ctx := Inherit(req, base)
	if ctx.Value(reqKey{}) != "r-1" {
		t.Fatalf("Inherit() dropped request values")
	}

	Debug(ctx, "request handled")
	if out := buf.String(); !strings.Contains(out, "component=transport.httpapi") {
		t.Fatalf("output %q missing inherited attrs", out)
	}
}

package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/pslog"
)

func TestOutputAddsTargetAndSession(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	ctx = ContextWithSession(ctx, "s1")
	Output(ctx).Info("hello")

	entry := capture.firstEntry(t)
	if entry[TargetKey] != OutputTarget {
		t.Fatalf("expected output target, got %+v", entry)
	}
	if entry[SessionKey] != "s1" {
		t.Fatalf("expected session field, got %+v", entry)
	}
}

func TestWithSessionWithoutID(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	Target(WithSession(ctx), LogTarget).Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry[SessionKey]; ok {
		t.Fatalf("did not expect session field, got %+v", entry)
	}
	if entry[TargetKey] != LogTarget {
		t.Fatalf("expected log target, got %+v", entry)
	}
}

func TestSessionFrom(t *testing.T) {
	ctx := ContextWithSession(context.Background(), "abc")
	if got := SessionFrom(ctx); got != "abc" {
		t.Fatalf("expected session abc, got %q", got)
	}
	if got := SessionFrom(context.Background()); got != "" {
		t.Fatalf("expected empty session, got %q", got)
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}

package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/geocoder89/taskmanager/internal/actorctx"
	"github.com/geocoder89/taskmanager/internal/domain/user"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	return rec
}

func TestLogger_AddsContextValues(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "taskmanager-api", "prod", "")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = actorctx.WithUser(ctx, user.User{ID: "u-1", Username: "alice", Role: user.RoleUser})

	log.InfoContext(ctx, "hello")

	rec := decodeLine(t, &buf)
	if rec["trace_id"] != traceID.String() || rec["span_id"] != spanID.String() {
		t.Fatalf("missing trace ids in %v", rec)
	}
	if rec["user_id"] != "u-1" {
		t.Fatalf("missing user_id in %v", rec)
	}
	if rec["service"] != "taskmanager-api" || rec["env"] != "prod" {
		t.Fatalf("missing service attrs in %v", rec)
	}
}

func TestLogger_BareContextAddsNothing(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "svc", "prod", "").With("k", "v").InfoContext(context.Background(), "hello")

	rec := decodeLine(t, &buf)
	for _, key := range []string{"trace_id", "span_id", "user_id"} {
		if _, ok := rec[key]; ok {
			t.Fatalf("unexpected %s in %v", key, rec)
		}
	}
	if rec["k"] != "v" {
		t.Fatalf("With attrs lost: %v", rec)
	}
}

func TestLogger_Level(t *testing.T) {
	tests := []struct {
		name      string
		env       string
		level     string
		wantDebug bool
	}{
		{name: "prod default", env: "prod", wantDebug: false},
		{name: "dev default", env: "dev", wantDebug: true},
		{name: "prod override", env: "prod", level: "debug", wantDebug: true},
		{name: "dev override", env: "dev", level: "WARN", wantDebug: false},
		{name: "bad override", env: "prod", level: "loud", wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			newLogger(&buf, "svc", tt.env, tt.level).Debug("debug line")

			if got := buf.Len() != 0; got != tt.wantDebug {
				t.Fatalf("debug logged = %v, want %v (%s)", got, tt.wantDebug, buf.String())
			}
		})
	}
}

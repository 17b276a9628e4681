package console

import (
	"context"
	"strings"
	"testing"
	"time"

	"pkt.systems/pslog"

	"github.com/wascc/wcc/internal/logsink"
	"github.com/wascc/wcc/internal/logx"
	"github.com/wascc/wcc/lattice/latticetest"
	"github.com/wascc/wcc/schema"
)

func sinkContext(ctx context.Context, sink *logsink.Sink) context.Context {
	logger := pslog.NewWithOptions(sink, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.TraceLevel,
		VerboseFields: true,
	})
	return pslog.ContextWithLogger(ctx, logger)
}

func TestSupervisorStartsAndStopsMember(t *testing.T) {
	bus := latticetest.NewBus()
	defer bus.Close()
	sink := logsink.New(logsink.Options{})
	ctx, cancel := context.WithCancel(sinkContext(context.Background(), sink))
	defer cancel()

	sup := StartSupervisor(ctx, SupervisorOptions{
		Endpoint:    schema.Endpoint{Host: "127.0.0.1", Port: 4222, Namespace: "configured", Timeout: 2 * time.Second},
		Labels:      map[string]string{schema.ReplModeLabel: "true"},
		Version:     "test",
		Heartbeat:   10 * time.Millisecond,
		DialOptions: bus.DialOptions(),
	})

	var id schema.HostID
	select {
	case id = <-sup.Member():
	case <-sup.Done():
		t.Fatalf("supervisor gave up: %+v", sink.Records())
	case <-time.After(5 * time.Second):
		t.Fatalf("member did not start")
	}
	if !strings.HasPrefix(string(id), "N") {
		t.Fatalf("unexpected member id %q", id)
	}
	members := bus.Members()
	if len(members) != 1 || members[0].HostID != id || members[0].Labels[schema.ReplModeLabel] != "true" {
		t.Fatalf("unexpected members %+v", members)
	}
	if members[0].Namespace != schema.DefaultNamespace {
		t.Fatalf("member joined namespace %q, want the fixed session namespace %q", members[0].Namespace, schema.DefaultNamespace)
	}

	cancel()
	select {
	case <-sup.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("supervisor did not stop")
	}
	if members := bus.Members(); len(members) != 0 {
		t.Fatalf("member not deregistered: %+v", members)
	}
	var stopped bool
	for _, rec := range sink.Records() {
		if rec.Target == logx.LogTarget && rec.Message == "Host stopped" {
			stopped = true
		}
	}
	if !stopped {
		t.Fatalf("missing stop record")
	}
}

func TestSupervisorHostlessOnConnectFailure(t *testing.T) {
	sink := logsink.New(logsink.Options{})
	ctx, cancel := context.WithCancel(sinkContext(context.Background(), sink))
	defer cancel()

	sup := StartSupervisor(ctx, SupervisorOptions{
		Endpoint: schema.Endpoint{Host: "127.0.0.1", Port: 1, Namespace: "default", Timeout: 200 * time.Millisecond},
	})
	select {
	case <-sup.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("supervisor did not give up")
	}
	select {
	case id := <-sup.Member():
		t.Fatalf("unexpected member %q", id)
	default:
	}
	var errs int
	for _, rec := range sink.Records() {
		if rec.Level == logsink.LevelError && strings.HasPrefix(rec.Message, "Error launching host") {
			errs++
		}
	}
	if errs != 1 {
		t.Fatalf("expected one launch error, got %d: %+v", errs, sink.Records())
	}
}

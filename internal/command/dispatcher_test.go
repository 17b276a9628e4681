package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"pkt.systems/pslog"

	"github.com/wascc/wcc/internal/format"
	"github.com/wascc/wcc/internal/logsink"
	"github.com/wascc/wcc/internal/logx"
	"github.com/wascc/wcc/lattice"
	"github.com/wascc/wcc/schema"
)

// leakOptions ignores goroutines that exist before the test and pslog's
// timestamp cache, which starts lazily on first use and lives for the process.
func leakOptions() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreCurrent(),
		goleak.IgnoreAnyFunction("pkt.systems/pslog.(*timeCache).refresh"),
	}
}

func sessionContext(sink *logsink.Sink, id schema.SessionID) context.Context {
	logger := pslog.NewWithOptions(sink, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.TraceLevel,
		VerboseFields: true,
	})
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	return logx.ContextWithSession(ctx, id)
}

func recordsFor(sink *logsink.Sink, target string, level logsink.Level) []logsink.Record {
	var out []logsink.Record
	for _, rec := range sink.Records() {
		if rec.Target == target && (level == logsink.LevelOff || rec.Level == level) {
			out = append(out, rec)
		}
	}
	return out
}

// gatedClient answers calls only once their gate channel is closed.
type gatedClient struct {
	lattice.Client
	mu    sync.Mutex
	gates map[schema.ActorID]chan struct{}
}

func (c *gatedClient) CallActor(ctx context.Context, actorID schema.ActorID, operation string, payload []byte) (schema.InvocationResponse, error) {
	c.mu.Lock()
	gate := c.gates[actorID]
	c.mu.Unlock()
	select {
	case <-gate:
	case <-ctx.Done():
		return schema.InvocationResponse{}, &lattice.TransportError{Op: "call actor", Err: ctx.Err()}
	}
	return schema.InvocationResponse{InvocationID: string(actorID), Msg: payload}, nil
}

func (c *gatedClient) Close() error { return nil }

func TestDispatcherQuitAndClear(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions()...)
	sink := logsink.New(logsink.Options{})
	ctx := sessionContext(sink, "s1")
	d := NewDispatcher(func(context.Context, schema.Endpoint) (lattice.Client, error) {
		t.Fatalf("console commands must not dial")
		return nil, nil
	}, testEndpoint)

	for _, line := range []string{"quit", "exit", "logout", "q", ":q!"} {
		if sig := d.Submit(ctx, line); sig != SignalQuit {
			t.Fatalf("%q: expected quit signal, got %v", line, sig)
		}
	}
	if sig := d.Submit(ctx, "clear"); sig != SignalClear {
		t.Fatalf("expected clear signal, got %v", sig)
	}
	if sig := d.Submit(ctx, "   "); sig != SignalNone {
		t.Fatalf("expected no signal for blank line, got %v", sig)
	}
	if d.Pending() != 0 {
		t.Fatalf("expected nothing pending, got %d", d.Pending())
	}
	if got := len(recordsFor(sink, logx.CommandTarget, logsink.LevelInfo)); got != 6 {
		t.Fatalf("expected 6 command records, got %d", got)
	}
}

func TestDispatcherParseErrorIsInfo(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions()...)
	sink := logsink.New(logsink.Options{})
	d := NewDispatcher(nil, testEndpoint)
	if sig := d.Submit(sessionContext(sink, "s1"), "get inventory"); sig != SignalNone {
		t.Fatalf("unexpected signal %v", sig)
	}
	recs := recordsFor(sink, logx.CommandTarget, logsink.LevelOff)
	if len(recs) != 1 || recs[0].Level != logsink.LevelInfo || recs[0].Session != "s1" {
		t.Fatalf("expected one info record, got %+v", recs)
	}
	if d.Pending() != 0 {
		t.Fatalf("parse errors must not dispatch")
	}
}

func TestDispatcherUnreachableLattice(t *testing.T) {
	sink := logsink.New(logsink.Options{})
	endpoint := schema.Endpoint{Host: "127.0.0.1", Port: 1, Namespace: "test", Timeout: 200 * time.Millisecond}
	d := NewDispatcher(lattice.NewDialer(), endpoint)
	ctx := sessionContext(sink, "s1")

	if sig := d.Submit(ctx, "get hosts"); sig != SignalNone {
		t.Fatalf("unexpected signal %v", sig)
	}
	d.Wait()

	errs := recordsFor(sink, logx.CommandTarget, logsink.LevelError)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error record, got %+v", errs)
	}
	if errs[0].Message != "Error handling get hosts" {
		t.Fatalf("unexpected error message %q", errs[0].Message)
	}
	if out := recordsFor(sink, logx.OutputTarget, logsink.LevelOff); len(out) != 0 {
		t.Fatalf("expected no output records, got %+v", out)
	}
	if d.Pending() != 0 {
		t.Fatalf("expected nothing pending after Wait")
	}
}

func TestDispatcherCompletionsPairWithRequests(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions()...)
	sink := logsink.New(logsink.Options{})
	client := &gatedClient{gates: map[schema.ActorID]chan struct{}{
		"MSLOW": make(chan struct{}),
		"MFAST": make(chan struct{}),
	}}
	d := NewDispatcher(func(context.Context, schema.Endpoint) (lattice.Client, error) {
		return client, nil
	}, testEndpoint)
	ctx := sessionContext(sink, "s1")

	d.Submit(ctx, `call MSLOW Echo {"n":1}`)
	d.Submit(ctx, `call MFAST Echo {"n":2}`)
	if d.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", d.Pending())
	}

	close(client.gates["MFAST"])
	waitFor(t, func() bool { return len(recordsFor(sink, logx.OutputTarget, logsink.LevelOff)) == 1 })
	close(client.gates["MSLOW"])
	d.Wait()

	out := recordsFor(sink, logx.OutputTarget, logsink.LevelOff)
	if len(out) != 2 {
		t.Fatalf("expected 2 output records, got %+v", out)
	}
	for i, want := range []struct{ id, payload string }{{"MFAST", `{"n":2}`}, {"MSLOW", `{"n":1}`}} {
		if out[i].Session != "s1" {
			t.Fatalf("record %d has session %q", i, out[i].Session)
		}
		if out[i].Message != format.CallText(schema.InvocationResponse{Msg: []byte(want.payload)}) {
			t.Fatalf("record %d: got %q, want result of %s", i, out[i].Message, want.id)
		}
	}
}

func TestDispatcherWaitTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions()...)
	sink := logsink.New(logsink.Options{})
	client := &gatedClient{gates: map[schema.ActorID]chan struct{}{"MSLOW": make(chan struct{})}}
	d := NewDispatcher(func(context.Context, schema.Endpoint) (lattice.Client, error) {
		return client, nil
	}, testEndpoint)

	if !d.WaitTimeout(time.Millisecond) {
		t.Fatalf("idle dispatcher should finish at once")
	}
	d.Submit(sessionContext(sink, "s1"), `call MSLOW Echo {}`)
	if d.WaitTimeout(20 * time.Millisecond) {
		t.Fatalf("expected timeout while the call is gated")
	}
	close(client.gates["MSLOW"])
	if !d.WaitTimeout(2 * time.Second) {
		t.Fatalf("expected the call to finish once released")
	}
	if d.Pending() != 0 {
		t.Fatalf("expected nothing pending, got %d", d.Pending())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

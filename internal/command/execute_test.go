package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wascc/wcc/lattice"
	"github.com/wascc/wcc/lattice/latticetest"
	"github.com/wascc/wcc/schema"
)

var testEndpoint = schema.Endpoint{Host: "127.0.0.1", Port: 4222, Namespace: "test", Timeout: 2 * time.Second}

func mustParse(t *testing.T, line string) Command {
	t.Helper()
	cmd, err := Parse(line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	return cmd
}

func TestExecuteAgainstLattice(t *testing.T) {
	bus := latticetest.NewBus()
	defer bus.Close()
	bus.AddHost("NHOST", nil)
	dial := bus.Dialer()
	ctx := context.Background()

	res, err := Execute(ctx, dial, testEndpoint, mustParse(t, "get hosts"))
	if err != nil {
		t.Fatalf("get hosts: %v", err)
	}
	if !strings.Contains(res.Text(), "NHOST") {
		t.Fatalf("expected host in output, got %q", res.Text())
	}

	res, err = Execute(ctx, dial, testEndpoint, mustParse(t, "start actor NHOST wasmcloud.azurecr.io/echo:0.2.0"))
	if err != nil {
		t.Fatalf("start actor: %v", err)
	}
	ack := res.Value.(schema.StartActorAck)
	if ack.ActorID == "" || !strings.Contains(res.Text(), string(ack.ActorID)) {
		t.Fatalf("unexpected start result %+v / %q", ack, res.Text())
	}

	res, err = Execute(ctx, dial, testEndpoint, mustParse(t, "link MECHO VHTTP wasmcloud:httpserver PORT=8080"))
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if links := bus.Links(); len(links) != 1 || links[0].Values["PORT"] != "8080" {
		t.Fatalf("unexpected links %+v", links)
	}

	res, err = Execute(ctx, dial, testEndpoint, mustParse(t, `call MECHO Echo {"a":1}`))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if resp := res.Value.(schema.InvocationResponse); string(resp.Msg) != `{"a":1}` {
		t.Fatalf("unexpected call response %+v", resp)
	}
}

func TestExecuteAckFailure(t *testing.T) {
	bus := latticetest.NewBus()
	defer bus.Close()
	bus.AddHost("NHOST", nil)

	_, err := Execute(context.Background(), bus.Dialer(), testEndpoint, mustParse(t, "stop actor NHOST MMISSING"))
	var ack *schema.AckError
	if !errors.As(err, &ack) {
		t.Fatalf("expected ack error, got %v", err)
	}
	if ack.Op != "stop actor" || !strings.Contains(ack.Failure, "MMISSING") {
		t.Fatalf("unexpected ack error %+v", ack)
	}

	bus.FailNext(lattice.MethodInvoke, "actor panicked")
	_, err = Execute(context.Background(), bus.Dialer(), testEndpoint, mustParse(t, "call MECHO Echo"))
	if !errors.As(err, &ack) || ack.Failure != "actor panicked" {
		t.Fatalf("expected invocation failure, got %v", err)
	}
}

func TestExecuteRejectsConsoleCommands(t *testing.T) {
	for _, cmd := range []Command{Quit{}, Clear{}} {
		if IsLattice(cmd) {
			t.Fatalf("%s should not be a lattice command", cmd.Name())
		}
		_, err := Execute(context.Background(), nil, testEndpoint, cmd)
		if !errors.Is(err, schema.ErrNotLatticeCommand) {
			t.Fatalf("expected ErrNotLatticeCommand for %s, got %v", cmd.Name(), err)
		}
	}
}

func TestExecuteUnreachableLattice(t *testing.T) {
	endpoint := schema.Endpoint{Host: "127.0.0.1", Port: 1, Namespace: "test", Timeout: 200 * time.Millisecond}
	_, err := Execute(context.Background(), lattice.NewDialer(), endpoint, mustParse(t, "get hosts"))
	if !lattice.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

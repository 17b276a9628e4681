package command

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wascc/wcc/internal/logx"
	"github.com/wascc/wcc/lattice"
	"github.com/wascc/wcc/schema"
)

// Signal tells the console what to do after a submitted line.
type Signal int

const (
	SignalNone Signal = iota
	SignalClear
	SignalQuit
)

// Dispatcher turns submitted console lines into lattice operations. Each
// operation runs on its own goroutine; results go to the Output target of
// the session logger and failures to the command target, so completions of
// overlapping calls land in whatever order they finish.
type Dispatcher struct {
	dial    lattice.Dialer
	base    schema.Endpoint
	pending atomic.Int64
	wg      sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher that dials base unless a command overrides it.
func NewDispatcher(dial lattice.Dialer, base schema.Endpoint) *Dispatcher {
	return &Dispatcher{dial: dial, base: base}
}

// Submit parses line and starts its operation without waiting for it.
func (d *Dispatcher) Submit(ctx context.Context, line string) Signal {
	if strings.TrimSpace(line) == "" {
		return SignalNone
	}
	log := logx.Command(ctx)
	cmd, err := Parse(line)
	if err != nil {
		log.Info(err.Error())
		return SignalNone
	}
	switch cmd.(type) {
	case Quit:
		log.Info("Goodbye")
		return SignalQuit
	case Clear:
		log.Info("Clearing REPL history")
		return SignalClear
	}
	d.pending.Add(1)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.pending.Add(-1)
		d.run(ctx, line, cmd)
	}()
	return SignalNone
}

func (d *Dispatcher) run(ctx context.Context, line string, cmd Command) {
	log := logx.Command(ctx).With("command", cmd.Name())
	log.Debug("command dispatched", "line", line, "endpoint", Endpoint(cmd, d.base).Address())
	res, err := Execute(ctx, d.dial, d.base, cmd)
	if err != nil {
		log.Error("Error handling "+cmd.Name(), "kind", errorKind(err), "err", err)
		return
	}
	logx.Output(ctx).Info(res.Text())
	log.Debug("command completed")
}

func errorKind(err error) string {
	var ack *schema.AckError
	switch {
	case errors.As(err, &ack):
		return "ack"
	case lattice.IsTransport(err):
		return "transport"
	}
	return "internal"
}

// Pending returns the number of operations still running.
func (d *Dispatcher) Pending() int {
	return int(d.pending.Load())
}

// Wait blocks until every started operation has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// WaitTimeout is Wait bounded by timeout. It reports whether every
// operation finished in time.
func (d *Dispatcher) WaitTimeout(timeout time.Duration) bool {
	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-finished:
		return true
	case <-timer.C:
		return false
	}
}

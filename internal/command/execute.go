package command

import (
	"context"

	"github.com/wascc/wcc/lattice"
	"github.com/wascc/wcc/schema"
)

// Result is the successful outcome of a lattice command. Value holds the
// typed answer: []schema.Host, schema.HostInventory, schema.ClaimsList, an
// ack, schema.LinkDefinition or schema.InvocationResponse.
type Result struct {
	Command Command
	Value   any
}

// Text renders the result as Output panel text.
func (r Result) Text() string {
	lc, ok := r.Command.(latticeCommand)
	if !ok || r.Value == nil {
		return ""
	}
	return lc.text(r.Value)
}

// IsLattice reports whether cmd runs a lattice operation.
func IsLattice(cmd Command) bool {
	_, ok := cmd.(latticeCommand)
	return ok
}

// Endpoint returns the endpoint cmd targets once merged with base.
func Endpoint(cmd Command, base schema.Endpoint) schema.Endpoint {
	lc, ok := cmd.(latticeCommand)
	if !ok {
		return base
	}
	return lc.remote().Merge(base)
}

// Execute opens a short-lived client, runs the one lattice operation cmd
// maps to and closes the client. Acks carrying a failure return an
// *schema.AckError.
func Execute(ctx context.Context, dial lattice.Dialer, base schema.Endpoint, cmd Command) (Result, error) {
	lc, ok := cmd.(latticeCommand)
	if !ok {
		return Result{Command: cmd}, schema.ErrNotLatticeCommand
	}
	client, err := dial(ctx, lc.remote().Merge(base))
	if err != nil {
		return Result{Command: cmd}, err
	}
	defer client.Close()
	value, err := lc.run(ctx, client)
	if err != nil {
		return Result{Command: cmd}, err
	}
	return Result{Command: cmd, Value: value}, nil
}

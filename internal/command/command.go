// Package command parses console lines into typed lattice commands and runs them.
package command

import (
	"context"

	"github.com/wascc/wcc/internal/format"
	"github.com/wascc/wcc/lattice"
	"github.com/wascc/wcc/schema"
)

// Command is one parsed console line. The set of implementations is closed.
type Command interface {
	Name() string
	command()
}

// latticeCommand is a Command backed by exactly one lattice operation.
type latticeCommand interface {
	Command
	remote() schema.Endpoint
	run(ctx context.Context, client lattice.Client) (any, error)
	text(value any) string
}

// Remote carries per-command connection overrides; zero fields fall back to
// the configured endpoint.
type Remote struct {
	Endpoint schema.Endpoint
}

func (r Remote) remote() schema.Endpoint { return r.Endpoint }

// GetHosts lists the hosts of the lattice.
type GetHosts struct{ Remote }

// GetInventory lists what one host runs.
type GetInventory struct {
	Remote
	HostID schema.HostID
}

// GetClaims lists the claims known to the lattice.
type GetClaims struct{ Remote }

// StartActor starts an actor on a host.
type StartActor struct {
	Remote
	HostID   schema.HostID
	ActorRef string
}

// StartProvider starts a capability provider on a host.
type StartProvider struct {
	Remote
	HostID      schema.HostID
	ProviderRef string
	LinkName    string
}

// StopActor stops an actor on a host.
type StopActor struct {
	Remote
	HostID   schema.HostID
	ActorRef string
}

// StopProvider stops a capability provider on a host.
type StopProvider struct {
	Remote
	HostID      schema.HostID
	ProviderRef string
	LinkName    string
	ContractID  string
}

// Link advertises a link between an actor and a provider.
type Link struct {
	Remote
	Definition schema.LinkDefinition
}

// Call invokes an operation on an actor.
type Call struct {
	Remote
	ActorID   schema.ActorID
	Operation string
	Payload   []byte
}

// Clear resets the console input and output.
type Clear struct{}

// Quit ends the console.
type Quit struct{}

func (GetHosts) Name() string      { return "get hosts" }
func (GetInventory) Name() string  { return "get inventory" }
func (GetClaims) Name() string     { return "get claims" }
func (StartActor) Name() string    { return "start actor" }
func (StartProvider) Name() string { return "start provider" }
func (StopActor) Name() string     { return "stop actor" }
func (StopProvider) Name() string  { return "stop provider" }
func (Link) Name() string          { return "link" }
func (Call) Name() string          { return "call" }
func (Clear) Name() string         { return "clear" }
func (Quit) Name() string          { return "quit" }

func (GetHosts) command()      {}
func (GetInventory) command()  {}
func (GetClaims) command()     {}
func (StartActor) command()    {}
func (StartProvider) command() {}
func (StopActor) command()     {}
func (StopProvider) command()  {}
func (Link) command()          {}
func (Call) command()          {}
func (Clear) command()         {}
func (Quit) command()          {}

func (c GetHosts) run(ctx context.Context, client lattice.Client) (any, error) {
	return client.GetHosts(ctx, c.Endpoint.Timeout)
}

func (c GetHosts) text(value any) string {
	return format.HostsText(value.([]schema.Host))
}

func (c GetInventory) run(ctx context.Context, client lattice.Client) (any, error) {
	return client.GetHostInventory(ctx, c.HostID)
}

func (c GetInventory) text(value any) string {
	return format.InventoryText(value.(schema.HostInventory))
}

func (c GetClaims) run(ctx context.Context, client lattice.Client) (any, error) {
	return client.GetClaims(ctx)
}

func (c GetClaims) text(value any) string {
	return format.ClaimsText(value.(schema.ClaimsList))
}

func (c StartActor) run(ctx context.Context, client lattice.Client) (any, error) {
	ack, err := client.StartActor(ctx, c.HostID, c.ActorRef)
	if err != nil {
		return nil, err
	}
	return ack, schema.CheckAck(c.Name(), ack.Failure)
}

func (c StartActor) text(value any) string {
	ack := value.(schema.StartActorAck)
	return format.StartedText(ack.ActorRef, string(ack.ActorID))
}

func (c StartProvider) run(ctx context.Context, client lattice.Client) (any, error) {
	ack, err := client.StartProvider(ctx, c.HostID, c.ProviderRef, c.LinkName)
	if err != nil {
		return nil, err
	}
	return ack, schema.CheckAck(c.Name(), ack.Failure)
}

func (c StartProvider) text(value any) string {
	ack := value.(schema.StartProviderAck)
	return format.StartedText(ack.ProviderRef, string(ack.ProviderID))
}

func (c StopActor) run(ctx context.Context, client lattice.Client) (any, error) {
	ack, err := client.StopActor(ctx, c.HostID, c.ActorRef)
	if err != nil {
		return nil, err
	}
	return ack, schema.CheckAck(c.Name(), ack.Failure)
}

func (c StopActor) text(any) string {
	return format.StoppedText("actor", c.ActorRef)
}

func (c StopProvider) run(ctx context.Context, client lattice.Client) (any, error) {
	ack, err := client.StopProvider(ctx, c.HostID, c.ProviderRef, c.LinkName, c.ContractID)
	if err != nil {
		return nil, err
	}
	return ack, schema.CheckAck(c.Name(), ack.Failure)
}

func (c StopProvider) text(any) string {
	return format.StoppedText("provider", c.ProviderRef)
}

func (c Link) run(ctx context.Context, client lattice.Client) (any, error) {
	if err := client.AdvertiseLink(ctx, c.Definition); err != nil {
		return nil, err
	}
	return c.Definition, nil
}

func (c Link) text(value any) string {
	return format.LinkedText(value.(schema.LinkDefinition))
}

func (c Call) run(ctx context.Context, client lattice.Client) (any, error) {
	resp, err := client.CallActor(ctx, c.ActorID, c.Operation, c.Payload)
	if err != nil {
		return nil, err
	}
	return resp, schema.CheckAck(c.Name(), resp.Error)
}

func (c Call) text(value any) string {
	return format.CallText(value.(schema.InvocationResponse))
}

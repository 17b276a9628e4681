// Package lattice talks to the lattice control plane and hosts an embedded member.
package lattice

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/wascc/wcc/schema"
)

// Wire names of the lattice services.
const (
	ControlService = "wasmcloud.lattice.v1.Control"
	RPCService     = "wasmcloud.lattice.v1.Rpc"

	MethodGetHosts         = "GetHosts"
	MethodGetHostInventory = "GetHostInventory"
	MethodGetClaims        = "GetClaims"
	MethodStartActor       = "StartActor"
	MethodStartProvider    = "StartProvider"
	MethodStopActor        = "StopActor"
	MethodStopProvider     = "StopProvider"
	MethodAdvertiseLink    = "AdvertiseLink"
	MethodRegisterHost     = "RegisterHost"
	MethodHeartbeat        = "Heartbeat"
	MethodDeregisterHost   = "DeregisterHost"
	MethodInvoke           = "Invoke"

	// NamespaceKey is the request metadata key carrying the lattice namespace.
	NamespaceKey = "lattice-namespace"
)

// FullMethod returns the gRPC method path of a lattice method.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// Client is the control-plane surface the console consumes. Every call either
// fails with a TransportError or returns the remote answer, whose ack may
// itself carry a failure.
type Client interface {
	GetHosts(ctx context.Context, timeout time.Duration) ([]schema.Host, error)
	GetHostInventory(ctx context.Context, hostID schema.HostID) (schema.HostInventory, error)
	GetClaims(ctx context.Context) (schema.ClaimsList, error)
	StartActor(ctx context.Context, hostID schema.HostID, actorRef string) (schema.StartActorAck, error)
	StartProvider(ctx context.Context, hostID schema.HostID, providerRef, linkName string) (schema.StartProviderAck, error)
	StopActor(ctx context.Context, hostID schema.HostID, actorRef string) (schema.StopActorAck, error)
	StopProvider(ctx context.Context, hostID schema.HostID, providerRef, linkName, contractID string) (schema.StopProviderAck, error)
	AdvertiseLink(ctx context.Context, link schema.LinkDefinition) error
	CallActor(ctx context.Context, actorID schema.ActorID, operation string, payload []byte) (schema.InvocationResponse, error)
	Close() error
}

// Dialer opens a Client for one endpoint.
type Dialer func(ctx context.Context, endpoint schema.Endpoint) (Client, error)

// NewDialer returns a Dialer that applies opts to every connection.
func NewDialer(opts ...grpc.DialOption) Dialer {
	return func(ctx context.Context, endpoint schema.Endpoint) (Client, error) {
		return Dial(ctx, endpoint, opts...)
	}
}

// GRPCClient implements Client over gRPC with Struct payloads.
type GRPCClient struct {
	conn     *grpc.ClientConn
	endpoint schema.Endpoint
	owned    bool
}

// Dial creates a client with its own connection. The connection is
// established lazily; an unreachable lattice surfaces on the first call.
func Dial(ctx context.Context, endpoint schema.Endpoint, opts ...grpc.DialOption) (*GRPCClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	endpoint, err := schema.NormalizeEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	conn, err := newConn(endpoint.Address(), opts)
	if err != nil {
		return nil, &TransportError{Op: "dial", Addr: endpoint.Address(), Err: err}
	}
	return &GRPCClient{conn: conn, endpoint: endpoint, owned: true}, nil
}

// NewClient wraps an existing connection. Close leaves conn open.
func NewClient(conn *grpc.ClientConn, endpoint schema.Endpoint) *GRPCClient {
	endpoint, err := schema.NormalizeEndpoint(endpoint)
	if err != nil {
		endpoint, _ = schema.NormalizeEndpoint(schema.Endpoint{})
	}
	return &GRPCClient{conn: conn, endpoint: endpoint}
}

// Close closes the underlying gRPC connection when the client owns it.
func (c *GRPCClient) Close() error {
	if c.conn != nil && c.owned {
		return c.conn.Close()
	}
	return nil
}

type hostRequest struct {
	HostID schema.HostID `json:"host_id"`
}

type getHostsRequest struct {
	TimeoutMS int64 `json:"timeout_ms"`
}

type getHostsResponse struct {
	Hosts []schema.Host `json:"hosts"`
}

type actorRequest struct {
	HostID   schema.HostID `json:"host_id"`
	ActorRef string        `json:"actor_ref"`
}

type providerRequest struct {
	HostID      schema.HostID `json:"host_id"`
	ProviderRef string        `json:"provider_ref"`
	LinkName    string        `json:"link_name"`
	ContractID  string        `json:"contract_id,omitempty"`
}

type ackResponse struct {
	Failure string `json:"failure,omitempty"`
}

type invokeRequest struct {
	ActorID   schema.ActorID `json:"actor_id"`
	Operation string         `json:"operation"`
	Msg       []byte         `json:"msg,omitempty"`
}

// GetHosts asks every host to answer within timeout.
func (c *GRPCClient) GetHosts(ctx context.Context, timeout time.Duration) ([]schema.Host, error) {
	if timeout <= 0 {
		timeout = c.endpoint.Timeout
	}
	var resp getHostsResponse
	err := c.invoke(ctx, "get hosts", ControlService, MethodGetHosts, c.endpoint.Timeout+timeout,
		getHostsRequest{TimeoutMS: timeout.Milliseconds()}, &resp)
	return resp.Hosts, err
}

// GetHostInventory returns the labels, actors and providers of one host.
func (c *GRPCClient) GetHostInventory(ctx context.Context, hostID schema.HostID) (schema.HostInventory, error) {
	var inv schema.HostInventory
	err := c.invoke(ctx, "get inventory", ControlService, MethodGetHostInventory, c.endpoint.Timeout,
		hostRequest{HostID: hostID}, &inv)
	return inv, err
}

// GetClaims returns the claims known to the lattice.
func (c *GRPCClient) GetClaims(ctx context.Context) (schema.ClaimsList, error) {
	var list schema.ClaimsList
	err := c.invoke(ctx, "get claims", ControlService, MethodGetClaims, c.endpoint.Timeout, struct{}{}, &list)
	return list, err
}

// StartActor asks a host to start an actor from an image reference.
func (c *GRPCClient) StartActor(ctx context.Context, hostID schema.HostID, actorRef string) (schema.StartActorAck, error) {
	var ack schema.StartActorAck
	err := c.invoke(ctx, "start actor", ControlService, MethodStartActor, c.endpoint.Timeout,
		actorRequest{HostID: hostID, ActorRef: actorRef}, &ack)
	return ack, err
}

// StartProvider asks a host to start a capability provider.
func (c *GRPCClient) StartProvider(ctx context.Context, hostID schema.HostID, providerRef, linkName string) (schema.StartProviderAck, error) {
	var ack schema.StartProviderAck
	err := c.invoke(ctx, "start provider", ControlService, MethodStartProvider, c.endpoint.Timeout,
		providerRequest{HostID: hostID, ProviderRef: providerRef, LinkName: linkName}, &ack)
	return ack, err
}

// StopActor asks a host to stop an actor.
func (c *GRPCClient) StopActor(ctx context.Context, hostID schema.HostID, actorRef string) (schema.StopActorAck, error) {
	var ack schema.StopActorAck
	err := c.invoke(ctx, "stop actor", ControlService, MethodStopActor, c.endpoint.Timeout,
		actorRequest{HostID: hostID, ActorRef: actorRef}, &ack)
	return ack, err
}

// StopProvider asks a host to stop a capability provider.
func (c *GRPCClient) StopProvider(ctx context.Context, hostID schema.HostID, providerRef, linkName, contractID string) (schema.StopProviderAck, error) {
	var ack schema.StopProviderAck
	err := c.invoke(ctx, "stop provider", ControlService, MethodStopProvider, c.endpoint.Timeout,
		providerRequest{HostID: hostID, ProviderRef: providerRef, LinkName: linkName, ContractID: contractID}, &ack)
	return ack, err
}

// AdvertiseLink publishes a link definition to the lattice.
func (c *GRPCClient) AdvertiseLink(ctx context.Context, link schema.LinkDefinition) error {
	var ack ackResponse
	if err := c.invoke(ctx, "advertise link", ControlService, MethodAdvertiseLink, c.endpoint.Timeout, link, &ack); err != nil {
		return err
	}
	return schema.CheckAck("advertise link", ack.Failure)
}

// CallActor invokes an operation on an actor over the rpc service.
func (c *GRPCClient) CallActor(ctx context.Context, actorID schema.ActorID, operation string, payload []byte) (schema.InvocationResponse, error) {
	var resp schema.InvocationResponse
	err := c.invoke(ctx, "call actor", RPCService, MethodInvoke, c.endpoint.Timeout,
		invokeRequest{ActorID: actorID, Operation: operation, Msg: payload}, &resp)
	return resp, err
}

func (c *GRPCClient) invoke(ctx context.Context, op, service, method string, timeout time.Duration, req, resp any) error {
	in, err := Encode(req)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, NamespaceKey, c.endpoint.Namespace)
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, FullMethod(service, method), in, out); err != nil {
		return wrapError(op, c.endpoint.Address(), err)
	}
	return Decode(out, resp)
}

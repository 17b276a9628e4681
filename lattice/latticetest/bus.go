// Package latticetest provides an in-memory lattice control plane for tests.
package latticetest

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/wascc/wcc/lattice"
	"github.com/wascc/wcc/schema"
)

// InvokeFunc answers an actor call.
type InvokeFunc func(ctx context.Context, actorID schema.ActorID, operation string, msg []byte) (schema.InvocationResponse, error)

type host struct {
	info      schema.MemberInfo
	started   time.Time
	beats     int
	actors    []schema.ActorDescription
	providers []schema.ProviderDescription
}

// Bus is a lattice served over an in-memory listener.
type Bus struct {
	mu         sync.Mutex
	hosts      map[schema.HostID]*host
	claims     []schema.Claims
	links      []schema.LinkDefinition
	failures   map[string]string
	namespaces []string
	invoke     InvokeFunc

	lis    *bufconn.Listener
	server *grpc.Server
	health *health.Server
}

type handler interface {
	handle(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error)
}

// NewBus starts a Bus. Call Close when done.
func NewBus() *Bus {
	b := &Bus{
		hosts:    make(map[schema.HostID]*host),
		failures: make(map[string]string),
		lis:      bufconn.Listen(1 << 20),
		server:   grpc.NewServer(),
		health:   health.NewServer(),
	}
	b.server.RegisterService(serviceDesc(lattice.ControlService, []string{
		lattice.MethodGetHosts,
		lattice.MethodGetHostInventory,
		lattice.MethodGetClaims,
		lattice.MethodStartActor,
		lattice.MethodStartProvider,
		lattice.MethodStopActor,
		lattice.MethodStopProvider,
		lattice.MethodAdvertiseLink,
		lattice.MethodRegisterHost,
		lattice.MethodHeartbeat,
		lattice.MethodDeregisterHost,
	}), b)
	b.server.RegisterService(serviceDesc(lattice.RPCService, []string{lattice.MethodInvoke}), b)
	healthpb.RegisterHealthServer(b.server, b.health)
	b.health.SetServingStatus(lattice.RPCService, healthpb.HealthCheckResponse_SERVING)
	go func() {
		_ = b.server.Serve(b.lis)
	}()
	return b
}

func serviceDesc(service string, methods []string) *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: service,
		HandlerType: (*handler)(nil),
	}
	for _, method := range methods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: method,
			Handler:    unaryHandler(service, method),
		})
	}
	return desc
}

func unaryHandler(service, method string) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		h := srv.(handler)
		if interceptor == nil {
			return h.handle(ctx, method, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: lattice.FullMethod(service, method)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return h.handle(ctx, method, req.(*structpb.Struct))
		})
	}
}

// DialOptions returns the options that route a client to this bus.
func (b *Bus) DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return b.lis.DialContext(ctx)
		}),
	}
}

// Dialer returns a lattice.Dialer bound to this bus.
func (b *Bus) Dialer() lattice.Dialer {
	return lattice.NewDialer(b.DialOptions()...)
}

// Close stops the server.
func (b *Bus) Close() {
	b.server.Stop()
	_ = b.lis.Close()
}

// AddHost registers a host that is not backed by a member.
func (b *Bus) AddHost(id schema.HostID, labels map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hosts[id] = &host{info: schema.MemberInfo{HostID: id, Labels: labels}, started: time.Now()}
}

// AddActor places an actor on a host.
func (b *Bus) AddActor(hostID schema.HostID, actor schema.ActorDescription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h := b.hosts[hostID]; h != nil {
		h.actors = append(h.actors, actor)
	}
}

// AddClaims adds claims returned by GetClaims.
func (b *Bus) AddClaims(claims ...schema.Claims) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.claims = append(b.claims, claims...)
}

// FailNext makes the next ack of method carry failure.
func (b *Bus) FailNext(method, failure string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method] = failure
}

// SetInvoke replaces the default echo behavior of actor calls.
func (b *Bus) SetInvoke(fn InvokeFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invoke = fn
}

// Members returns the registered member infos, sorted by host id.
func (b *Bus) Members() []schema.MemberInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]schema.MemberInfo, 0, len(b.hosts))
	for _, h := range b.hosts {
		out = append(out, h.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HostID < out[j].HostID })
	return out
}

// Heartbeats returns how many heartbeats a host sent.
func (b *Bus) Heartbeats(id schema.HostID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h := b.hosts[id]; h != nil {
		return h.beats
	}
	return 0
}

// Links returns the advertised links.
func (b *Bus) Links() []schema.LinkDefinition {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]schema.LinkDefinition(nil), b.links...)
}

// Namespaces returns the namespace of every request received, in order.
func (b *Bus) Namespaces() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.namespaces...)
}

type ack struct {
	Failure string `json:"failure,omitempty"`
}

type request struct {
	HostID      schema.HostID     `json:"host_id"`
	ActorRef    string            `json:"actor_ref"`
	ProviderRef string            `json:"provider_ref"`
	LinkName    string            `json:"link_name"`
	ContractID  string            `json:"contract_id"`
	ActorID     schema.ActorID    `json:"actor_id"`
	Operation   string            `json:"operation"`
	Msg         []byte            `json:"msg"`
	Namespace   string            `json:"namespace"`
	Labels      map[string]string `json:"labels"`
	Version     string            `json:"version"`
}

func (b *Bus) handle(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	var req request
	if err := lattice.Decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(lattice.NamespaceKey); len(values) > 0 {
			b.mu.Lock()
			b.namespaces = append(b.namespaces, values[0])
			b.mu.Unlock()
		}
	}
	if method == lattice.MethodInvoke {
		return b.handleInvoke(ctx, req)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	failure := b.failures[method]
	delete(b.failures, method)

	var resp any
	switch method {
	case lattice.MethodGetHosts:
		hosts := make([]schema.Host, 0, len(b.hosts))
		for id, h := range b.hosts {
			hosts = append(hosts, schema.Host{ID: id, UptimeSeconds: uint64(time.Since(h.started).Seconds())})
		}
		sort.Slice(hosts, func(i, j int) bool { return hosts[i].ID < hosts[j].ID })
		resp = map[string]any{"hosts": hosts}
	case lattice.MethodGetHostInventory:
		h := b.hosts[req.HostID]
		if h == nil {
			return nil, status.Errorf(codes.NotFound, "host %s not found", req.HostID)
		}
		resp = schema.HostInventory{HostID: req.HostID, Labels: h.info.Labels, Actors: h.actors, Providers: h.providers}
	case lattice.MethodGetClaims:
		resp = schema.ClaimsList{Claims: b.claims}
	case lattice.MethodStartActor:
		a := schema.StartActorAck{HostID: req.HostID, ActorRef: req.ActorRef, Failure: failure}
		if h := b.hosts[req.HostID]; h == nil && failure == "" {
			a.Failure = fmt.Sprintf("host %s not found", req.HostID)
		} else if failure == "" {
			a.ActorID = schema.ActorID("M" + refKey(req.ActorRef))
			h.actors = append(h.actors, schema.ActorDescription{ID: a.ActorID, ImageRef: req.ActorRef})
		}
		resp = a
	case lattice.MethodStartProvider:
		a := schema.StartProviderAck{HostID: req.HostID, ProviderRef: req.ProviderRef, Failure: failure}
		if h := b.hosts[req.HostID]; h == nil && failure == "" {
			a.Failure = fmt.Sprintf("host %s not found", req.HostID)
		} else if failure == "" {
			a.ProviderID = schema.ProviderID("V" + refKey(req.ProviderRef))
			h.providers = append(h.providers, schema.ProviderDescription{ID: a.ProviderID, LinkName: req.LinkName, ImageRef: req.ProviderRef})
		}
		resp = a
	case lattice.MethodStopActor:
		if failure == "" && !b.removeActor(req.HostID, req.ActorRef) {
			failure = fmt.Sprintf("actor %s not running", req.ActorRef)
		}
		resp = schema.StopActorAck{Failure: failure}
	case lattice.MethodStopProvider:
		if failure == "" && !b.removeProvider(req.HostID, req.ProviderRef, req.LinkName) {
			failure = fmt.Sprintf("provider %s not running", req.ProviderRef)
		}
		resp = schema.StopProviderAck{Failure: failure}
	case lattice.MethodAdvertiseLink:
		var link schema.LinkDefinition
		if err := lattice.Decode(in, &link); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		if failure == "" {
			b.links = append(b.links, link)
		}
		resp = ack{Failure: failure}
	case lattice.MethodRegisterHost:
		if failure == "" {
			b.hosts[req.HostID] = &host{
				info:    schema.MemberInfo{HostID: req.HostID, Namespace: req.Namespace, Labels: req.Labels, Version: req.Version},
				started: time.Now(),
			}
		}
		resp = ack{Failure: failure}
	case lattice.MethodHeartbeat:
		if h := b.hosts[req.HostID]; h != nil {
			h.beats++
		}
		resp = ack{Failure: failure}
	case lattice.MethodDeregisterHost:
		delete(b.hosts, req.HostID)
		resp = ack{Failure: failure}
	default:
		return nil, status.Errorf(codes.Unimplemented, "unknown method %s", method)
	}
	out, err := lattice.Encode(resp)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (b *Bus) handleInvoke(ctx context.Context, req request) (*structpb.Struct, error) {
	b.mu.Lock()
	fn := b.invoke
	failure := b.failures[lattice.MethodInvoke]
	delete(b.failures, lattice.MethodInvoke)
	b.mu.Unlock()
	var resp schema.InvocationResponse
	if fn != nil {
		var err error
		resp, err = fn(ctx, req.ActorID, req.Operation, req.Msg)
		if err != nil {
			return nil, err
		}
	} else {
		resp = schema.InvocationResponse{Msg: req.Msg}
	}
	if resp.InvocationID == "" {
		resp.InvocationID = uuid.NewString()
	}
	if failure != "" {
		resp.Error = failure
	}
	out, err := lattice.Encode(resp)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (b *Bus) removeActor(hostID schema.HostID, ref string) bool {
	h := b.hosts[hostID]
	if h == nil {
		return false
	}
	for i, a := range h.actors {
		if a.ImageRef == ref || string(a.ID) == ref {
			h.actors = append(h.actors[:i], h.actors[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Bus) removeProvider(hostID schema.HostID, ref, linkName string) bool {
	h := b.hosts[hostID]
	if h == nil {
		return false
	}
	for i, p := range h.providers {
		if (p.ImageRef == ref || string(p.ID) == ref) && p.LinkName == linkName {
			h.providers = append(h.providers[:i], h.providers[i+1:]...)
			return true
		}
	}
	return false
}

func refKey(ref string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(ref)).String()[:8]
}

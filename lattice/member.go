package lattice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/wascc/wcc/internal/logx"
	"github.com/wascc/wcc/schema"
	"pkt.systems/pslog"
)

// MemberOptions configures an embedded member.
type MemberOptions struct {
	Endpoint  schema.Endpoint
	Labels    map[string]string
	Version   string
	Heartbeat time.Duration
}

// Member is one embedded host taking part in the lattice. It uses the rpc
// connection for payload traffic and the control connection for lifecycle.
type Member struct {
	id      schema.HostID
	rpc     *grpc.ClientConn
	control *GRPCClient
	opts    MemberOptions

	mu      sync.Mutex
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewMember constructs a member with a fresh host id.
func NewMember(rpc, control *grpc.ClientConn, opts MemberOptions) *Member {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 30 * time.Second
	}
	return &Member{
		id:      NewHostID(),
		rpc:     rpc,
		control: NewClient(control, opts.Endpoint),
		opts:    opts,
	}
}

// NewHostID returns a host id in the N-prefixed upper-case form hosts use.
func NewHostID() schema.HostID {
	return schema.HostID("N" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")))
}

// ID returns the member's host id.
func (m *Member) ID() schema.HostID {
	return m.id
}

// Running reports whether Start succeeded and Stop has not been called.
func (m *Member) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Start checks the rpc connection, registers the member and begins heartbeats.
func (m *Member) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return errors.New("member already started")
	}
	addr := m.control.endpoint.Address()
	checkCtx, cancel := context.WithTimeout(ctx, m.control.endpoint.Timeout)
	_, err := healthpb.NewHealthClient(m.rpc).Check(checkCtx, &healthpb.HealthCheckRequest{Service: RPCService})
	cancel()
	if err != nil && status.Code(err) != codes.Unimplemented {
		return wrapError("rpc health", addr, err)
	}
	info := schema.MemberInfo{
		HostID:    m.id,
		Namespace: m.control.endpoint.Namespace,
		Labels:    m.opts.Labels,
		Version:   m.opts.Version,
	}
	var ack ackResponse
	if err := m.control.invoke(ctx, "register host", ControlService, MethodRegisterHost, m.control.endpoint.Timeout, info, &ack); err != nil {
		return err
	}
	if err := schema.CheckAck("register host", ack.Failure); err != nil {
		return err
	}
	m.started = time.Now()
	runCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = stop
	m.done = make(chan struct{})
	go m.heartbeatLoop(runCtx, m.done)
	return nil
}

type heartbeat struct {
	HostID        schema.HostID `json:"host_id"`
	UptimeSeconds uint64        `json:"uptime_seconds"`
}

func (m *Member) heartbeatLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	log := logx.Target(pslog.Ctx(ctx), logx.LogTarget).With("host_id", m.id)
	ticker := time.NewTicker(m.opts.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hb := heartbeat{HostID: m.id, UptimeSeconds: uint64(time.Since(m.started).Seconds())}
			var ack ackResponse
			if err := m.control.invoke(ctx, "heartbeat", ControlService, MethodHeartbeat, m.control.endpoint.Timeout, hb, &ack); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("member heartbeat failed", "err", err)
				continue
			}
			log.Trace("member heartbeat", "uptime_seconds", hb.UptimeSeconds)
		}
	}
}

// Stop ends heartbeats and deregisters the member.
func (m *Member) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	var ack ackResponse
	if err := m.control.invoke(ctx, "deregister host", ControlService, MethodDeregisterHost, m.control.endpoint.Timeout,
		hostRequest{HostID: m.id}, &ack); err != nil {
		return err
	}
	return schema.CheckAck("deregister host", ack.Failure)
}

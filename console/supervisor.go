package console

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/wascc/wcc/internal/logx"
	"github.com/wascc/wcc/lattice"
	"github.com/wascc/wcc/schema"
	"pkt.systems/pslog"
)

// SupervisorOptions configures the embedded lattice member of a console.
type SupervisorOptions struct {
	// Endpoint locates the lattice. Its namespace is ignored: the member
	// always joins schema.DefaultNamespace.
	Endpoint    schema.Endpoint
	Labels      map[string]string
	Version     string
	Heartbeat   time.Duration
	StopTimeout time.Duration
	DialOptions []grpc.DialOption
}

// Supervisor owns the embedded member for the lifetime of its context. It
// talks to the console only through the log sink and the Member channel.
type Supervisor struct {
	opts   SupervisorOptions
	member chan schema.HostID
	done   chan struct{}
}

// StartSupervisor connects to the lattice and starts a member in the
// background. Cancelling ctx stops the member. A connection failure leaves
// the console hostless.
func StartSupervisor(ctx context.Context, opts SupervisorOptions) *Supervisor {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 5 * time.Second
	}
	opts.Endpoint.Namespace = schema.DefaultNamespace
	s := &Supervisor{
		opts:   opts,
		member: make(chan schema.HostID, 1),
		done:   make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Member delivers the member id once it has started. It is never closed.
func (s *Supervisor) Member() <-chan schema.HostID { return s.member }

// Done is closed when the supervisor has stopped its member or given up.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)
	log := logx.Target(pslog.Ctx(ctx), logx.LogTarget)

	var rpc, control *grpc.ClientConn
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		conn, err := lattice.Connect(gctx, s.opts.Endpoint, s.opts.DialOptions...)
		rpc = conn
		return err
	})
	g.Go(func() error {
		conn, err := lattice.Connect(gctx, s.opts.Endpoint, s.opts.DialOptions...)
		control = conn
		return err
	})
	err := g.Wait()
	defer func() {
		for _, conn := range []*grpc.ClientConn{rpc, control} {
			if conn != nil {
				_ = conn.Close()
			}
		}
	}()
	if err != nil {
		log.Error("Error launching host, continuing without a lattice member", "err", err)
		return
	}

	member := lattice.NewMember(rpc, control, lattice.MemberOptions{
		Endpoint:  s.opts.Endpoint,
		Labels:    s.opts.Labels,
		Version:   s.opts.Version,
		Heartbeat: s.opts.Heartbeat,
	})
	if err := member.Start(ctx); err != nil {
		log.Error("Error launching host, continuing without a lattice member", "err", err)
		return
	}
	s.member <- member.ID()
	log.Info("Host started", "host_id", member.ID(), "namespace", s.opts.Endpoint.Namespace)

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.StopTimeout)
	defer cancel()
	if err := member.Stop(stopCtx); err != nil {
		log.Warn("Host stop failed", "host_id", member.ID(), "err", err)
		return
	}
	log.Info("Host stopped", "host_id", member.ID())
}

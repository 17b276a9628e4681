package lattice

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/wascc/wcc/schema"
)

// TransportError reports that the lattice could not be reached or did not
// answer in time.
type TransportError struct {
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: lattice at %s unreachable: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func newConn(addr string, opts []grpc.DialOption) (*grpc.ClientConn, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	return grpc.NewClient("passthrough:///"+addr, dialOpts...)
}

// Connect opens a connection and waits until it is ready or the endpoint
// timeout elapses.
func Connect(ctx context.Context, endpoint schema.Endpoint, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	endpoint, err := schema.NormalizeEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	addr := endpoint.Address()
	conn, err := newConn(addr, opts)
	if err != nil {
		return nil, &TransportError{Op: "connect", Addr: addr, Err: err}
	}
	waitCtx, cancel := context.WithTimeout(ctx, endpoint.Timeout)
	defer cancel()
	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return conn, nil
		}
		if !conn.WaitForStateChange(waitCtx, state) {
			_ = conn.Close()
			return nil, &TransportError{Op: "connect", Addr: addr, Err: waitCtx.Err()}
		}
	}
}

func wrapError(op, addr string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Op: op, Addr: addr, Err: err}
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
			return &TransportError{Op: op, Addr: addr, Err: err}
		case codes.OK:
			return nil
		}
		return &schema.AckError{Op: op, Failure: st.Message()}
	}
	return fmt.Errorf("%s: %w", op, err)
}

package schema

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultLatticeHost is the messaging endpoint host used when none is configured.
	DefaultLatticeHost = "0.0.0.0"
	// DefaultLatticePort is the messaging endpoint port used when none is configured.
	DefaultLatticePort = 4222
	// DefaultNamespace is the lattice namespace of console sessions.
	DefaultNamespace = "default"
	// DefaultTimeout bounds a single control-plane request.
	DefaultTimeout = time.Second
	// DefaultLinkName is the link name used when a command does not name one.
	DefaultLinkName = "default"
	// ReplModeLabel marks members started by the console.
	ReplModeLabel = "repl_mode"
)

// Endpoint describes how to reach the lattice control plane.
type Endpoint struct {
	Host      string
	Port      int
	Namespace string
	Timeout   time.Duration
}

// Address returns host:port.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Merge returns e with zero fields taken from base.
func (e Endpoint) Merge(base Endpoint) Endpoint {
	if strings.TrimSpace(e.Host) == "" {
		e.Host = base.Host
	}
	if e.Port == 0 {
		e.Port = base.Port
	}
	if strings.TrimSpace(e.Namespace) == "" {
		e.Namespace = base.Namespace
	}
	if e.Timeout <= 0 {
		e.Timeout = base.Timeout
	}
	return e
}

// NormalizeEndpoint applies defaults and validates the endpoint.
func NormalizeEndpoint(e Endpoint) (Endpoint, error) {
	e = e.Merge(Endpoint{
		Host:      DefaultLatticeHost,
		Port:      DefaultLatticePort,
		Namespace: DefaultNamespace,
		Timeout:   DefaultTimeout,
	})
	e.Host = strings.TrimSpace(e.Host)
	e.Namespace = strings.TrimSpace(e.Namespace)
	if e.Port < 1 || e.Port > 65535 {
		return Endpoint{}, fmt.Errorf("invalid lattice port %d", e.Port)
	}
	return e, nil
}

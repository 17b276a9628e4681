package schema

// HostID identifies a lattice host.
type HostID string

// ActorID identifies an actor by its public key.
type ActorID string

// ProviderID identifies a capability provider by its public key.
type ProviderID string

// SessionID identifies one console session.
type SessionID string

// Host is a lattice host as reported by the control plane.
type Host struct {
	ID            HostID `json:"id" yaml:"id"`
	UptimeSeconds uint64 `json:"uptime_seconds" yaml:"uptime_seconds"`
}

// HostInventory lists what a single host is running.
type HostInventory struct {
	HostID    HostID                `json:"host_id" yaml:"host_id"`
	Labels    map[string]string     `json:"labels" yaml:"labels"`
	Actors    []ActorDescription    `json:"actors" yaml:"actors"`
	Providers []ProviderDescription `json:"providers" yaml:"providers"`
}

// ActorDescription is one actor entry of a host inventory.
type ActorDescription struct {
	ID       ActorID `json:"id" yaml:"id"`
	ImageRef string  `json:"image_ref,omitempty" yaml:"image_ref,omitempty"`
	Name     string  `json:"name,omitempty" yaml:"name,omitempty"`
}

// ProviderDescription is one provider entry of a host inventory.
type ProviderDescription struct {
	ID       ProviderID `json:"id" yaml:"id"`
	LinkName string     `json:"link_name" yaml:"link_name"`
	ImageRef string     `json:"image_ref,omitempty" yaml:"image_ref,omitempty"`
	Name     string     `json:"name,omitempty" yaml:"name,omitempty"`
}

// Claims are the signed claims of one actor or provider known to the lattice.
type Claims struct {
	Issuer       string `json:"iss" yaml:"iss"`
	Subject      string `json:"sub" yaml:"sub"`
	Capabilities string `json:"caps,omitempty" yaml:"caps,omitempty"`
	Version      string `json:"version,omitempty" yaml:"version,omitempty"`
	Revision     string `json:"rev,omitempty" yaml:"rev,omitempty"`
}

// ClaimsList is the response to a claims query.
type ClaimsList struct {
	Claims []Claims `json:"claims" yaml:"claims"`
}

// StartActorAck acknowledges a start actor request.
type StartActorAck struct {
	HostID   HostID  `json:"host_id" yaml:"host_id"`
	ActorID  ActorID `json:"actor_id" yaml:"actor_id"`
	ActorRef string  `json:"actor_ref" yaml:"actor_ref"`
	Failure  string  `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// StartProviderAck acknowledges a start provider request.
type StartProviderAck struct {
	HostID      HostID     `json:"host_id" yaml:"host_id"`
	ProviderID  ProviderID `json:"provider_id" yaml:"provider_id"`
	ProviderRef string     `json:"provider_ref" yaml:"provider_ref"`
	Failure     string     `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// StopActorAck acknowledges a stop actor request.
type StopActorAck struct {
	Failure string `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// StopProviderAck acknowledges a stop provider request.
type StopProviderAck struct {
	Failure string `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// LinkDefinition binds an actor to a provider for one contract.
type LinkDefinition struct {
	ActorID    ActorID           `json:"actor_id" yaml:"actor_id"`
	ProviderID ProviderID        `json:"provider_id" yaml:"provider_id"`
	ContractID string            `json:"contract_id" yaml:"contract_id"`
	LinkName   string            `json:"link_name" yaml:"link_name"`
	Values     map[string]string `json:"values,omitempty" yaml:"values,omitempty"`
}

// InvocationResponse is the reply of an actor to a call.
type InvocationResponse struct {
	InvocationID string `json:"invocation_id" yaml:"invocation_id"`
	Msg          []byte `json:"msg,omitempty" yaml:"msg,omitempty"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`
}

// MemberInfo is what an embedded member announces when it joins the lattice.
type MemberInfo struct {
	HostID    HostID            `json:"host_id"`
	Namespace string            `json:"namespace"`
	Labels    map[string]string `json:"labels,omitempty"`
	Version   string            `json:"version,omitempty"`
}

package schema

import (
	"testing"
	"time"
)

func TestNormalizeEndpointDefaults(t *testing.T) {
	got, err := NormalizeEndpoint(Endpoint{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.Address() != "0.0.0.0:4222" {
		t.Fatalf("unexpected address %q", got.Address())
	}
	if got.Namespace != DefaultNamespace || got.Timeout != time.Second {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestNormalizeEndpointRejectsBadPort(t *testing.T) {
	if _, err := NormalizeEndpoint(Endpoint{Port: 70000}); err == nil {
		t.Fatalf("expected port error")
	}
}

func TestEndpointMergeKeepsOverrides(t *testing.T) {
	base := Endpoint{Host: "nats", Port: 4222, Namespace: "default", Timeout: time.Second}
	got := Endpoint{Port: 5000, Namespace: "dev"}.Merge(base)
	if got.Host != "nats" || got.Port != 5000 || got.Namespace != "dev" || got.Timeout != time.Second {
		t.Fatalf("unexpected merge: %+v", got)
	}
}

func TestCheckAck(t *testing.T) {
	if err := CheckAck("stop actor", ""); err != nil {
		t.Fatalf("expected nil for empty failure, got %v", err)
	}
	err := CheckAck("stop actor", "actor not running")
	if err == nil || err.Error() != "stop actor failed: actor not running" {
		t.Fatalf("unexpected ack error: %v", err)
	}
}

package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLinkValue indicates a link value that is not key=value.
	ErrInvalidLinkValue = errors.New("link values must be key=value")
	// ErrInvalidPayload indicates call data that is not valid JSON.
	ErrInvalidPayload = errors.New("call data must be valid JSON")
	// ErrNotLatticeCommand indicates a console-only command given to a one-shot runner.
	ErrNotLatticeCommand = errors.New("not a lattice command")
)

// AckError reports a request the lattice accepted but could not carry out.
type AckError struct {
	Op      string
	Failure string
}

func (e *AckError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Failure)
}

// CheckAck returns an AckError when failure is set.
func CheckAck(op, failure string) error {
	if failure == "" {
		return nil
	}
	return &AckError{Op: op, Failure: failure}
}

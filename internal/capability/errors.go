package capability

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCapability is returned by Resolve for unregistered names.
var ErrUnknownCapability = errors.New("unknown capability")

// ErrAcquisitionFailed marks an aborted acquisition flow. The orchestrator
// routes it to escalation.
var ErrAcquisitionFailed = errors.New("capability acquisition failed")

// ValidationError indicates that arguments failed JSON schema validation.
type ValidationError struct {
	Capability string
	Errors     []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("capability %s validation failed: %s", e.Capability, strings.Join(e.Errors, "; "))
}

// AcquisitionError wraps the failing step of an acquisition flow.
type AcquisitionError struct {
	Capability string
	Step       string // "discover" | "synthesize" | "persist" | "register"
	Err        error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition of %s failed at %s: %v", e.Capability, e.Step, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrAcquisitionFailed) match any acquisition error.
func (e *AcquisitionError) Is(target error) bool { return target == ErrAcquisitionFailed }

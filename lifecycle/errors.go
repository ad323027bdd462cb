package lifecycle

import (
	"errors"
	"fmt"
)

// Sentinel errors of the lifecycle state machine. The caller of an operation
// receives exactly one of these (possibly wrapped with detail) or a
// *CallError; finer diagnostics are logged, not returned.
var (
	// ErrInvalidArgument marks a malformed or inconsistent descriptor, or
	// a preload image that fits no memory region.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAlreadyEnabled is returned by Enable when the hypervisor runs.
	ErrAlreadyEnabled = errors.New("hypervisor already enabled")
	// ErrNotEnabled is returned by operations requiring a running
	// hypervisor, including Disable itself.
	ErrNotEnabled = errors.New("hypervisor not enabled")
	// ErrAlreadyExists marks a cell-name conflict.
	ErrAlreadyExists = errors.New("cell already exists")
	// ErrNotFound marks a destroy request for an unknown cell.
	ErrNotFound = errors.New("cell not found")
	// ErrImageUnavailable means the hypervisor image could not be fetched.
	ErrImageUnavailable = errors.New("hypervisor image unavailable")
	// ErrInvalidImage means the fetched image failed the signature check.
	ErrInvalidImage = errors.New("invalid hypervisor image")
	// ErrInsufficientMemory means the supplied region cannot hold the
	// computed layout. Distinct from host allocation failure.
	ErrInsufficientMemory = errors.New("hypervisor memory region too small")
	// ErrInterrupted means the global lock wait was cancelled before any
	// state changed.
	ErrInterrupted = errors.New("interrupted")
	// ErrCoreUnavailable means a required core could not be taken offline
	// or brought back online.
	ErrCoreUnavailable = errors.New("core unavailable")
)

// CallError carries the opaque code of a failed privileged call. The
// activation protocol guarantees a uniform code across all participating
// cores, so the code is propagated verbatim and never reinterpreted.
type CallError struct {
	Code int32
}

func (e *CallError) Error() string {
	return fmt.Sprintf("privileged call failed: code %d", e.Code)
}

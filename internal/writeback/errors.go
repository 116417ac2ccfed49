package writeback

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// MismatchError reports that the extracted metadata did not contain the
// probe value under the expected key.
type MismatchError struct {
	Key  string
	Want string
	Got  []string
	// Membership is set for relation checks, where Want only has to be
	// one of Got rather than the first value.
	Membership bool
}

func (e *MismatchError) Error() string {
	switch {
	case len(e.Got) == 0:
		return fmt.Sprintf("key %q absent or empty in extracted metadata, want %q", e.Key, e.Want)
	case e.Membership:
		return fmt.Sprintf("key %q: %q not among [%s]", e.Key, e.Want, strings.Join(e.Got, ", "))
	default:
		return fmt.Sprintf("key %q: got %q, want %q", e.Key, e.Got[0], e.Want)
	}
}

func (e *MismatchError) Unwrap() error { return types.ErrAssertionMismatch }

// FaultError wraps a collaborator failure during a protocol step.
type FaultError struct {
	Op  string // "update" or "extract"
	Err error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the transport sentinel and the underlying cause,
// so errors.Is works for ErrTransportFault and ErrCollaboratorDown alike.
func (e *FaultError) Unwrap() []error {
	return []error{types.ErrTransportFault, e.Err}
}

// CleanupError reports a failed clean. Strict cleans unwrap to
// ErrUnexpectedCleanupFailure, best-effort ones to ErrCleanupFailed.
type CleanupError struct {
	Property string
	URI      string
	Strict   bool
	Err      error
}

func (e *CleanupError) Error() string {
	kind := "best-effort"
	if e.Strict {
		kind = "strict"
	}
	return fmt.Sprintf("%s cleanup of %s on %s: %v", kind, e.Property, e.URI, e.Err)
}

func (e *CleanupError) Unwrap() []error {
	sentinel := types.ErrCleanupFailed
	if e.Strict {
		sentinel = types.ErrUnexpectedCleanupFailure
	}
	return []error{sentinel, e.Err}
}

func fault(op string, err error) error {
	var fe *FaultError
	if errors.As(err, &fe) {
		return err
	}
	return &FaultError{Op: op, Err: err}
}

package types

import "errors"

// Verification errors. Callers compare with errors.Is; the writeback
// package wraps them in typed errors that carry scenario detail.
var (
	// ErrAssertionMismatch means the extracted value differs from the
	// probe value, or the expected key is absent or empty.
	ErrAssertionMismatch = errors.New("assertion mismatch")

	// ErrTransportFault means a collaborator could not be reached or
	// failed while serving the request.
	ErrTransportFault = errors.New("transport fault")

	// ErrCollaboratorDown marks a transport fault caused by the
	// collaborator process not accepting connections at all.
	ErrCollaboratorDown = errors.New("collaborator down")

	// ErrQueryRejected means the store refused an update request.
	ErrQueryRejected = errors.New("query rejected")

	// ErrCleanupFailed is a best-effort pre-condition clean that failed.
	ErrCleanupFailed = errors.New("cleanup failed")

	// ErrUnexpectedCleanupFailure is a strict post-condition clean that
	// failed after the assertion already ran.
	ErrUnexpectedCleanupFailure = errors.New("unexpected cleanup failure")
)

// Lookup errors.
var (
	ErrFileNotFound     = errors.New("file not found")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrInvalidURI       = errors.New("invalid file uri")
	ErrInvalidMetadata  = errors.New("invalid metadata document")
	ErrUnknownScenario  = errors.New("unknown scenario")
	ErrUnboundVariable  = errors.New("unbound variable in insert template")
	ErrBackendDetached  = errors.New("backend is detached")
	ErrBackendAttached  = errors.New("backend is already attached")
)

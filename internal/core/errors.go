package core

import "errors"

// Failure taxonomy shared across the orchestrator. Callers branch on these
// with errors.Is; collaborator adapters wrap transport detail around them.
var (
	// ErrAuthFailure: token or login rejected. Fatal to that session and
	// surfaced to the caller; never retried automatically.
	ErrAuthFailure = errors.New("authentication failure")

	// ErrDeviceUnavailable: camera or microphone could not be acquired. The
	// role transition that needed it is aborted and rolled back.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrRequestTimeout: a production-tool request went unanswered. Rejects
	// that call only; the connection stays open.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrConnectionLost: the control socket or a media session dropped.
	// Dependent pollers and state are cleaned up; reconnecting is the
	// caller's decision.
	ErrConnectionLost = errors.New("connection lost")

	// ErrBanned: server-signaled eviction. Always terminal.
	ErrBanned = errors.New("banned from channel")

	// ErrRemoteOp: a collaborator call failed for a non-idempotent reason.
	ErrRemoteOp = errors.New("remote operation failed")

	// ErrNotAuthorized: the current role does not permit the operation.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrBusy: a conflicting transition is already in flight.
	ErrBusy = errors.New("operation already in flight")
)

package runner

import "errors"

// Sentinel errors returned by Run. Callers map them to exit codes with
// errors.Is; every one except ErrDeclined is a failed run.
var (
	// ErrValidation: malformed date or UUID, or an inverted window.
	ErrValidation = errors.New("invalid arguments")
	// ErrQuery: the event index, feed list or blocklist could not be read.
	ErrQuery = errors.New("query failed")
	// ErrLocked: another purge holds the single-instance lock.
	ErrLocked = errors.New("another purge is running")
	// ErrDeclined: the operator did not confirm. Not a failure.
	ErrDeclined = errors.New("purge declined")
	// ErrInterrupted: the run context was cancelled mid-run.
	ErrInterrupted = errors.New("purge interrupted")
)

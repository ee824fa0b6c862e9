// Package client provides the interface the purge pipeline uses to talk to a
// MISP instance and an HTTP/JSON implementation of it.
package client

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/misp-purge/internal/model"
)

// MISPClient is the set of MISP API calls a purge run needs. It is
// implemented by HTTPClient.
type MISPClient interface {
	// Selection
	SearchEvents(ctx context.Context, q model.EventQuery) ([]model.EventRef, error)
	ListFeeds(ctx context.Context) ([]model.Feed, error)
	ListBlocklist(ctx context.Context) ([]model.BlocklistEntry, error)

	// Deletion
	DeleteBlocklistEntry(ctx context.Context, eventUUID string) DeleteResult
	DeleteEvents(ctx context.Context, ids []model.ID) DeleteResult

	// Lifecycle
	Close() error
}

// Outcome classifies a delete call.
type Outcome int

const (
	// OutcomeOK means the platform accepted the request.
	OutcomeOK Outcome = iota
	// OutcomeRejected means the request reached the platform and got an
	// error status or an explicit success=false back.
	OutcomeRejected
	// OutcomeTransport means the request never produced a response
	// (connection refused, timeout, cancelled context, ...).
	OutcomeTransport
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTransport:
		return "transport"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// DeleteResult is the typed result of a delete call.
type DeleteResult struct {
	Outcome    Outcome
	StatusCode int
	Message    string
	Err        error
}

// OK reports whether the platform accepted the delete.
func (r DeleteResult) OK() bool { return r.Outcome == OutcomeOK }

// Reached reports whether the request got a response at all.
func (r DeleteResult) Reached() bool { return r.Outcome != OutcomeTransport }

func (r DeleteResult) String() string {
	switch r.Outcome {
	case OutcomeOK:
		return "OK"
	case OutcomeRejected:
		if r.StatusCode != 0 {
			return fmt.Sprintf("rejected (HTTP %d: %s)", r.StatusCode, r.Message)
		}
		return "rejected: " + r.Message
	default:
		return fmt.Sprintf("transport error: %v", r.Err)
	}
}

package selector

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/misp-purge/internal/client"
	"github.com/alfredjeanlab/misp-purge/internal/model"
)

var errIndexDown = errors.New("index unavailable")

// fakeMISP is an in-memory stand-in for the MISP API.
type fakeMISP struct {
	events    []model.EventRef
	feeds     []model.Feed
	blocklist []model.BlocklistEntry

	searchErr error
	feedsErr  error
	listErr   error

	// rejectUUIDs and transportUUIDs make individual deletes fail.
	rejectUUIDs    map[string]bool
	transportUUIDs map[string]bool

	queries []model.EventQuery
	deleted []string
}

func (f *fakeMISP) SearchEvents(_ context.Context, q model.EventQuery) ([]model.EventRef, error) {
	f.queries = append(f.queries, q)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.events, nil
}

func (f *fakeMISP) ListFeeds(context.Context) ([]model.Feed, error) {
	if f.feedsErr != nil {
		return nil, f.feedsErr
	}
	return f.feeds, nil
}

func (f *fakeMISP) ListBlocklist(context.Context) ([]model.BlocklistEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.blocklist, nil
}

func (f *fakeMISP) DeleteBlocklistEntry(_ context.Context, uuid string) client.DeleteResult {
	f.deleted = append(f.deleted, uuid)
	switch {
	case f.transportUUIDs[uuid]:
		return client.DeleteResult{Outcome: client.OutcomeTransport, Err: errors.New("connection reset")}
	case f.rejectUUIDs[uuid]:
		return client.DeleteResult{Outcome: client.OutcomeRejected, StatusCode: 200, Message: "success=false"}
	}
	return client.DeleteResult{Outcome: client.OutcomeOK, StatusCode: 200}
}

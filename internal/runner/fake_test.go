package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alfredjeanlab/misp-purge/internal/client"
	"github.com/alfredjeanlab/misp-purge/internal/model"
)

// fakeMISP is an in-memory MISP that counts every call.
type fakeMISP struct {
	events    []model.EventRef
	feeds     []model.Feed
	blocklist []model.BlocklistEntry

	searchErr error
	feedsErr  error
	listErr   error
	// failDeletes makes every bulk delete a transport failure.
	failDeletes bool
	// onDelete runs after each bulk delete is recorded.
	onDelete func(call int)

	searches, feedLists, blocklistLists int
	bulkDeletes                         [][]model.ID
	blocklistDeletes                    []string
}

func (f *fakeMISP) SearchEvents(context.Context, model.EventQuery) ([]model.EventRef, error) {
	f.searches++
	return f.events, f.searchErr
}

func (f *fakeMISP) ListFeeds(context.Context) ([]model.Feed, error) {
	f.feedLists++
	return f.feeds, f.feedsErr
}

func (f *fakeMISP) ListBlocklist(context.Context) ([]model.BlocklistEntry, error) {
	f.blocklistLists++
	return f.blocklist, f.listErr
}

func (f *fakeMISP) DeleteBlocklistEntry(_ context.Context, uuid string) client.DeleteResult {
	f.blocklistDeletes = append(f.blocklistDeletes, uuid)
	return client.DeleteResult{Outcome: client.OutcomeOK, StatusCode: 200}
}

func (f *fakeMISP) DeleteEvents(_ context.Context, ids []model.ID) client.DeleteResult {
	f.bulkDeletes = append(f.bulkDeletes, ids)
	if f.onDelete != nil {
		f.onDelete(len(f.bulkDeletes))
	}
	if f.failDeletes {
		return client.DeleteResult{Outcome: client.OutcomeTransport, Err: errors.New("timeout"), Message: "timeout"}
	}
	return client.DeleteResult{Outcome: client.OutcomeOK, StatusCode: 200}
}

func (f *fakeMISP) calls() int {
	return f.searches + f.feedLists + f.blocklistLists + len(f.bulkDeletes) + len(f.blocklistDeletes)
}

func (f *fakeMISP) deleteCalls() int {
	return len(f.bulkDeletes) + len(f.blocklistDeletes)
}

type fakeLocker struct {
	err               error
	acquired, release int
}

func (l *fakeLocker) Acquire() error {
	if l.err != nil {
		return l.err
	}
	l.acquired++
	return nil
}

func (l *fakeLocker) Release() error {
	l.release++
	return nil
}

type fakeConfirmer struct {
	answer bool
	err    error
	calls  int
}

func (c *fakeConfirmer) Confirm(context.Context, string) (bool, error) {
	c.calls++
	return c.answer, c.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingStore struct {
	runs []*model.Run
	err  error
}

func (s *recordingStore) SaveRun(_ context.Context, run *model.Run) error {
	s.runs = append(s.runs, run)
	return s.err
}

type recordingArchiver struct {
	runs []*model.Run
}

func (a *recordingArchiver) Archive(_ context.Context, run *model.Run) error {
	a.runs = append(a.runs, run)
	return nil
}

func noSleep(context.Context, time.Duration) error { return nil }

// eventRange returns published events with IDs lo..hi owned by org.
func eventRange(lo, hi int, org string) []model.EventRef {
	var out []model.EventRef
	for i := lo; i <= hi; i++ {
		out = append(out, model.EventRef{ID: model.ID(i), OrgcUUID: org})
	}
	return out
}

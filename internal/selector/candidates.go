package selector

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alfredjeanlab/misp-purge/internal/model"
)

// EventSource is the part of the MISP API the candidate path reads.
type EventSource interface {
	SearchEvents(ctx context.Context, q model.EventQuery) ([]model.EventRef, error)
	ListFeeds(ctx context.Context) ([]model.Feed, error)
}

// Options carries the run flags the selectors care about.
type Options struct {
	Verbose bool
	DryRun  bool
	// Out receives progress lines. Nil discards them.
	Out    io.Writer
	Logger *slog.Logger
}

func (o Options) out() io.Writer {
	if o.Out == nil {
		return io.Discard
	}
	return o.Out
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// Exclusions is the read-only set of events and organizations a run must
// never touch.
type Exclusions struct {
	events map[model.ID]struct{}
	orgs   map[string]struct{}
	// OrgList preserves the configured order for display.
	OrgList []string
}

// NewExclusions builds an exclusion set from feed-pinned event IDs and the
// organization deny list.
func NewExclusions(eventIDs []model.ID, orgs []string) Exclusions {
	ex := Exclusions{
		events:  make(map[model.ID]struct{}, len(eventIDs)),
		orgs:    make(map[string]struct{}, len(orgs)),
		OrgList: append([]string(nil), orgs...),
	}
	for _, id := range eventIDs {
		ex.events[id] = struct{}{}
	}
	for _, o := range orgs {
		ex.orgs[o] = struct{}{}
	}
	return ex
}

// HasEvent reports whether id is pinned.
func (e Exclusions) HasEvent(id model.ID) bool {
	_, ok := e.events[id]
	return ok
}

// HasOrg reports whether orgUUID is on the deny list.
func (e Exclusions) HasOrg(orgUUID string) bool {
	_, ok := e.orgs[orgUUID]
	return ok
}

// FixedExclusions returns the IDs of events pinned to feeds.
func FixedExclusions(ctx context.Context, src EventSource, opts Options) ([]model.ID, error) {
	feeds, err := src.ListFeeds(ctx)
	if err != nil {
		return nil, err
	}
	var ids []model.ID
	for _, f := range feeds {
		if f.Pinned() {
			ids = append(ids, f.EventID)
		}
	}
	if opts.Verbose {
		fmt.Fprintf(opts.out(), " - %d fixed events for exclusion from Feeds\n", len(ids))
	}
	opts.logger().Debug("loaded feed exclusions", "feeds", len(feeds), "pinned", len(ids))
	return ids, nil
}

// Selection is the outcome of candidate filtering.
type Selection struct {
	IDs []model.ID
	// Indexed is the number of events the index returned.
	Indexed int
	// OrgExcluded counts events dropped by the organization deny list.
	OrgExcluded int
	// Pinned counts events dropped because a feed pins them.
	Pinned int
}

// Filter applies the exclusion set and the optional organization filter to
// an index response. Output preserves index order. An empty orgUUID means
// every organization not on the deny list is kept.
func Filter(events []model.EventRef, ex Exclusions, orgUUID string) Selection {
	sel := Selection{Indexed: len(events), IDs: make([]model.ID, 0, len(events))}
	for _, ev := range events {
		if ex.HasOrg(ev.OrgcUUID) {
			sel.OrgExcluded++
			continue
		}
		if ex.HasEvent(ev.ID) {
			sel.Pinned++
			continue
		}
		if orgUUID != "" && ev.OrgcUUID != orgUUID {
			continue
		}
		sel.IDs = append(sel.IDs, ev.ID)
	}
	return sel
}

// CandidateSelector queries the event index and filters the result.
type CandidateSelector struct {
	src  EventSource
	opts Options
}

// NewCandidateSelector creates a selector reading from src.
func NewCandidateSelector(src EventSource, opts Options) *CandidateSelector {
	return &CandidateSelector{src: src, opts: opts}
}

// Select returns the IDs of published events in w that survive ex and the
// optional organization filter. Any index error is returned unchanged to
// the caller, which treats it as fatal.
func (s *CandidateSelector) Select(ctx context.Context, w model.DateWindow, ex Exclusions, orgUUID string) (Selection, error) {
	out := s.opts.out()
	fmt.Fprintf(out, "  - Searching events in MISP between %s\n", w)

	events, err := s.src.SearchEvents(ctx, model.EventQuery{
		Published: true,
		Minimal:   true,
		DateFrom:  w.FirstString(),
		DateUntil: w.LastString(),
	})
	if err != nil {
		return Selection{}, err
	}

	sel := Filter(events, ex, orgUUID)
	s.opts.logger().Debug("filtered event index",
		"indexed", sel.Indexed,
		"selected", len(sel.IDs),
		"org_excluded", sel.OrgExcluded,
		"pinned", sel.Pinned,
	)

	if s.opts.Verbose || s.opts.DryRun {
		fmt.Fprintf(out, "  - %d events excluded based on OrgC UUID's\n", sel.OrgExcluded)
		if s.opts.Verbose {
			fmt.Fprintln(out, "  - Excluded OrgC UUID(s):")
			for _, o := range ex.OrgList {
				fmt.Fprintf(out, "   + OrgC UUID: %s\n", o)
			}
		}
	}
	return sel, nil
}

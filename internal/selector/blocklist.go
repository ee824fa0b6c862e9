package selector

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/misp-purge/internal/client"
	"github.com/alfredjeanlab/misp-purge/internal/model"
	"github.com/alfredjeanlab/misp-purge/internal/ui"
)

// BlocklistSource is the part of the MISP API the blocklist path uses.
type BlocklistSource interface {
	ListBlocklist(ctx context.Context) ([]model.BlocklistEntry, error)
	DeleteBlocklistEntry(ctx context.Context, eventUUID string) client.DeleteResult
}

// MatchBlocklist returns the entries created inside w, in listing order.
// Entries whose timestamp cannot be parsed are counted in skipped.
func MatchBlocklist(entries []model.BlocklistEntry, w model.DateWindow) (matched []model.BlocklistEntry, skipped int) {
	for _, e := range entries {
		ts, err := e.CreatedAt()
		if err != nil {
			skipped++
			continue
		}
		if w.ContainsTimestamp(ts) {
			matched = append(matched, e)
		}
	}
	return matched, skipped
}

// BlocklistResult summarizes a blocklist purge.
type BlocklistResult struct {
	Listed  int
	Matched int
	Skipped int
	Totals  model.Counters
}

// BlocklistSelector deletes blocklist entries created inside a window.
type BlocklistSelector struct {
	src  BlocklistSource
	opts Options
	// OnDelete, when set, is called after each delete call.
	OnDelete func(entry model.BlocklistEntry, res client.DeleteResult)
}

// NewBlocklistSelector creates a blocklist selector backed by src.
func NewBlocklistSelector(src BlocklistSource, opts Options) *BlocklistSelector {
	return &BlocklistSelector{src: src, opts: opts}
}

// Run lists the blocklist and, for every entry in w, either counts it
// (dry-run) or deletes it by UUID. A failed delete is counted and the walk
// continues. A listing error is returned as is and nothing is deleted.
func (b *BlocklistSelector) Run(ctx context.Context, w model.DateWindow) (BlocklistResult, error) {
	out := b.opts.out()
	log := b.opts.logger()
	fmt.Fprintln(out, " - Searching and deleting blocklisted events in MISP based event date (NOTICE: This can take some time)")

	entries, err := b.src.ListBlocklist(ctx)
	if err != nil {
		return BlocklistResult{}, err
	}

	matched, skipped := MatchBlocklist(entries, w)
	res := BlocklistResult{Listed: len(entries), Matched: len(matched), Skipped: skipped}
	if skipped > 0 {
		log.Warn("skipped blocklist entries with unparseable timestamps", "count", skipped)
	}
	if b.opts.Verbose {
		fmt.Fprintln(out, " - Deleting Blocklisted Events:")
	}

	for _, e := range matched {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if b.opts.DryRun {
			if b.opts.Verbose {
				fmt.Fprintf(out, "   + Blocklisted Event UUID: %s\n", e.EventUUID)
			}
			res.Totals.Success++
			continue
		}

		r := b.src.DeleteBlocklistEntry(ctx, e.EventUUID)
		if r.OK() {
			res.Totals.Success++
		} else {
			res.Totals.Failed++
			log.Warn("blocklist delete failed", "event_uuid", e.EventUUID, "outcome", r.Outcome.String(), "detail", r.Message)
		}
		if b.opts.Verbose {
			mark := ui.RenderOK("OK")
			if !r.OK() {
				mark = ui.RenderFail("FAILED")
			}
			fmt.Fprintf(out, "   + Blocklisted Event UUID: %s -> %s\n", e.EventUUID, mark)
		}
		if b.OnDelete != nil {
			b.OnDelete(e, r)
		}
	}
	return res, nil
}

// Package runner sequences one purge invocation: validation, locking,
// confirmation, selection, purge and reporting.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/misp-purge/internal/client"
	"github.com/alfredjeanlab/misp-purge/internal/events"
	"github.com/alfredjeanlab/misp-purge/internal/idgen"
	"github.com/alfredjeanlab/misp-purge/internal/model"
	"github.com/alfredjeanlab/misp-purge/internal/purge"
	"github.com/alfredjeanlab/misp-purge/internal/selector"
)

const separator = "------------------------------------------"

// sinkTimeout bounds the reporting side effects after a run. They run on a
// context detached from the run so an interrupted run is still recorded.
const sinkTimeout = 30 * time.Second

// MISP is the subset of the MISP API a run needs.
type MISP interface {
	selector.EventSource
	selector.BlocklistSource
	purge.Deleter
}

var _ MISP = client.MISPClient(nil)

// Locker guards against concurrent runs on the same host.
type Locker interface {
	Acquire() error
	Release() error
}

// Store records finished runs.
type Store interface {
	SaveRun(ctx context.Context, run *model.Run) error
}

// Archiver writes the report of a finished run somewhere durable.
type Archiver interface {
	Archive(ctx context.Context, run *model.Run) error
}

// Options are the per-invocation flags.
type Options struct {
	First   string
	Last    string
	OrgUUID string

	DryRun    bool
	Force     bool
	Verbose   bool
	Blocklist bool

	ChunkSize     int
	Pacing        purge.Pacing
	CountRejected bool
	ExcludeOrgs   []string
}

// Deps are the collaborators of a run. MISP is required. Confirmer is
// required unless the run is a dry run or forced. The rest are optional.
type Deps struct {
	MISP      MISP
	Confirmer Confirmer
	Locker    Locker
	Publisher events.Publisher
	Store     Store
	Archiver  Archiver

	Out    io.Writer
	Logger *slog.Logger
	Sleep  purge.SleepFunc
	Now    func() time.Time
	NewID  func() (string, error)
}

// Runner executes a single purge run. It is not reusable.
type Runner struct {
	deps  Deps
	opts  Options
	state State
}

func New(deps Deps, opts Options) *Runner {
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Publisher == nil {
		deps.Publisher = &events.NoopPublisher{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = idgen.RunID
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 100
	}
	return &Runner{deps: deps, opts: opts}
}

// State returns the current state of the run.
func (r *Runner) State() State { return r.state }

func (r *Runner) transition(s State) {
	r.deps.Logger.Debug("run state", "from", r.state.String(), "to", s.String())
	r.state = s
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.deps.Out, format, args...)
}

// Run performs the purge. The returned run record is nil when the run
// stopped before it started (validation, lock, declined). Otherwise it is
// populated even when an error is returned.
func (r *Runner) Run(ctx context.Context) (*model.Run, error) {
	if r.state != StateIdle {
		return nil, fmt.Errorf("runner already used (state %s)", r.state)
	}

	w, err := validate(r.opts, r.deps.Out)
	if err != nil {
		r.transition(StateAborted)
		return nil, err
	}
	r.announce(w)

	if r.deps.Locker != nil {
		if err := r.deps.Locker.Acquire(); err != nil {
			r.transition(StateAborted)
			r.printf(" - Another instance of the purge is already running, exiting\n")
			return nil, fmt.Errorf("%w: %w", ErrLocked, err)
		}
		defer func() {
			if err := r.deps.Locker.Release(); err != nil {
				r.deps.Logger.Warn("releasing lock", "err", err)
			}
		}()
	}

	if !r.opts.DryRun && !r.opts.Force {
		r.transition(StateAwaitingConfirmation)
		if r.deps.Confirmer == nil {
			r.transition(StateAborted)
			return nil, fmt.Errorf("%w: confirmation required but no prompt available, use --force", ErrValidation)
		}
		ok, err := r.deps.Confirmer.Confirm(ctx, ConfirmPrompt)
		if err != nil {
			r.transition(StateAborted)
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrInterrupted, err)
			}
			return nil, err
		}
		if !ok {
			r.printf(" - Data purge has exited use '--dryrun' for test or '--force' to run automated\n")
			r.transition(StateDone)
			return nil, ErrDeclined
		}
	}

	run, err := r.start(ctx, w)
	if err != nil {
		r.transition(StateAborted)
		return nil, err
	}

	r.transition(StateSelecting)
	if r.opts.Blocklist {
		err = r.runBlocklist(ctx, w, run)
	} else {
		err = r.runEvents(ctx, w, run)
	}

	r.finish(ctx, run, err)
	return run, err
}

// Validate checks the run arguments and prints one line per problem to
// out. Run performs the same checks; calling Validate first lets a caller
// skip opening anything for arguments that can never run.
func Validate(opts Options, out io.Writer) error {
	_, err := validate(opts, out)
	return err
}

// validate checks every argument before anything touches the network.
func validate(opts Options, out io.Writer) (model.DateWindow, error) {
	w, err := model.ParseWindow(opts.First, opts.Last)
	if err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			for _, fe := range ve.Errors {
				fmt.Fprintf(out, " - %s\n", fe.Message)
			}
		}
		return model.DateWindow{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if opts.OrgUUID != "" && !model.ValidUUID(opts.OrgUUID) {
		fmt.Fprintf(out, "ERROR: Invalid UUID(%s) format, exiting\n", opts.OrgUUID)
		return model.DateWindow{}, fmt.Errorf("%w: organization UUID %q", ErrValidation, opts.OrgUUID)
	}
	return w, nil
}

func (r *Runner) announce(w model.DateWindow) {
	if r.opts.DryRun {
		r.printf(" - Running in dryrun mode (NO DATA WILL BE DELETED)\n")
	}
	switch {
	case r.opts.Blocklist:
		r.printf(" - Find Blocklisted events for deletion between: %s\n", w)
	case r.opts.OrgUUID != "":
		r.printf(" - Find events from organization %s for deletion between: %s\n", r.opts.OrgUUID, w)
	default:
		r.printf(" - Find all events for deletion between: %s\n", w)
	}
}

func (r *Runner) start(ctx context.Context, w model.DateWindow) (*model.Run, error) {
	id, err := r.deps.NewID()
	if err != nil {
		return nil, err
	}
	run := &model.Run{
		ID:        id,
		Mode:      model.ModeEvents,
		First:     w.FirstString(),
		Last:      w.LastString(),
		OrgUUID:   r.opts.OrgUUID,
		DryRun:    r.opts.DryRun,
		StartedAt: r.deps.Now().UTC(),
	}
	if r.opts.Blocklist {
		run.Mode = model.ModeBlocklist
	}
	r.deps.Logger.Info("purge run started", "run", run.ID, "mode", run.Mode, "window", w.String(), "dry_run", run.DryRun)
	r.publish(ctx, events.TopicRunStarted, events.RunStarted{
		RunID:   run.ID,
		Mode:    run.Mode,
		First:   run.First,
		Last:    run.Last,
		OrgUUID: run.OrgUUID,
		DryRun:  run.DryRun,
		At:      run.StartedAt,
	})
	return run, nil
}

func (r *Runner) selectorOptions() selector.Options {
	return selector.Options{
		Verbose: r.opts.Verbose,
		DryRun:  r.opts.DryRun,
		Out:     r.deps.Out,
		Logger:  r.deps.Logger,
	}
}

func (r *Runner) runBlocklist(ctx context.Context, w model.DateWindow, run *model.Run) error {
	bs := selector.NewBlocklistSelector(r.deps.MISP, r.selectorOptions())
	bs.OnDelete = func(e model.BlocklistEntry, res client.DeleteResult) {
		r.publish(ctx, events.TopicBlocklistDeleted, events.BlocklistDeleted{
			RunID:     run.ID,
			EventUUID: e.EventUUID,
			OK:        res.OK(),
			Message:   res.Message,
		})
	}

	// Blocklist deletes happen while walking the list, so selecting and
	// purging are one step here.
	if !r.opts.DryRun {
		r.transition(StatePurging)
	}
	res, err := bs.Run(ctx, w)
	run.Candidates = res.Matched
	run.Totals = res.Totals
	if err != nil {
		return r.queryError(ctx, "blocklist", err)
	}

	r.transition(StateReporting)
	r.printf(" - Result: %d blocklisted events deleted, and %d Failed\n", res.Totals.Success, res.Totals.Failed)
	return nil
}

func (r *Runner) runEvents(ctx context.Context, w model.DateWindow, run *model.Run) error {
	sopts := r.selectorOptions()

	pinned, err := selector.FixedExclusions(ctx, r.deps.MISP, sopts)
	if err != nil {
		return r.queryError(ctx, "feeds", err)
	}
	ex := selector.NewExclusions(pinned, r.opts.ExcludeOrgs)

	sel, err := selector.NewCandidateSelector(r.deps.MISP, sopts).Select(ctx, w, ex, r.opts.OrgUUID)
	if err != nil {
		return r.queryError(ctx, "event index", err)
	}
	run.Candidates = len(sel.IDs)

	if r.opts.DryRun {
		r.printf("  - %d events identified and up for deletion\n", len(sel.IDs))
		r.transition(StateReporting)
		r.printf("  - Summarized Result: %d events deleted, and %d Failed\n", run.Totals.Success, run.Totals.Failed)
		r.printf("%s\n", separator)
		return nil
	}
	r.printf("  - %d events identified and up for deletion, splitting into chunks of %d\n", len(sel.IDs), r.opts.ChunkSize)

	r.transition(StatePurging)
	ctl, err := purge.NewController(r.deps.MISP, purge.Options{
		ChunkSize:     r.opts.ChunkSize,
		Force:         r.opts.Force,
		Verbose:       r.opts.Verbose,
		Pacing:        r.opts.Pacing,
		CountRejected: r.opts.CountRejected,
		Out:           r.deps.Out,
		Logger:        r.deps.Logger,
		Sleep:         r.deps.Sleep,
		Now:           r.deps.Now,
		OnChunk: func(c model.ChunkResult) {
			r.publish(ctx, events.ChunkTopic(c), events.ChunkDone{RunID: run.ID, Chunk: c})
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	res, err := ctl.Run(ctx, sel.IDs)
	run.Totals = res.Totals
	run.Chunks = res.Chunks

	r.transition(StateReporting)
	r.printf("  - Summarized Result: %d events deleted, and %d Failed\n", res.Totals.Success, res.Totals.Failed)
	r.printf(" %s\n", separator)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	return err
}

func (r *Runner) queryError(ctx context.Context, what string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	r.printf(" - An error occurred in search for events\n")
	return fmt.Errorf("%w: %s: %w", ErrQuery, what, err)
}

// finish settles the outcome, prints the closing line and hands the run to
// the optional sinks. Sink failures are logged only.
func (r *Runner) finish(ctx context.Context, run *model.Run, err error) {
	run.FinishedAt = r.deps.Now().UTC()
	switch {
	case err != nil:
		run.Outcome = model.OutcomeAborted
		run.Error = err.Error()
		r.transition(StateAborted)
		r.deps.Logger.Error("purge run aborted", "run", run.ID, "err", err)
	case run.DryRun:
		run.Outcome = model.OutcomeSimulated
		r.printf(" - Simulated Purge Completed\n")
		r.transition(StateDone)
	default:
		run.Outcome = model.OutcomeCompleted
		r.printf(" - Purge Completed\n")
		r.transition(StateDone)
	}
	r.deps.Logger.Info("purge run finished", "run", run.ID, "outcome", run.Outcome,
		"candidates", run.Candidates, "success", run.Totals.Success, "failed", run.Totals.Failed)

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	r.publish(sctx, events.FinishTopic(run.Outcome), events.RunFinished{
		RunID:      run.ID,
		Mode:       run.Mode,
		Outcome:    run.Outcome,
		Candidates: run.Candidates,
		Totals:     run.Totals,
		Error:      run.Error,
		At:         run.FinishedAt,
	})
	if r.deps.Archiver != nil {
		if err := r.deps.Archiver.Archive(sctx, run); err != nil {
			r.deps.Logger.Warn("archiving run report", "run", run.ID, "err", err)
		}
	}
	if r.deps.Store != nil {
		if err := r.deps.Store.SaveRun(sctx, run); err != nil {
			r.deps.Logger.Warn("recording run", "run", run.ID, "err", err)
		}
	}
}

func (r *Runner) publish(ctx context.Context, topic string, event any) {
	if err := r.deps.Publisher.Publish(ctx, topic, event); err != nil {
		r.deps.Logger.Warn("publishing event", "topic", topic, "err", err)
	}
}

package purge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/misp-purge/internal/client"
	"github.com/alfredjeanlab/misp-purge/internal/model"
)

// ErrPersistentFailure is returned when too many consecutive chunks fail.
var ErrPersistentFailure = errors.New("multiple consecutive failed chunks")

// Deleter issues one bulk delete per call.
type Deleter interface {
	DeleteEvents(ctx context.Context, ids []model.ID) client.DeleteResult
}

// Options configures a Controller.
type Options struct {
	ChunkSize int
	// Force skips every pacing pause.
	Force   bool
	Verbose bool
	Pacing  Pacing
	// CountRejected counts a chunk the platform answered with an error
	// status as failed. By default only transport failures count.
	CountRejected bool

	Out    io.Writer
	Logger *slog.Logger
	Sleep  SleepFunc
	// OnChunk, when set, is called after each chunk is accounted.
	OnChunk func(model.ChunkResult)
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result is what a controller run produced.
type Result struct {
	Totals model.Counters
	Chunks []model.ChunkResult
	// Planned is the number of chunks the candidate list was split into.
	Planned int
	Pauses  int
}

// Controller runs the chunked delete loop.
type Controller struct {
	del  Deleter
	opts Options
}

// NewController validates opts and returns a controller that deletes
// through del.
func NewController(del Deleter, opts Options) (*Controller, error) {
	if opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", opts.ChunkSize)
	}
	opts.Pacing = opts.Pacing.withDefaults()
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{del: del, opts: opts}, nil
}

// Run deletes ids chunk by chunk and returns the accumulated totals. On
// ErrPersistentFailure or context cancellation the partial result is
// returned alongside the error; chunks after the failing one are never
// sent.
func (c *Controller) Run(ctx context.Context, ids []model.ID) (Result, error) {
	chunks := Partition(ids, c.opts.ChunkSize)
	res := Result{Planned: len(chunks)}
	log := c.opts.Logger
	pacing := c.opts.Pacing

	rolling := 0
	failedAttempts := 0
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		cr := c.deleteChunk(ctx, i, chunk)
		res.Totals = res.Totals.Add(cr.Counters)
		res.Chunks = append(res.Chunks, cr)
		if c.opts.Verbose {
			fmt.Fprintf(c.opts.Out, "    - Result: %d event(s) deleted, and %d Failed\n", cr.Counters.Success, cr.Counters.Failed)
		}
		if c.opts.OnChunk != nil {
			c.opts.OnChunk(cr)
		}
		// A request cut short by our own cancellation says nothing about
		// the backend.
		if err := ctx.Err(); err != nil {
			return res, err
		}

		last := i == len(chunks)-1
		rolling++
		if cr.Counters.Failed >= 1 {
			rolling = 0
			failedAttempts++
			if failedAttempts > pacing.MaxFailedAttempts {
				fmt.Fprintln(c.opts.Out, "- Multiple failed concurrent attempts... Exiting")
				log.Error("aborting purge", "consecutive_failures", failedAttempts, "chunk", i)
				return res, fmt.Errorf("%w: %d in a row", ErrPersistentFailure, failedAttempts)
			}
			if !c.opts.Force && !last {
				fmt.Fprintf(c.opts.Out, "    - Sleeping %d seconds - To give database time to recover and cleanup - Failed attempts\n",
					int(pacing.PauseOnFailure.Seconds()))
				if err := c.pause(ctx, &res, pacing.PauseOnFailure); err != nil {
					return res, err
				}
			}
			continue
		}

		failedAttempts = 0
		if rolling == pacing.PauseEvery {
			rolling = 0
			if !c.opts.Force && !last {
				fmt.Fprintf(c.opts.Out, "    - Sleeping %d seconds - To give database time to recover and cleanup - when another chunk of <=%d events will be deleted\n",
					int(pacing.PauseInterval.Seconds()), c.opts.ChunkSize*pacing.PauseEvery)
				if err := c.pause(ctx, &res, pacing.PauseInterval); err != nil {
					return res, err
				}
			}
		}
	}
	return res, nil
}

func (c *Controller) deleteChunk(ctx context.Context, index int, chunk []model.ID) model.ChunkResult {
	cr := model.ChunkResult{Index: index, IDs: chunk}
	r := c.del.DeleteEvents(ctx, chunk)
	cr.At = c.opts.Now().UTC()
	cr.StatusCode = r.StatusCode

	switch {
	case r.OK():
		cr.Counters.Success = len(chunk)
	case r.Reached() && !c.opts.CountRejected:
		cr.Counters.Success = len(chunk)
		cr.Error = r.Message
		c.opts.Logger.Warn("bulk delete answered with an error status, counted as deleted",
			"chunk", index, "status", r.StatusCode, "detail", r.Message)
	default:
		cr.Counters.Failed = len(chunk)
		cr.Error = r.String()
		c.opts.Logger.Warn("bulk delete failed", "chunk", index, "size", len(chunk), "outcome", r.Outcome.String(), "detail", r.Message)
	}
	return cr
}

func (c *Controller) pause(ctx context.Context, res *Result, d time.Duration) error {
	res.Pauses++
	c.opts.Logger.Debug("pacing pause", "duration", d)
	return c.opts.Sleep(ctx, d)
}

// Package report archives a JSONL record of each purge run to one or more
// destinations (local directory, S3 bucket, git repository).
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/misp-purge/internal/model"
)

// Destination is a place a run report can be written to.
type Destination interface {
	// Name identifies the destination in logs.
	Name() string
	// Write stores data under the given object name, e.g. "pr-abc123.jsonl".
	Write(ctx context.Context, name string, data []byte) error
}

// Archiver exports a run once and hands the bytes to every destination.
type Archiver struct {
	destinations []Destination
	logger       *slog.Logger
}

func NewArchiver(logger *slog.Logger, destinations ...Destination) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{destinations: destinations, logger: logger}
}

// Len reports how many destinations are configured.
func (a *Archiver) Len() int { return len(a.destinations) }

// ObjectName is the file or key name a run is archived under.
func ObjectName(run *model.Run) string {
	return run.ID + ".jsonl"
}

// Archive writes run to every destination. A failing destination does not
// stop the others; all failures are joined into the returned error.
func (a *Archiver) Archive(ctx context.Context, run *model.Run) error {
	if len(a.destinations) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := ExportJSONL(run, &buf); err != nil {
		return fmt.Errorf("export run %s: %w", run.ID, err)
	}
	data := buf.Bytes()
	name := ObjectName(run)

	var errs []error
	for _, dest := range a.destinations {
		if err := dest.Write(ctx, name, data); err != nil {
			a.logger.Error("report destination write failed", "destination", dest.Name(), "run", run.ID, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", dest.Name(), err))
			continue
		}
		a.logger.Debug("report archived", "destination", dest.Name(), "run", run.ID, "bytes", len(data))
	}
	return errors.Join(errs...)
}

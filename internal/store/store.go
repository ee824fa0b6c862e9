// Package store persists a ledger of purge runs so operators can review
// what was deleted and when.
package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/misp-purge/internal/model"
)

// ErrNotFound is returned when a run ID is not in the ledger.
var ErrNotFound = errors.New("run not found")

// Store defines the persistence interface for run records.
type Store interface {
	// SaveRun inserts or replaces a run together with its chunks.
	SaveRun(ctx context.Context, run *model.Run) error
	// GetRun returns a run with its chunks.
	GetRun(ctx context.Context, id string) (*model.Run, error)
	// ListRuns returns the most recent runs first, without chunks.
	ListRuns(ctx context.Context, limit int) ([]*model.Run, error)

	Close() error
}

// Noop is a Store that keeps nothing (used when no database is configured).
type Noop struct{}

func (Noop) SaveRun(context.Context, *model.Run) error { return nil }

func (Noop) GetRun(context.Context, string) (*model.Run, error) { return nil, ErrNotFound }

func (Noop) ListRuns(context.Context, int) ([]*model.Run, error) { return nil, nil }

func (Noop) Close() error { return nil }

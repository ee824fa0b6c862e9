package purge

import (
	"context"
	"time"
)

// Pacing controls the pauses between chunks.
type Pacing struct {
	// PauseOnFailure is slept after a chunk with at least one failure.
	PauseOnFailure time.Duration
	// PauseInterval is slept after every PauseEvery successful chunks.
	PauseInterval time.Duration
	PauseEvery    int
	// MaxFailedAttempts is the number of consecutive failed chunks that are
	// tolerated. One more aborts the run.
	MaxFailedAttempts int
}

// DefaultPacing returns the production pacing: 6 minutes after a failure,
// 2 minutes after every 10 successful chunks, abort on the 4th consecutive
// failure.
func DefaultPacing() Pacing {
	return Pacing{
		PauseOnFailure:    360 * time.Second,
		PauseInterval:     120 * time.Second,
		PauseEvery:        10,
		MaxFailedAttempts: 3,
	}
}

func (p Pacing) withDefaults() Pacing {
	d := DefaultPacing()
	if p.PauseOnFailure <= 0 {
		p.PauseOnFailure = d.PauseOnFailure
	}
	if p.PauseInterval <= 0 {
		p.PauseInterval = d.PauseInterval
	}
	if p.PauseEvery <= 0 {
		p.PauseEvery = d.PauseEvery
	}
	if p.MaxFailedAttempts <= 0 {
		p.MaxFailedAttempts = d.MaxFailedAttempts
	}
	return p
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

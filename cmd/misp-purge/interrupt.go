package main

import (
	"context"
	"io"
	"os"

	"github.com/alfredjeanlab/misp-purge/internal/runner"
)

const exitPrompt = "Ctrl-c was pressed. Do you really want to exit? y/n "

// guardInterrupts asks for confirmation on every interrupt and cancels the
// run only when the answer is yes. It returns when ctx is done.
func guardInterrupts(ctx context.Context, cancel context.CancelFunc, sigs <-chan os.Signal, ask func(context.Context) bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigs:
			if ask(ctx) {
				cancel()
				return
			}
		}
	}
}

// askExit asks on out and takes the answer from lines, the same source the
// deletion prompt reads, so the answer always goes to this question. When
// no answer can be read at all (stdin closed or redirected from
// /dev/null), the interrupt exits.
func askExit(lines runner.LineSource, out io.Writer) func(context.Context) bool {
	return func(ctx context.Context) bool {
		line, err := lines.Ask(ctx, out, "\n"+exitPrompt)
		if ctx.Err() != nil {
			return false
		}
		if err != nil {
			return true
		}
		return runner.Affirmative(line)
	}
}

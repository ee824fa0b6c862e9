package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/misp-purge/internal/runner"
	"github.com/alfredjeanlab/misp-purge/internal/ui"
)

func TestGuardInterrupts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal)
	answers := make(chan bool, 2)
	answers <- false
	answers <- true
	asked := 0
	ask := func(context.Context) bool {
		asked++
		return <-answers
	}

	done := make(chan struct{})
	go func() {
		guardInterrupts(ctx, cancel, sigs, ask)
		close(done)
	}()

	// First interrupt is declined: the run keeps going.
	sigs <- os.Interrupt
	sigs <- os.Interrupt // only accepted once the first answer was handled
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("guard did not return after a confirmed interrupt")
	}
	if ctx.Err() == nil {
		t.Fatal("context not cancelled after confirmed interrupt")
	}
	if asked != 2 {
		t.Errorf("asked %d times, want 2", asked)
	}
}

func TestGuardInterrupts_ReturnsWhenRunEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		guardInterrupts(ctx, cancel, make(chan os.Signal), func(context.Context) bool { return true })
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("guard still running after context cancelled")
	}
}

func TestGuardInterrupts_ClosedStdinExits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	go func() {
		guardInterrupts(ctx, cancel, sigs, askExit(ui.NewLineReader(strings.NewReader("")), io.Discard))
		close(done)
	}()
	sigs <- os.Interrupt

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("interrupt ignored with nothing to read on stdin")
	}
	if ctx.Err() == nil {
		t.Fatal("context not cancelled")
	}
}

func TestAskExit(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"\n", false},
		{"", true}, // EOF
	} {
		var out bytes.Buffer
		got := askExit(ui.NewLineReader(strings.NewReader(tc.input)), &out)(context.Background())
		if got != tc.want {
			t.Errorf("askExit(%q) = %v, want %v", tc.input, got, tc.want)
		}
		if !strings.Contains(out.String(), "Do you really want to exit? y/n") {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestAskExit_RunAlreadyOver(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if askExit(ui.NewLineReader(pr), io.Discard)(ctx) {
		t.Error("askExit = true after the run ended, want false")
	}
}

// promptSignal reports each write, so a test knows a prompt is waiting.
type promptSignal chan struct{}

func (p promptSignal) Write(b []byte) (int, error) {
	select {
	case p <- struct{}{}:
	default:
	}
	return len(b), nil
}

func waitPrompt(t *testing.T, p promptSignal, what string) {
	t.Helper()
	select {
	case <-p:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s prompt never shown", what)
	}
}

type confirmResult struct {
	ok  bool
	err error
}

// interruptDuringConfirmation starts the deletion prompt and the interrupt
// guard on one stdin pipe, presses Ctrl-C while the deletion prompt waits,
// and types input once the exit question is on screen.
func interruptDuringConfirmation(t *testing.T, input string) (confirmResult, context.Context) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		w.Close()
		r.Close()
	})
	lines := ui.NewLineReader(r)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	confirmOut, exitOut := make(promptSignal, 4), make(promptSignal, 4)
	results := make(chan confirmResult, 1)
	go func() {
		ok, err := runner.PromptConfirmer{Lines: lines, Out: confirmOut}.Confirm(ctx, runner.ConfirmPrompt)
		results <- confirmResult{ok, err}
	}()
	waitPrompt(t, confirmOut, "deletion")

	sigs := make(chan os.Signal, 1)
	go guardInterrupts(ctx, cancel, sigs, askExit(lines, exitOut))
	sigs <- os.Interrupt
	waitPrompt(t, exitOut, "exit")

	if _, err := io.WriteString(w, input); err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-results:
		return res, ctx
	case <-time.After(2 * time.Second):
		t.Fatal("deletion prompt never returned")
	}
	return confirmResult{}, ctx
}

func TestExitAnswerDuringConfirmationCancels(t *testing.T) {
	res, ctx := interruptDuringConfirmation(t, "y\n")
	if res.ok {
		t.Fatal("answering yes to the exit question confirmed the deletion")
	}
	if !errors.Is(res.err, context.Canceled) {
		t.Errorf("Confirm error = %v, want context.Canceled", res.err)
	}
	if ctx.Err() == nil {
		t.Error("run context not cancelled")
	}
}

func TestExitDeclinedDuringConfirmationResumes(t *testing.T) {
	res, ctx := interruptDuringConfirmation(t, "n\nyes\n")
	if res.err != nil || !res.ok {
		t.Fatalf("Confirm = %v, %v; want true, nil", res.ok, res.err)
	}
	if ctx.Err() != nil {
		t.Error("run context cancelled after declining to exit")
	}
}

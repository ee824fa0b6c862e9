package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ConfirmPrompt is shown before anything is deleted.
const ConfirmPrompt = " - Continue data deletion in MISP (answer: YES to continue)?"

// Confirmer asks the operator whether to go ahead.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// LineSource hands out one line of operator input per question. It is
// shared with any other prompt reading the same terminal.
type LineSource interface {
	Ask(ctx context.Context, w io.Writer, prompt string) (string, error)
}

// PromptConfirmer asks on Out and reads the answer from Lines. "y" and
// "yes" in any case confirm; anything else, including EOF, declines.
type PromptConfirmer struct {
	Lines LineSource
	Out   io.Writer
}

func (p PromptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	line, err := p.Lines.Ask(ctx, p.Out, prompt)
	if ctx.Err() != nil {
		fmt.Fprintln(p.Out)
		return false, ctx.Err()
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	return Affirmative(line), nil
}

// Affirmative reports whether answer is "y" or "yes", ignoring case and
// surrounding whitespace.
func Affirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/alfredjeanlab/misp-purge/internal/ui"
)

func TestAffirmative(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want bool
	}{
		{"y", true},
		{"Y", true},
		{"yes", true},
		{"YES\n", true},
		{"  Yes  ", true},
		{"no", false},
		{"", false},
		{"yess", false},
		{"ok", false},
	} {
		if got := Affirmative(tc.in); got != tc.want {
			t.Errorf("Affirmative(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPromptConfirmer(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		want  bool
	}{
		{"Yes", "YES\n", true},
		{"ShortYes", "y\n", true},
		{"No", "n\n", false},
		{"EOFWithoutNewline", "yes", true},
		{"Empty", "", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			c := PromptConfirmer{Lines: ui.NewLineReader(strings.NewReader(tc.input)), Out: &out}

			got, err := c.Confirm(context.Background(), ConfirmPrompt)
			if err != nil {
				t.Fatalf("Confirm: %v", err)
			}
			if got != tc.want {
				t.Errorf("Confirm = %v, want %v", got, tc.want)
			}
			if out.String() != ConfirmPrompt {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func TestPromptConfirmer_Canceled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := PromptConfirmer{Lines: ui.NewLineReader(pr), Out: io.Discard}
	ok, err := c.Confirm(ctx, ConfirmPrompt)
	if ok || !errors.Is(err, context.Canceled) {
		t.Fatalf("Confirm = %v, %v; want false, context.Canceled", ok, err)
	}
}

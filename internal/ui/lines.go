package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// LineReader serves operator answers from a single input. One goroutine
// reads the input; each line goes to the prompt that asked most recently,
// so a question raised while another is still waiting gets the next
// answer. Lines typed before anyone asks are queued in order.
type LineReader struct {
	in   io.Reader
	once sync.Once

	mu      sync.Mutex
	waiters []chan lineResult
	backlog []string
	err     error // set once the input is exhausted
}

type lineResult struct {
	line string
	err  error
}

// NewLineReader returns a LineReader over in. Nothing is read until the
// first Ask.
func NewLineReader(in io.Reader) *LineReader {
	return &LineReader{in: in}
}

// Ask writes prompt to w and waits for the next line, returned without its
// line ending. When the input is exhausted it returns the read error
// (io.EOF for a closed stdin).
func (l *LineReader) Ask(ctx context.Context, w io.Writer, prompt string) (string, error) {
	l.once.Do(func() { go l.pump() })

	l.mu.Lock()
	if len(l.backlog) > 0 {
		line := l.backlog[0]
		l.backlog = l.backlog[1:]
		l.mu.Unlock()
		fmt.Fprint(w, prompt)
		return line, nil
	}
	if l.err != nil {
		err := l.err
		l.mu.Unlock()
		fmt.Fprint(w, prompt)
		return "", err
	}
	ch := make(chan lineResult, 1)
	l.waiters = append(l.waiters, ch)
	l.mu.Unlock()

	// Registered before the prompt is shown, so the answer cannot go to an
	// older prompt.
	fmt.Fprint(w, prompt)

	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		l.mu.Lock()
		defer l.mu.Unlock()
		if !l.removeWaiter(ch) {
			// The line was handed over as ctx ended; keep it for the next Ask.
			if r := <-ch; r.err == nil {
				l.backlog = append([]string{r.line}, l.backlog...)
			}
		}
		return "", ctx.Err()
	}
}

func (l *LineReader) pump() {
	br := bufio.NewReader(l.in)
	for {
		line, err := br.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")

		l.mu.Lock()
		if err == nil || line != "" {
			l.deliver(line)
		}
		if err != nil {
			l.err = err
			for _, ch := range l.waiters {
				ch <- lineResult{err: err}
			}
			l.waiters = nil
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()
	}
}

// deliver hands line to the newest waiter, or queues it. Caller holds mu.
func (l *LineReader) deliver(line string) {
	if n := len(l.waiters); n > 0 {
		ch := l.waiters[n-1]
		l.waiters = l.waiters[:n-1]
		ch <- lineResult{line: line}
		return
	}
	l.backlog = append(l.backlog, line)
}

// removeWaiter reports whether ch was still waiting. Caller holds mu.
func (l *LineReader) removeWaiter(ch chan lineResult) bool {
	for i, w := range l.waiters {
		if w == ch {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			return true
		}
	}
	return false
}

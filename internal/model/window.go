package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used on the command line and in
// event index queries.
const DateLayout = "2006-01-02"

// DateWindow is an inclusive range of calendar dates.
type DateWindow struct {
	First time.Time
	Last  time.Time
}

// ParseWindow validates both dates and rejects an inverted window.
func ParseWindow(first, last string) (DateWindow, error) {
	var ve ValidationError
	f, err := time.Parse(DateLayout, first)
	if err != nil {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "first",
			Message: fmt.Sprintf("%q has incorrect date format, it should be YYYY-MM-DD", first),
		})
	}
	l, err := time.Parse(DateLayout, last)
	if err != nil {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "last",
			Message: fmt.Sprintf("%q has incorrect date format, it should be YYYY-MM-DD", last),
		})
	}
	if ve.HasErrors() {
		return DateWindow{}, &ve
	}
	if l.Before(f) {
		return DateWindow{}, &ValidationError{Errors: []FieldError{{
			Field:   "last",
			Message: fmt.Sprintf("first (%s) is after last (%s)", first, last),
		}}}
	}
	return DateWindow{First: f, Last: l}, nil
}

// FirstString returns the lower bound as YYYY-MM-DD.
func (w DateWindow) FirstString() string { return w.First.Format(DateLayout) }

// LastString returns the upper bound as YYYY-MM-DD.
func (w DateWindow) LastString() string { return w.Last.Format(DateLayout) }

// Lower is the earliest blocklist timestamp inside the window. The cutoff is
// 00:00:01, so an entry created exactly at midnight of the first day is
// outside.
func (w DateWindow) Lower() time.Time {
	return w.First.Add(time.Second)
}

// Upper is the latest blocklist timestamp inside the window (23:59:59).
func (w DateWindow) Upper() time.Time {
	return w.Last.Add(24*time.Hour - time.Second)
}

// ContainsTimestamp reports whether ts lies in [Lower, Upper].
func (w DateWindow) ContainsTimestamp(ts time.Time) bool {
	return !ts.Before(w.Lower()) && !ts.After(w.Upper())
}

// String renders the window as "first and last" for progress output.
func (w DateWindow) String() string {
	return w.FirstString() + " and " + w.LastString()
}

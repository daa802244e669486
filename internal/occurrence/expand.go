// Package occurrence computes the virtual calendar occurrences of
// recurring todos and decides how completion toggles must be persisted.
// Everything in this package is pure; persistence effects belong to the
// store and the todos service.
package occurrence

import (
	"errors"
	"fmt"

	"github.com/thuale/todoflow/internal/model"
)

var (
	ErrInvalidWindow = errors.New("occurrence: window end before start")

	// ErrNoOccurrence is returned when no occurrence exists within the
	// forward-scan horizon. With the supported pattern kinds this only
	// happens for corrupted patterns.
	ErrNoOccurrence = errors.New("occurrence: no occurrence within horizon")
)

// nextScanHorizonDays bounds the forward scan of NextOccurrence. Daily and
// weekly patterns match within 7 days and monthly within 62 (clamping
// included), so the horizon is generous.
const nextScanHorizonDays = 400

// Window is an inclusive calendar date range.
type Window struct {
	Start model.Date
	End   model.Date
}

// NewWindow validates the range. A reversed window is a caller bug and is
// rejected so "no occurrences" can never mask it.
func NewWindow(start, end model.Date) (Window, error) {
	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: %s > %s", ErrInvalidWindow, start, end)
	}
	return Window{Start: start, End: end}, nil
}

// Days returns the number of calendar dates the window spans.
func (w Window) Days() int {
	n := 0
	for d := w.Start; !d.After(w.End); d = d.AddDays(1) {
		n++
	}
	return n
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d model.Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Expand produces the ordered occurrence dates of todo within the window.
// A recurring todo is scanned day by day against its pattern; the window
// sizes in play (a day for Today, a few weeks for Upcoming) make the
// brute-force scan the simplest correct approach. A non-recurring todo
// contributes its due date when it falls inside the window, else nothing.
func Expand(todo model.Todo, w Window) ([]model.Date, error) {
	if w.End.Before(w.Start) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidWindow, w.Start, w.End)
	}

	if todo.Recurring == nil {
		due, ok := todo.DueOn()
		if !ok || !w.Contains(due) {
			return nil, nil
		}
		return []model.Date{due}, nil
	}

	var out []model.Date
	for d := w.Start; !d.After(w.End); d = d.AddDays(1) {
		ok, err := todo.Recurring.Matches(d)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// NextOccurrence returns the first date strictly after `after` that the
// pattern matches. It is the date an AdvanceRecurring action moves the
// live due date to.
func NextOccurrence(p model.RecurringPattern, after model.Date) (model.Date, error) {
	for d := after.AddDays(1); ; d = d.AddDays(1) {
		ok, err := p.Matches(d)
		if err != nil {
			return model.Date{}, err
		}
		if ok {
			return d, nil
		}
		if d.After(after.AddDays(nextScanHorizonDays)) {
			return model.Date{}, ErrNoOccurrence
		}
	}
}

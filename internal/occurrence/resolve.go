package occurrence

import (
	"errors"
	"fmt"

	"github.com/thuale/todoflow/internal/model"
)

// Context identifies the kind of view a toggle originated from. Folder
// and inbox views operate on the current live instance of a todo; smart
// views (Today/Upcoming/Overdue) operate on a specific dated occurrence
// and always know which date was toggled.
type Context string

const (
	ContextSmartView  Context = "smart-view"
	ContextFolderView Context = "folder-view"
)

var ErrMissingVirtualDate = errors.New("occurrence: smart-view toggle without a virtual date")

// History indexes completion overrides by (todo, date) for constant-time
// lookup during resolution.
type History map[historyKey]bool

type historyKey struct {
	todoID string
	date   model.Date
}

// NewHistory builds a History from stored completion records. Later
// records for the same (todo, date) win, matching the store's
// last-write-wins upsert.
func NewHistory(records []model.CompletionRecord) History {
	h := make(History, len(records))
	for _, rec := range records {
		h[historyKey{todoID: rec.TodoID, date: rec.Date}] = rec.Completed
	}
	return h
}

// Lookup returns the override for the given occurrence, if one exists.
func (h History) Lookup(todoID string, date model.Date) (completed, ok bool) {
	completed, ok = h[historyKey{todoID: todoID, date: date}]
	return completed, ok
}

// IsCompleted resolves the completion state of the todo's occurrence on
// date. An explicit override always wins. Without one, the occurrence
// matching the live instance (the due date's calendar date, or today for
// a recurring todo with no due date) reflects the base status; any other
// occurrence is presumed not yet completed.
func IsCompleted(todo model.Todo, date model.Date, history History, today model.Date) bool {
	if completed, ok := history.Lookup(todo.ID, date); ok {
		return completed
	}
	liveDate, hasDue := todo.DueOn()
	if !hasDue {
		liveDate = today
	}
	if date == liveDate {
		return todo.Completed()
	}
	return false
}

// Action is the closed set of persistence effects a toggle can require.
// The core only decides; the todos service performs the effect.
type Action interface {
	isAction()
}

// AdvanceRecurring completes the current live occurrence of a recurring
// todo and moves its due date to the next matching date. It is only ever
// produced for a completion, never an uncompletion: advancing replaces
// the identity of "the current occurrence", so there is nothing coherent
// to roll back.
type AdvanceRecurring struct {
	TodoID string
}

// SetPastCompletion upserts a per-date completion override for one exact
// occurrence date without touching the base todo.
type SetPastCompletion struct {
	TodoID    string
	Date      model.Date
	Completed bool
}

// SimpleToggle is a plain flip of a todo's completion status.
type SimpleToggle struct {
	TodoID    string
	Completed bool
}

func (AdvanceRecurring) isAction()  {}
func (SetPastCompletion) isAction() {}
func (SimpleToggle) isAction()      {}

// DecideToggle picks the persistence action for toggling an occurrence.
// virtualDate is the specific occurrence date when the caller knows it
// (smart views always do); folder views toggle the live instance and pass
// nil. completed is the target state of the toggle.
//
// The asymmetry between the two contexts is deliberate: a folder view
// always addresses "the current live instance" and therefore advances on
// completion, while a smart view must pin down exactly which date was
// toggled and therefore always records a per-date override.
func DecideToggle(viewCtx Context, todo model.Todo, virtualDate *model.Date, completed bool) (Action, error) {
	switch viewCtx {
	case ContextSmartView, ContextFolderView:
	default:
		return nil, fmt.Errorf("occurrence: unknown toggle context %q", viewCtx)
	}

	if todo.Recurring == nil {
		return SimpleToggle{TodoID: todo.ID, Completed: completed}, nil
	}

	if virtualDate != nil {
		return SetPastCompletion{TodoID: todo.ID, Date: *virtualDate, Completed: completed}, nil
	}

	if viewCtx == ContextSmartView {
		return nil, ErrMissingVirtualDate
	}

	if completed {
		return AdvanceRecurring{TodoID: todo.ID}, nil
	}
	// Uncompleting a recurring todo in a folder view flips the live flag
	// only; an earlier advance is never rolled back.
	return SimpleToggle{TodoID: todo.ID, Completed: false}, nil
}

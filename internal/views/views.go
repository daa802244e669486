// Package views assembles the renderable entries of the smart views
// (Today/Upcoming/Overdue) and the folder views. Smart views present
// dated occurrences, possibly several per recurring todo; folder views
// present the current live instance only.
package views

import (
	"context"
	"sort"
	"time"

	"github.com/thuale/todoflow/internal/model"
	"github.com/thuale/todoflow/internal/occurrence"
	"github.com/thuale/todoflow/internal/store"
)

// Defaults for the view horizons.
const (
	DefaultUpcomingDays    = 7
	DefaultOverdueLookback = 30
)

// Entry is one renderable row: a todo pinned to an occurrence date with
// its resolved completion state. Date is nil for live (folder) entries
// of todos without a due date.
type Entry struct {
	Todo           model.Todo  `json:"todo"`
	Date           *model.Date `json:"date,omitempty"`
	Virtual        bool        `json:"virtual"`
	Completed      bool        `json:"completed"`
	RecurringLabel string      `json:"recurring_label,omitempty"`
}

// Builder computes view entries from a store. The clock is injectable so
// "today" is deterministic under test.
type Builder struct {
	store store.Store

	// Now returns the current instant; defaults to time.Now.
	Now func() time.Time

	// UpcomingDays is the size of the Upcoming window.
	UpcomingDays int

	// OverdueLookback caps how many days back the Overdue view scans for
	// missed recurring occurrences.
	OverdueLookback int
}

// NewBuilder creates a Builder with default horizons.
func NewBuilder(s store.Store) *Builder {
	return &Builder{
		store:           s,
		Now:             time.Now,
		UpcomingDays:    DefaultUpcomingDays,
		OverdueLookback: DefaultOverdueLookback,
	}
}

// Today returns the occurrences falling on the current calendar date:
// pattern-driven occurrences of recurring todos (their due date, if any,
// does not suppress these) plus non-recurring todos due today.
func (b *Builder) Today(ctx context.Context) ([]Entry, error) {
	today := model.DateOf(b.Now())
	w := occurrence.Window{Start: today, End: today}
	entries, err := b.expandWindow(ctx, w, today)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Todo.SortOrder < entries[j].Todo.SortOrder
	})
	return entries, nil
}

// Upcoming returns the occurrences in the window [tomorrow, today+days],
// ordered by date then sort order. A days value of zero or less falls
// back to the builder's configured horizon.
func (b *Builder) Upcoming(ctx context.Context, days int) ([]Entry, error) {
	if days <= 0 {
		days = b.UpcomingDays
	}
	today := model.DateOf(b.Now())
	w := occurrence.Window{Start: today.AddDays(1), End: today.AddDays(days)}
	entries, err := b.expandWindow(ctx, w, today)
	if err != nil {
		return nil, err
	}
	sortByDate(entries)
	return entries, nil
}

// Overdue returns incomplete occurrences strictly before today. For a
// recurring todo the scan starts at its due date (its creation date when
// no due date is set), capped by the lookback horizon; for a
// non-recurring todo the due date alone decides.
func (b *Builder) Overdue(ctx context.Context) ([]Entry, error) {
	today := model.DateOf(b.Now())
	yesterday := today.AddDays(-1)
	horizon := today.AddDays(-b.OverdueLookback)

	todos, err := b.store.GetTodos(ctx, store.TodoFilter{})
	if err != nil {
		return nil, err
	}
	records, err := b.store.GetCompletions(ctx, horizon, yesterday)
	if err != nil {
		return nil, err
	}
	history := occurrence.NewHistory(records)

	var entries []Entry
	for _, todo := range todos {
		if todo.Recurring == nil {
			due, ok := todo.DueOn()
			if !ok || !due.Before(today) || todo.Completed() {
				continue
			}
			entries = append(entries, newEntry(occurrence.Live{Todo: todo}, false))
			continue
		}

		start := model.DateOf(todo.CreatedAt)
		if due, ok := todo.DueOn(); ok {
			start = due
		}
		if start.Before(horizon) {
			start = horizon
		}
		if start.After(yesterday) {
			continue
		}
		w, err := occurrence.NewWindow(start, yesterday)
		if err != nil {
			return nil, err
		}
		dates, err := occurrence.Expand(todo, w)
		if err != nil {
			return nil, err
		}
		for _, date := range dates {
			if occurrence.IsCompleted(todo, date, history, today) {
				continue
			}
			entries = append(entries, newEntry(occurrence.Virtual{Todo: todo, Date: date}, false))
		}
	}
	sortByDate(entries)
	return entries, nil
}

// Folder returns the live instances of the todos in a folder (or the
// inbox). No virtual dates are involved: the entries address "the
// current occurrence" of each todo.
func (b *Builder) Folder(ctx context.Context, folderID string) ([]Entry, error) {
	todos, err := b.store.GetTodos(ctx, store.TodoFilter{FolderID: &folderID})
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, todo := range todos {
		entries = append(entries, newEntry(occurrence.Live{Todo: todo}, todo.Completed()))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Todo.SortOrder < entries[j].Todo.SortOrder
	})
	return entries, nil
}

// expandWindow computes the dated entries of every todo within w,
// resolving completion against the window's override records.
func (b *Builder) expandWindow(ctx context.Context, w occurrence.Window, today model.Date) ([]Entry, error) {
	todos, err := b.store.GetTodos(ctx, store.TodoFilter{})
	if err != nil {
		return nil, err
	}
	records, err := b.store.GetCompletions(ctx, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	history := occurrence.NewHistory(records)

	var entries []Entry
	for _, todo := range todos {
		dates, err := occurrence.Expand(todo, w)
		if err != nil {
			return nil, err
		}
		for _, date := range dates {
			var occ occurrence.Occurrence
			if todo.Recurring != nil {
				occ = occurrence.Virtual{Todo: todo, Date: date}
			} else {
				occ = occurrence.Live{Todo: todo}
			}
			entries = append(entries, newEntry(occ, occurrence.IsCompleted(todo, date, history, today)))
		}
	}
	return entries, nil
}

// newEntry converts an occurrence into its renderable row. Virtual
// occurrences carry their computed date; live ones show the stored due
// date, if any.
func newEntry(occ occurrence.Occurrence, completed bool) Entry {
	entry := Entry{
		Todo:      occ.Base(),
		Completed: completed,
	}
	switch o := occ.(type) {
	case occurrence.Virtual:
		d := o.Date
		entry.Date = &d
		entry.Virtual = true
	case occurrence.Live:
		if due, ok := o.Todo.DueOn(); ok {
			d := due
			entry.Date = &d
		}
	}
	if r := entry.Todo.Recurring; r != nil {
		entry.RecurringLabel = r.Label()
	}
	return entry
}

func sortByDate(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := entries[i].Date, entries[j].Date
		if di != nil && dj != nil && *di != *dj {
			return di.Before(*dj)
		}
		return entries[i].Todo.SortOrder < entries[j].Todo.SortOrder
	})
}

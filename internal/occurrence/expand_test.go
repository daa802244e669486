package occurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/thuale/todoflow/internal/model"
)

func date(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func window(start, end string) Window {
	return Window{Start: date(start), End: date(end)}
}

func dueTodo(id, due string) model.Todo {
	t := date(due).Time(time.UTC)
	return model.Todo{ID: id, Title: id, Status: model.TodoStatusOpen, DueDate: &t}
}

func recurringTodo(id string, p model.RecurringPattern) model.Todo {
	return model.Todo{ID: id, Title: id, Status: model.TodoStatusOpen, Recurring: &p}
}

func TestNewWindowRejectsReversedRange(t *testing.T) {
	if _, err := NewWindow(date("2026-08-10"), date("2026-08-09")); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("NewWindow = %v, want ErrInvalidWindow", err)
	}
	w, err := NewWindow(date("2026-08-10"), date("2026-08-10"))
	if err != nil {
		t.Fatalf("single-day window rejected: %v", err)
	}
	if got := w.Days(); got != 1 {
		t.Errorf("Days() = %d, want 1", got)
	}
}

func TestExpandRejectsReversedRange(t *testing.T) {
	todo := recurringTodo("t1", model.RecurringPattern{Kind: model.PatternDaily})
	if _, err := Expand(todo, window("2026-08-10", "2026-08-01")); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("Expand = %v, want ErrInvalidWindow", err)
	}
}

func TestExpandDailyFillsWindow(t *testing.T) {
	todo := recurringTodo("t1", model.RecurringPattern{Kind: model.PatternDaily})
	got, err := Expand(todo, window("2026-08-01", "2026-08-07"))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("got %d occurrences, want 7", len(got))
	}
	for i, d := range got {
		want := date("2026-08-01").AddDays(i)
		if d != want {
			t.Errorf("occurrence %d = %s, want %s", i, d, want)
		}
	}
}

func TestExpandWeeklySubset(t *testing.T) {
	todo := recurringTodo("t1", model.RecurringPattern{
		Kind:       model.PatternWeekly,
		DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
	})

	// 2026-08-24 is a Monday.
	got, err := Expand(todo, window("2026-08-24", "2026-08-30"))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	want := []model.Date{date("2026-08-24"), date("2026-08-26"), date("2026-08-28")}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("occurrence %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestExpandIsDeterministic(t *testing.T) {
	todo := recurringTodo("t1", model.RecurringPattern{
		Kind:       model.PatternWeekly,
		DaysOfWeek: []time.Weekday{time.Tuesday},
	})
	w := window("2026-08-01", "2026-08-31")

	first, err := Expand(todo, w)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	second, err := Expand(todo, w)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("repeated expansion changed length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("occurrence %d differs: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestExpandNonRecurring(t *testing.T) {
	todo := dueTodo("t1", "2026-08-15")

	got, err := Expand(todo, window("2026-08-10", "2026-08-20"))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 1 || got[0] != date("2026-08-15") {
		t.Fatalf("got %v, want [2026-08-15]", got)
	}

	got, err = Expand(todo, window("2026-08-16", "2026-08-20"))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("out-of-window due date produced %v", got)
	}
}

func TestExpandNonRecurringNoDueDate(t *testing.T) {
	todo := model.Todo{ID: "t1", Title: "t1", Status: model.TodoStatusOpen}
	got, err := Expand(todo, window("2026-08-01", "2026-08-31"))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("dateless todo produced %v", got)
	}
}

func TestExpandPropagatesPatternErrors(t *testing.T) {
	todo := recurringTodo("t1", model.RecurringPattern{Kind: "fortnightly"})
	if _, err := Expand(todo, window("2026-08-01", "2026-08-07")); !errors.Is(err, model.ErrInvalidPatternKind) {
		t.Fatalf("Expand = %v, want ErrInvalidPatternKind", err)
	}
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name    string
		pattern model.RecurringPattern
		after   string
		want    string
	}{
		{"daily", model.RecurringPattern{Kind: model.PatternDaily}, "2026-08-26", "2026-08-27"},
		{"weekly skips to next day in set", model.RecurringPattern{
			Kind:       model.PatternWeekly,
			DaysOfWeek: []time.Weekday{time.Monday},
		}, "2026-08-24", "2026-08-31"},
		{"monthly", model.RecurringPattern{Kind: model.PatternMonthly, DayOfMonth: 15}, "2026-08-15", "2026-09-15"},
		{"monthly clamps into february", model.RecurringPattern{Kind: model.PatternMonthly, DayOfMonth: 31}, "2026-01-31", "2026-02-28"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.pattern, date(tt.after))
			if err != nil {
				t.Fatalf("NextOccurrence: %v", err)
			}
			if got != date(tt.want) {
				t.Errorf("NextOccurrence = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextOccurrenceIsStrictlyAfter(t *testing.T) {
	p := model.RecurringPattern{Kind: model.PatternDaily}
	after := date("2026-08-26")
	got, err := NextOccurrence(p, after)
	if err != nil {
		t.Fatalf("NextOccurrence: %v", err)
	}
	if !got.After(after) {
		t.Fatalf("NextOccurrence = %s, not after %s", got, after)
	}
}

func TestNextOccurrenceUnknownKind(t *testing.T) {
	if _, err := NextOccurrence(model.RecurringPattern{Kind: "bogus"}, date("2026-08-26")); err == nil {
		t.Fatal("NextOccurrence accepted an unknown kind")
	}
}

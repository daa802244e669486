package views_test

import (
	"context"
	"testing"
	"time"

	"github.com/thuale/todoflow/internal/model"
	"github.com/thuale/todoflow/internal/store"
	"github.com/thuale/todoflow/internal/views"
	"github.com/thuale/todoflow/tests/testutil"
)

// fixedNow pins "today" to Wednesday 2026-08-26 for deterministic views.
var fixedNow = time.Date(2026, time.August, 26, 10, 30, 0, 0, time.UTC)

func newBuilder(t *testing.T) (*views.Builder, *store.SQLiteStore) {
	t.Helper()
	s := testutil.NewTestStore(t)
	b := views.NewBuilder(s)
	b.Now = func() time.Time { return fixedNow }
	return b, s
}

func create(t *testing.T, s store.Store, todo model.Todo) model.Todo {
	t.Helper()
	created, err := s.CreateTodo(context.Background(), todo)
	if err != nil {
		t.Fatalf("CreateTodo(%s): %v", todo.Title, err)
	}
	return created
}

func TestTodayIncludesRecurringAndDueTodos(t *testing.T) {
	b, s := newBuilder(t)
	ctx := context.Background()

	create(t, s, model.Todo{Title: "daily habit", Recurring: &model.RecurringPattern{Kind: model.PatternDaily}})
	dueToday := fixedNow.Truncate(24 * time.Hour)
	create(t, s, model.Todo{Title: "due today", DueDate: &dueToday})
	dueTomorrow := dueToday.AddDate(0, 0, 1)
	create(t, s, model.Todo{Title: "due tomorrow", DueDate: &dueTomorrow})
	create(t, s, model.Todo{Title: "undated", Recurring: nil})

	entries, err := b.Today(ctx)
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2: %+v", len(entries), entries)
	}

	byTitle := map[string]views.Entry{}
	for _, e := range entries {
		byTitle[e.Todo.Title] = e
	}
	if e, ok := byTitle["daily habit"]; !ok || !e.Virtual || e.RecurringLabel != "Daily" {
		t.Errorf("daily habit entry = %+v", e)
	}
	if e, ok := byTitle["due today"]; !ok || e.Virtual {
		t.Errorf("due today entry = %+v", e)
	}
}

func TestTodayReflectsCompletionOverride(t *testing.T) {
	b, s := newBuilder(t)
	ctx := context.Background()

	todo := create(t, s, model.Todo{Title: "daily habit", Recurring: &model.RecurringPattern{Kind: model.PatternDaily}})

	today := model.DateOf(fixedNow)
	if err := s.UpsertCompletion(ctx, model.CompletionRecord{TodoID: todo.ID, Date: today, Completed: true}); err != nil {
		t.Fatalf("UpsertCompletion: %v", err)
	}

	entries, err := b.Today(ctx)
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if !entries[0].Completed {
		t.Error("override should mark today's occurrence complete")
	}
}

func TestUpcomingWindowAndOrdering(t *testing.T) {
	b, s := newBuilder(t)
	ctx := context.Background()

	// Mondays only: within [27 Aug, 2 Sep] that is 31 Aug.
	create(t, s, model.Todo{Title: "mondays", Recurring: &model.RecurringPattern{
		Kind: model.PatternWeekly, DaysOfWeek: []time.Weekday{time.Monday},
	}})
	due := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)
	create(t, s, model.Todo{Title: "deadline", DueDate: &due})

	entries, err := b.Upcoming(ctx, 7)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2: %+v", len(entries), entries)
	}
	if entries[0].Todo.Title != "deadline" || entries[0].Date.String() != "2026-08-28" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Todo.Title != "mondays" || entries[1].Date.String() != "2026-08-31" {
		t.Errorf("second entry = %+v", entries[1])
	}
}

func TestUpcomingExcludesToday(t *testing.T) {
	b, s := newBuilder(t)
	ctx := context.Background()

	create(t, s, model.Todo{Title: "daily", Recurring: &model.RecurringPattern{Kind: model.PatternDaily}})

	entries, err := b.Upcoming(ctx, 3)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	today := model.DateOf(fixedNow)
	for _, e := range entries {
		if !e.Date.After(today) {
			t.Errorf("entry on %s is not after today", e.Date)
		}
	}
}

func TestOverdueRecurringScansMissedDates(t *testing.T) {
	b, s := newBuilder(t)
	ctx := context.Background()

	todo := create(t, s, model.Todo{Title: "daily", Recurring: &model.RecurringPattern{Kind: model.PatternDaily}})

	// A just-created recurring todo has no past to be overdue for.
	entries, err := b.Overdue(ctx)
	if err != nil {
		t.Fatalf("Overdue: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("overdue for a just-created todo = %d, want 0", len(entries))
	}

	// Backdate creation three days and mark one of the missed days done.
	todo.CreatedAt = fixedNow.AddDate(0, 0, -3)
	if err := s.UpsertTodos(ctx, []model.Todo{todo}); err != nil {
		t.Fatalf("UpsertTodos: %v", err)
	}
	doneDate := model.DateOf(fixedNow).AddDays(-2)
	if err := s.UpsertCompletion(ctx, model.CompletionRecord{TodoID: todo.ID, Date: doneDate, Completed: true}); err != nil {
		t.Fatalf("UpsertCompletion: %v", err)
	}

	entries, err = b.Overdue(ctx)
	if err != nil {
		t.Fatalf("Overdue: %v", err)
	}
	// Missed days 23, 24, 25 Aug minus the completed 24th.
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2: %+v", len(entries), entries)
	}
	want := []string{"2026-08-23", "2026-08-25"}
	for i, e := range entries {
		if e.Date.String() != want[i] {
			t.Errorf("entry %d date = %s, want %s", i, e.Date, want[i])
		}
		if !e.Virtual || e.Completed {
			t.Errorf("entry %d = %+v", i, e)
		}
	}
}

func TestOverdueLookbackCapsScan(t *testing.T) {
	b, s := newBuilder(t)
	ctx := context.Background()

	todo := create(t, s, model.Todo{Title: "old daily", Recurring: &model.RecurringPattern{Kind: model.PatternDaily}})
	todo.CreatedAt = fixedNow.AddDate(0, 0, -365)
	if err := s.UpsertTodos(ctx, []model.Todo{todo}); err != nil {
		t.Fatalf("UpsertTodos: %v", err)
	}

	b.OverdueLookback = 5
	entries, err := b.Overdue(ctx)
	if err != nil {
		t.Fatalf("Overdue: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("entries = %d, want 5 (lookback-capped)", len(entries))
	}
}

func TestOverdueRecurringAnchorsAtDueDate(t *testing.T) {
	b, s := newBuilder(t)
	ctx := context.Background()

	due := time.Date(2026, time.August, 25, 0, 0, 0, 0, time.UTC)
	todo := create(t, s, model.Todo{
		Title:     "daily standup",
		DueDate:   &due,
		Recurring: &model.RecurringPattern{Kind: model.PatternDaily},
	})
	todo.CreatedAt = fixedNow.AddDate(0, 0, -10)
	if err := s.UpsertTodos(ctx, []model.Todo{todo}); err != nil {
		t.Fatalf("UpsertTodos: %v", err)
	}

	entries, err := b.Overdue(ctx)
	if err != nil {
		t.Fatalf("Overdue: %v", err)
	}
	// The due date bounds the scan: only the 25th is missed, not the
	// ten days since creation.
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1: %+v", len(entries), entries)
	}
	if entries[0].Date.String() != "2026-08-25" || !entries[0].Virtual {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestOverdueNonRecurring(t *testing.T) {
	b, s := newBuilder(t)
	ctx := context.Background()

	past := time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC)
	open := create(t, s, model.Todo{Title: "missed deadline", DueDate: &past})
	done := create(t, s, model.Todo{Title: "finished late", DueDate: &past})
	if err := s.SetTodoStatus(ctx, done.ID, true); err != nil {
		t.Fatalf("SetTodoStatus: %v", err)
	}
	future := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	create(t, s, model.Todo{Title: "not yet due", DueDate: &future})

	entries, err := b.Overdue(ctx)
	if err != nil {
		t.Fatalf("Overdue: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1: %+v", len(entries), entries)
	}
	if entries[0].Todo.ID != open.ID || entries[0].Completed {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestFolderViewShowsLiveInstances(t *testing.T) {
	b, s := newBuilder(t)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, model.Folder{Name: "Routines"})
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	due := time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC)
	create(t, s, model.Todo{
		Title:    "weekly review",
		FolderID: &folder.ID,
		DueDate:  &due,
		Recurring: &model.RecurringPattern{
			Kind: model.PatternWeekly, DaysOfWeek: []time.Weekday{time.Monday},
		},
	})
	create(t, s, model.Todo{Title: "someday", FolderID: &folder.ID})

	entries, err := b.Folder(ctx, folder.ID)
	if err != nil {
		t.Fatalf("Folder: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	for _, e := range entries {
		if e.Virtual {
			t.Errorf("folder entry %q must not be virtual", e.Todo.Title)
		}
	}

	byTitle := map[string]views.Entry{}
	for _, e := range entries {
		byTitle[e.Todo.Title] = e
	}
	if e := byTitle["weekly review"]; e.Date == nil || e.Date.String() != "2026-08-31" || e.RecurringLabel != "Weekly" {
		t.Errorf("weekly review entry = %+v", e)
	}
	if e := byTitle["someday"]; e.Date != nil {
		t.Errorf("someday entry should have no date: %+v", e)
	}
}

func TestFolderInboxView(t *testing.T) {
	b, s := newBuilder(t)
	ctx := context.Background()

	create(t, s, model.Todo{Title: "unfiled"})

	entries, err := b.Folder(ctx, store.FolderInbox)
	if err != nil {
		t.Fatalf("Folder(inbox): %v", err)
	}
	if len(entries) != 1 || entries[0].Todo.Title != "unfiled" {
		t.Fatalf("entries = %+v", entries)
	}
}

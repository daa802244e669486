package reminder_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/thuale/todoflow/internal/model"
	"github.com/thuale/todoflow/internal/reminder"
	"github.com/thuale/todoflow/internal/store"
	"github.com/thuale/todoflow/tests/testutil"
)

// flakyNotifyStore fails the first CreateNotification calls, then
// delegates to the wrapped store.
type flakyNotifyStore struct {
	store.Store
	mu       sync.Mutex
	failures int
}

func (s *flakyNotifyStore) CreateNotification(ctx context.Context, n model.Notification) error {
	s.mu.Lock()
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()
	if fail {
		return errors.New("notification store unavailable")
	}
	return s.Store.CreateNotification(ctx, n)
}

// stuckFiredStore never manages to mark a reminder fired.
type stuckFiredStore struct {
	store.Store
}

func (s *stuckFiredStore) MarkReminderFired(ctx context.Context, id string) error {
	return errors.New("mark fired unavailable")
}

func TestDispatcherFiresOverdueReminder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	todo, err := s.CreateTodo(ctx, model.Todo{Title: "Renew passport"})
	if err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}
	rem, err := s.CreateReminder(ctx, model.Reminder{
		TodoID:   todo.ID,
		RemindAt: time.Now().UTC().Add(-time.Minute),
		Message:  "Renew passport today",
	})
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	d := reminder.NewDispatcher(s, time.Second)
	d.Start()
	defer d.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for {
		unread, err := s.GetUnreadNotifications(ctx)
		if err != nil {
			t.Fatalf("GetUnreadNotifications: %v", err)
		}
		if len(unread) == 1 {
			if unread[0].TodoID != todo.ID || unread[0].Message != "Renew passport today" {
				t.Fatalf("notification = %+v", unread[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("reminder never produced a notification")
		}
		time.Sleep(20 * time.Millisecond)
	}

	// The reminder is marked fired so later scans skip it.
	deadline = time.Now().Add(3 * time.Second)
	for {
		pending, err := s.GetPendingReminders(ctx, time.Now().UTC().Add(time.Hour))
		if err != nil {
			t.Fatalf("GetPendingReminders: %v", err)
		}
		if len(pending) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("reminder %s still pending", rem.ID)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestDispatcherRetriesAfterNotifyFailure(t *testing.T) {
	base := testutil.NewTestStore(t)
	s := &flakyNotifyStore{Store: base, failures: 1}
	ctx := context.Background()

	todo, err := base.CreateTodo(ctx, model.Todo{Title: "Pay rent"})
	if err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}
	if _, err := base.CreateReminder(ctx, model.Reminder{
		TodoID:   todo.ID,
		RemindAt: time.Now().UTC().Add(-time.Minute),
		Message:  "Rent is due",
	}); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	d := reminder.NewDispatcher(s, 50*time.Millisecond)
	d.Start()
	defer d.Stop()

	// The first delivery fails; a later scan reschedules and succeeds.
	deadline := time.Now().Add(3 * time.Second)
	for {
		unread, err := base.GetUnreadNotifications(ctx)
		if err != nil {
			t.Fatalf("GetUnreadNotifications: %v", err)
		}
		if len(unread) == 1 {
			if unread[0].Message != "Rent is due" {
				t.Fatalf("notification = %+v", unread[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("reminder never retried after the failed notification")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestDispatcherDoesNotNotifyTwiceWhenMarkFiredFails(t *testing.T) {
	base := testutil.NewTestStore(t)
	s := &stuckFiredStore{Store: base}
	ctx := context.Background()

	todo, err := base.CreateTodo(ctx, model.Todo{Title: "Water plants"})
	if err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}
	if _, err := base.CreateReminder(ctx, model.Reminder{
		TodoID:   todo.ID,
		RemindAt: time.Now().UTC().Add(-time.Minute),
		Message:  "Plants are thirsty",
	}); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	d := reminder.NewDispatcher(s, 50*time.Millisecond)
	d.Start()
	defer d.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for {
		unread, err := base.GetUnreadNotifications(ctx)
		if err != nil {
			t.Fatalf("GetUnreadNotifications: %v", err)
		}
		if len(unread) >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("reminder never produced a notification")
		}
		time.Sleep(20 * time.Millisecond)
	}

	// Several scan intervals pass; the still-pending reminder must not
	// notify again.
	time.Sleep(300 * time.Millisecond)
	unread, err := base.GetUnreadNotifications(ctx)
	if err != nil {
		t.Fatalf("GetUnreadNotifications: %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("notifications = %d, want 1: %+v", len(unread), unread)
	}
}

func TestDispatcherLeavesFutureRemindersAlone(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	todo, err := s.CreateTodo(ctx, model.Todo{Title: "Book flights"})
	if err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}
	if _, err := s.CreateReminder(ctx, model.Reminder{
		TodoID:   todo.ID,
		RemindAt: time.Now().UTC().Add(time.Hour),
		Message:  "later",
	}); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	d := reminder.NewDispatcher(s, time.Second)
	d.Start()
	defer d.Stop()

	time.Sleep(300 * time.Millisecond)

	unread, err := s.GetUnreadNotifications(ctx)
	if err != nil {
		t.Fatalf("GetUnreadNotifications: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("future reminder fired early: %+v", unread)
	}
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thuale/todoflow/internal/model"
)

// UpsertCompletion inserts or replaces the per-date completion override
// for a recurring todo occurrence. Last write wins on conflicts.
func (s *SQLiteStore) UpsertCompletion(ctx context.Context, rec model.CompletionRecord) error {
	if rec.TodoID == "" {
		return fmt.Errorf("completion record todo_id must not be empty")
	}
	if rec.Date.IsZero() {
		return fmt.Errorf("completion record date must not be zero")
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO completion_records (todo_id, date, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(todo_id, date) DO UPDATE SET
			completed = excluded.completed,
			updated_at = excluded.updated_at`,
		rec.TodoID, rec.Date.String(), boolToInt(rec.Completed), now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting completion for todo %s on %s: %w", rec.TodoID, rec.Date, err)
	}
	s.events.Publish(Event{Entity: EntityCompletion, ID: rec.TodoID, Op: OpUpdate})
	return nil
}

// GetCompletions retrieves all completion records whose date falls in the
// inclusive range [from, to].
func (s *SQLiteStore) GetCompletions(ctx context.Context, from, to model.Date) ([]model.CompletionRecord, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT todo_id, date, completed, created_at, updated_at
		FROM completion_records
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC`,
		from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying completions: %w", err)
	}
	defer rows.Close()
	return collectCompletions(rows)
}

// GetCompletionsForTodo retrieves all completion records for one todo.
func (s *SQLiteStore) GetCompletionsForTodo(ctx context.Context, todoID string) ([]model.CompletionRecord, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT todo_id, date, completed, created_at, updated_at
		FROM completion_records
		WHERE todo_id = ?
		ORDER BY date ASC`,
		todoID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying completions for todo %s: %w", todoID, err)
	}
	defer rows.Close()
	return collectCompletions(rows)
}

// GetCompletionsUpdatedSince retrieves completion records modified after
// the given instant. Used by the sync poller.
func (s *SQLiteStore) GetCompletionsUpdatedSince(ctx context.Context, since time.Time) ([]model.CompletionRecord, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT todo_id, date, completed, created_at, updated_at
		FROM completion_records
		WHERE updated_at > ?
		ORDER BY updated_at ASC`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying updated completions: %w", err)
	}
	defer rows.Close()
	return collectCompletions(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func collectCompletions(rows rowScanner) ([]model.CompletionRecord, error) {
	var records []model.CompletionRecord
	for rows.Next() {
		var (
			rec          model.CompletionRecord
			dateStr      string
			completedInt int
		)
		err := rows.Scan(&rec.TodoID, &dateStr, &completedInt, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning completion row: %w", err)
		}
		date, err := model.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("scanning completion row: %w", err)
		}
		rec.Date = date
		rec.Completed = completedInt != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CreateReminder inserts a new reminder. Generates a UUID if ID is empty
// and returns the stored row.
func (s *SQLiteStore) CreateReminder(ctx context.Context, r model.Reminder) (model.Reminder, error) {
	if r.TodoID == "" {
		return model.Reminder{}, fmt.Errorf("reminder todo_id must not be empty")
	}
	if r.RemindAt.IsZero() {
		return model.Reminder{}, fmt.Errorf("reminder remind_at must not be zero")
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, todo_id, remind_at, message, fired, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.TodoID, r.RemindAt.UTC(), r.Message, boolToInt(r.Fired), r.CreatedAt,
	)
	if err != nil {
		return model.Reminder{}, fmt.Errorf("creating reminder: %w", err)
	}
	s.events.Publish(Event{Entity: EntityReminder, ID: r.ID, Op: OpCreate})
	return r, nil
}

// DeleteReminder removes a reminder by ID.
func (s *SQLiteStore) DeleteReminder(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM reminders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting reminder %s: %w", id, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("deleting reminder %s: %w", id, err)
	}
	s.events.Publish(Event{Entity: EntityReminder, ID: id, Op: OpDelete})
	return nil
}

// GetRemindersForTodo returns all reminders for a todo ordered by trigger time.
func (s *SQLiteStore) GetRemindersForTodo(ctx context.Context, todoID string) ([]model.Reminder, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM reminders WHERE todo_id = ? ORDER BY remind_at ASC", todoID)
	if err != nil {
		return nil, fmt.Errorf("querying reminders for todo %s: %w", todoID, err)
	}
	defer rows.Close()
	return collectReminders(rows)
}

// GetPendingReminders returns unfired reminders due at or before the
// given instant, ordered by trigger time.
func (s *SQLiteStore) GetPendingReminders(ctx context.Context, before time.Time) ([]model.Reminder, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM reminders WHERE fired = 0 AND remind_at <= ? ORDER BY remind_at ASC",
		before.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying pending reminders: %w", err)
	}
	defer rows.Close()
	return collectReminders(rows)
}

// MarkReminderFired marks a reminder as fired so it never triggers again.
func (s *SQLiteStore) MarkReminderFired(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE reminders SET fired = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking reminder %s fired: %w", id, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("marking reminder %s fired: %w", id, err)
	}
	s.events.Publish(Event{Entity: EntityReminder, ID: id, Op: OpUpdate})
	return nil
}

func collectReminders(rows rowScanner) ([]model.Reminder, error) {
	var reminders []model.Reminder
	for rows.Next() {
		var (
			r        model.Reminder
			firedInt int
		)
		err := rows.Scan(&r.ID, &r.TodoID, &r.RemindAt, &r.Message, &firedInt, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning reminder row: %w", err)
		}
		r.Fired = firedInt != 0
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// CreateNotification inserts a new notification record.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, todo_id, message, read, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.TodoID, n.Message, boolToInt(n.Read), n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	s.events.Publish(Event{Entity: EntityNotification, ID: n.ID, Op: OpCreate})
	return nil
}

// GetUnreadNotifications retrieves all notifications that have not been
// read, ordered by creation time descending.
func (s *SQLiteStore) GetUnreadNotifications(ctx context.Context) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM notifications WHERE read = 0 ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("querying unread notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var (
			n       model.Notification
			readInt int
		)
		if err := rows.Scan(&n.ID, &n.TodoID, &n.Message, &readInt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		n.Read = readInt != 0
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks a single notification as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	s.events.Publish(Event{Entity: EntityNotification, ID: id, Op: OpUpdate})
	return nil
}

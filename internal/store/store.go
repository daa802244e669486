package store

import (
	"context"
	"errors"
	"time"

	"github.com/thuale/todoflow/internal/model"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("store: not found")

// Due-date classes for TodoFilter.Due.
const (
	DueToday    = "today"
	DueUpcoming = "upcoming"
	DueOverdue  = "overdue"
)

// FolderInbox filters todos with no folder assignment.
const FolderInbox = "inbox"

// TodoFilter controls filtering, sorting, and pagination for todo queries.
type TodoFilter struct {
	Status   *string // "open", "complete", or nil (all)
	FolderID *string // folder UUID, "inbox" (NULL folder_id), or nil (all)
	Query    *string // search title + description
	Due      *string // "today", "upcoming" (next 7 days), "overdue", or nil
	SortBy   string  // "sort_order", "due_date", "created_at", "updated_at", "title"
	SortDesc bool
	Limit    int
	Offset   int
}

// Store defines the persistence interface shared by the remote SQLite
// backend and the guest-mode file backend. Mutations publish change
// events on the store's Notifier, and concurrent writes to the same row
// resolve last-write-wins.
type Store interface {
	// === Todos ===

	CreateTodo(ctx context.Context, todo model.Todo) (model.Todo, error)
	UpdateTodo(ctx context.Context, todo model.Todo) error
	DeleteTodo(ctx context.Context, id string) error
	GetTodoByID(ctx context.Context, id string) (*model.Todo, error)
	GetTodos(ctx context.Context, filter TodoFilter) ([]model.Todo, error)
	SetTodoStatus(ctx context.Context, id string, completed bool) error
	// AdvanceTodo moves a recurring todo's due date forward and reopens it.
	AdvanceTodo(ctx context.Context, id string, nextDue time.Time) error
	ReorderTodo(ctx context.Context, id string, newSortOrder int) error
	// UpsertTodos mirrors a batch of todos from another backend (sync).
	UpsertTodos(ctx context.Context, todos []model.Todo) error
	GetTodosUpdatedSince(ctx context.Context, since time.Time) ([]model.Todo, error)

	// === Folders ===

	CreateFolder(ctx context.Context, folder model.Folder) (model.Folder, error)
	UpdateFolder(ctx context.Context, folder model.Folder) error
	DeleteFolder(ctx context.Context, id string) error
	GetFolderByID(ctx context.Context, id string) (*model.Folder, error)
	GetFolders(ctx context.Context, includeArchived bool) ([]model.Folder, error)
	ArchiveFolder(ctx context.Context, id string) error
	RestoreFolder(ctx context.Context, id string) error

	// === Subtasks ===

	AddSubtask(ctx context.Context, item model.Subtask) (model.Subtask, error)
	UpdateSubtask(ctx context.Context, item model.Subtask) error
	DeleteSubtask(ctx context.Context, id string) error
	GetSubtasks(ctx context.Context, todoID string) ([]model.Subtask, error)
	ToggleSubtask(ctx context.Context, id string) error
	ReorderSubtask(ctx context.Context, id string, newSortOrder int) error

	// === Completion records ===

	UpsertCompletion(ctx context.Context, rec model.CompletionRecord) error
	GetCompletions(ctx context.Context, from, to model.Date) ([]model.CompletionRecord, error)
	GetCompletionsForTodo(ctx context.Context, todoID string) ([]model.CompletionRecord, error)
	GetCompletionsUpdatedSince(ctx context.Context, since time.Time) ([]model.CompletionRecord, error)

	// === Reminders ===

	CreateReminder(ctx context.Context, r model.Reminder) (model.Reminder, error)
	DeleteReminder(ctx context.Context, id string) error
	GetRemindersForTodo(ctx context.Context, todoID string) ([]model.Reminder, error)
	GetPendingReminders(ctx context.Context, before time.Time) ([]model.Reminder, error)
	MarkReminderFired(ctx context.Context, id string) error

	// === Notifications ===

	CreateNotification(ctx context.Context, n model.Notification) error
	GetUnreadNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	// Events exposes the store's change-event emitter.
	Events() *Notifier

	Close() error
}

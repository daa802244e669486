package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thuale/todoflow/internal/model"
)

// EntityStore is the entity kind of the coarse "document reloaded" event
// a FileStore publishes after picking up an external write.
const EntityStore = "store"

// document is the on-disk shape of a guest-mode data file.
type document struct {
	Todos         []model.Todo             `json:"todos"`
	Folders       []model.Folder           `json:"folders"`
	Subtasks      []model.Subtask          `json:"subtasks"`
	Completions   []model.CompletionRecord `json:"completions"`
	Reminders     []model.Reminder         `json:"reminders"`
	Notifications []model.Notification     `json:"notifications"`
	SavedAt       time.Time                `json:"saved_at"`
}

// FileStore implements the Store interface on a single JSON document.
// This is the backend for guest (unauthenticated) mode: everything lives
// in one local file, the way a browser guest session lives in
// localStorage. Another process writing the file is picked up by the
// watcher (see filestore_watch.go) and republished as change events, the
// cross-tab notification analogue.
type FileStore struct {
	path   string
	events *Notifier

	mu  sync.Mutex
	doc document

	stopWatch func()
}

// NewFileStore loads (or creates) the JSON document at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		events: NewNotifier(),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) lock()   { s.mu.Lock() }
func (s *FileStore) unlock() { s.mu.Unlock() }

// load reads the document from disk, treating a missing file as empty.
func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.doc = document{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading data file %s: %w", s.path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing data file %s: %w", s.path, err)
	}
	s.doc = doc
	return nil
}

// persist writes the document atomically (tmp file + rename). Callers
// must hold the lock.
func (s *FileStore) persist() error {
	s.doc.SavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding data file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing data file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing data file: %w", err)
	}
	return nil
}

// Events exposes the store's change-event emitter.
func (s *FileStore) Events() *Notifier {
	return s.events
}

// Close stops the watcher (if running) and tears down subscriptions.
func (s *FileStore) Close() error {
	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.events.Close()
	return nil
}

// === Todos ===

// CreateTodo inserts a new todo, generating a UUID if ID is empty.
func (s *FileStore) CreateTodo(ctx context.Context, todo model.Todo) (model.Todo, error) {
	if strings.TrimSpace(todo.Title) == "" {
		return model.Todo{}, fmt.Errorf("todo title must not be empty")
	}
	if todo.Recurring != nil {
		if err := todo.Recurring.Validate(); err != nil {
			return model.Todo{}, err
		}
	}
	if todo.ID == "" {
		todo.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	todo.CreatedAt = now
	todo.UpdatedAt = now
	if todo.Status == "" {
		todo.Status = model.TodoStatusOpen
	}

	s.lock()
	defer s.unlock()

	if todo.SortOrder == 0 {
		maxOrder := 0
		for _, t := range s.doc.Todos {
			if t.SortOrder > maxOrder {
				maxOrder = t.SortOrder
			}
		}
		todo.SortOrder = maxOrder + 1
	}

	s.doc.Todos = append(s.doc.Todos, todo)
	if err := s.persist(); err != nil {
		return model.Todo{}, err
	}
	s.events.Publish(Event{Entity: EntityTodo, ID: todo.ID, Op: OpCreate})
	return todo, nil
}

// UpdateTodo replaces an existing todo by ID.
func (s *FileStore) UpdateTodo(ctx context.Context, todo model.Todo) error {
	if strings.TrimSpace(todo.Title) == "" {
		return fmt.Errorf("todo title must not be empty")
	}
	if todo.Recurring != nil {
		if err := todo.Recurring.Validate(); err != nil {
			return err
		}
	}

	s.lock()
	defer s.unlock()

	i := s.todoIndex(todo.ID)
	if i < 0 {
		return fmt.Errorf("updating todo %s: %w", todo.ID, ErrNotFound)
	}

	now := time.Now().UTC()
	todo.CreatedAt = s.doc.Todos[i].CreatedAt
	todo.UpdatedAt = now
	if todo.Status == model.TodoStatusComplete && todo.CompletedAt == nil {
		todo.CompletedAt = &now
	} else if todo.Status == model.TodoStatusOpen {
		todo.CompletedAt = nil
	}

	s.doc.Todos[i] = todo
	if err := s.persist(); err != nil {
		return err
	}
	s.events.Publish(Event{Entity: EntityTodo, ID: todo.ID, Op: OpUpdate})
	return nil
}

// DeleteTodo removes a todo and its dependent subtasks, completion
// records, and reminders.
func (s *FileStore) DeleteTodo(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	i := s.todoIndex(id)
	if i < 0 {
		return fmt.Errorf("deleting todo %s: %w", id, ErrNotFound)
	}
	s.doc.Todos = append(s.doc.Todos[:i], s.doc.Todos[i+1:]...)

	kept := s.doc.Subtasks[:0]
	for _, item := range s.doc.Subtasks {
		if item.TodoID != id {
			kept = append(kept, item)
		}
	}
	s.doc.Subtasks = kept

	keptRecs := s.doc.Completions[:0]
	for _, rec := range s.doc.Completions {
		if rec.TodoID != id {
			keptRecs = append(keptRecs, rec)
		}
	}
	s.doc.Completions = keptRecs

	keptRems := s.doc.Reminders[:0]
	for _, r := range s.doc.Reminders {
		if r.TodoID != id {
			keptRems = append(keptRems, r)
		}
	}
	s.doc.Reminders = keptRems

	if err := s.persist(); err != nil {
		return err
	}
	s.events.Publish(Event{Entity: EntityTodo, ID: id, Op: OpDelete})
	return nil
}

// GetTodoByID retrieves a single todo by ID.
func (s *FileStore) GetTodoByID(ctx context.Context, id string) (*model.Todo, error) {
	s.lock()
	defer s.unlock()

	i := s.todoIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("getting todo %s: %w", id, ErrNotFound)
	}
	todo := s.doc.Todos[i]
	s.countSubtasks(&todo)
	return &todo, nil
}

// GetTodos retrieves todos matching the filter.
func (s *FileStore) GetTodos(ctx context.Context, filter TodoFilter) ([]model.Todo, error) {
	s.lock()
	defer s.unlock()

	var todos []model.Todo
	for _, t := range s.doc.Todos {
		if !matchesFilter(t, filter) {
			continue
		}
		s.countSubtasks(&t)
		todos = append(todos, t)
	}

	sortTodos(todos, filter.SortBy, filter.SortDesc)

	if filter.Offset > 0 {
		if filter.Offset >= len(todos) {
			return nil, nil
		}
		todos = todos[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(todos) {
		todos = todos[:filter.Limit]
	}
	return todos, nil
}

// SetTodoStatus flips the completion status of the live todo instance.
func (s *FileStore) SetTodoStatus(ctx context.Context, id string, completed bool) error {
	s.lock()
	defer s.unlock()

	i := s.todoIndex(id)
	if i < 0 {
		return fmt.Errorf("setting todo %s status: %w", id, ErrNotFound)
	}
	now := time.Now().UTC()
	if completed {
		s.doc.Todos[i].Status = model.TodoStatusComplete
		s.doc.Todos[i].CompletedAt = &now
	} else {
		s.doc.Todos[i].Status = model.TodoStatusOpen
		s.doc.Todos[i].CompletedAt = nil
	}
	s.doc.Todos[i].UpdatedAt = now

	if err := s.persist(); err != nil {
		return err
	}
	s.events.Publish(Event{Entity: EntityTodo, ID: id, Op: OpUpdate})
	return nil
}

// AdvanceTodo moves a recurring todo's due date forward and reopens it.
func (s *FileStore) AdvanceTodo(ctx context.Context, id string, nextDue time.Time) error {
	s.lock()
	defer s.unlock()

	i := s.todoIndex(id)
	if i < 0 {
		return fmt.Errorf("advancing todo %s: %w", id, ErrNotFound)
	}
	due := nextDue.UTC()
	s.doc.Todos[i].DueDate = &due
	s.doc.Todos[i].Status = model.TodoStatusOpen
	s.doc.Todos[i].CompletedAt = nil
	s.doc.Todos[i].UpdatedAt = time.Now().UTC()

	if err := s.persist(); err != nil {
		return err
	}
	s.events.Publish(Event{Entity: EntityTodo, ID: id, Op: OpUpdate})
	return nil
}

// ReorderTodo updates the sort_order for a specific todo.
func (s *FileStore) ReorderTodo(ctx context.Context, id string, newSortOrder int) error {
	s.lock()
	defer s.unlock()

	i := s.todoIndex(id)
	if i < 0 {
		return fmt.Errorf("reordering todo %s: %w", id, ErrNotFound)
	}
	s.doc.Todos[i].SortOrder = newSortOrder
	s.doc.Todos[i].UpdatedAt = time.Now().UTC()

	if err := s.persist(); err != nil {
		return err
	}
	s.events.Publish(Event{Entity: EntityTodo, ID: id, Op: OpUpdate})
	return nil
}

// UpsertTodos inserts or replaces a batch of todos mirrored during sync.
func (s *FileStore) UpsertTodos(ctx context.Context, todos []model.Todo) error {
	if len(todos) == 0 {
		return nil
	}

	s.lock()
	defer s.unlock()

	for _, t := range todos {
		if i := s.todoIndex(t.ID); i >= 0 {
			s.doc.Todos[i] = t
		} else {
			s.doc.Todos = append(s.doc.Todos, t)
		}
	}
	if err := s.persist(); err != nil {
		return err
	}
	for _, t := range todos {
		s.events.Publish(Event{Entity: EntityTodo, ID: t.ID, Op: OpUpdate})
	}
	return nil
}

// GetTodosUpdatedSince retrieves todos modified after the given instant.
func (s *FileStore) GetTodosUpdatedSince(ctx context.Context, since time.Time) ([]model.Todo, error) {
	s.lock()
	defer s.unlock()

	var todos []model.Todo
	for _, t := range s.doc.Todos {
		if t.UpdatedAt.After(since) {
			todos = append(todos, t)
		}
	}
	sort.Slice(todos, func(i, j int) bool {
		return todos[i].UpdatedAt.Before(todos[j].UpdatedAt)
	})
	return todos, nil
}

// === Folders ===

// CreateFolder inserts a new folder, generating a UUID if ID is empty.
func (s *FileStore) CreateFolder(ctx context.Context, folder model.Folder) (model.Folder, error) {
	if strings.TrimSpace(folder.Name) == "" {
		return model.Folder{}, fmt.Errorf("folder name must not be empty")
	}
	if folder.ID == "" {
		folder.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	folder.CreatedAt = now
	folder.UpdatedAt = now

	s.lock()
	defer s.unlock()

	for _, f := range s.doc.Folders {
		if f.Name == folder.Name {
			return model.Folder{}, fmt.Errorf("folder %q already exists", folder.Name)
		}
	}
	if folder.SortOrder == 0 {
		maxOrder := 0
		for _, f := range s.doc.Folders {
			if f.SortOrder > maxOrder {
				maxOrder = f.SortOrder
			}
		}
		folder.SortOrder = maxOrder + 1
	}

	s.doc.Folders = append(s.doc.Folders, folder)
	if err := s.persist(); err != nil {
		return model.Folder{}, err
	}
	s.events.Publish(Event{Entity: EntityFolder, ID: folder.ID, Op: OpCreate})
	return folder, nil
}

// UpdateFolder replaces an existing folder by ID.
func (s *FileStore) UpdateFolder(ctx context.Context, folder model.Folder) error {
	if strings.TrimSpace(folder.Name) == "" {
		return fmt.Errorf("folder name must not be empty")
	}

	s.lock()
	defer s.unlock()

	i := s.folderIndex(folder.ID)
	if i < 0 {
		return fmt.Errorf("updating folder %s: %w", folder.ID, ErrNotFound)
	}
	folder.CreatedAt = s.doc.Folders[i].CreatedAt
	folder.Archived = s.doc.Folders[i].Archived
	folder.UpdatedAt = time.Now().UTC()
	s.doc.Folders[i] = folder

	if err := s.persist(); err != nil {
		return err
	}
	s.events.Publish(Event{Entity: EntityFolder, ID: folder.ID, Op: OpUpdate})
	return nil
}

// DeleteFolder removes a folder; its todos fall back to the inbox.
func (s *FileStore) DeleteFolder(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	i := s.folderIndex(id)
	if i < 0 {
		return fmt.Errorf("deleting folder %s: %w", id, ErrNotFound)
	}
	s.doc.Folders = append(s.doc.Folders[:i], s.doc.Folders[i+1:]...)
	for j := range s.doc.Todos {
		if s.doc.Todos[j].FolderID != nil && *s.doc.Todos[j].FolderID == id {
			s.doc.Todos[j].FolderID = nil
		}
	}

	if err := s.persist(); err != nil {
		return err
	}
	s.events.Publish(Event{Entity: EntityFolder, ID: id, Op: OpDelete})
	return nil
}

// GetFolderByID retrieves a single folder by ID.
func (s *FileStore) GetFolderByID(ctx context.Context, id string) (*model.Folder, error) {
	s.lock()
	defer s.unlock()

	i := s.folderIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("getting folder %s: %w", id, ErrNotFound)
	}
	folder := s.doc.Folders[i]
	return &folder, nil
}

// GetFolders retrieves folders ordered by sort_order.
func (s *FileStore) GetFolders(ctx context.Context, includeArchived bool) ([]model.Folder, error) {
	s.lock()
	defer s.unlock()

	var folders []model.Folder
	for _, f := range s.doc.Folders {
		if !includeArchived && f.Archived {
			continue
		}
		folders = append(folders, f)
	}
	sort.Slice(folders, func(i, j int) bool {
		return folders[i].SortOrder < folders[j].SortOrder
	})
	return folders, nil
}

// ArchiveFolder marks a folder as archived.
func (s *FileStore) ArchiveFolder(ctx context.Context, id string) error {
	return s.setFolderArchived(id, true)
}

// RestoreFolder clears the archived flag.
func (s *FileStore) RestoreFolder(ctx context.Context, id string) error {
	return s.setFolderArchived(id, false)
}

func (s *FileStore) setFolderArchived(id string, archived bool) error {
	s.lock()
	defer s.unlock()

	i := s.folderIndex(id)
	if i < 0 {
		return fmt.Errorf("archiving folder %s: %w", id, ErrNotFound)
	}
	s.doc.Folders[i].Archived = archived
	s.doc.Folders[i].UpdatedAt = time.Now().UTC()

	if err := s.persist(); err != nil {
		return err
	}
	s.events.Publish(Event{Entity: EntityFolder, ID: id, Op: OpUpdate})
	return nil
}

// === Subtasks ===

// AddSubtask inserts a new subtask for a todo.
func (s *FileStore) AddSubtask(ctx context.Context, item model.Subtask) (model.Subtask, error) {
	if strings.TrimSpace(item.Text) == "" {
		return model.Subtask{}, fmt.Errorf("subtask text must not be empty")
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.CreatedAt = time.Now().UTC()

	s.lock()
	defer s.unlock()

	if s.todoIndex(item.TodoID) < 0 {
		return model.Subtask{}, fmt.Errorf("adding subtask: todo %s: %w", item.TodoID, ErrNotFound)
	}
	if item.SortOrder == 0 {
		maxOrder := 0
		for _, st := range s.doc.Subtasks {
			if st.TodoID == item.TodoID && st.SortOrder > maxOrder {
				maxOrder = st.SortOrder
			}
		}
		item.SortOrder = maxOrder + 1
	}

	s.doc.Subtasks = append(s.doc.Subtasks, item)
	if err := s.persist(); err != nil {
		return model.Subtask{}, err
	}
	s.events.Publish(Event{Entity: EntitySubtask, ID: item.ID, Op: OpCreate})
	return item, nil
}

// UpdateSubtask updates text and done state of a subtask.
func (s *FileStore) UpdateSubtask(ctx context.Context, item model.Subtask) error {
	if strings.TrimSpace(item.Text) == "" {
		return fmt.Errorf("subtask text must not be empty")
	}

	s.lock()
	defer s.unlock()

	i := s.subtaskIndex(item.ID)
	if i < 0 {
		return fmt.Errorf("updating subtask %s: %w", item.ID, ErrNotFound)
	}
	s.doc.Subtasks[i].Text = item.Text
	s.doc.Subtasks[i].Done = item.Done

	if err := s.persist(); err != nil {
		return err
	}
	s.events.Publish(Event{Entity: EntitySubtask, ID: item.ID, Op: OpUpdate})
	return nil
}

// DeleteSubtask removes a subtask by ID.
func (s *FileStore) DeleteSubtask(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	i := s.subtaskIndex(id)
	if i < 0 {
		return fmt.Errorf("deleting subtask %s: %w", id, ErrNotFound)
	}
	s.doc.Subtasks = append(s.doc.Subtasks[:i], s.doc.Subtasks[i+1:]...)

	if err := s.persist(); err != nil {
		return err
	}
	s.events.Publish(Event{Entity: EntitySubtask, ID: id, Op: OpDelete})
	return nil
}

// GetSubtasks returns all subtasks for a todo, ordered by sort_order.
func (s *FileStore) GetSubtasks(ctx context.Context, todoID string) ([]model.Subtask, error) {
	s.lock()
	defer s.unlock()

	var items []model.Subtask
	for _, item := range s.doc.Subtasks {
		if item.TodoID == todoID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].SortOrder < items[j].SortOrder
	})
	return items, nil
}

// ToggleSubtask flips the done state of a subtask.
func (s *FileStore) ToggleSubtask(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	i := s.subtaskIndex(id)
	if i < 0 {
		return fmt.Errorf("toggling subtask %s: %w", id, ErrNotFound)
	}
	s.doc.Subtasks[i].Done = !s.doc.Subtasks[i].Done

	if err := s.persist(); err != nil {
		return err
	}
	s.events.Publish(Event{Entity: EntitySubtask, ID: id, Op: OpUpdate})
	return nil
}

// ReorderSubtask updates the sort_order for a subtask.
func (s *FileStore) ReorderSubtask(ctx context.Context, id string, newSortOrder int) error {
	s.lock()
	defer s.unlock()

	i := s.subtaskIndex(id)
	if i < 0 {
		return fmt.Errorf("reordering subtask %s: %w", id, ErrNotFound)
	}
	s.doc.Subtasks[i].SortOrder = newSortOrder

	if err := s.persist(); err != nil {
		return err
	}
	s.events.Publish(Event{Entity: EntitySubtask, ID: id, Op: OpUpdate})
	return nil
}

// === Completion records ===

// UpsertCompletion inserts or replaces the per-date completion override.
func (s *FileStore) UpsertCompletion(ctx context.Context, rec model.CompletionRecord) error {
	if rec.TodoID == "" {
		return fmt.Errorf("completion record todo_id must not be empty")
	}
	if rec.Date.IsZero() {
		return fmt.Errorf("completion record date must not be zero")
	}

	s.lock()
	defer s.unlock()

	now := time.Now().UTC()
	found := false
	for i := range s.doc.Completions {
		if s.doc.Completions[i].TodoID == rec.TodoID && s.doc.Completions[i].Date == rec.Date {
			s.doc.Completions[i].Completed = rec.Completed
			s.doc.Completions[i].UpdatedAt = now
			found = true
			break
		}
	}
	if !found {
		rec.CreatedAt = now
		rec.UpdatedAt = now
		s.doc.Completions = append(s.doc.Completions, rec)
	}

	if err := s.persist(); err != nil {
		return err
	}
	s.events.Publish(Event{Entity: EntityCompletion, ID: rec.TodoID, Op: OpUpdate})
	return nil
}

// GetCompletions retrieves completion records dated within [from, to].
func (s *FileStore) GetCompletions(ctx context.Context, from, to model.Date) ([]model.CompletionRecord, error) {
	s.lock()
	defer s.unlock()

	var records []model.CompletionRecord
	for _, rec := range s.doc.Completions {
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
	return records, nil
}

// GetCompletionsForTodo retrieves all completion records for one todo.
func (s *FileStore) GetCompletionsForTodo(ctx context.Context, todoID string) ([]model.CompletionRecord, error) {
	s.lock()
	defer s.unlock()

	var records []model.CompletionRecord
	for _, rec := range s.doc.Completions {
		if rec.TodoID == todoID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
	return records, nil
}

// GetCompletionsUpdatedSince retrieves completion records modified after
// the given instant.
func (s *FileStore) GetCompletionsUpdatedSince(ctx context.Context, since time.Time) ([]model.CompletionRecord, error) {
	s.lock()
	defer s.unlock()

	var records []model.CompletionRecord
	for _, rec := range s.doc.Completions {
		if rec.UpdatedAt.After(since) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.Before(records[j].UpdatedAt)
	})
	return records, nil
}

// === Reminders ===

// CreateReminder inserts a new reminder, generating a UUID if ID is empty.
func (s *FileStore) CreateReminder(ctx context.Context, r model.Reminder) (model.Reminder, error) {
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

	s.lock()
	defer s.unlock()

	s.doc.Reminders = append(s.doc.Reminders, r)
	if err := s.persist(); err != nil {
		return model.Reminder{}, err
	}
	s.events.Publish(Event{Entity: EntityReminder, ID: r.ID, Op: OpCreate})
	return r, nil
}

// DeleteReminder removes a reminder by ID.
func (s *FileStore) DeleteReminder(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	for i, r := range s.doc.Reminders {
		if r.ID == id {
			s.doc.Reminders = append(s.doc.Reminders[:i], s.doc.Reminders[i+1:]...)
			if err := s.persist(); err != nil {
				return err
			}
			s.events.Publish(Event{Entity: EntityReminder, ID: id, Op: OpDelete})
			return nil
		}
	}
	return fmt.Errorf("deleting reminder %s: %w", id, ErrNotFound)
}

// GetRemindersForTodo returns all reminders for a todo ordered by trigger time.
func (s *FileStore) GetRemindersForTodo(ctx context.Context, todoID string) ([]model.Reminder, error) {
	s.lock()
	defer s.unlock()

	var reminders []model.Reminder
	for _, r := range s.doc.Reminders {
		if r.TodoID == todoID {
			reminders = append(reminders, r)
		}
	}
	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].RemindAt.Before(reminders[j].RemindAt)
	})
	return reminders, nil
}

// GetPendingReminders returns unfired reminders due at or before the
// given instant.
func (s *FileStore) GetPendingReminders(ctx context.Context, before time.Time) ([]model.Reminder, error) {
	s.lock()
	defer s.unlock()

	var reminders []model.Reminder
	for _, r := range s.doc.Reminders {
		if !r.Fired && !r.RemindAt.After(before) {
			reminders = append(reminders, r)
		}
	}
	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].RemindAt.Before(reminders[j].RemindAt)
	})
	return reminders, nil
}

// MarkReminderFired marks a reminder as fired.
func (s *FileStore) MarkReminderFired(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	for i := range s.doc.Reminders {
		if s.doc.Reminders[i].ID == id {
			s.doc.Reminders[i].Fired = true
			if err := s.persist(); err != nil {
				return err
			}
			s.events.Publish(Event{Entity: EntityReminder, ID: id, Op: OpUpdate})
			return nil
		}
	}
	return fmt.Errorf("marking reminder %s fired: %w", id, ErrNotFound)
}

// === Notifications ===

// CreateNotification inserts a new notification record.
func (s *FileStore) CreateNotification(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	s.lock()
	defer s.unlock()

	s.doc.Notifications = append(s.doc.Notifications, n)
	if err := s.persist(); err != nil {
		return err
	}
	s.events.Publish(Event{Entity: EntityNotification, ID: n.ID, Op: OpCreate})
	return nil
}

// GetUnreadNotifications retrieves unread notifications, newest first.
func (s *FileStore) GetUnreadNotifications(ctx context.Context) ([]model.Notification, error) {
	s.lock()
	defer s.unlock()

	var notifications []model.Notification
	for _, n := range s.doc.Notifications {
		if !n.Read {
			notifications = append(notifications, n)
		}
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

// MarkNotificationRead marks a single notification as read.
func (s *FileStore) MarkNotificationRead(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	for i := range s.doc.Notifications {
		if s.doc.Notifications[i].ID == id {
			s.doc.Notifications[i].Read = true
			if err := s.persist(); err != nil {
				return err
			}
			s.events.Publish(Event{Entity: EntityNotification, ID: id, Op: OpUpdate})
			return nil
		}
	}
	return fmt.Errorf("marking notification %s as read: %w", id, ErrNotFound)
}

// === Helpers ===

func (s *FileStore) todoIndex(id string) int {
	for i, t := range s.doc.Todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *FileStore) folderIndex(id string) int {
	for i, f := range s.doc.Folders {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func (s *FileStore) subtaskIndex(id string) int {
	for i, item := range s.doc.Subtasks {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (s *FileStore) countSubtasks(todo *model.Todo) {
	total, done := 0, 0
	for _, item := range s.doc.Subtasks {
		if item.TodoID == todo.ID {
			total++
			if item.Done {
				done++
			}
		}
	}
	todo.SubtaskCount = total
	todo.SubtaskDoneCount = done
}

// matchesFilter applies a TodoFilter to one todo in memory, mirroring the
// SQL conditions the SQLite backend builds.
func matchesFilter(t model.Todo, filter TodoFilter) bool {
	if filter.Status != nil && t.Status != *filter.Status {
		return false
	}
	if filter.FolderID != nil {
		if *filter.FolderID == FolderInbox {
			if t.FolderID != nil {
				return false
			}
		} else if t.FolderID == nil || *t.FolderID != *filter.FolderID {
			return false
		}
	}
	if filter.Query != nil && *filter.Query != "" {
		q := strings.ToLower(*filter.Query)
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	if filter.Due != nil {
		if t.DueDate == nil {
			return false
		}
		due := model.DateOf(*t.DueDate)
		today := model.DateOf(time.Now())
		switch *filter.Due {
		case DueToday:
			if due != today {
				return false
			}
		case DueUpcoming:
			if due.Before(today) || due.After(today.AddDays(6)) {
				return false
			}
		case DueOverdue:
			if !due.Before(today) || t.Status == model.TodoStatusComplete {
				return false
			}
		}
	}
	return true
}

func sortTodos(todos []model.Todo, sortBy string, desc bool) {
	less := func(a, b model.Todo) bool { return a.SortOrder < b.SortOrder }
	switch sortBy {
	case "due_date":
		less = func(a, b model.Todo) bool {
			if a.DueDate == nil {
				return false
			}
			if b.DueDate == nil {
				return true
			}
			return a.DueDate.Before(*b.DueDate)
		}
	case "created_at":
		less = func(a, b model.Todo) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "updated_at":
		less = func(a, b model.Todo) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case "title":
		less = func(a, b model.Todo) bool { return a.Title < b.Title }
	}
	sort.SliceStable(todos, func(i, j int) bool {
		if desc {
			return less(todos[j], todos[i])
		}
		return less(todos[i], todos[j])
	})
}

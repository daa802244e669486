package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thuale/todoflow/internal/model"
)

// CreateTodo inserts a new todo. Generates a UUID if ID is empty and
// returns the stored row.
func (s *SQLiteStore) CreateTodo(ctx context.Context, todo model.Todo) (model.Todo, error) {
	if strings.TrimSpace(todo.Title) == "" {
		return model.Todo{}, fmt.Errorf("todo title must not be empty")
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

	recurring, err := marshalRecurring(todo.Recurring)
	if err != nil {
		return model.Todo{}, err
	}

	// Default sort_order to max+1.
	if todo.SortOrder == 0 {
		var maxOrder int
		err := s.db.GetContext(ctx, &maxOrder,
			"SELECT COALESCE(MAX(sort_order), 0) FROM todos")
		if err != nil {
			return model.Todo{}, fmt.Errorf("getting max sort_order: %w", err)
		}
		todo.SortOrder = maxOrder + 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO todos (
			id, title, description, status, due_date, recurring,
			sort_order, folder_id, created_at, completed_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		todo.ID, todo.Title, todo.Description, todo.Status,
		todo.DueDate, recurring, todo.SortOrder, todo.FolderID,
		todo.CreatedAt, todo.CompletedAt, todo.UpdatedAt,
	)
	if err != nil {
		return model.Todo{}, fmt.Errorf("creating todo: %w", err)
	}
	s.events.Publish(Event{Entity: EntityTodo, ID: todo.ID, Op: OpCreate})
	return todo, nil
}

// UpdateTodo updates an existing todo by ID. The recurring pattern is
// replaced wholesale; its kind is never mutated in place.
func (s *SQLiteStore) UpdateTodo(ctx context.Context, todo model.Todo) error {
	if strings.TrimSpace(todo.Title) == "" {
		return fmt.Errorf("todo title must not be empty")
	}

	recurring, err := marshalRecurring(todo.Recurring)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	todo.UpdatedAt = now

	// Auto-manage completed_at based on status.
	if todo.Status == model.TodoStatusComplete && todo.CompletedAt == nil {
		todo.CompletedAt = &now
	} else if todo.Status == model.TodoStatusOpen {
		todo.CompletedAt = nil
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE todos SET
			title = ?, description = ?, status = ?, due_date = ?,
			recurring = ?, sort_order = ?, folder_id = ?,
			completed_at = ?, updated_at = ?
		WHERE id = ?`,
		todo.Title, todo.Description, todo.Status, todo.DueDate,
		recurring, todo.SortOrder, todo.FolderID,
		todo.CompletedAt, todo.UpdatedAt,
		todo.ID,
	)
	if err != nil {
		return fmt.Errorf("updating todo %s: %w", todo.ID, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("updating todo %s: %w", todo.ID, err)
	}
	s.events.Publish(Event{Entity: EntityTodo, ID: todo.ID, Op: OpUpdate})
	return nil
}

// DeleteTodo removes a todo by ID. Cascades to subtasks, completion
// records, and reminders.
func (s *SQLiteStore) DeleteTodo(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting todo %s: %w", id, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("deleting todo %s: %w", id, err)
	}
	s.events.Publish(Event{Entity: EntityTodo, ID: id, Op: OpDelete})
	return nil
}

// GetTodoByID retrieves a single todo by ID.
func (s *SQLiteStore) GetTodoByID(ctx context.Context, id string) (*model.Todo, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT * FROM todos WHERE id = ?", id)
	todo, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("getting todo %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting todo %s: %w", id, err)
	}
	return &todo, nil
}

// GetTodos retrieves todos matching the filter.
func (s *SQLiteStore) GetTodos(ctx context.Context, filter TodoFilter) ([]model.Todo, error) {
	query, args := buildTodoQuery("SELECT todos.*", filter)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying todos: %w", err)
	}
	defer rows.Close()

	var todos []model.Todo
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Populate subtask counts for list views.
	for i := range todos {
		if err := s.loadSubtaskCounts(ctx, &todos[i]); err != nil {
			return nil, err
		}
	}

	return todos, nil
}

// SetTodoStatus flips the completion status of the live todo instance.
func (s *SQLiteStore) SetTodoStatus(ctx context.Context, id string, completed bool) error {
	status := model.TodoStatusOpen
	var completedAt *time.Time
	now := time.Now().UTC()
	if completed {
		status = model.TodoStatusComplete
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE todos SET status = ?, completed_at = ?, updated_at = ? WHERE id = ?",
		status, completedAt, now, id,
	)
	if err != nil {
		return fmt.Errorf("setting todo %s status: %w", id, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("setting todo %s status: %w", id, err)
	}
	s.events.Publish(Event{Entity: EntityTodo, ID: id, Op: OpUpdate})
	return nil
}

// AdvanceTodo moves a recurring todo's due date to nextDue and reopens
// it, making the row the live representation of the next occurrence.
func (s *SQLiteStore) AdvanceTodo(ctx context.Context, id string, nextDue time.Time) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE todos
		SET due_date = ?, status = ?, completed_at = NULL, updated_at = ?
		WHERE id = ?`,
		nextDue.UTC(), model.TodoStatusOpen, now, id,
	)
	if err != nil {
		return fmt.Errorf("advancing todo %s: %w", id, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("advancing todo %s: %w", id, err)
	}
	s.events.Publish(Event{Entity: EntityTodo, ID: id, Op: OpUpdate})
	return nil
}

// ReorderTodo updates the sort_order for a specific todo.
func (s *SQLiteStore) ReorderTodo(ctx context.Context, id string, newSortOrder int) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE todos SET sort_order = ?, updated_at = ? WHERE id = ?",
		newSortOrder, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("reordering todo %s: %w", id, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("reordering todo %s: %w", id, err)
	}
	s.events.Publish(Event{Entity: EntityTodo, ID: id, Op: OpUpdate})
	return nil
}

// UpsertTodos inserts or replaces a batch of todos mirrored from another
// backend during sync.
func (s *SQLiteStore) UpsertTodos(ctx context.Context, todos []model.Todo) error {
	if len(todos) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO todos (
			id, title, description, status, due_date, recurring,
			sort_order, folder_id, created_at, completed_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range todos {
		recurring, err := marshalRecurring(t.Recurring)
		if err != nil {
			return fmt.Errorf("upserting todo %s: %w", t.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			t.ID, t.Title, t.Description, t.Status, t.DueDate, recurring,
			t.SortOrder, t.FolderID,
			t.CreatedAt.UTC(), t.CompletedAt, t.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting todo %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	for _, t := range todos {
		s.events.Publish(Event{Entity: EntityTodo, ID: t.ID, Op: OpUpdate})
	}
	return nil
}

// GetTodosUpdatedSince retrieves todos modified after the given instant,
// ordered by update time. Used by the sync poller.
func (s *SQLiteStore) GetTodosUpdatedSince(ctx context.Context, since time.Time) ([]model.Todo, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM todos WHERE updated_at > ? ORDER BY updated_at ASC",
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying updated todos: %w", err)
	}
	defer rows.Close()

	var todos []model.Todo
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

// AddSubtask inserts a new subtask for a todo.
func (s *SQLiteStore) AddSubtask(ctx context.Context, item model.Subtask) (model.Subtask, error) {
	if strings.TrimSpace(item.Text) == "" {
		return model.Subtask{}, fmt.Errorf("subtask text must not be empty")
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.CreatedAt = time.Now().UTC()

	if item.SortOrder == 0 {
		var maxOrder int
		err := s.db.GetContext(ctx, &maxOrder,
			"SELECT COALESCE(MAX(sort_order), 0) FROM subtasks WHERE todo_id = ?",
			item.TodoID)
		if err != nil {
			return model.Subtask{}, fmt.Errorf("getting max subtask sort_order: %w", err)
		}
		item.SortOrder = maxOrder + 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subtasks (id, todo_id, text, done, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.TodoID, item.Text, boolToInt(item.Done),
		item.SortOrder, item.CreatedAt,
	)
	if err != nil {
		return model.Subtask{}, fmt.Errorf("adding subtask: %w", err)
	}
	s.events.Publish(Event{Entity: EntitySubtask, ID: item.ID, Op: OpCreate})
	return item, nil
}

// UpdateSubtask updates text and done state of a subtask.
func (s *SQLiteStore) UpdateSubtask(ctx context.Context, item model.Subtask) error {
	if strings.TrimSpace(item.Text) == "" {
		return fmt.Errorf("subtask text must not be empty")
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE subtasks SET text = ?, done = ? WHERE id = ?",
		item.Text, boolToInt(item.Done), item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating subtask %s: %w", item.ID, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("updating subtask %s: %w", item.ID, err)
	}
	s.events.Publish(Event{Entity: EntitySubtask, ID: item.ID, Op: OpUpdate})
	return nil
}

// DeleteSubtask removes a subtask by ID.
func (s *SQLiteStore) DeleteSubtask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM subtasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting subtask %s: %w", id, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("deleting subtask %s: %w", id, err)
	}
	s.events.Publish(Event{Entity: EntitySubtask, ID: id, Op: OpDelete})
	return nil
}

// GetSubtasks returns all subtasks for a todo, ordered by sort_order.
func (s *SQLiteStore) GetSubtasks(ctx context.Context, todoID string) ([]model.Subtask, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM subtasks WHERE todo_id = ? ORDER BY sort_order",
		todoID)
	if err != nil {
		return nil, fmt.Errorf("querying subtasks: %w", err)
	}
	defer rows.Close()

	var items []model.Subtask
	for rows.Next() {
		item, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ToggleSubtask flips the done state of a subtask.
func (s *SQLiteStore) ToggleSubtask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE subtasks SET done = CASE WHEN done = 0 THEN 1 ELSE 0 END WHERE id = ?",
		id)
	if err != nil {
		return fmt.Errorf("toggling subtask %s: %w", id, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("toggling subtask %s: %w", id, err)
	}
	s.events.Publish(Event{Entity: EntitySubtask, ID: id, Op: OpUpdate})
	return nil
}

// ReorderSubtask updates the sort_order for a subtask.
func (s *SQLiteStore) ReorderSubtask(ctx context.Context, id string, newSortOrder int) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE subtasks SET sort_order = ? WHERE id = ?",
		newSortOrder, id)
	if err != nil {
		return fmt.Errorf("reordering subtask %s: %w", id, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("reordering subtask %s: %w", id, err)
	}
	s.events.Publish(Event{Entity: EntitySubtask, ID: id, Op: OpUpdate})
	return nil
}

// loadSubtaskCounts populates the derived subtask counters on a todo.
func (s *SQLiteStore) loadSubtaskCounts(ctx context.Context, todo *model.Todo) error {
	row := s.db.QueryRowxContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(done), 0)
		FROM subtasks WHERE todo_id = ?`, todo.ID)
	if err := row.Scan(&todo.SubtaskCount, &todo.SubtaskDoneCount); err != nil {
		return fmt.Errorf("counting subtasks for todo %s: %w", todo.ID, err)
	}
	return nil
}

// buildTodoQuery constructs the SQL query and args for a TodoFilter.
func buildTodoQuery(selectClause string, filter TodoFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, "todos.status = ?")
		args = append(args, *filter.Status)
	}
	if filter.FolderID != nil {
		if *filter.FolderID == FolderInbox {
			conditions = append(conditions, "todos.folder_id IS NULL")
		} else {
			conditions = append(conditions, "todos.folder_id = ?")
			args = append(args, *filter.FolderID)
		}
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions,
			"(todos.title LIKE ? OR todos.description LIKE ?)")
		q := "%" + *filter.Query + "%"
		args = append(args, q, q)
	}
	if filter.Due != nil {
		now := time.Now()
		switch *filter.Due {
		case DueToday:
			today := now.Format(model.DateLayout)
			tomorrow := now.AddDate(0, 0, 1).Format(model.DateLayout)
			conditions = append(conditions,
				"todos.due_date >= ? AND todos.due_date < ?")
			args = append(args, today, tomorrow)
		case DueUpcoming:
			today := now.Format(model.DateLayout)
			weekFromNow := now.AddDate(0, 0, 7).Format(model.DateLayout)
			conditions = append(conditions,
				"todos.due_date >= ? AND todos.due_date < ?")
			args = append(args, today, weekFromNow)
		case DueOverdue:
			today := now.Format(model.DateLayout)
			conditions = append(conditions,
				"todos.due_date < ? AND todos.status != 'complete'")
			args = append(args, today)
		}
	}

	query := selectClause + " FROM todos"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	// Sort.
	sortBy := "todos.sort_order"
	if filter.SortBy != "" {
		allowed := map[string]string{
			"sort_order": "todos.sort_order",
			"due_date":   "todos.due_date",
			"created_at": "todos.created_at",
			"updated_at": "todos.updated_at",
			"title":      "todos.title",
		}
		if col, ok := allowed[filter.SortBy]; ok {
			sortBy = col
		}
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	return query, args
}

// scanTodo scans a todo row.
func scanTodo(row interface{ Scan(dest ...interface{}) error }) (model.Todo, error) {
	var (
		todo        model.Todo
		dueDate     *time.Time
		completedAt *time.Time
		folderID    *string
		recurring   string
	)

	err := row.Scan(
		&todo.ID, &todo.Title, &todo.Description, &todo.Status,
		&dueDate, &recurring, &todo.SortOrder, &folderID,
		&todo.CreatedAt, &completedAt, &todo.UpdatedAt,
	)
	if err != nil {
		return model.Todo{}, err
	}

	pattern, err := unmarshalRecurring(recurring)
	if err != nil {
		return model.Todo{}, fmt.Errorf("scanning todo row: %w", err)
	}

	todo.DueDate = dueDate
	todo.CompletedAt = completedAt
	todo.FolderID = folderID
	todo.Recurring = pattern

	return todo, nil
}

// scanSubtask scans a subtask row.
func scanSubtask(row interface{ Scan(dest ...interface{}) error }) (model.Subtask, error) {
	var (
		item    model.Subtask
		doneInt int
	)

	err := row.Scan(
		&item.ID, &item.TodoID, &item.Text, &doneInt,
		&item.SortOrder, &item.CreatedAt,
	)
	if err != nil {
		return model.Subtask{}, fmt.Errorf("scanning subtask row: %w", err)
	}

	item.Done = doneInt != 0
	return item, nil
}

// rowsAffected converts a zero-row update into ErrNotFound.
func rowsAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

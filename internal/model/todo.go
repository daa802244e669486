package model

import "time"

// Todo status constants.
const (
	TodoStatusOpen     = "open"
	TodoStatusComplete = "complete"
)

// Todo is a task item created and managed by the user. For a recurring
// todo the row represents the current live occurrence; past and future
// occurrences are computed on demand and never stored.
type Todo struct {
	ID          string            `json:"id" db:"id"`
	Title       string            `json:"title" db:"title"`
	Description string            `json:"description" db:"description"`
	Status      string            `json:"status" db:"status"`
	DueDate     *time.Time        `json:"due_date,omitempty" db:"due_date"`
	Recurring   *RecurringPattern `json:"recurring,omitempty" db:"-"`
	SortOrder   int               `json:"sort_order" db:"sort_order"`
	FolderID    *string           `json:"folder_id,omitempty" db:"folder_id"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`

	// Subtask counts are optionally populated for list views.
	SubtaskCount     int `json:"subtask_count,omitempty" db:"-"`
	SubtaskDoneCount int `json:"subtask_done_count,omitempty" db:"-"`
}

// Completed reports whether the live instance of the todo is done.
func (t Todo) Completed() bool {
	return t.Status == TodoStatusComplete
}

// IsRecurring reports whether the todo carries a recurring pattern.
func (t Todo) IsRecurring() bool {
	return t.Recurring != nil
}

// DueOn returns the calendar date of the due date, if any.
func (t Todo) DueOn() (Date, bool) {
	if t.DueDate == nil {
		return Date{}, false
	}
	return DateOf(*t.DueDate), true
}

// Subtask is a simple sub-entry within a todo.
// Its lifecycle is bound to the parent todo (CASCADE delete).
type Subtask struct {
	ID        string    `json:"id" db:"id"`
	TodoID    string    `json:"todo_id" db:"todo_id"`
	Text      string    `json:"text" db:"text"`
	Done      bool      `json:"done" db:"done"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

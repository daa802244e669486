package model

import "time"

// Notification represents an alert surfaced to the user about a todo,
// typically produced by a fired reminder or by sync.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" db:"id"`

	// TodoID links this notification to the originating todo.
	TodoID string `json:"todo_id" db:"todo_id"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read" db:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

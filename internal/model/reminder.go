package model

import "time"

// Reminder schedules a one-shot alert for a todo. Firing a reminder
// produces a Notification; the reminder itself is then marked fired and
// never triggers again.
type Reminder struct {
	ID        string    `json:"id" db:"id"`
	TodoID    string    `json:"todo_id" db:"todo_id"`
	RemindAt  time.Time `json:"remind_at" db:"remind_at"`
	Message   string    `json:"message" db:"message"`
	Fired     bool      `json:"fired" db:"fired"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

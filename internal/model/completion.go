package model

import "time"

// CompletionRecord is a persisted per-date completion override for a
// recurring todo. A record exists only for occurrence dates whose
// completion state differs from the default, or whose history must be
// retained after the live todo advanced past them. It never touches the
// base todo's due date or status.
type CompletionRecord struct {
	TodoID    string    `json:"todo_id" db:"todo_id"`
	Date      Date      `json:"date" db:"-"`
	Completed bool      `json:"completed" db:"completed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

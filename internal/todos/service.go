// Package todos performs the persistence effects behind toggle
// interactions. The occurrence package decides what should happen; this
// package makes it happen against a store.
package todos

import (
	"context"
	"fmt"
	"time"

	"github.com/thuale/todoflow/internal/model"
	"github.com/thuale/todoflow/internal/occurrence"
	"github.com/thuale/todoflow/internal/store"
)

// Service applies toggle actions to a store.
type Service struct {
	store store.Store

	// Now returns the current instant; defaults to time.Now.
	Now func() time.Time
}

// NewService creates a Service backed by s.
func NewService(s store.Store) *Service {
	return &Service{store: s, Now: time.Now}
}

// Toggle resolves and performs the persistence action for toggling the
// given occurrence of a todo. It returns the action that was performed
// so callers can report what happened.
func (s *Service) Toggle(ctx context.Context, viewCtx occurrence.Context, todoID string, virtualDate *model.Date, completed bool) (occurrence.Action, error) {
	todo, err := s.store.GetTodoByID(ctx, todoID)
	if err != nil {
		return nil, err
	}

	action, err := occurrence.DecideToggle(viewCtx, *todo, virtualDate, completed)
	if err != nil {
		return nil, err
	}

	switch a := action.(type) {
	case occurrence.SimpleToggle:
		if err := s.store.SetTodoStatus(ctx, a.TodoID, a.Completed); err != nil {
			return nil, err
		}

	case occurrence.SetPastCompletion:
		rec := model.CompletionRecord{
			TodoID:    a.TodoID,
			Date:      a.Date,
			Completed: a.Completed,
		}
		if err := s.store.UpsertCompletion(ctx, rec); err != nil {
			return nil, err
		}

	case occurrence.AdvanceRecurring:
		if err := s.advance(ctx, *todo); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("todos: unhandled toggle action %T", action)
	}

	return action, nil
}

// advance completes the current live occurrence of a recurring todo and
// makes the row represent the next one. The just-completed date is
// captured as a completion record so smart views keep showing it as done
// after the due date has moved on.
func (s *Service) advance(ctx context.Context, todo model.Todo) error {
	current, ok := todo.DueOn()
	if !ok {
		// A recurring todo without a due date lives on "today".
		current = model.DateOf(s.Now())
	}

	next, err := occurrence.NextOccurrence(*todo.Recurring, current)
	if err != nil {
		return err
	}

	rec := model.CompletionRecord{
		TodoID:    todo.ID,
		Date:      current,
		Completed: true,
	}
	if err := s.store.UpsertCompletion(ctx, rec); err != nil {
		return err
	}
	return s.store.AdvanceTodo(ctx, todo.ID, next.Time(time.UTC))
}

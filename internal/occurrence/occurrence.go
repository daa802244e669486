package occurrence

import "github.com/thuale/todoflow/internal/model"

// Occurrence is a closed sum over the two ways a todo shows up in a view:
// as its live stored row, or as a computed occurrence pinned to a
// specific calendar date. The distinction is type-enforced so a virtual
// occurrence can never be mistaken for a persisted one.
type Occurrence interface {
	Base() model.Todo
	sealed()
}

// Live is the current stored instance of a todo, as folder and inbox
// views present it.
type Live struct {
	Todo model.Todo
}

// Virtual is a computed, non-persisted occurrence of a recurring todo on
// a specific calendar date. Two Virtual values with the same todo but
// different dates are distinct for completion purposes.
type Virtual struct {
	Todo model.Todo
	Date model.Date
}

func (o Live) Base() model.Todo    { return o.Todo }
func (o Virtual) Base() model.Todo { return o.Todo }

func (Live) sealed()    {}
func (Virtual) sealed() {}

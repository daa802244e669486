package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// PatternKind discriminates the recurring pattern variants.
type PatternKind string

const (
	PatternDaily   PatternKind = "daily"
	PatternWeekly  PatternKind = "weekly"
	PatternMonthly PatternKind = "monthly"
)

var (
	ErrInvalidPatternKind = errors.New("model: invalid recurring pattern kind")
	ErrInvalidDayOfMonth  = errors.New("model: invalid recurring day of month")
	ErrInvalidWeekday     = errors.New("model: invalid recurring weekday")
)

// RecurringPattern describes when a recurring todo occurs. The kind is
// immutable once created; editing a recurring todo replaces the whole
// pattern value rather than mutating fields in place.
type RecurringPattern struct {
	Kind PatternKind `json:"kind"`

	// DaysOfWeek constrains weekly patterns. An empty set means the
	// pattern occurs every day of the week.
	DaysOfWeek []time.Weekday `json:"days_of_week,omitempty"`

	// DayOfMonth is the occurrence day for monthly patterns (1-31).
	DayOfMonth int `json:"day_of_month,omitempty"`
}

// Validate checks the pattern for structural problems.
func (p RecurringPattern) Validate() error {
	switch p.Kind {
	case PatternDaily, PatternWeekly, PatternMonthly:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPatternKind, p.Kind)
	}
	if p.Kind == PatternMonthly && (p.DayOfMonth < 1 || p.DayOfMonth > 31) {
		return fmt.Errorf("%w: %d", ErrInvalidDayOfMonth, p.DayOfMonth)
	}
	if p.Kind == PatternWeekly && len(p.DaysOfWeek) > 0 {
		s := make([]int, 0, len(p.DaysOfWeek))
		for _, d := range p.DaysOfWeek {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("%w: %d", ErrInvalidWeekday, d)
			}
			s = append(s, int(d))
		}
		sort.Ints(s)
		for i := 1; i < len(s); i++ {
			if s[i] == s[i-1] {
				return errors.New("model: duplicate weekday in recurring pattern")
			}
		}
	}
	return nil
}

// Matches reports whether date is a valid occurrence date for the pattern.
// An unrecognized kind is a programming or data-corruption error and is
// surfaced instead of silently matching nothing.
func (p RecurringPattern) Matches(date Date) (bool, error) {
	switch p.Kind {
	case PatternDaily:
		return true, nil
	case PatternWeekly:
		// No explicit weekday constraint means the pattern occurs
		// every day of the week.
		if len(p.DaysOfWeek) == 0 {
			return true, nil
		}
		for _, wd := range p.DaysOfWeek {
			if date.Weekday() == wd {
				return true, nil
			}
		}
		return false, nil
	case PatternMonthly:
		if date.Day == p.DayOfMonth {
			return true, nil
		}
		// Months shorter than the configured day clamp to their last
		// day, so a "day 31" pattern still occurs in February.
		last := date.DaysInMonth()
		return p.DayOfMonth > last && date.Day == last, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidPatternKind, p.Kind)
	}
}

// weekdaysMonToFri is the weekday set that collapses to the "Weekdays" label.
var weekdaysMonToFri = map[time.Weekday]bool{
	time.Monday:    true,
	time.Tuesday:   true,
	time.Wednesday: true,
	time.Thursday:  true,
	time.Friday:    true,
}

// Label renders a short human-readable description of the pattern.
func (p RecurringPattern) Label() string {
	switch p.Kind {
	case PatternDaily:
		return "Daily"
	case PatternWeekly:
		if len(p.DaysOfWeek) == 5 {
			all := true
			for _, wd := range p.DaysOfWeek {
				if !weekdaysMonToFri[wd] {
					all = false
					break
				}
			}
			if all {
				return "Weekdays"
			}
		}
		return "Weekly"
	case PatternMonthly:
		return "Monthly"
	default:
		return "Custom"
	}
}

// ParsePatternKind converts a raw string into a PatternKind.
func ParsePatternKind(s string) (PatternKind, error) {
	kind := PatternKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case PatternDaily, PatternWeekly, PatternMonthly:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPatternKind, s)
	}
}

package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2026-03-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year != 2026 || d.Month != time.March || d.Day != 15 {
		t.Fatalf("got %+v, want 2026-03-15", d)
	}
	if got := d.String(); got != "2026-03-15" {
		t.Errorf("String() = %q, want 2026-03-15", got)
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, s := range []string{"", "2026-13-01", "15/03/2026", "2026-02-30"} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q) succeeded, want error", s)
		}
	}
}

func TestDateOfIgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("plus13", 13*3600)
	instant := time.Date(2026, time.June, 1, 23, 59, 0, 0, loc)
	if got := DateOf(instant); got.String() != "2026-06-01" {
		t.Errorf("DateOf = %s, want 2026-06-01", got)
	}
}

func TestAddDaysAcrossBoundaries(t *testing.T) {
	tests := []struct {
		start string
		n     int
		want  string
	}{
		{"2026-01-31", 1, "2026-02-01"},
		{"2026-02-28", 1, "2026-03-01"},
		{"2024-02-28", 1, "2024-02-29"}, // leap year
		{"2026-01-01", -1, "2025-12-31"},
		{"2026-03-10", 0, "2026-03-10"},
	}
	for _, tt := range tests {
		d, err := ParseDate(tt.start)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", tt.start, err)
		}
		if got := d.AddDays(tt.n).String(); got != tt.want {
			t.Errorf("%s + %d days = %s, want %s", tt.start, tt.n, got, tt.want)
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2026-01-10", 31},
		{"2026-02-10", 28},
		{"2024-02-10", 29},
		{"2026-04-10", 30},
	}
	for _, tt := range tests {
		d, _ := ParseDate(tt.date)
		if got := d.DaysInMonth(); got != tt.want {
			t.Errorf("DaysInMonth(%s) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestDateOrdering(t *testing.T) {
	a := NewDate(2026, time.May, 1)
	b := NewDate(2026, time.May, 2)
	if !a.Before(b) || b.Before(a) {
		t.Errorf("Before: %s vs %s", a, b)
	}
	if !b.After(a) || a.After(b) {
		t.Errorf("After: %s vs %s", a, b)
	}
	if a.Before(a) || a.After(a) {
		t.Errorf("a date must not order against itself")
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2026, time.August, 9)
	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(raw) != `"2026-08-09"` {
		t.Fatalf("Marshal = %s", raw)
	}

	var back Date
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != d {
		t.Errorf("round trip = %+v, want %+v", back, d)
	}

	if err := json.Unmarshal([]byte(`20260809`), &back); err == nil {
		t.Errorf("Unmarshal of a non-string succeeded, want error")
	}
}

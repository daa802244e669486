package occurrence

import (
	"testing"

	"github.com/thuale/todoflow/internal/model"
)

func TestOccurrenceKinds(t *testing.T) {
	todo := model.Todo{ID: "t1", Title: "water plants"}
	occs := []Occurrence{
		Live{Todo: todo},
		Virtual{Todo: todo, Date: date("2026-08-26")},
	}
	for i, occ := range occs {
		if occ.Base().ID != "t1" {
			t.Errorf("occ %d Base().ID = %q, want t1", i, occ.Base().ID)
		}
	}

	if _, ok := occs[0].(Virtual); ok {
		t.Error("live occurrence matched Virtual")
	}
	v, ok := occs[1].(Virtual)
	if !ok {
		t.Fatal("virtual occurrence did not match Virtual")
	}
	if v.Date.String() != "2026-08-26" {
		t.Errorf("Date = %s, want 2026-08-26", v.Date)
	}
}

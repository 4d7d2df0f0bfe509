package layout

import (
	"reflect"
	"testing"

	"github.com/iliyamo/seatly/internal/model"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	seats := Resolve(model.Layout{Rows: 2, SeatsPerRow: 3})
	want := []string{"A1", "A2", "A3", "B1", "B2", "B3"}
	if got := Numbers(model.Layout{Rows: 2, SeatsPerRow: 3}); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	classes := map[string]model.FareClass{
		"A1": model.FarePremium, "A2": model.FareStandard, "A3": model.FarePremium,
		"B1": model.FarePremium, "B2": model.FareStandard, "B3": model.FarePremium,
	}
	for _, s := range seats {
		if s.Class != classes[s.Number] {
			t.Fatalf("seat %s: expected %s, got %s", s.Number, classes[s.Number], s.Class)
		}
	}
}

func TestResolveEmpty(t *testing.T) {
	t.Parallel()

	for _, l := range []model.Layout{{Rows: 0, SeatsPerRow: 4}, {Rows: 3, SeatsPerRow: 0}, {}} {
		seats := Resolve(l)
		if seats == nil || len(seats) != 0 {
			t.Fatalf("layout %+v: expected empty non-nil slice, got %v", l, seats)
		}
	}
}

func TestResolveSingleColumnIsPremium(t *testing.T) {
	t.Parallel()

	for _, s := range Resolve(model.Layout{Rows: 3, SeatsPerRow: 1}) {
		if s.Class != model.FarePremium {
			t.Fatalf("seat %s: expected premium, got %s", s.Number, s.Class)
		}
	}
}

func TestRowLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		index int
		label string
	}{
		{0, "A"}, {1, "B"}, {25, "Z"}, {26, "AA"}, {27, "AB"}, {51, "AZ"}, {52, "BA"}, {701, "ZZ"}, {702, "AAA"},
	}
	for _, tt := range tests {
		if got := RowLabel(tt.index); got != tt.label {
			t.Fatalf("RowLabel(%d): expected %s, got %s", tt.index, tt.label, got)
		}
		if idx, ok := RowIndex(tt.label); !ok || idx != tt.index {
			t.Fatalf("RowIndex(%s): expected %d, got %d (ok=%v)", tt.label, tt.index, idx, ok)
		}
	}
	if RowLabel(-1) != "" {
		t.Fatalf("expected empty label for negative index")
	}
	if idx, ok := RowIndex("ZZZZZZ"); !ok || RowLabel(idx) != "ZZZZZZ" {
		t.Fatalf("expected six letter label to round trip, got %d (ok=%v)", idx, ok)
	}
	for _, label := range []string{"AAAAAAA", "AAAAAAAAAAAAAAA", "ZZZZZZZZZZZZZZZZZZZZ"} {
		if idx, ok := RowIndex(label); ok {
			t.Fatalf("RowIndex(%s): expected rejection, got %d", label, idx)
		}
	}
}

func TestOverlongRowLabel(t *testing.T) {
	t.Parallel()

	l := model.Layout{Rows: 12, SeatsPerRow: 4}
	for _, number := range []string{"AAAAAAAAAAAAAAA1", "ZZZZZZZZZZZZZZZZZZZZ2", "aaaaaaaaaaaaaa3"} {
		if Contains(l, number) {
			t.Fatalf("expected %s outside the layout", number)
		}
		if got := Canonical(number); got != "" {
			t.Fatalf("expected no canonical form for %s, got %q", number, got)
		}
		if _, _, ok := Parse(number); ok {
			t.Fatalf("expected %s to fail parsing", number)
		}
	}
}

func TestResolveLargeLayoutIsUnique(t *testing.T) {
	t.Parallel()

	l := model.Layout{Rows: 60, SeatsPerRow: 6}
	seen := make(map[string]bool)
	for _, s := range Resolve(l) {
		if seen[s.Number] {
			t.Fatalf("duplicate seat %s", s.Number)
		}
		seen[s.Number] = true
		if !Contains(l, s.Number) {
			t.Fatalf("expected layout to contain %s", s.Number)
		}
	}
	if len(seen) != 360 {
		t.Fatalf("expected 360 seats, got %d", len(seen))
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		row, col int
		ok       bool
	}{
		{"A1", 0, 0, true},
		{"b2", 1, 1, true},
		{"AA10", 26, 9, true},
		{"A0", 0, 0, false},
		{"A01", 0, 0, false},
		{"1A", 0, 0, false},
		{"A", 0, 0, false},
		{"", 0, 0, false},
		{"A-1", 0, 0, false},
	}
	for _, tt := range tests {
		row, col, ok := Parse(tt.in)
		if ok != tt.ok || (ok && (row != tt.row || col != tt.col)) {
			t.Fatalf("Parse(%q): expected (%d,%d,%v), got (%d,%d,%v)", tt.in, tt.row, tt.col, tt.ok, row, col, ok)
		}
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	l := model.Layout{Rows: 12, SeatsPerRow: 4}
	if c, ok := Classify(l, "L4"); !ok || c != model.FarePremium {
		t.Fatalf("expected L4 premium, got %s (ok=%v)", c, ok)
	}
	if c, ok := Classify(l, "c2"); !ok || c != model.FareStandard {
		t.Fatalf("expected c2 standard, got %s (ok=%v)", c, ok)
	}
	if _, ok := Classify(l, "M1"); ok {
		t.Fatalf("expected M1 outside a 12 row layout")
	}
	if _, ok := Classify(l, "A5"); ok {
		t.Fatalf("expected A5 outside a 4 seat row")
	}
	if Canonical("c2") != "C2" {
		t.Fatalf("expected canonical C2, got %q", Canonical("c2"))
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	l, err := Normalize(model.Layout{Rows: 7, SeatsPerRow: 2, Tag: "1-1", TotalSeats: 99})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if l.TotalSeats != 14 {
		t.Fatalf("expected 14 seats, got %d", l.TotalSeats)
	}
	if _, err := Normalize(model.Layout{Rows: -1, SeatsPerRow: 2}); err != model.ErrInvalidLayout {
		t.Fatalf("expected ErrInvalidLayout, got %v", err)
	}
}

// Package layout derives seat identifiers and fare classes from a vehicle
// layout.  Every function here is pure: the same layout always yields the
// same seats in the same order.
package layout

import (
	"strconv"
	"strings"

	"github.com/iliyamo/seatly/internal/model"
)

// Seat is a resolved seat position.  Row and Column are zero-based.
type Seat struct {
	Number string
	Row    int
	Column int
	Class  model.FareClass
}

// Resolve returns the rows×seatsPerRow seats of l in row-major order.  A
// layout with no rows or no columns resolves to an empty slice.
func Resolve(l model.Layout) []Seat {
	if l.Rows <= 0 || l.SeatsPerRow <= 0 {
		return []Seat{}
	}
	out := make([]Seat, 0, l.Rows*l.SeatsPerRow)
	for r := 0; r < l.Rows; r++ {
		label := RowLabel(r)
		for c := 0; c < l.SeatsPerRow; c++ {
			out = append(out, Seat{
				Number: label + strconv.Itoa(c+1),
				Row:    r,
				Column: c,
				Class:  ClassOf(c, l.SeatsPerRow),
			})
		}
	}
	return out
}

// Numbers returns only the seat identifiers of l, in layout order.
func Numbers(l model.Layout) []string {
	seats := Resolve(l)
	out := make([]string, len(seats))
	for i, s := range seats {
		out[i] = s.Number
	}
	return out
}

// Normalize completes a layout: TotalSeats is recomputed from the grid.
// Negative dimensions are rejected with model.ErrInvalidLayout.
func Normalize(l model.Layout) (model.Layout, error) {
	if l.Rows < 0 || l.SeatsPerRow < 0 {
		return model.Layout{}, model.ErrInvalidLayout
	}
	l.TotalSeats = l.Rows * l.SeatsPerRow
	return l, nil
}

// ClassOf classifies a zero-based column: the first and last seat of a row
// are premium, everything in between is standard.
func ClassOf(col, seatsPerRow int) model.FareClass {
	if col == 0 || col == seatsPerRow-1 {
		return model.FarePremium
	}
	return model.FareStandard
}

// Classify returns the fare class of number within l.  ok is false when
// the seat is not part of the layout.
func Classify(l model.Layout, number string) (model.FareClass, bool) {
	row, col, ok := Parse(number)
	if !ok || row < 0 || col < 0 || row >= l.Rows || col >= l.SeatsPerRow {
		return "", false
	}
	return ClassOf(col, l.SeatsPerRow), true
}

// Contains reports whether number names a seat of l.
func Contains(l model.Layout, number string) bool {
	_, ok := Classify(l, number)
	return ok
}

// Parse splits a seat identifier like "AB12" into zero-based row and
// column indexes.  Lower-case row letters are accepted.
func Parse(number string) (row, col int, ok bool) {
	s := strings.TrimSpace(number)
	i := 0
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	if i == 0 || i == len(s) {
		return 0, 0, false
	}
	row, ok = RowIndex(s[:i])
	if !ok {
		return 0, 0, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil || n < 1 || s[i] == '0' || s[i] == '+' {
		return 0, 0, false
	}
	return row, n - 1, true
}

// RowLabel converts a zero-based row index to a spreadsheet-style label:
// 0→A, 25→Z, 26→AA, 27→AB.  Negative indexes yield "".
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []byte{}
	for {
		res = append(res, byte('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// maxLabelLen bounds row labels so RowIndex cannot overflow.  Six letters
// already address more than 300 million rows.
const maxLabelLen = 6

// RowIndex is the inverse of RowLabel.  Labels longer than six letters are
// rejected.
func RowIndex(label string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if s == "" || len(s) > maxLabelLen {
		return -1, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < 'A' || ch > 'Z' {
			return -1, false
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, true
}

// Canonical returns number with an upper-case row label, or "" when it is
// not a well-formed seat identifier.
func Canonical(number string) string {
	row, col, ok := Parse(number)
	if !ok {
		return ""
	}
	return RowLabel(row) + strconv.Itoa(col+1)
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

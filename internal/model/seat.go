package model

import (
	"strconv"
	"strings"
)

// Seat is a zero-based coordinate within a bus layout grid.  Seats have no
// lifecycle of their own; they only exist inside a reservation's seat set.
type Seat struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Label renders the seat the way tickets print it: the row as letters
// (A, B, ..., Z, AA) followed by the one-based column, e.g. {1,2} -> "B3".
func (s Seat) Label() string {
	return rowLabel(s.Row) + strconv.Itoa(s.Col+1)
}

// ParseSeatLabel converts a label such as "A1" or "aa12" back into a Seat.
// The boolean is false when the label is malformed.
func ParseSeatLabel(label string) (Seat, bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(s) {
		return Seat{}, false
	}
	col, err := strconv.Atoi(s[i:])
	if err != nil || col < 1 {
		return Seat{}, false
	}
	row := 0
	for j := 0; j < i; j++ {
		row = row*26 + int(s[j]-'A'+1)
	}
	return Seat{Row: row - 1, Col: col - 1}, true
}

// FormatSeatLabels joins seat labels with ", ".  An empty set renders as
// "Not Selected".
func FormatSeatLabels(seats []Seat) string {
	if len(seats) == 0 {
		return "Not Selected"
	}
	labels := make([]string, 0, len(seats))
	for _, s := range seats {
		labels = append(labels, s.Label())
	}
	return strings.Join(labels, ", ")
}

// SeatLabels returns the label of every seat in order.
func SeatLabels(seats []Seat) []string {
	out := make([]string, 0, len(seats))
	for _, s := range seats {
		out = append(out, s.Label())
	}
	return out
}

// UniqueSeats drops repeated coordinates, keeping first occurrences in order.
func UniqueSeats(seats []Seat) []Seat {
	seen := make(map[Seat]struct{}, len(seats))
	out := make([]Seat, 0, len(seats))
	for _, s := range seats {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// rowLabel converts a zero-based row index to letters: 0 -> A, 25 -> Z, 26 -> AA.
func rowLabel(i int) string {
	if i < 0 {
		return "?"
	}
	var res []byte
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

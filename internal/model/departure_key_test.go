package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentify_FormattingDifferencesCollide(t *testing.T) {
	a := Departure{From: "Mumbai", To: "Delhi", Date: "12/25/2024", Time: "9:5"}
	b := Departure{From: "Mumbai", To: "Delhi", Date: "2024-12-25", Time: "09:05"}

	assert.Equal(t, Identify(a), Identify(b))
	assert.Equal(t, "Mumbai-Delhi-2024-12-25-09:05", Identify(a))
}

func TestIdentify_IDWins(t *testing.T) {
	d := Departure{ID: " bus-42 ", From: "Mumbai", To: "Delhi", Date: "2024-12-25", Time: "09:05"}
	assert.Equal(t, "bus-42", d.Key())
}

func TestIdentify_MissingFieldsUsePlaceholder(t *testing.T) {
	assert.Equal(t, "unknown-unknown-unknown-unknown", Identify(Departure{}))
	assert.Equal(t, "Pune-unknown-2024-01-05-unknown", Identify(Departure{From: "Pune", Date: "2024/01/05"}))
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2024-12-25":                "2024-12-25",
		"2024/12/25":                "2024-12-25",
		"12/25/2024":                "2024-12-25",
		"1/5/2024":                  "2024-01-05",
		"2024-12-25T23:30:00Z":      "2024-12-25",
		"2024-12-25T01:00:00+05:30": "2024-12-25",
		"2024-12-25 22:00:00":       "2024-12-25",
		"Dec 15, 2024":              "2024-12-15",
		"December 15, 2024":         "2024-12-15",
		"  2024-12-25  ":            "2024-12-25",
		"":                          "unknown",
		"next tuesday":              "next tuesday",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDate(in), "input %q", in)
	}
}

func TestNormalizeTime(t *testing.T) {
	cases := map[string]string{
		"9:5":        "09:05",
		"09:05":      "09:05",
		"09:05:00":   "09:05",
		"22:00":      "22:00",
		"9:05 PM":    "21:05",
		"9:05pm":     "21:05",
		"12:15 AM":   "00:15",
		"12:15 p.m.": "12:15",
		"7 PM":       "19:00",
		"":           "unknown",
		"evening":    "evening",
		"25:00":      "25:00",
		"13:00 PM":   "13:00 PM",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeTime(in), "input %q", in)
	}
}

func TestIdentify_TwelveAndTwentyFourHourCollide(t *testing.T) {
	a := Departure{From: "Delhi", To: "Agra", Date: "Dec 20, 2024", Time: "10:30 PM"}
	b := Departure{From: "Delhi", To: "Agra", Date: "2024-12-20", Time: "22:30"}
	assert.Equal(t, a.Key(), b.Key())
}

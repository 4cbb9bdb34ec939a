package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// unknownPart stands in for any missing departure field so that partially
// specified departures still produce a deterministic key.
const unknownPart = "unknown"

// dateLayouts lists the client date formats accepted by NormalizeDate.  Order
// matters for ambiguous numeric forms: month/day/year is tried before
// day/month/year.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"02.01.2006",
	"2.1.2006",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"Mon Jan 2 2006",
	"Mon, Jan 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// Identify derives the DepartureKey for d.  A non-empty ID is trusted as the
// key.  Otherwise the key is from-to-date-time with the date normalized to
// YYYY-MM-DD and the time to zero-padded HH:MM.  Identify never fails.
func Identify(d Departure) string {
	if id := strings.TrimSpace(d.ID); id != "" {
		return id
	}
	return strings.Join([]string{
		orUnknown(strings.TrimSpace(d.From)),
		orUnknown(strings.TrimSpace(d.To)),
		NormalizeDate(d.Date),
		NormalizeTime(d.Time),
	}, "-")
}

// NormalizeDate maps any parseable date to YYYY-MM-DD using the calendar day
// as written (no timezone conversion).  Unparseable input is returned trimmed
// and unchanged; empty input yields "unknown".
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return unknownPart
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// NormalizeTime maps a clock time to zero-padded 24h HH:MM.  "9:5", "09:05",
// "09:05:00" and "9:05 AM" all yield "09:05"; "9:05 PM" yields "21:05".
// Input that is not a recognizable clock time is returned trimmed.
func NormalizeTime(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return unknownPart
	}
	clock, meridiem := splitMeridiem(s)
	var hourStr, minStr string
	if i := strings.IndexByte(clock, ':'); i >= 0 {
		hourStr = clock[:i]
		rest := clock[i+1:]
		if j := strings.IndexByte(rest, ':'); j >= 0 {
			rest = rest[:j] // drop seconds
		}
		minStr = rest
	} else if meridiem != "" {
		hourStr, minStr = clock, "0"
	} else {
		return s
	}
	hour, err1 := strconv.Atoi(strings.TrimSpace(hourStr))
	minute, err2 := strconv.Atoi(strings.TrimSpace(minStr))
	if err1 != nil || err2 != nil || minute < 0 || minute > 59 {
		return s
	}
	switch meridiem {
	case "am":
		if hour < 1 || hour > 12 {
			return s
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return s
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return s
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// splitMeridiem separates a trailing AM/PM marker ("am", "p.m.", "PM") from
// the clock part.  The marker is returned lower-cased without dots.
func splitMeridiem(s string) (string, string) {
	lower := strings.ToLower(s)
	for _, m := range []string{"a.m.", "p.m.", "am", "pm"} {
		if strings.HasSuffix(lower, m) {
			clock := strings.TrimSpace(s[:len(s)-len(m)])
			return clock, strings.ReplaceAll(m, ".", "")
		}
	}
	return s, ""
}

func orUnknown(s string) string {
	if s == "" {
		return unknownPart
	}
	return s
}

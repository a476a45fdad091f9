// Package ledger holds the pure enrollment and attendance rules: date
// normalisation, de-duplication keys, session eligibility and the derived
// attendance report. Nothing here performs I/O.
package ledger

import (
	"strings"
	"time"
)

// DateLayout is the canonical calendar date format used for comparisons.
const DateLayout = "2006-01-02"

// NormalizeDate maps ISO timestamps, YYYY-MM-DD and D/M/YYYY values onto
// YYYY-MM-DD. Values it does not recognise are returned trimmed but otherwise
// unchanged, so they silently fail to match any real date.
func NormalizeDate(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if i := strings.IndexByte(value, 'T'); i >= 0 {
		return value[:i]
	}
	if len(value) == 10 && value[4] == '-' {
		return value
	}
	if strings.Contains(value, "/") {
		parts := strings.Split(value, "/")
		if len(parts) == 3 {
			return parts[2] + "-" + zeroPad(parts[1]) + "-" + zeroPad(parts[0])
		}
	}
	return value
}

// Today renders the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}

// Timestamp renders the registration timestamp stored on records.
func Timestamp(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01-02 15:04:05")
}

// CompactDate renders a YYYY-MM-DD date as YYYYMMDD for course identifiers.
func CompactDate(date string) string {
	return strings.ReplaceAll(NormalizeDate(date), "-", "")
}

func zeroPad(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

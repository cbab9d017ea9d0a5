// Package timeutil centralizes the time model of the service.  All booking
// windows are stored and compared as UTC instants; the fixed +05:30 office
// zone is used only when formatting for display and when interpreting
// date-only or wall-clock input from clients.  Keeping every conversion in
// one place prevents the mixed local/UTC arithmetic that tends to creep
// into slot and reminder code.
package timeutil

import (
	"fmt"
	"time"
)

// DisplayZone is the fixed presentation offset for the office (+05:30).
// It is intentionally a fixed zone rather than a named location so that
// formatting does not depend on the host's tzdata.
var DisplayZone = time.FixedZone("UTC+05:30", 5*3600+30*60)

// Working-day boundaries in the display zone.  Alternative-slot search
// only considers windows inside these hours.
const (
	WorkdayStartHour = 9
	WorkdayEndHour   = 19
)

// Layouts accepted for client-supplied timestamps.  RFC3339 carries its own
// offset; the wall-clock layout is interpreted in the display zone.
const (
	wallClockLayout = "2006-01-02T15:04"
	dateLayout      = "2006-01-02"
)

// ToUTC normalizes any instant to UTC.  It is the single entry point for
// canonicalizing input times before storage or comparison.
func ToUTC(t time.Time) time.Time { return t.UTC() }

// ToDisplay converts a stored UTC instant into the display zone.
func ToDisplay(t time.Time) time.Time { return t.In(DisplayZone) }

// FormatDisplay renders an instant in the display zone using RFC3339.
func FormatDisplay(t time.Time) string { return ToDisplay(t).Format(time.RFC3339) }

// ParseInput parses a client-supplied timestamp.  RFC3339 strings are taken
// at their stated offset; bare wall-clock strings ("2006-01-02T15:04") are
// interpreted in the display zone.  The result is always UTC.
func ParseInput(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(wallClockLayout, s, DisplayZone); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q (want RFC3339 or %s)", s, wallClockLayout)
}

// ParseDate parses a calendar date ("2006-01-02") anchored at midnight in
// the display zone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, DisplayZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q (want %s)", s, dateLayout)
	}
	return t, nil
}

// WorkingWindowUTC returns the UTC instants bounding the working day
// (09:00–19:00 in the display zone) that contains the given date.  The date
// may be any instant; only its calendar day in the display zone matters.
func WorkingWindowUTC(date time.Time) (start, end time.Time) {
	local := date.In(DisplayZone)
	y, m, d := local.Date()
	start = time.Date(y, m, d, WorkdayStartHour, 0, 0, 0, DisplayZone).UTC()
	end = time.Date(y, m, d, WorkdayEndHour, 0, 0, 0, DisplayZone).UTC()
	return start, end
}

// DayBoundsUTC returns the UTC instants bounding the full calendar day that
// contains the given date in the display zone.  Backs the per-day filter on
// booking listings.
func DayBoundsUTC(date time.Time) (start, end time.Time) {
	local := date.In(DisplayZone)
	y, m, d := local.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, DisplayZone).UTC()
	end = start.Add(24 * time.Hour)
	return start, end
}

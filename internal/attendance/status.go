// Package attendance turns backend attendance logs into the dashboard's log
// view: entry status, live polling and file export.
package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the label shown for a log entry.
type Status string

const (
	StatusExit   Status = "Exit"
	StatusLate   Status = "Enter (Late)"
	StatusOnTime Status = "Enter (On-Time)"
	StatusEnter  Status = "Enter"
)

// IsLate reports whether the status marks a late entry.
func (s Status) IsLate() bool {
	return s == StatusLate
}

// ParseClock parses an "HH:MM" time of day.
func ParseClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 || len(m) != 2 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// ComputeStatus labels one log entry. Exits are always "Exit". An entry is
// late when its wall-clock time is strictly after classStart at minute
// granularity, so 09:30:59 is still on time for 09:30. When classStart or the
// timestamp cannot be parsed the entry is labelled plain "Enter".
func ComputeStatus(action string, ts time.Time, tsOK bool, classStart string) Status {
	if action == "exit" {
		return StatusExit
	}
	hour, minute, err := ParseClock(classStart)
	if err != nil || !tsOK {
		return StatusEnter
	}
	if ts.Hour() > hour || (ts.Hour() == hour && ts.Minute() > minute) {
		return StatusLate
	}
	return StatusOnTime
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTimestamp parses a backend timestamp. Timestamps with an offset are
// converted to loc; naive timestamps are read as wall time in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

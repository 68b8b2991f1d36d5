package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/constants"
)

// Row is one line of the attendance log table.
type Row struct {
	LogID        int      `json:"log_id"`
	UserID       int      `json:"user_id"`
	UserName     string   `json:"user_name"`
	StudentCode  string   `json:"student_code"`
	Action       string   `json:"action"`
	Timestamp    string   `json:"timestamp"`
	Time         string   `json:"time"`
	Status       Status   `json:"status"`
	Late         bool     `json:"late"`
	Confidence   *float64 `json:"confidence"`
	SubjectID    *int     `json:"subject_id"`
	SnapshotPath string   `json:"snapshot_path,omitempty"`
}

// NewRow builds a table row for entry using classStart for late detection.
func NewRow(entry backend.LogEntry, classStart string, loc *time.Location) Row {
	ts, err := ParseTimestamp(entry.Timestamp, loc)
	status := ComputeStatus(entry.Action, ts, err == nil, classStart)

	row := Row{
		LogID:       entry.LogID,
		UserID:      entry.UserID,
		UserName:    entry.UserName,
		StudentCode: entry.StudentCode,
		Action:      entry.Action,
		Timestamp:   entry.Timestamp,
		Status:      status,
		Late:        status.IsLate(),
		Confidence:  entry.Confidence,
		SubjectID:   entry.SubjectID,
	}
	if err == nil {
		row.Time = ts.Format("15:04:05")
	}
	if entry.SnapshotPath != nil && *entry.SnapshotPath != "" {
		row.SnapshotPath = backend.SnapshotPath(*entry.SnapshotPath)
	}
	return row
}

// MatchesSubject reports whether entry belongs to subjectID (0 = any subject).
func MatchesSubject(entry backend.LogEntry, subjectID int) bool {
	if subjectID <= 0 {
		return true
	}
	return entry.SubjectID != nil && *entry.SubjectID == subjectID
}

// IsToday reports whether date (YYYY-MM-DD) is today in loc.
func IsToday(date string, now time.Time, loc *time.Location) bool {
	return date == now.In(loc).Format(constants.DateLayout)
}

// ValidateDate checks a YYYY-MM-DD date.
func ValidateDate(date string) error {
	if _, err := time.Parse(constants.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	return nil
}

// LogsBackend is the part of the backend the log view needs.
type LogsBackend interface {
	GetLogs(ctx context.Context, q backend.LogsQuery) ([]backend.LogEntry, error)
	GetSubjects(ctx context.Context) ([]backend.Subject, error)
}

// View loads log tables for a day.
type View struct {
	backend  LogsBackend
	resolver *StartResolver
	loc      *time.Location
}

// NewView creates a log view.
func NewView(b LogsBackend, resolver *StartResolver, loc *time.Location) *View {
	return &View{backend: b, resolver: resolver, loc: loc}
}

// Location returns the time zone used for dates.
func (v *View) Location() *time.Location {
	return v.loc
}

// ClassStart resolves the class start time of subjectID.
func (v *View) ClassStart(ctx context.Context, subjectID int) string {
	if subjectID <= 0 {
		return v.resolver.Resolve(ctx, 0, "")
	}
	subjects, err := v.backend.GetSubjects(ctx)
	if err != nil {
		// keep going with overrides and the default
		return v.resolver.Resolve(ctx, subjectID, "")
	}
	for _, s := range subjects {
		if s.SubjectID == subjectID && s.Schedule != nil {
			return v.resolver.Resolve(ctx, subjectID, *s.Schedule)
		}
	}
	return v.resolver.Resolve(ctx, subjectID, "")
}

// Day returns the rows for date filtered by subjectID (0 = all subjects).
func (v *View) Day(ctx context.Context, date string, subjectID int) ([]Row, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	logs, err := v.backend.GetLogs(ctx, backend.LogsQuery{StartDate: date, EndDate: date, SubjectID: subjectID})
	if err != nil {
		return nil, err
	}
	return v.Rows(ctx, logs, subjectID), nil
}

// Rows converts entries matching subjectID into table rows.
func (v *View) Rows(ctx context.Context, logs []backend.LogEntry, subjectID int) []Row {
	start := v.ClassStart(ctx, subjectID)
	rows := make([]Row, 0, len(logs))
	for _, entry := range logs {
		if !MatchesSubject(entry, subjectID) {
			continue
		}
		rows = append(rows, NewRow(entry, start, v.loc))
	}
	return rows
}

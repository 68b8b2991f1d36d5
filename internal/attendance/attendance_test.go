package attendance

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/attendance-dashboard/internal/backend"
)

func at(hour, minute, second int) time.Time {
	return time.Date(2026, 10, 18, hour, minute, second, 0, time.UTC)
}

func TestComputeStatus(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		ts       time.Time
		start    string
		expected Status
	}{
		{"exit always exit", "exit", at(23, 0, 0), "09:30", StatusExit},
		{"exit with bad start", "exit", at(8, 0, 0), "", StatusExit},
		{"one minute late", "enter", at(9, 31, 0), "09:30", StatusLate},
		{"same minute on time", "enter", at(9, 30, 59), "09:30", StatusOnTime},
		{"early", "enter", at(8, 0, 0), "09:30", StatusOnTime},
		{"later hour", "enter", at(10, 0, 0), "09:30", StatusLate},
		{"empty start", "enter", at(10, 0, 0), "", StatusEnter},
		{"garbage start", "enter", at(10, 0, 0), "soon", StatusEnter},
		{"out of range start", "enter", at(10, 0, 0), "25:00", StatusEnter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeStatus(tt.action, tt.ts, true, tt.start); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}

	if got := ComputeStatus("enter", time.Time{}, false, "09:30"); got != StatusEnter {
		t.Errorf("expected unparsable timestamp to be plain Enter, got %q", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)

	tests := []struct {
		in         string
		hour, mins int
	}{
		{"2026-10-18T09:31:00", 9, 31},
		{"2026-10-18T09:31:00.123456", 9, 31},
		{"2026-10-18 09:31:00", 9, 31},
		{"2026-10-18T02:31:00Z", 9, 31},
		{"2026-10-18T09:31:00+07:00", 9, 31},
	}
	for _, tt := range tests {
		ts, err := ParseTimestamp(tt.in, bangkok)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.in, err)
			continue
		}
		if ts.Hour() != tt.hour || ts.Minute() != tt.mins {
			t.Errorf("%s: expected %02d:%02d, got %s", tt.in, tt.hour, tt.mins, ts.Format("15:04"))
		}
	}

	if _, err := ParseTimestamp("yesterday", bangkok); err == nil {
		t.Error("expected error for invalid timestamp")
	}
}

func TestScheduleStart(t *testing.T) {
	tests := []struct {
		in       string
		expected string
		ok       bool
	}{
		{"Monday 09:00-12:00", "09:00", true},
		{"Tue 8.30 - 10.30", "08:30", true},
		{"Wed 13:00", "13:00", true},
		{"every day", "", false},
		{"Room 99:99 then 10:15", "10:15", true},
	}
	for _, tt := range tests {
		got, ok := ScheduleStart(tt.in)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("ScheduleStart(%q) = %q, %v; expected %q, %v", tt.in, got, ok, tt.expected, tt.ok)
		}
	}
}

type memoryStarts map[int]string

func (m memoryStarts) ClassStart(ctx context.Context, subjectID int) (string, bool, error) {
	v, ok := m[subjectID]
	return v, ok, nil
}

func TestStartResolver(t *testing.T) {
	r := NewStartResolver(memoryStarts{1: "08:00"}, "09:30")
	ctx := context.Background()

	if got := r.Resolve(ctx, 1, "Monday 13:00-15:00"); got != "08:00" {
		t.Errorf("expected override, got %s", got)
	}
	if got := r.Resolve(ctx, 2, "Monday 13:00-15:00"); got != "13:00" {
		t.Errorf("expected schedule start, got %s", got)
	}
	if got := r.Resolve(ctx, 2, ""); got != "09:30" {
		t.Errorf("expected default, got %s", got)
	}
	if got := NewStartResolver(nil, "10:00").Resolve(ctx, 1, ""); got != "10:00" {
		t.Errorf("expected default without store, got %s", got)
	}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

type mockLogs struct {
	logs     []backend.LogEntry
	subjects []backend.Subject
	query    backend.LogsQuery
	err      error
}

func (m *mockLogs) GetLogs(ctx context.Context, q backend.LogsQuery) ([]backend.LogEntry, error) {
	m.query = q
	return m.logs, m.err
}

func (m *mockLogs) GetSubjects(ctx context.Context) ([]backend.Subject, error) {
	return m.subjects, nil
}

func TestView_Day(t *testing.T) {
	mb := &mockLogs{
		subjects: []backend.Subject{{SubjectID: 3, SubjectName: "Physics", Schedule: strPtr("Monday 10:00-12:00")}},
		logs: []backend.LogEntry{
			{LogID: 1, UserName: "A", Action: "enter", Timestamp: "2026-10-18T10:00:30", SubjectID: intPtr(3), SnapshotPath: strPtr(`snapshots\a.jpg`)},
			{LogID: 2, UserName: "B", Action: "enter", Timestamp: "2026-10-18T10:01:00", SubjectID: intPtr(3)},
			{LogID: 3, UserName: "C", Action: "exit", Timestamp: "2026-10-18T12:00:00", SubjectID: intPtr(3)},
			{LogID: 4, UserName: "D", Action: "enter", Timestamp: "2026-10-18T08:00:00", SubjectID: intPtr(4)},
		},
	}
	view := NewView(mb, NewStartResolver(nil, "09:30"), time.UTC)

	rows, err := view.Day(context.Background(), "2026-10-18", 3)
	if err != nil {
		t.Fatalf("Day failed: %v", err)
	}
	if mb.query.StartDate != "2026-10-18" || mb.query.EndDate != "2026-10-18" || mb.query.SubjectID != 3 {
		t.Errorf("unexpected query: %+v", mb.query)
	}
	if len(rows) != 3 {
		t.Fatalf("expected subject filter to keep 3 rows, got %d", len(rows))
	}
	if rows[0].Status != StatusOnTime || rows[1].Status != StatusLate || rows[2].Status != StatusExit {
		t.Errorf("unexpected statuses: %s, %s, %s", rows[0].Status, rows[1].Status, rows[2].Status)
	}
	if !rows[1].Late || rows[0].Late {
		t.Error("expected late flag to follow status")
	}
	if rows[0].SnapshotPath != "snapshots/a.jpg" || rows[0].Time != "10:00:30" {
		t.Errorf("unexpected row: %+v", rows[0])
	}

	if _, err := view.Day(context.Background(), "18/10/2026", 0); err == nil {
		t.Error("expected invalid date to be rejected")
	}

	mb.err = errors.New("backend down")
	if _, err := view.Day(context.Background(), "2026-10-18", 0); err == nil {
		t.Error("expected backend error to propagate")
	}
}

func TestIsToday(t *testing.T) {
	now := time.Date(2026, 10, 18, 23, 30, 0, 0, time.UTC)
	if !IsToday("2026-10-18", now, time.UTC) {
		t.Error("expected today")
	}
	if IsToday("2026-10-17", now, time.UTC) {
		t.Error("expected yesterday not to be today")
	}
	if !IsToday("2026-10-19", now, time.FixedZone("ICT", 7*3600)) {
		t.Error("expected date to follow the dashboard zone")
	}
}

func TestRender(t *testing.T) {
	raw := []byte(`[
		{"student_code":"6401","name":"Som \"Chai\"","timestamp":"2026-10-18 09:31:00","confidence":0.91,"subject":null},
		{"student_code":"6402","name":"Nok","timestamp":"2026-10-18 09:35:00","confidence":1.0}
	]`)

	out, err := Render(raw, FormatTXT)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	expected := "student_code\tname\ttimestamp\tconfidence\tsubject\r\n" +
		"\"6401\"\t\"Som \"\"Chai\"\"\"\t\"2026-10-18 09:31:00\"\t\"0.91\"\t\"N/A\"\r\n" +
		"\"6402\"\t\"Nok\"\t\"2026-10-18 09:35:00\"\t\"1\"\t\"N/A\"\r\n"
	if string(out) != expected {
		t.Errorf("unexpected txt export:\n%q\nexpected:\n%q", out, expected)
	}

	csv, err := Render(raw, FormatCSV)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.HasPrefix(string(csv), "student_code,name,timestamp,confidence,subject\r\n\"6401\",") {
		t.Errorf("expected comma-separated csv, got %q", csv)
	}

	xls, _ := Render(raw, FormatXLSX)
	if string(xls) != expected {
		t.Error("expected xls export to be tab-separated like txt")
	}
}

func TestRender_Errors(t *testing.T) {
	if _, err := Render([]byte(`[]`), FormatCSV); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if _, err := Render([]byte(`{"a":1}`), FormatCSV); err == nil {
		t.Error("expected error for non-array")
	}
	if _, err := Render([]byte(`[1,2]`), FormatCSV); err == nil {
		t.Error("expected error for non-object rows")
	}
	if _, err := Render([]byte(`[{`), FormatCSV); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in       string
		filename string
		mime     string
	}{
		{"txt", "attendance_export_2026-10-18.txt", "text/plain;charset=utf-8"},
		{"CSV", "attendance_export_2026-10-18.csv", "text/csv;charset=utf-8"},
		{"xlsx", "attendance_export_2026-10-18.xls", "application/vnd.ms-excel"},
	}
	for _, tt := range tests {
		f, err := ParseFormat(tt.in)
		if err != nil {
			t.Fatalf("ParseFormat(%q) failed: %v", tt.in, err)
		}
		if got := Filename("2026-10-18", f); got != tt.filename {
			t.Errorf("expected %s, got %s", tt.filename, got)
		}
		if f.MIMEType() != tt.mime {
			t.Errorf("expected %s, got %s", tt.mime, f.MIMEType())
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected pdf to be rejected")
	}
}

type mockExport struct {
	raw   []byte
	query backend.LogsQuery
}

func (m *mockExport) ExportRows(ctx context.Context, q backend.LogsQuery) ([]byte, error) {
	m.query = q
	return m.raw, nil
}

func TestExport(t *testing.T) {
	mb := &mockExport{raw: []byte(`[{"a":1},{"a":2}]`)}

	file, err := Export(context.Background(), mb, "2026-10-18", 5, FormatCSV)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if file.Name != "attendance_export_2026-10-18.csv" || file.Rows != 2 {
		t.Errorf("unexpected file: %+v", file)
	}
	if mb.query.SubjectID != 5 || mb.query.StartDate != mb.query.EndDate {
		t.Errorf("unexpected query: %+v", mb.query)
	}

	mb.raw = []byte(`[]`)
	if _, err := Export(context.Background(), mb, "2026-10-18", 0, FormatTXT); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/kozaktomas/attendance-dashboard/internal/backend"
)

func intPtr(v int) *int { return &v }

func sampleLogs() []backend.LogEntry {
	return []backend.LogEntry{
		// Monday
		{UserID: 1, Action: "enter", Timestamp: "2026-10-12T08:55:00", SubjectID: intPtr(1)},
		{UserID: 2, Action: "enter", Timestamp: "2026-10-12T09:40:00", SubjectID: intPtr(1)},
		{UserID: 1, Action: "exit", Timestamp: "2026-10-12T12:00:00", SubjectID: intPtr(1)},
		// Tuesday
		{UserID: 1, Action: "enter", Timestamp: "2026-10-13T13:05:00", SubjectID: intPtr(2)},
		// next month, no subject
		{UserID: 3, Action: "enter", Timestamp: "2026-11-02T08:10:00"},
		{UserID: 3, Action: "enter", Timestamp: "garbage"},
	}
}

func sampleSubjects() []backend.Subject {
	return []backend.Subject{{SubjectID: 1, SubjectName: "Physics"}}
}

func TestCompute(t *testing.T) {
	s := Compute(sampleLogs(), sampleSubjects(), "2026-10-01", "2026-11-30", time.UTC, language.English)

	if s.TotalAttendance != 4 {
		t.Errorf("expected 4 entries, got %d", s.TotalAttendance)
	}
	if s.UniqueStudents != 3 {
		t.Errorf("expected 3 students, got %d", s.UniqueStudents)
	}
	if s.AveragePerDay != 4.0/3.0 {
		t.Errorf("expected average over 3 days, got %v", s.AveragePerDay)
	}
	if s.AveragePerStudent != 4.0/3.0 {
		t.Errorf("expected 4/3 per student, got %v", s.AveragePerStudent)
	}

	if len(s.ByWeekday) != 7 || s.ByWeekday[0].Label != "Monday" || s.ByWeekday[0].Count != 3 || s.ByWeekday[1].Count != 1 {
		t.Errorf("unexpected weekday series: %+v", s.ByWeekday)
	}
	if len(s.ByMonth) != 2 || s.ByMonth[0].Label != "Oct 2026" || s.ByMonth[0].Count != 3 || s.ByMonth[1].Count != 1 {
		t.Errorf("unexpected month series: %+v", s.ByMonth)
	}
	if len(s.ByHour) != 3 || s.ByHour[0].Label != "08:00" || s.ByHour[0].Count != 2 {
		t.Errorf("unexpected hour series: %+v", s.ByHour)
	}

	if len(s.BySubject) != 3 {
		t.Fatalf("expected 3 subject buckets, got %+v", s.BySubject)
	}
	if s.BySubject[0].Label != "Physics" || s.BySubject[0].Count != 2 {
		t.Errorf("expected Physics first, got %+v", s.BySubject[0])
	}
	labels := map[string]bool{}
	for _, b := range s.BySubject {
		labels[b.Label] = true
	}
	if !labels["Subject 2"] || !labels[UnassignedSubject] {
		t.Errorf("expected fallback labels, got %+v", s.BySubject)
	}
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil, nil, "2026-10-01", "2026-10-01", time.UTC, language.English)
	if s.TotalAttendance != 0 || s.AveragePerDay != 0 || s.AveragePerStudent != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
	if len(s.ByWeekday) != 7 {
		t.Error("expected all weekdays to be present")
	}
}

func TestKPIFormatting(t *testing.T) {
	logs := make([]backend.LogEntry, 0, 1234)
	for i := 0; i < 1234; i++ {
		logs = append(logs, backend.LogEntry{UserID: i % 10, Action: "enter", Timestamp: "2026-10-12T08:00:00"})
	}

	s := Compute(logs, nil, "2026-10-12", "2026-10-12", time.UTC, language.English)
	if s.KPIs[0].Display != "1,234" {
		t.Errorf("expected grouped thousands, got %q", s.KPIs[0].Display)
	}
	if s.KPIs[3].Display != "123.4" {
		t.Errorf("expected one decimal, got %q", s.KPIs[3].Display)
	}

	de := Compute(logs, nil, "2026-10-12", "2026-10-12", time.UTC, language.German)
	if de.KPIs[0].Display != "1.234" {
		t.Errorf("expected German grouping, got %q", de.KPIs[0].Display)
	}
}

type countingLogs struct {
	calls int
	err   error
}

func (c *countingLogs) Logs(ctx context.Context, from, to string) ([]backend.LogEntry, error) {
	c.calls++
	return sampleLogs(), c.err
}

type staticSubjects struct {
	err error
}

func (s staticSubjects) GetSubjects(ctx context.Context) ([]backend.Subject, error) {
	return sampleSubjects(), s.err
}

func TestService_Cache(t *testing.T) {
	src := &countingLogs{}
	svc := NewService(src, staticSubjects{}, time.UTC, time.Minute)

	if _, err := svc.Summary(context.Background(), "2026-10-01", "2026-10-31"); err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if _, err := svc.Summary(context.Background(), "2026-10-01", "2026-10-31"); err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("expected cached second call, got %d loads", src.calls)
	}

	svc.Summary(context.Background(), "2026-10-01", "2026-10-15")
	if src.calls != 2 {
		t.Errorf("expected a different range to miss the cache, got %d loads", src.calls)
	}

	svc.InvalidateCache()
	svc.Summary(context.Background(), "2026-10-01", "2026-10-31")
	if src.calls != 3 {
		t.Errorf("expected reload after invalidation, got %d loads", src.calls)
	}
}

func TestService_Validation(t *testing.T) {
	svc := NewService(&countingLogs{}, staticSubjects{}, time.UTC, 0)

	if _, err := svc.Summary(context.Background(), "bad", "2026-10-31"); err == nil {
		t.Error("expected invalid from date to fail")
	}
	if _, err := svc.Summary(context.Background(), "2026-10-31", "2026-10-01"); err == nil {
		t.Error("expected reversed range to fail")
	}
}

func TestService_SubjectFailureStillComputes(t *testing.T) {
	svc := NewService(&countingLogs{}, staticSubjects{err: errors.New("down")}, time.UTC, 0)

	s, err := svc.Summary(context.Background(), "2026-10-01", "2026-11-30")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	for _, b := range s.BySubject {
		if b.Label == "Physics" {
			t.Error("expected no subject names without the subject list")
		}
	}
}

func TestService_LogFailure(t *testing.T) {
	svc := NewService(&countingLogs{err: errors.New("down")}, staticSubjects{}, time.UTC, time.Minute)
	if _, err := svc.Summary(context.Background(), "2026-10-01", "2026-10-31"); err == nil {
		t.Error("expected log failure to propagate")
	}
}

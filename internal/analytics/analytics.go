// Package analytics computes the attendance dashboard KPIs and chart series.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kozaktomas/attendance-dashboard/internal/attendance"
	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/constants"
)

// UnassignedSubject labels logs recorded without a subject.
const UnassignedSubject = "Unassigned"

// Bucket is one point of a chart series.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// KPI is a headline number with its display text.
type KPI struct {
	Key     string  `json:"key"`
	Title   string  `json:"title"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

// Summary is the full analytics view of a date range.
type Summary struct {
	From              string    `json:"from"`
	To                string    `json:"to"`
	TotalAttendance   int       `json:"total_attendance"`
	AveragePerDay     float64   `json:"average_per_day"`
	UniqueStudents    int       `json:"unique_students"`
	AveragePerStudent float64   `json:"average_per_student"`
	KPIs              []KPI     `json:"kpis"`
	ByWeekday         []Bucket  `json:"by_weekday"`
	ByMonth           []Bucket  `json:"by_month"`
	ByHour            []Bucket  `json:"by_hour"`
	BySubject         []Bucket  `json:"by_subject"`
	GeneratedAt       time.Time `json:"generated_at"`
}

var weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// Compute builds a summary from logs. Only "enter" events count as
// attendance; exits and unparsable timestamps are ignored. Average per day is
// taken over the days that had at least one entry.
func Compute(logs []backend.LogEntry, subjects []backend.Subject, from, to string, loc *time.Location, lang language.Tag) *Summary {
	names := make(map[int]string, len(subjects))
	for _, s := range subjects {
		names[s.SubjectID] = s.SubjectName
	}

	byWeekday := make(map[time.Weekday]int)
	byMonth := make(map[string]int)
	byHour := make(map[int]int)
	bySubject := make(map[string]int)
	days := make(map[string]struct{})
	students := make(map[int]struct{})
	total := 0

	for _, entry := range logs {
		if entry.Action != "enter" {
			continue
		}
		ts, err := attendance.ParseTimestamp(entry.Timestamp, loc)
		if err != nil {
			continue
		}
		total++
		byWeekday[ts.Weekday()]++
		byMonth[ts.Format("2006-01")]++
		byHour[ts.Hour()]++
		days[ts.Format(constants.DateLayout)] = struct{}{}
		students[entry.UserID] = struct{}{}
		bySubject[subjectLabel(entry.SubjectID, names)]++
	}

	s := &Summary{
		From:            from,
		To:              to,
		TotalAttendance: total,
		UniqueStudents:  len(students),
		GeneratedAt:     time.Now(),
	}
	if len(days) > 0 {
		s.AveragePerDay = float64(total) / float64(len(days))
	}
	if len(students) > 0 {
		s.AveragePerStudent = float64(total) / float64(len(students))
	}

	for _, d := range weekdays {
		s.ByWeekday = append(s.ByWeekday, Bucket{Label: d.String(), Count: byWeekday[d]})
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	for _, m := range months {
		t, _ := time.Parse("2006-01", m)
		s.ByMonth = append(s.ByMonth, Bucket{Label: t.Format("Jan 2006"), Count: byMonth[m]})
	}

	hours := make([]int, 0, len(byHour))
	for h := range byHour {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	for _, h := range hours {
		s.ByHour = append(s.ByHour, Bucket{Label: fmt.Sprintf("%02d:00", h), Count: byHour[h]})
	}

	for name, count := range bySubject {
		s.BySubject = append(s.BySubject, Bucket{Label: name, Count: count})
	}
	sort.Slice(s.BySubject, func(i, j int) bool {
		if s.BySubject[i].Count != s.BySubject[j].Count {
			return s.BySubject[i].Count > s.BySubject[j].Count
		}
		return s.BySubject[i].Label < s.BySubject[j].Label
	})

	s.KPIs = formatKPIs(s, lang)
	return s
}

func subjectLabel(id *int, names map[int]string) string {
	if id == nil {
		return UnassignedSubject
	}
	if name, ok := names[*id]; ok && strings.TrimSpace(name) != "" {
		return name
	}
	return fmt.Sprintf("Subject %d", *id)
}

func formatKPIs(s *Summary, lang language.Tag) []KPI {
	p := message.NewPrinter(lang)
	return []KPI{
		{Key: "total_attendance", Title: "Total Attendance", Value: float64(s.TotalAttendance), Display: p.Sprintf("%d", s.TotalAttendance)},
		{Key: "average_per_day", Title: "Average Attendance per Day", Value: s.AveragePerDay, Display: p.Sprintf("%.1f", s.AveragePerDay)},
		{Key: "unique_students", Title: "Unique Students Attended", Value: float64(s.UniqueStudents), Display: p.Sprintf("%d", s.UniqueStudents)},
		{Key: "average_per_student", Title: "Average Attendance per Student", Value: s.AveragePerStudent, Display: p.Sprintf("%.1f", s.AveragePerStudent)},
	}
}

// LogSource reads attendance logs for an inclusive date range.
type LogSource interface {
	Logs(ctx context.Context, from, to string) ([]backend.LogEntry, error)
}

// SubjectSource lists subjects for labelling.
type SubjectSource interface {
	GetSubjects(ctx context.Context) ([]backend.Subject, error)
}

// BackendLogs reads logs through the backend REST API.
type BackendLogs struct {
	Client interface {
		GetLogs(ctx context.Context, q backend.LogsQuery) ([]backend.LogEntry, error)
	}
}

// Logs implements LogSource.
func (b BackendLogs) Logs(ctx context.Context, from, to string) ([]backend.LogEntry, error) {
	return b.Client.GetLogs(ctx, backend.LogsQuery{StartDate: from, EndDate: to})
}

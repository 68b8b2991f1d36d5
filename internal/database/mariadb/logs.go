package mariadb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/attendance-dashboard/internal/backend"
)

// naiveLayout matches the backend's REST timestamps (no zone).
const naiveLayout = "2006-01-02T15:04:05"

// LogsFilter narrows a logs query. Dates are inclusive YYYY-MM-DD.
type LogsFilter struct {
	From      string
	To        string
	SubjectID int
	Action    string
}

func buildLogsQuery(f LogsFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT l.log_id, l.user_id, COALESCE(u.name, ''), COALESCE(u.student_code, ''),
		       l.action, l.timestamp, l.confidence, l.subject_id, l.snapshot_path
		FROM attendance_logs l
		LEFT JOIN users u ON u.user_id = l.user_id
		WHERE 1=1`)
	var args []any

	if f.From != "" {
		sb.WriteString(" AND l.timestamp >= ?")
		args = append(args, f.From+" 00:00:00")
	}
	if f.To != "" {
		sb.WriteString(" AND l.timestamp <= ?")
		args = append(args, f.To+" 23:59:59")
	}
	if f.SubjectID > 0 {
		sb.WriteString(" AND l.subject_id = ?")
		args = append(args, f.SubjectID)
	}
	if f.Action != "" {
		sb.WriteString(" AND l.action = ?")
		args = append(args, f.Action)
	}
	sb.WriteString(" ORDER BY l.timestamp DESC")
	return sb.String(), args
}

// QueryLogs reads attendance logs matching f, newest first.
func (p *Pool) QueryLogs(ctx context.Context, f LogsFilter) ([]backend.LogEntry, error) {
	query, args := buildLogsQuery(f)
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance logs: %w", err)
	}
	defer rows.Close()

	var logs []backend.LogEntry
	for rows.Next() {
		var (
			e          backend.LogEntry
			ts         time.Time
			confidence sql.NullFloat64
			subjectID  sql.NullInt64
			snapshot   sql.NullString
		)
		if err := rows.Scan(&e.LogID, &e.UserID, &e.UserName, &e.StudentCode, &e.Action, &ts, &confidence, &subjectID, &snapshot); err != nil {
			return nil, fmt.Errorf("scan attendance log: %w", err)
		}
		e.Timestamp = ts.Format(naiveLayout)
		if confidence.Valid {
			e.Confidence = &confidence.Float64
		}
		if subjectID.Valid {
			id := int(subjectID.Int64)
			e.SubjectID = &id
		}
		if snapshot.Valid {
			e.SnapshotPath = &snapshot.String
		}
		logs = append(logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance logs: %w", err)
	}
	return logs, nil
}

// Logs returns the "enter" events of the inclusive date range.
func (p *Pool) Logs(ctx context.Context, from, to string) ([]backend.LogEntry, error) {
	return p.QueryLogs(ctx, LogsFilter{From: from, To: to, Action: "enter"})
}

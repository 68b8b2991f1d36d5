package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

func (q LogsQuery) values() url.Values {
	v := url.Values{}
	v.Set("start_date", q.StartDate)
	v.Set("end_date", q.EndDate)
	if q.SubjectID > 0 {
		v.Set("subject_id", strconv.Itoa(q.SubjectID))
	}
	return v
}

// GetLogs returns attendance logs in the query's date range.
func (c *Client) GetLogs(ctx context.Context, q LogsQuery) ([]LogEntry, error) {
	logs, err := doGetJSON[[]LogEntry](ctx, c, "attendance_logs", withQuery("attendance/logs", q.values()))
	if err != nil {
		return nil, fmt.Errorf("get attendance logs: %w", err)
	}
	return *logs, nil
}

// PollLogs returns logs recorded since the previous poll. The backend keeps
// the cursor, so a poll consumes what it returns.
func (c *Client) PollLogs(ctx context.Context) ([]LogEntry, error) {
	logs, err := doGetJSON[[]LogEntry](ctx, c, "attendance_poll", "attendance/poll")
	if err != nil {
		return nil, fmt.Errorf("poll attendance logs: %w", err)
	}
	return *logs, nil
}

// StartAttendance starts attendance capture on the backend.
func (c *Client) StartAttendance(ctx context.Context) error {
	if err := doRequestRaw(ctx, c, "attendance_start", http.MethodPost, "attendance/start", nil); err != nil {
		return fmt.Errorf("start attendance: %w", err)
	}
	return nil
}

// StopAttendance stops attendance capture on the backend.
func (c *Client) StopAttendance(ctx context.Context) error {
	if err := doRequestRaw(ctx, c, "attendance_stop", http.MethodPost, "attendance/stop", nil); err != nil {
		return fmt.Errorf("stop attendance: %w", err)
	}
	return nil
}

// ExportRows returns the raw JSON array of export rows. The body is returned
// unparsed so that column order follows the backend's key order.
func (c *Client) ExportRows(ctx context.Context, q LogsQuery) ([]byte, error) {
	body, err := doGetBytes(ctx, c, "attendance_export", withQuery("attendance/export", q.values()))
	if err != nil {
		return nil, fmt.Errorf("export attendance: %w", err)
	}
	return body, nil
}

// SnapshotPath normalises a stored snapshot path to a URL path relative to
// the backend root.
func SnapshotPath(p string) string {
	return strings.TrimLeft(strings.ReplaceAll(p, `\`, "/"), "/")
}

// SnapshotURL is the backend URL of a snapshot image.
func (c *Client) SnapshotURL(p string) string {
	return c.resolveURL(SnapshotPath(p))
}

// OpenSnapshot opens a snapshot image. The caller must close the body.
func (c *Client) OpenSnapshot(ctx context.Context, p string) (*Stream, error) {
	path := SnapshotPath(p)
	if path == "" || strings.Contains(path, "..") {
		return nil, fmt.Errorf("invalid snapshot path %q", p)
	}
	stream, err := c.openStream(ctx, "snapshots", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return stream, nil
}

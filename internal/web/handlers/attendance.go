package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/attendance-dashboard/internal/attendance"
	"github.com/kozaktomas/attendance-dashboard/internal/config"
	"github.com/kozaktomas/attendance-dashboard/internal/constants"
)

const eventsPingInterval = 30 * time.Second

// AttendanceControl starts and stops attendance recording on the backend.
type AttendanceControl interface {
	StartAttendance(ctx context.Context) error
	StopAttendance(ctx context.Context) error
}

// AttendanceHandler handles attendance log, live event and export endpoints
type AttendanceHandler struct {
	config   *config.Config
	view     *attendance.View
	poller   *attendance.Poller
	control  AttendanceControl
	exporter attendance.ExportBackend
	now      func() time.Time

	// pingInterval is also how often an idle stream notices midnight.
	pingInterval time.Duration
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(cfg *config.Config, view *attendance.View, poller *attendance.Poller, control AttendanceControl, exporter attendance.ExportBackend) *AttendanceHandler {
	return &AttendanceHandler{
		config:   cfg,
		view:     view,
		poller:   poller,
		control:  control,
		exporter: exporter,
		now:      time.Now,

		pingInterval: eventsPingInterval,
	}
}

// LogsResponse is the attendance table of one day
type LogsResponse struct {
	Date       string           `json:"date"`
	SubjectID  int              `json:"subject_id"`
	ClassStart string           `json:"class_start"`
	IsToday    bool             `json:"is_today"`
	Rows       []attendance.Row `json:"rows"`
}

func (h *AttendanceHandler) today() string {
	return h.now().In(h.view.Location()).Format(constants.DateLayout)
}

// dateAndSubject reads ?date (default today) and ?subject_id.
func (h *AttendanceHandler) dateAndSubject(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.today()
	}
	if err := attendance.ValidateDate(date); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return "", 0, false
	}
	subjectID, ok := subjectFilter(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid subject_id")
		return "", 0, false
	}
	return date, subjectID, true
}

// Logs returns the attendance rows of a day with computed status.
func (h *AttendanceHandler) Logs(w http.ResponseWriter, r *http.Request) {
	date, subjectID, ok := h.dateAndSubject(w, r)
	if !ok {
		return
	}

	rows, err := h.view.Day(r.Context(), date, subjectID)
	if err != nil {
		respondServiceError(w, "attendance logs", err)
		return
	}

	respondJSON(w, http.StatusOK, LogsResponse{
		Date:       date,
		SubjectID:  subjectID,
		ClassStart: h.view.ClassStart(r.Context(), subjectID),
		IsToday:    attendance.IsToday(date, h.now(), h.view.Location()),
		Rows:       rows,
	})
}

// Events streams newly recorded logs of today as SSE "logs" events. Other
// dates have no live updates. When the day rolls over the stream sends a
// "date_changed" event and ends.
func (h *AttendanceHandler) Events(w http.ResponseWriter, r *http.Request) {
	date, subjectID, ok := h.dateAndSubject(w, r)
	if !ok {
		return
	}
	if !attendance.IsToday(date, h.now(), h.view.Location()) {
		respondError(w, http.StatusBadRequest, "live updates are only available for today")
		return
	}

	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	batches, unsubscribe := h.poller.Subscribe(subjectID)
	defer unsubscribe()

	ctx := r.Context()
	sendSSEEvent(w, flusher, "connected", map[string]any{
		"date":        date,
		"subject_id":  subjectID,
		"class_start": h.view.ClassStart(ctx, subjectID),
	})

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	rolledOver := func() bool {
		if attendance.IsToday(date, h.now(), h.view.Location()) {
			return false
		}
		sendSSEEvent(w, flusher, "date_changed", map[string]string{"date": date, "today": h.today()})
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-batches:
			if !ok || rolledOver() {
				return
			}
			rows := h.view.Rows(ctx, batch, subjectID)
			if len(rows) == 0 {
				continue
			}
			sendSSEEvent(w, flusher, "logs", rows)
		case <-ticker.C:
			if rolledOver() {
				return
			}
			sendSSEComment(w, flusher)
		}
	}
}

// Start starts attendance recording.
func (h *AttendanceHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.control.StartAttendance(r.Context()); err != nil {
		respondServiceError(w, "start attendance", err)
		return
	}
	log.Printf("[attendance] recording started")
	respondJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// Stop stops attendance recording.
func (h *AttendanceHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.control.StopAttendance(r.Context()); err != nil {
		respondServiceError(w, "stop attendance", err)
		return
	}
	log.Printf("[attendance] recording stopped")
	respondJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// Export downloads the logs of a day as txt, csv or xls.
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	date, subjectID, ok := h.dateAndSubject(w, r)
	if !ok {
		return
	}

	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(attendance.FormatCSV)
	}
	format, err := attendance.ParseFormat(name)
	if err != nil || !h.config.HasExportFormat(string(format)) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", sanitizeForLog(name)))
		return
	}

	file, err := attendance.Export(r.Context(), h.exporter, date, subjectID, format)
	if errors.Is(err, attendance.ErrNoData) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respondServiceError(w, "export attendance", err)
		return
	}

	log.Printf("[attendance] exported %d rows for %s as %s", file.Rows, date, format)
	w.Header().Set("Content-Type", file.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(file.Data)
}

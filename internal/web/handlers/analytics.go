package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/attendance-dashboard/internal/analytics"
	"github.com/kozaktomas/attendance-dashboard/internal/attendance"
	"github.com/kozaktomas/attendance-dashboard/internal/constants"
)

// defaultAnalyticsDays is the range shown when no dates are given.
const defaultAnalyticsDays = 30

// AnalyticsHandler handles dashboard analytics
type AnalyticsHandler struct {
	service *analytics.Service
	loc     *time.Location
	now     func() time.Time
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(s *analytics.Service, loc *time.Location) *AnalyticsHandler {
	return &AnalyticsHandler{service: s, loc: loc, now: time.Now}
}

// Get returns KPIs and chart series for ?from..?to (inclusive). Without dates
// the last 30 days are used; ?refresh=true bypasses the cache.
func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	today := h.now().In(h.loc)

	to := q.Get("to")
	if to == "" {
		to = today.Format(constants.DateLayout)
	}
	from := q.Get("from")
	if from == "" {
		from = today.AddDate(0, 0, -(defaultAnalyticsDays - 1)).Format(constants.DateLayout)
	}
	for _, d := range []string{from, to} {
		if err := attendance.ValidateDate(d); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if to < from {
		respondError(w, http.StatusBadRequest, "from must not be after to")
		return
	}

	if q.Get("refresh") == "true" {
		h.service.InvalidateCache()
	}

	summary, err := h.service.Summary(r.Context(), from, to)
	if err != nil {
		respondServiceError(w, "analytics", err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

package handlers

import (
	"net/http"

	"github.com/kozaktomas/attendance-dashboard/internal/config"
	"github.com/kozaktomas/attendance-dashboard/internal/database/postgres"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config          *config.Config
	analyticsSource string
}

// NewConfigHandler creates a new config handler. analyticsSource names where
// analytics read logs from ("backend" or "mariadb").
func NewConfigHandler(cfg *config.Config, analyticsSource string) *ConfigHandler {
	return &ConfigHandler{
		config:          cfg,
		analyticsSource: analyticsSource,
	}
}

// ConfigResponse is the dashboard configuration the frontend needs
type ConfigResponse struct {
	Slots           []string `json:"slots"`
	LateAfter       string   `json:"late_after"`
	PollIntervalMs  int64    `json:"poll_interval_ms"`
	ExportFormats   []string `json:"export_formats"`
	MinFaceImages   int      `json:"min_face_images"`
	MaxFaceImages   int      `json:"max_face_images"`
	Timezone        string   `json:"timezone"`
	AuthEnabled     bool     `json:"auth_enabled"`
	SessionStore    string   `json:"session_store"`
	AnalyticsSource string   `json:"analytics_source"`
}

// Get returns the dashboard configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionStore := "memory"
	if postgres.IsAvailable() {
		sessionStore = "postgres"
	}

	d := h.config.Dashboard
	respondJSON(w, http.StatusOK, ConfigResponse{
		Slots:           d.Slots,
		LateAfter:       d.LateAfter,
		PollIntervalMs:  d.PollInterval.Milliseconds(),
		ExportFormats:   d.ExportFormats,
		MinFaceImages:   d.MinFaceImages,
		MaxFaceImages:   d.MaxFaceImages,
		Timezone:        d.Location().String(),
		AuthEnabled:     h.config.Web.AuthEnabled(),
		SessionStore:    sessionStore,
		AnalyticsSource: h.analyticsSource,
	})
}

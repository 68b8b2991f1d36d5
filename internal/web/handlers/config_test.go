package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConfigHandler_Get(t *testing.T) {
	cfg := testConfig()
	cfg.Dashboard.PollInterval = 3000000000
	handler := NewConfigHandler(cfg, "backend")

	req := httptest.NewRequest("GET", "/api/v1/config", nil)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var response ConfigResponse
	parseJSONResponse(t, recorder, &response)

	if len(response.Slots) != 2 || response.Slots[0] != "entrance" || response.Slots[1] != "exit" {
		t.Errorf("unexpected slots: %v", response.Slots)
	}
	if response.LateAfter != "09:30" {
		t.Errorf("expected late_after 09:30, got %q", response.LateAfter)
	}
	if response.PollIntervalMs != 3000 {
		t.Errorf("expected 3000ms poll interval, got %d", response.PollIntervalMs)
	}
	if response.MinFaceImages != 4 || response.MaxFaceImages != 50 {
		t.Errorf("unexpected image limits: %d..%d", response.MinFaceImages, response.MaxFaceImages)
	}
	if response.Timezone != "UTC" {
		t.Errorf("expected UTC, got %q", response.Timezone)
	}
	if response.AuthEnabled {
		t.Error("expected auth disabled without credentials")
	}
	if response.SessionStore != "memory" {
		t.Errorf("expected memory session store, got %q", response.SessionStore)
	}
	if response.AnalyticsSource != "backend" {
		t.Errorf("expected backend analytics source, got %q", response.AnalyticsSource)
	}
}

func TestConfigHandler_Get_AuthEnabled(t *testing.T) {
	handler := NewConfigHandler(authConfig(), "mariadb")

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/config", nil))

	var response ConfigResponse
	parseJSONResponse(t, recorder, &response)
	if !response.AuthEnabled {
		t.Error("expected auth enabled")
	}
	if response.AnalyticsSource != "mariadb" {
		t.Errorf("expected mariadb analytics source, got %q", response.AnalyticsSource)
	}
}

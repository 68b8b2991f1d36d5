package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/roster"
)

func TestRespondJSON(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusCreated, map[string]any{"count": 42})

	assertStatusCode(t, recorder, http.StatusCreated)
	assertContentType(t, recorder, "application/json")

	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["count"] != float64(42) {
		t.Errorf("expected count 42, got %v", result["count"])
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondError(recorder, http.StatusNotFound, "camera slot not found")

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "camera slot not found")
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantField  string
	}{
		{
			name:       "validation error",
			err:        &roster.ValidationError{Field: "student_code", Message: "student code must contain digits only"},
			wantStatus: http.StatusBadRequest,
			wantError:  "student code must contain digits only",
			wantField:  "student_code",
		},
		{
			name:       "backend rejection keeps status and detail",
			err:        fmt.Errorf("create user: %w", &backend.APIError{Status: http.StatusConflict, Detail: "Student code already exists"}),
			wantStatus: http.StatusConflict,
			wantError:  "Student code already exists",
		},
		{
			name:       "backend server error",
			err:        &backend.APIError{Status: http.StatusInternalServerError, Detail: "Traceback"},
			wantStatus: http.StatusBadGateway,
			wantError:  "Traceback",
		},
		{
			name:       "transport error",
			err:        errors.New("could not send request: connection refused"),
			wantStatus: http.StatusBadGateway,
			wantError:  "attendance backend unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()

			respondServiceError(recorder, "test", tt.err)

			assertStatusCode(t, recorder, tt.wantStatus)
			var body validationResponse
			parseJSONResponse(t, recorder, &body)
			if body.Error != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, body.Error)
			}
			if body.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, body.Field)
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("entrance\r\n[auth] forged"); got != "entrance[auth] forged" {
		t.Errorf("expected newlines stripped, got %q", got)
	}
}

func TestIntParam(t *testing.T) {
	tests := []struct {
		value  string
		want   int
		wantOK bool
	}{
		{"7", 7, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		req := requestWithChiParams(httptest.NewRequest("GET", "/", nil), map[string]string{"id": tt.value})
		got, ok := intParam(req, "id")
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("intParam(%q) = %d, %v; want %d, %v", tt.value, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSubjectFilter(t *testing.T) {
	tests := []struct {
		query  string
		want   int
		wantOK bool
	}{
		{"", 0, true},
		{"?subject_id=all", 0, true},
		{"?subject_id=3", 3, true},
		{"?subject_id=x", 0, false},
		{"?subject_id=-2", 0, false},
	}
	for _, tt := range tests {
		got, ok := subjectFilter(httptest.NewRequest("GET", "/"+tt.query, nil))
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("subjectFilter(%q) = %d, %v; want %d, %v", tt.query, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()

	HealthCheck(recorder, httptest.NewRequest("GET", "/api/v1/health", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%s'", result["status"])
	}
}

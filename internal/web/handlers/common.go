package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/roster"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// validationResponse carries the field of a rejected form.
type validationResponse struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

// respondServiceError maps domain and backend errors to responses. Backend
// rejections keep their status class and "detail" text; transport failures
// become 502.
func respondServiceError(w http.ResponseWriter, op string, err error) {
	var v *roster.ValidationError
	if errors.As(err, &v) {
		respondJSON(w, http.StatusBadRequest, validationResponse{Error: v.Message, Field: v.Field})
		return
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadGateway
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		log.Printf("[api] %s: %s", op, sanitizeForLog(err.Error()))
		respondError(w, status, backend.ErrorDetail(err))
		return
	}

	log.Printf("[api] %s: %s", op, sanitizeForLog(err.Error()))
	respondError(w, http.StatusBadGateway, "attendance backend unavailable")
}

// intParam parses a positive integer URL parameter.
func intParam(r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// subjectFilter parses ?subject_id=; empty or "all" means every subject.
func subjectFilter(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("subject_id")
	if raw == "" || raw == "all" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/attendance-dashboard/internal/attendance"
	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/database"
	"github.com/kozaktomas/attendance-dashboard/internal/roster"
)

// ClassStartStore reads and writes per-subject class start overrides.
type ClassStartStore interface {
	database.ClassStartReader
	database.ClassStartWriter
}

// SubjectsHandler handles subject endpoints
type SubjectsHandler struct {
	roster   *roster.Service
	store    ClassStartStore
	resolver *attendance.StartResolver
}

// NewSubjectsHandler creates a new subjects handler
func NewSubjectsHandler(r *roster.Service, store ClassStartStore, resolver *attendance.StartResolver) *SubjectsHandler {
	return &SubjectsHandler{roster: r, store: store, resolver: resolver}
}

// SubjectResponse is a subject with its effective class start time
type SubjectResponse struct {
	backend.Subject
	ClassStart         string `json:"class_start"`
	ClassStartOverride bool   `json:"class_start_override"`
}

// ClassStartResponse describes the class start of one subject
type ClassStartResponse struct {
	SubjectID  int    `json:"subject_id"`
	ClassStart string `json:"class_start"`
	Override   bool   `json:"override"`
}

// ClassStartRequest sets or clears (empty) a class start override
type ClassStartRequest struct {
	ClassStart string `json:"class_start"`
}

// List returns all subjects with their class start times.
func (h *SubjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.roster.Subjects(r.Context())
	if err != nil {
		respondServiceError(w, "list subjects", err)
		return
	}

	overrides := make(map[int]bool)
	stored, err := h.store.ClassStarts(r.Context())
	if err != nil {
		log.Printf("[subjects] failed to read class start overrides: %v", err)
	}
	for _, o := range stored {
		overrides[o.SubjectID] = true
	}

	out := make([]SubjectResponse, 0, len(subjects))
	for _, s := range subjects {
		schedule := ""
		if s.Schedule != nil {
			schedule = *s.Schedule
		}
		out = append(out, SubjectResponse{
			Subject:            s,
			ClassStart:         h.resolver.Resolve(r.Context(), s.SubjectID, schedule),
			ClassStartOverride: overrides[s.SubjectID],
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// Create adds a subject.
func (h *SubjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in roster.SubjectInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	subject, err := h.roster.CreateSubject(r.Context(), in)
	if err != nil {
		respondServiceError(w, "create subject", err)
		return
	}

	log.Printf("[subjects] created %q", sanitizeForLog(strings.TrimSpace(in.Name)))
	respondJSON(w, http.StatusCreated, subject)
}

// Delete removes a subject and its class start override.
func (h *SubjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid subject id")
		return
	}

	if err := h.roster.DeleteSubject(r.Context(), id); err != nil {
		respondServiceError(w, fmt.Sprintf("delete subject %d", id), err)
		return
	}
	if err := h.store.DeleteClassStart(r.Context(), id); err != nil {
		log.Printf("[subjects] failed to drop class start of subject %d: %v", id, err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetClassStart returns the effective class start of a subject.
func (h *SubjectsHandler) GetClassStart(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid subject id")
		return
	}

	start, override, err := h.store.ClassStart(r.Context(), id)
	if err != nil {
		log.Printf("[subjects] failed to read class start of subject %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to read class start")
		return
	}
	if !override {
		start = h.scheduleStart(r, id)
	}

	respondJSON(w, http.StatusOK, ClassStartResponse{SubjectID: id, ClassStart: start, Override: override})
}

// scheduleStart resolves the class start from the subject schedule, falling
// back to the default when the backend is unreachable.
func (h *SubjectsHandler) scheduleStart(r *http.Request, id int) string {
	subjects, err := h.roster.Subjects(r.Context())
	if err != nil {
		return h.resolver.Default()
	}
	for _, s := range subjects {
		if s.SubjectID == id && s.Schedule != nil {
			if start, ok := attendance.ScheduleStart(*s.Schedule); ok {
				return start
			}
		}
	}
	return h.resolver.Default()
}

// SetClassStart stores an HH:MM override. An empty value clears it.
func (h *SubjectsHandler) SetClassStart(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid subject id")
		return
	}

	var req ClassStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	start := strings.TrimSpace(req.ClassStart)
	if start == "" {
		if err := h.store.DeleteClassStart(r.Context(), id); err != nil {
			log.Printf("[subjects] failed to clear class start of subject %d: %v", id, err)
			respondError(w, http.StatusInternalServerError, "failed to clear class start")
			return
		}
		respondJSON(w, http.StatusOK, ClassStartResponse{SubjectID: id, ClassStart: h.scheduleStart(r, id)})
		return
	}

	hour, minute, err := attendance.ParseClock(start)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, validationResponse{Error: "class start must be HH:MM", Field: "class_start"})
		return
	}
	start = fmt.Sprintf("%02d:%02d", hour, minute)

	if err := h.store.SetClassStart(r.Context(), id, start); err != nil {
		log.Printf("[subjects] failed to save class start of subject %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to save class start")
		return
	}

	log.Printf("[subjects] class start of subject %d set to %s", id, start)
	respondJSON(w, http.StatusOK, ClassStartResponse{SubjectID: id, ClassStart: start, Override: true})
}

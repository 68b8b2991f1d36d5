package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/attendance-dashboard/internal/attendance"
	"github.com/kozaktomas/attendance-dashboard/internal/database"
	"github.com/kozaktomas/attendance-dashboard/internal/roster"
)

const subjectsBody = `[
	{"subject_id":1,"subject_name":"Networks","section":"2","schedule":"Monday 08:00-10:00"},
	{"subject_id":2,"subject_name":"Databases","section":null,"schedule":null}
]`

func setupSubjects(t *testing.T, extra map[string]http.HandlerFunc) (*SubjectsHandler, *database.MemoryStore) {
	t.Helper()
	handlers := map[string]http.HandlerFunc{
		"/subjects": jsonHandler(http.StatusOK, subjectsBody),
	}
	for k, v := range extra {
		handlers[k] = v
	}
	_, client := setupMockBackend(t, handlers)

	store := database.NewMemoryStore()
	resolver := attendance.NewStartResolver(store, "09:30")
	return NewSubjectsHandler(roster.NewService(client, 4, 50), store, resolver), store
}

func TestSubjectsHandler_List(t *testing.T) {
	handler, store := setupSubjects(t, nil)
	store.SetClassStart(context.Background(), 2, "13:15")

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/subjects", nil))

	assertStatusCode(t, recorder, http.StatusOK)

	var subjects []SubjectResponse
	parseJSONResponse(t, recorder, &subjects)
	if len(subjects) != 2 {
		t.Fatalf("expected 2 subjects, got %d", len(subjects))
	}
	if subjects[0].ClassStart != "08:00" || subjects[0].ClassStartOverride {
		t.Errorf("expected schedule start for Networks, got %+v", subjects[0])
	}
	if subjects[1].ClassStart != "13:15" || !subjects[1].ClassStartOverride {
		t.Errorf("expected override for Databases, got %+v", subjects[1])
	}
}

func TestSubjectsHandler_Create(t *testing.T) {
	var received map[string]any
	handler, _ := setupSubjects(t, map[string]http.HandlerFunc{
		"POST /subjects": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&received)
			jsonHandler(http.StatusOK, `{"subject_id":3,"subject_name":"Security"}`)(w, r)
		},
	})

	body := bytes.NewBufferString(`{"subject_name":" Security ","section":"","schedule":""}`)
	recorder := httptest.NewRecorder()
	handler.Create(recorder, httptest.NewRequest("POST", "/api/v1/subjects", body))

	assertStatusCode(t, recorder, http.StatusCreated)
	if received["subject_name"] != "Security" {
		t.Errorf("expected trimmed name, got %v", received["subject_name"])
	}
	if v, ok := received["section"]; !ok || v != nil {
		t.Errorf("expected null section, got %v", v)
	}
}

func TestSubjectsHandler_Create_Validation(t *testing.T) {
	handler, _ := setupSubjects(t, nil)

	body := bytes.NewBufferString(`{"subject_name":"Security","section":"A1"}`)
	recorder := httptest.NewRecorder()
	handler.Create(recorder, httptest.NewRequest("POST", "/api/v1/subjects", body))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	var resp validationResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Field != "section" {
		t.Errorf("expected section field error, got %+v", resp)
	}
}

func TestSubjectsHandler_Delete(t *testing.T) {
	deleted := false
	handler, store := setupSubjects(t, map[string]http.HandlerFunc{
		"DELETE /subjects/1": func(w http.ResponseWriter, r *http.Request) {
			deleted = true
			w.WriteHeader(http.StatusOK)
		},
	})
	store.SetClassStart(context.Background(), 1, "08:10")

	req := requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/subjects/1", nil), map[string]string{"id": "1"})
	recorder := httptest.NewRecorder()
	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusNoContent)
	if !deleted {
		t.Error("expected backend delete")
	}
	if _, ok, _ := store.ClassStart(context.Background(), 1); ok {
		t.Error("expected class start override to be dropped")
	}
}

func TestSubjectsHandler_ClassStart(t *testing.T) {
	handler, store := setupSubjects(t, nil)
	ctx := context.Background()

	get := func() ClassStartResponse {
		t.Helper()
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/subjects/1/class-start", nil), map[string]string{"id": "1"})
		recorder := httptest.NewRecorder()
		handler.GetClassStart(recorder, req)
		assertStatusCode(t, recorder, http.StatusOK)
		var resp ClassStartResponse
		parseJSONResponse(t, recorder, &resp)
		return resp
	}
	put := func(body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest("PUT", "/api/v1/subjects/1/class-start", bytes.NewBufferString(body))
		req = requestWithChiParams(req, map[string]string{"id": "1"})
		recorder := httptest.NewRecorder()
		handler.SetClassStart(recorder, req)
		return recorder
	}

	if got := get(); got.ClassStart != "08:00" || got.Override {
		t.Errorf("expected schedule start, got %+v", got)
	}

	recorder := put(`{"class_start":"8:05"}`)
	assertStatusCode(t, recorder, http.StatusOK)
	if start, _, _ := store.ClassStart(ctx, 1); start != "08:05" {
		t.Errorf("expected normalized 08:05, got %q", start)
	}
	if got := get(); got.ClassStart != "08:05" || !got.Override {
		t.Errorf("expected override, got %+v", got)
	}

	recorder = put(`{"class_start":"25:00"}`)
	assertStatusCode(t, recorder, http.StatusBadRequest)

	recorder = put(`{"class_start":""}`)
	assertStatusCode(t, recorder, http.StatusOK)
	if got := get(); got.ClassStart != "08:00" || got.Override {
		t.Errorf("expected override cleared, got %+v", got)
	}
}

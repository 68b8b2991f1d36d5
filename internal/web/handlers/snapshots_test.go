package handlers

import (
	"bytes"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kozaktomas/attendance-dashboard/internal/constants"
)

func setupSnapshots(t *testing.T) (*SnapshotsHandler, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32

	var jpegData bytes.Buffer
	jpeg.Encode(&jpegData, image.NewRGBA(image.Rect(0, 0, 640, 480)), nil)

	_, client := setupMockBackend(t, map[string]http.HandlerFunc{
		"GET /snapshots/2026/a.jpg": func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(jpegData.Bytes())
		},
		"GET /snapshots/2026/broken.jpg": func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("not an image"))
		},
	})
	return NewSnapshotsHandler(client), &hits
}

func TestSnapshotsHandler_Get(t *testing.T) {
	handler, _ := setupSnapshots(t)

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/snapshots/2026/a.jpg", nil), map[string]string{"*": "2026/a.jpg"})
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)

	// stored paths carry the snapshots/ prefix and may use backslashes
	req = requestWithChiParams(httptest.NewRequest("GET", "/", nil), map[string]string{"*": `snapshots\2026\a.jpg`})
	recorder = httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "image/jpeg")
	if cc := recorder.Header().Get("Cache-Control"); cc != "private, max-age=3600" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
}

func TestSnapshotsHandler_Thumbnail(t *testing.T) {
	handler, _ := setupSnapshots(t)

	req := httptest.NewRequest("GET", "/api/v1/snapshots/snapshots/2026/a.jpg?size=thumb", nil)
	req = requestWithChiParams(req, map[string]string{"*": "snapshots/2026/a.jpg"})
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	img, err := jpeg.Decode(recorder.Body)
	if err != nil {
		t.Fatalf("expected a JPEG thumbnail: %v", err)
	}
	if b := img.Bounds(); b.Dx() != constants.DefaultThumbnailSize || b.Dy() != 240 {
		t.Errorf("expected %dx240, got %dx%d", constants.DefaultThumbnailSize, b.Dx(), b.Dy())
	}
}

func TestSnapshotsHandler_Undecodable(t *testing.T) {
	handler, _ := setupSnapshots(t)

	req := httptest.NewRequest("GET", "/api/v1/snapshots/snapshots/2026/broken.jpg?size=100", nil)
	req = requestWithChiParams(req, map[string]string{"*": "snapshots/2026/broken.jpg"})
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	if cc := recorder.Header().Get("Cache-Control"); cc != "" {
		t.Errorf("expected no caching of errors, got %q", cc)
	}
}

func TestSnapshotsHandler_RejectsBadInput(t *testing.T) {
	handler, hits := setupSnapshots(t)

	tests := []struct {
		name  string
		path  string
		query string
	}{
		{"empty path", "", ""},
		{"traversal", "snapshots/../../etc/passwd", ""},
		{"bad size", "snapshots/2026/a.jpg", "?size=big"},
		{"negative size", "snapshots/2026/a.jpg", "?size=-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest("GET", "/"+tt.query, nil), map[string]string{"*": tt.path})
			recorder := httptest.NewRecorder()

			handler.Get(recorder, req)

			assertStatusCode(t, recorder, http.StatusBadRequest)
		})
	}
	if hits.Load() != 0 {
		t.Errorf("expected no backend requests, got %d", hits.Load())
	}
}

func TestThumbnailSize(t *testing.T) {
	tests := []struct {
		query  string
		want   int
		wantOK bool
	}{
		{"", 0, true},
		{"?size=thumb", constants.DefaultThumbnailSize, true},
		{"?size=150", 150, true},
		{"?size=99999", constants.MaxThumbnailSize, true},
		{"?size=0", 0, false},
		{"?size=x", 0, false},
	}
	for _, tt := range tests {
		got, ok := thumbnailSize(httptest.NewRequest("GET", "/"+tt.query, nil))
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("thumbnailSize(%q) = %d, %v; want %d, %v", tt.query, got, ok, tt.want, tt.wantOK)
		}
	}
}

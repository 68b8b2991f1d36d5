package handlers

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/constants"
	"github.com/kozaktomas/attendance-dashboard/internal/thumbnail"
)

// SnapshotOpener opens attendance snapshot images stored by the backend.
type SnapshotOpener interface {
	OpenSnapshot(ctx context.Context, p string) (*backend.Stream, error)
}

// SnapshotsHandler proxies attendance snapshots
type SnapshotsHandler struct {
	snapshots SnapshotOpener
}

// NewSnapshotsHandler creates a new snapshots handler
func NewSnapshotsHandler(s SnapshotOpener) *SnapshotsHandler {
	return &SnapshotsHandler{snapshots: s}
}

// Get proxies the snapshot at the wildcard path, downsized when ?size= is given.
func (h *SnapshotsHandler) Get(w http.ResponseWriter, r *http.Request) {
	path := backend.SnapshotPath(chi.URLParam(r, "*"))
	if path == "" || strings.Contains(path, "..") {
		respondError(w, http.StatusBadRequest, "invalid snapshot path")
		return
	}

	size, ok := thumbnailSize(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid size")
		return
	}

	stream, err := h.snapshots.OpenSnapshot(r.Context(), path)
	if err != nil {
		respondServiceError(w, "open snapshot "+sanitizeForLog(path), err)
		return
	}
	serveImage(w, stream, size)
}

// thumbnailSize parses ?size=. Zero means the original image; "thumb" picks
// the default thumbnail size.
func thumbnailSize(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("size")
	switch raw {
	case "":
		return 0, true
	case "thumb":
		return constants.DefaultThumbnailSize, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return min(v, constants.MaxThumbnailSize), true
}

// serveImage writes stream to w, closing it. With a positive size the image
// is re-encoded as a JPEG thumbnail.
func serveImage(w http.ResponseWriter, stream *backend.Stream, size int) {
	defer stream.Body.Close()

	w.Header().Set("Cache-Control", "private, max-age=3600")

	if size <= 0 {
		contentType := stream.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		io.Copy(w, stream.Body)
		return
	}

	data, err := thumbnail.Resize(stream.Body, size)
	if err != nil {
		log.Printf("[images] thumbnail failed: %v", err)
		w.Header().Del("Cache-Control")
		respondError(w, http.StatusUnprocessableEntity, "image could not be decoded")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/kozaktomas/attendance-dashboard/internal/camera"
	"github.com/kozaktomas/attendance-dashboard/internal/database"
	"github.com/kozaktomas/attendance-dashboard/internal/metrics"
)

const (
	overlayPongWait   = 60 * time.Second
	overlayPingPeriod = (overlayPongWait * 9) / 10
	overlayWriteWait  = 10 * time.Second
	overlayReadLimit  = 512
	streamBufferSize  = 32 << 10
	defaultHistory    = 50
)

// CamerasHandler handles camera slot endpoints: source selection, the MJPEG
// proxy and the detection overlay.
type CamerasHandler struct {
	feed     *camera.Feed
	selector *camera.Selector
	history  database.AssignmentLog
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

// NewCamerasHandler creates a new cameras handler
func NewCamerasHandler(feed *camera.Feed, selector *camera.Selector, history database.AssignmentLog, m *metrics.Metrics) *CamerasHandler {
	return &CamerasHandler{
		feed:     feed,
		selector: selector,
		history:  history,
		metrics:  m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// List returns every slot with its source and viewer/channel state.
func (h *CamerasHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.feed.Status())
}

// Devices lists readable camera sources. Discovery failures yield an empty list.
func (h *CamerasHandler) Devices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.selector.Devices(r.Context()))
}

// AssignRequest represents a source assignment for a slot
type AssignRequest struct {
	Source string `json:"source"`
}

// Assign points a slot at a new source. The backend must accept the full
// mapping before anything changes locally.
func (h *CamerasHandler) Assign(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if err := h.selector.AssignSource(r.Context(), slot, req.Source); err != nil {
		var unknown *camera.UnknownSlotError
		if errors.As(err, &unknown) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondServiceError(w, "assign camera "+sanitizeForLog(slot), err)
		return
	}

	log.Printf("[cameras] %s -> %q", sanitizeForLog(slot), sanitizeForLog(req.Source))
	respondJSON(w, http.StatusOK, map[string]any{
		"mapping": h.selector.Mapping(),
	})
}

// History returns recent source assignments, newest first.
func (h *CamerasHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistory
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = v
	}

	entries, err := h.history.Assignments(r.Context(), limit)
	if err != nil {
		log.Printf("[cameras] failed to read assignment history: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read assignment history")
		return
	}
	if entries == nil {
		entries = []database.Assignment{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// Stream proxies the MJPEG stream of a slot. When the viewer is in error the
// static fallback frame is served instead. A source change ends the stream so
// the client reconnects to the new viewer.
func (h *CamerasHandler) Stream(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	viewer, ok := h.feed.Viewer(slot)
	if !ok {
		respondError(w, http.StatusNotFound, "camera slot not found")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-viewer.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	stream, err := viewer.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		serveFallback(w)
		return
	}
	defer stream.Body.Close()

	flusher, canFlush := w.(http.Flusher)

	contentType := stream.ContentType
	if contentType == "" {
		contentType = "multipart/x-mixed-replace; boundary=frame"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	h.metrics.StreamClients(slot, 1)
	defer h.metrics.StreamClients(slot, -1)

	buf := make([]byte, streamBufferSize)
	for {
		n, readErr := stream.Body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if ctx.Err() != nil || errors.Is(readErr, io.EOF) {
				return
			}
			viewer.Fail(readErr)
			return
		}
	}
}

func serveFallback(w http.ResponseWriter) {
	frame := camera.FallbackFrame()
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(frame)))
	w.WriteHeader(http.StatusOK)
	w.Write(frame)
}

// OverlayResponse is the projected detection overlay for one container size
type OverlayResponse struct {
	Slot      string              `json:"slot"`
	State     camera.ChannelState `json:"state"`
	Width     float64             `json:"width"`
	Height    float64             `json:"height"`
	Boxes     []camera.OverlayBox `json:"boxes"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type containerSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func parseContainerSize(r *http.Request) (containerSize, bool) {
	var size containerSize
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *float64
	}{{"width", &size.Width}, {"height", &size.Height}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return size, false
		}
		*p.dst = v
	}
	return size, true
}

func buildOverlay(slot string, ch *camera.Channel, frame camera.Frame, size containerSize) OverlayResponse {
	return OverlayResponse{
		Slot:      slot,
		State:     ch.State(),
		Width:     size.Width,
		Height:    size.Height,
		Boxes:     camera.Overlay(frame, size.Width, size.Height),
		UpdatedAt: frame.UpdatedAt,
	}
}

// Overlay returns the latest detections of a slot projected onto a
// width x height container. A missing or non-positive size yields no boxes.
func (h *CamerasHandler) Overlay(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	ch, ok := h.feed.Channel(slot)
	if !ok {
		respondError(w, http.StatusNotFound, "camera slot not found")
		return
	}

	size, ok := parseContainerSize(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid container size")
		return
	}

	respondJSON(w, http.StatusOK, buildOverlay(slot, ch, ch.Snapshot(), size))
}

// OverlayWS pushes the projected overlay of a slot on every detection update.
// The client sends {"width","height"} whenever its container is resized.
func (h *CamerasHandler) OverlayWS(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	ch, ok := h.feed.Channel(slot)
	if !ok {
		respondError(w, http.StatusNotFound, "camera slot not found")
		return
	}

	size, ok := parseContainerSize(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid container size")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[overlay %s] upgrade failed: %v", sanitizeForLog(slot), err)
		return
	}
	defer conn.Close()

	h.metrics.OverlayClients(slot, 1)
	defer h.metrics.OverlayClients(slot, -1)

	frames, unsubscribe := ch.Subscribe()
	defer unsubscribe()

	resizes := make(chan containerSize, 1)
	readerDone := make(chan struct{})
	go readContainerSizes(conn, resizes, readerDone)

	ticker := time.NewTicker(overlayPingPeriod)
	defer ticker.Stop()

	send := func(frame camera.Frame) error {
		conn.SetWriteDeadline(time.Now().Add(overlayWriteWait))
		return conn.WriteJSON(buildOverlay(slot, ch, frame, size))
	}

	current := ch.Snapshot()
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(overlayWriteWait))
				return
			}
			current = frame
			if err := send(current); err != nil {
				return
			}
		case s := <-resizes:
			size = s
			if err := send(current); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(overlayWriteWait)); err != nil {
				return
			}
		case <-readerDone:
			return
		}
	}
}

// readContainerSizes reads resize messages until the socket closes. Only the
// newest pending size is kept.
func readContainerSizes(conn *websocket.Conn, out chan containerSize, done chan struct{}) {
	defer close(done)

	conn.SetReadLimit(overlayReadLimit)
	conn.SetReadDeadline(time.Now().Add(overlayPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(overlayPongWait))
		return nil
	})

	for {
		var size containerSize
		if err := conn.ReadJSON(&size); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				continue
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(overlayPongWait))

		select {
		case out <- size:
		default:
			select {
			case <-out:
			default:
			}
			out <- size
		}
	}
}

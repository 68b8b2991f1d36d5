package camera

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/metrics"
)

// ViewerState is the display state of an MJPEG viewer.
type ViewerState int

const (
	Playing ViewerState = iota
	Error
)

func (s ViewerState) String() string {
	if s == Playing {
		return "playing"
	}
	return "error"
}

// MarshalText renders the state by name in JSON responses.
func (s ViewerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *ViewerState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "playing":
		*s = Playing
	case "error":
		*s = Error
	default:
		return fmt.Errorf("unknown viewer state %q", text)
	}
	return nil
}

// ErrNoSource is returned when a viewer has no source key.
var ErrNoSource = errors.New("no source")

// StreamOpener opens the backend MJPEG stream of a camera.
type StreamOpener interface {
	OpenMJPEG(ctx context.Context, cameraID, sourceKey string) (*backend.Stream, error)
}

// Viewer shows one MJPEG stream for a fixed (camera, key) pair. A viewer never
// changes its key: a new key gets a new viewer. Once in Error it stays there.
type Viewer struct {
	cameraID string
	key      string
	opener   StreamOpener
	metrics  *metrics.Metrics

	mu    sync.Mutex
	state ViewerState
	err   error

	done    chan struct{}
	retired sync.Once
}

// NewViewer creates a viewer for cameraID showing key. An empty key starts in
// Error without touching the network.
func NewViewer(cameraID, key string, opener StreamOpener, m *metrics.Metrics) *Viewer {
	v := &Viewer{cameraID: cameraID, key: key, opener: opener, metrics: m, state: Playing, done: make(chan struct{})}
	if key == "" {
		v.state = Error
		v.err = ErrNoSource
	}
	return v
}

// Key returns the source key this viewer was created for.
func (v *Viewer) Key() string {
	return v.key
}

// CameraID returns the camera this viewer belongs to.
func (v *Viewer) CameraID() string {
	return v.cameraID
}

// State returns the current state.
func (v *Viewer) State() ViewerState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Err returns the error that moved the viewer into Error, if any.
func (v *Viewer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Open opens the stream. It fails without a network call while in Error and
// moves the viewer into Error when the backend refuses the stream.
func (v *Viewer) Open(ctx context.Context) (*backend.Stream, error) {
	v.mu.Lock()
	if v.state == Error {
		err := v.err
		v.mu.Unlock()
		return nil, err
	}
	v.mu.Unlock()

	stream, err := v.opener.OpenMJPEG(ctx, v.cameraID, v.key)
	if err != nil {
		if ctx.Err() != nil {
			// the caller went away; not a stream failure
			return nil, ctx.Err()
		}
		v.Fail(err)
		return nil, err
	}
	return stream, nil
}

// Fail moves the viewer into Error. The first error is kept.
func (v *Viewer) Fail(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == Error {
		return
	}
	v.state = Error
	v.err = fmt.Errorf("stream %s: %w", v.cameraID, err)
	v.metrics.StreamError(v.cameraID)
	log.Printf("[camera %s] stream error: %v", v.cameraID, err)
}

// Done is closed once the viewer has been replaced by a newer one. Open
// streams should stop when it fires.
func (v *Viewer) Done() <-chan struct{} {
	return v.done
}

func (v *Viewer) retire() {
	v.retired.Do(func() { close(v.done) })
}

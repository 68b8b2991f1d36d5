package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Discover lists camera sources known to the backend. Every call hits the
// backend; results are never cached.
func (c *Client) Discover(ctx context.Context) ([]Device, error) {
	devices, err := doGetJSON[[]Device](ctx, c, "cameras_discover", "cameras/discover")
	if err != nil {
		return nil, fmt.Errorf("discover cameras: %w", err)
	}
	return *devices, nil
}

// GetCameraConfig returns the current slot mapping. Both the wrapped
// {"mapping": {...}} shape and a bare {"entrance": ..., "exit": ...} body are accepted.
func (c *Client) GetCameraConfig(ctx context.Context) (Mapping, error) {
	raw, err := doGetJSON[map[string]json.RawMessage](ctx, c, "cameras_config", "cameras/config")
	if err != nil {
		return nil, fmt.Errorf("get camera config: %w", err)
	}

	fields := *raw
	if nested, ok := fields["mapping"]; ok {
		fields = nil
		if err := json.Unmarshal(nested, &fields); err != nil {
			return nil, fmt.Errorf("get camera config: invalid mapping: %w", err)
		}
	}

	mapping := make(Mapping, len(fields))
	for slot, value := range fields {
		var src *string
		if err := json.Unmarshal(value, &src); err != nil {
			// numeric device indexes are sent as numbers by some backends
			var n json.Number
			if err := json.Unmarshal(value, &n); err != nil {
				continue
			}
			s := n.String()
			src = &s
		}
		if src != nil {
			mapping[slot] = *src
		} else {
			mapping[slot] = ""
		}
	}
	return mapping, nil
}

// SetCameraConfig replaces the slot mapping on the backend.
func (c *Client) SetCameraConfig(ctx context.Context, mapping Mapping) error {
	if err := doRequestRaw(ctx, c, "cameras_config", http.MethodPost, "cameras/config", mapping); err != nil {
		return fmt.Errorf("set camera config: %w", err)
	}
	return nil
}

// MJPEGURL is the backend URL of the MJPEG stream for a camera and source key.
func (c *Client) MJPEGURL(cameraID, sourceKey string) string {
	return c.resolveURL(mjpegEndpoint(cameraID, sourceKey))
}

func mjpegEndpoint(cameraID, sourceKey string) string {
	return withQuery("cameras/"+url.PathEscape(cameraID)+"/mjpeg", url.Values{"key": {sourceKey}})
}

// OpenMJPEG opens the multipart MJPEG stream of a camera. The caller must close the body.
func (c *Client) OpenMJPEG(ctx context.Context, cameraID, sourceKey string) (*Stream, error) {
	stream, err := c.openStream(ctx, "cameras_mjpeg", mjpegEndpoint(cameraID, sourceKey))
	if err != nil {
		return nil, fmt.Errorf("open mjpeg stream %s: %w", cameraID, err)
	}
	return stream, nil
}

// AIResultsURL is the WebSocket URL carrying detection results for a camera.
func (c *Client) AIResultsURL(cameraID string) string {
	return c.wsURL + "/ws/ai_results/" + url.PathEscape(cameraID)
}

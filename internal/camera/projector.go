package camera

import "math"

// Rect is a box in container (display) coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// OverlayBox is a projected detection ready for drawing.
type OverlayBox struct {
	Rect
	Label      string   `json:"label"`
	Matched    bool     `json:"matched"`
	Similarity *float64 `json:"similarity,omitempty"`
}

// Project maps box [x, y, w, h] from a reference frame of rw x rh onto a
// container of cw x ch. Components past the fourth are ignored. It returns
// false when the box should not be drawn: nil or short boxes, non-finite
// values, or a container/reference size that is not positive.
func Project(box []float64, cw, ch, rw, rh float64) (Rect, bool) {
	if len(box) < 4 {
		return Rect{}, false
	}
	if !positive(cw) || !positive(ch) || !positive(rw) || !positive(rh) {
		return Rect{}, false
	}
	for _, v := range box[:4] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Rect{}, false
		}
	}

	scaleX := cw / rw
	scaleY := ch / rh
	return Rect{
		Left:   box[0] * scaleX,
		Top:    box[1] * scaleY,
		Width:  box[2] * scaleX,
		Height: box[3] * scaleY,
	}, true
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Overlay projects every drawable result of frame onto a cw x ch container.
// Results whose box cannot be projected are skipped.
func Overlay(frame Frame, cw, ch float64) []OverlayBox {
	boxes := make([]OverlayBox, 0, len(frame.Results))
	for _, r := range frame.Results {
		rect, ok := Project(r.Box, cw, ch, frame.AIWidth, frame.AIHeight)
		if !ok {
			continue
		}
		boxes = append(boxes, OverlayBox{
			Rect:       rect,
			Label:      r.Label(),
			Matched:    r.Matched,
			Similarity: r.Similarity,
		})
	}
	return boxes
}

package camera

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kozaktomas/attendance-dashboard/internal/constants"
)

// Box is a detection rectangle [x, y, w, h] in AI reference coordinates.
// A box that is not an array of numbers decodes as nil and is never rendered.
type Box []float64

// UnmarshalJSON keeps a malformed box local to its result instead of failing
// the whole message.
func (b *Box) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		*b = nil
		return nil
	}
	*b = values
	return nil
}

// AIResult is one detected face.
type AIResult struct {
	Name        string   `json:"name"`
	Box         Box      `json:"box"`
	Similarity  *float64 `json:"similarity,omitempty"`
	Matched     bool     `json:"matched"`
	DisplayName string   `json:"display_name"`
}

// Label is the text shown on the overlay box.
func (r AIResult) Label() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Name
}

// Frame is the latest detection state of a camera. It is replaced wholesale
// on every accepted message.
type Frame struct {
	Results   []AIResult `json:"results"`
	AIWidth   float64    `json:"ai_width"`
	AIHeight  float64    `json:"ai_height"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Reference is the AI model frame size assumed when a message omits it.
type Reference struct {
	Width  float64
	Height float64
}

// DefaultReference is the 640x480 model resolution.
var DefaultReference = Reference{Width: constants.DefaultReferenceWidth, Height: constants.DefaultReferenceHeight}

func (r Reference) orDefault() Reference {
	if r.Width <= 0 {
		r.Width = DefaultReference.Width
	}
	if r.Height <= 0 {
		r.Height = DefaultReference.Height
	}
	return r
}

// EmptyFrame is the frame shown when no detections are known.
func EmptyFrame(ref Reference) Frame {
	return Frame{
		Results:   []AIResult{},
		AIWidth:   ref.Width,
		AIHeight:  ref.Height,
		UpdatedAt: time.Now(),
	}
}

type aiMessage struct {
	Results  *[]AIResult `json:"results"`
	AIWidth  float64     `json:"ai_width"`
	AIHeight float64     `json:"ai_height"`
}

// errNoResults marks a message that parsed but carried no results field.
var errNoResults = fmt.Errorf("message has no results")

// parseMessage decodes one AI channel message into a frame. Messages that are
// not JSON objects or lack "results" are rejected. A zero or missing reference
// size falls back to ref.
func parseMessage(data []byte, ref Reference) (Frame, error) {
	var msg aiMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Frame{}, fmt.Errorf("could not decode message: %w", err)
	}
	if msg.Results == nil {
		return Frame{}, errNoResults
	}

	frame := Frame{
		Results:   *msg.Results,
		AIWidth:   msg.AIWidth,
		AIHeight:  msg.AIHeight,
		UpdatedAt: time.Now(),
	}
	if frame.AIWidth == 0 {
		frame.AIWidth = ref.Width
	}
	if frame.AIHeight == 0 {
		frame.AIHeight = ref.Height
	}
	return frame, nil
}

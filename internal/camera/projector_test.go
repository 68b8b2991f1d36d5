package camera

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestProject(t *testing.T) {
	tests := []struct {
		name     string
		box      []float64
		cw, ch   float64
		rw, rh   float64
		expected Rect
	}{
		{"non-square scale", []float64{0, 0, 100, 100}, 200, 100, 640, 480, Rect{0, 0, 31.25, 100.0 * 100 / 480}},
		{"half size", []float64{64, 48, 64, 48}, 320, 240, 640, 480, Rect{32, 24, 32, 24}},
		{"identity", []float64{10, 20, 30, 40}, 640, 480, 640, 480, Rect{10, 20, 30, 40}},
		{"extra components ignored", []float64{10, 20, 30, 40, 0.99}, 640, 480, 640, 480, Rect{10, 20, 30, 40}},
		{"custom reference", []float64{100, 100, 200, 200}, 640, 360, 1280, 720, Rect{50, 50, 100, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Project(tt.box, tt.cw, tt.ch, tt.rw, tt.rh)
			if !ok {
				t.Fatal("expected box to render")
			}
			if !almostEqual(got.Left, tt.expected.Left) || !almostEqual(got.Top, tt.expected.Top) ||
				!almostEqual(got.Width, tt.expected.Width) || !almostEqual(got.Height, tt.expected.Height) {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestProject_DoNotRender(t *testing.T) {
	tests := []struct {
		name   string
		box    []float64
		cw, ch float64
		rw, rh float64
	}{
		{"nil box", nil, 640, 480, 640, 480},
		{"short box", []float64{1, 2, 3}, 640, 480, 640, 480},
		{"NaN", []float64{math.NaN(), 0, 10, 10}, 640, 480, 640, 480},
		{"Inf", []float64{0, 0, math.Inf(1), 10}, 640, 480, 640, 480},
		{"zero container", []float64{0, 0, 10, 10}, 0, 480, 640, 480},
		{"negative reference", []float64{0, 0, 10, 10}, 640, 480, -640, 480},
		{"zero reference height", []float64{0, 0, 10, 10}, 640, 480, 640, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Project(tt.box, tt.cw, tt.ch, tt.rw, tt.rh); ok {
				t.Error("expected box not to render")
			}
		})
	}
}

func TestOverlay(t *testing.T) {
	frame := Frame{
		AIWidth:  640,
		AIHeight: 480,
		Results: []AIResult{
			{Name: "6401", DisplayName: "Somchai", Box: Box{64, 48, 64, 48}, Matched: true},
			{Name: "unknown", Box: Box{1, 2}},
			{Name: "Unknown", Box: Box{0, 0, 640, 480}},
		},
	}

	boxes := Overlay(frame, 320, 240)
	if len(boxes) != 2 {
		t.Fatalf("expected 2 drawable boxes, got %d", len(boxes))
	}
	if boxes[0].Label != "Somchai" || !boxes[0].Matched {
		t.Errorf("unexpected first box: %+v", boxes[0])
	}
	if boxes[0].Left != 32 || boxes[0].Width != 32 {
		t.Errorf("unexpected projection: %+v", boxes[0].Rect)
	}
	if boxes[1].Label != "Unknown" || boxes[1].Width != 320 || boxes[1].Height != 240 {
		t.Errorf("unexpected second box: %+v", boxes[1])
	}

	if got := Overlay(frame, 0, 240); len(got) != 0 {
		t.Errorf("expected nothing for zero-width container, got %d", len(got))
	}
}

func TestParseMessage(t *testing.T) {
	t.Run("results replace frame", func(t *testing.T) {
		frame, err := parseMessage([]byte(`{"results":[{"name":"a","box":[1,2,3,4],"matched":true,"display_name":"A"}],"ai_width":1280,"ai_height":720}`), DefaultReference)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(frame.Results) != 1 || frame.AIWidth != 1280 || frame.AIHeight != 720 {
			t.Errorf("unexpected frame: %+v", frame)
		}
	})

	t.Run("empty results clear boxes", func(t *testing.T) {
		frame, err := parseMessage([]byte(`{"results":[]}`), DefaultReference)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if frame.Results == nil || len(frame.Results) != 0 {
			t.Errorf("expected empty non-nil results, got %v", frame.Results)
		}
		if frame.AIWidth != 640 || frame.AIHeight != 480 {
			t.Errorf("expected default reference size, got %vx%v", frame.AIWidth, frame.AIHeight)
		}
	})

	t.Run("configured reference fills missing size", func(t *testing.T) {
		frame, err := parseMessage([]byte(`{"results":[],"ai_width":0}`), Reference{Width: 1920, Height: 1080})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if frame.AIWidth != 1920 || frame.AIHeight != 1080 {
			t.Errorf("expected 1920x1080, got %vx%v", frame.AIWidth, frame.AIHeight)
		}
	})

	t.Run("missing results dropped", func(t *testing.T) {
		if _, err := parseMessage([]byte(`{"ai_width":640,"ai_height":480}`), DefaultReference); err == nil {
			t.Error("expected message without results to be rejected")
		}
	})

	t.Run("invalid JSON dropped", func(t *testing.T) {
		if _, err := parseMessage([]byte(`not json`), DefaultReference); err == nil {
			t.Error("expected invalid JSON to be rejected")
		}
	})

	t.Run("malformed box stays local", func(t *testing.T) {
		frame, err := parseMessage([]byte(`{"results":[{"name":"a","box":"oops"},{"name":"b","box":[0,0,10,10]}]}`), DefaultReference)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(frame.Results) != 2 || frame.Results[0].Box != nil || len(frame.Results[1].Box) != 4 {
			t.Errorf("unexpected results: %+v", frame.Results)
		}
	})
}

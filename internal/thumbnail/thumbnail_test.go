package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{1280, 720, 320, 320, 180},
		{720, 1280, 320, 180, 320},
		{200, 100, 320, 200, 100},
		{5000, 1, 100, 100, 1},
		{400, 400, 320, 320, 320},
	}
	for _, tt := range tests {
		w, h := Fit(tt.w, tt.h, tt.max)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("Fit(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestResize(t *testing.T) {
	data, err := Resize(bytes.NewReader(pngImage(t, 640, 480)), 160)
	if err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if cfg.Width != 160 || cfg.Height != 120 {
		t.Errorf("expected 160x120, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestResize_SmallImageReencoded(t *testing.T) {
	data, err := Resize(bytes.NewReader(pngImage(t, 50, 40)), 160)
	if err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if cfg.Width != 50 || cfg.Height != 40 {
		t.Errorf("expected original size, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestResize_Errors(t *testing.T) {
	if _, err := Resize(strings.NewReader("not an image"), 100); err == nil {
		t.Error("expected decode error")
	}
	if _, err := Resize(bytes.NewReader(pngImage(t, 10, 10)), 0); err == nil {
		t.Error("expected error for zero size")
	}
}

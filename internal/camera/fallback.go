package camera

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FallbackMessage is drawn on the placeholder frame of a failed or unassigned stream.
const FallbackMessage = "Stream error or no source."

const (
	fallbackWidth  = 640
	fallbackHeight = 480
)

var (
	fallbackOnce sync.Once
	fallbackJPEG []byte
)

// FallbackFrame returns the placeholder JPEG shown instead of a stream.
// It is rendered once and shared.
func FallbackFrame() []byte {
	fallbackOnce.Do(func() {
		fallbackJPEG = renderFallback(fallbackWidth, fallbackHeight, FallbackMessage)
	})
	return fallbackJPEG
}

func renderFallback(width, height int, msg string) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 24, G: 24, B: 27, A: 255}), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, msg).Ceil()
	x := (width - textWidth) / 2
	y := height/2 + face.Metrics().Ascent.Ceil()/2
	if x < 0 {
		x = 0
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 161, G: 161, B: 170, A: 255}),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(msg)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		// in-memory encode of an RGBA image cannot fail
		return nil
	}
	return buf.Bytes()
}

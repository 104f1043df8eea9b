package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const PlaceholderMessage = "Data unavailable"

// Placeholder returns a PNG of the requested size carrying only message. It
// stands in for a chart whose data could not be fetched or drawn.
func Placeholder(opts Options, dark bool, message string) ([]byte, error) {
	w, h := opts.Bounded().Pixels()
	bg := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	fg := color.RGBA{R: 96, G: 96, B: 96, A: 255}
	if dark {
		bg = color.RGBA{R: 18, G: 18, B: 18, A: 255}
		fg = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	dr := &font.Drawer{Dst: img, Src: image.NewUniform(fg), Face: face}
	tw := dr.MeasureString(message).Ceil()
	x := max(0, (w-tw)/2)
	y := (h + face.Metrics().Ascent.Ceil()) / 2
	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(message)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

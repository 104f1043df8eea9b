package render

import (
	"math"
	"net/url"
	"strconv"
)

const (
	DefaultWidth  = 1000
	DefaultHeight = 625
	DefaultDPR    = 2
	DefaultZoom   = 1.0

	minSide = 100
	maxSide = 2400
	minDPR  = 1
	maxDPR  = 4
	minZoom = 0.5
	maxZoom = 3.0

	// MaxPixels bounds the raster of a single render (width*height*dp^2).
	MaxPixels = 16_000_000
)

// Options are the output parameters that change pixels without being part
// of the resolved chart state.
type Options struct {
	Width            int
	Height           int
	DevicePixelRatio int
	Zoom             float64
}

func DefaultOptions() Options {
	return Options{Width: DefaultWidth, Height: DefaultHeight, DevicePixelRatio: DefaultDPR, Zoom: DefaultZoom}
}

// ParseOptions reads width, height, dp and z from the query. Malformed values
// fall back to the default and out-of-range values are clamped.
func ParseOptions(q url.Values) Options {
	o := DefaultOptions()
	if v, ok := parseInt(q.Get("width")); ok {
		o.Width = clampInt(v, minSide, maxSide)
	}
	if v, ok := parseInt(q.Get("height")); ok {
		o.Height = clampInt(v, minSide, maxSide)
	}
	if v, ok := parseInt(q.Get("dp")); ok {
		o.DevicePixelRatio = clampInt(v, minDPR, maxDPR)
	}
	if v, err := strconv.ParseFloat(q.Get("z"), 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		o.Zoom = math.Min(math.Max(v, minZoom), maxZoom)
	}
	return o.Bounded()
}

// Bounded clamps o to the option ranges and lowers the device pixel ratio
// until the raster fits MaxPixels. maxSide*maxSide is below MaxPixels, so a
// ratio of 1 always fits.
func (o Options) Bounded() Options {
	o.DevicePixelRatio = clampInt(o.DevicePixelRatio, minDPR, maxDPR)
	o.Width = clampInt(o.Width, minSide, maxSide)
	o.Height = clampInt(o.Height, minSide, maxSide)

	for o.DevicePixelRatio > minDPR && o.pixelCount() > MaxPixels {
		o.DevicePixelRatio--
	}
	return o
}

func (o Options) pixelCount() int {
	w, h := o.Pixels()
	return w * h
}

// Pixels is the size of the produced image.
func (o Options) Pixels() (int, int) {
	return o.Width * o.DevicePixelRatio, o.Height * o.DevicePixelRatio
}

// CacheParams returns the option values mixed into the cache digest.
func (o Options) CacheParams() map[string]any {
	return map[string]any{
		"width":  o.Width,
		"height": o.Height,
		"dp":     o.DevicePixelRatio,
		"z":      o.Zoom,
	}
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// accept "800.0" style values from chart libraries
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(math.Round(f)), true
	}
	return v, true
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

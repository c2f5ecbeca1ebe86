// Package decode turns a live frame stream into at most one classified
// barcode result per scan session.
package decode

import (
	"image"

	"github.com/teslashibe/go-barcode/pkg/barcode"
	"github.com/teslashibe/go-barcode/pkg/camera"
)

// Rect is a normalized rectangle (0-1) with its origin at the top left of
// the image.
type Rect struct {
	X, Y float64 // Origin
	W, H float64 // Width and height
}

// FullFrame is the default region of interest.
var FullFrame = Rect{X: 0, Y: 0, W: 1, H: 1}

// Empty reports whether r covers no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Pixels returns r scaled to bounds, clipped to bounds.
func (r Rect) Pixels(bounds image.Rectangle) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	px := image.Rect(
		bounds.Min.X+int(r.X*w),
		bounds.Min.Y+int(r.Y*h),
		bounds.Min.X+int((r.X+r.W)*w+0.5),
		bounds.Min.Y+int((r.Y+r.H)*h+0.5),
	)
	return px.Intersect(bounds)
}

// Request is one detector invocation.
type Request struct {
	Image            image.Image
	Symbologies      []barcode.Symbology // Accepted formats, never empty
	RegionOfInterest Rect
	Intrinsics       *camera.Intrinsics // Optional camera matrix
	Orientation      camera.VideoOrientation
}

// Observation is one symbol found by a detector. Observations are ordered
// best first.
type Observation struct {
	Payload    string
	Symbology  barcode.Symbology
	Confidence float64 // 0-1
}

// Detector is the interface for symbol detection backends.
type Detector interface {
	// Detect finds symbols of the requested symbologies inside the
	// region of interest. No match is not an error.
	Detect(req Request) ([]Observation, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(req Request) ([]Observation, error)

// Detect implements Detector.
func (f DetectorFunc) Detect(req Request) ([]Observation, error) { return f(req) }

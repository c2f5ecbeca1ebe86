package decode

// ScreenBounds reports the size of the screen the scan frame is laid out
// on. camera.OrientationSource satisfies it.
type ScreenBounds interface {
	ScreenBounds() (width, height float64, ok bool)
}

// ScanFrame is the on-screen scan rectangle in screen points.
type ScanFrame struct {
	X, Y          float64
	Width, Height float64
}

// Project converts an on-screen rectangle into normalized image
// coordinates. The result is clipped to the unit square; false is returned
// when the screen size is unknown or the projection is empty.
func Project(frame ScanFrame, screenWidth, screenHeight float64) (Rect, bool) {
	if screenWidth <= 0 || screenHeight <= 0 {
		return Rect{}, false
	}

	x0 := clamp01(frame.X / screenWidth)
	y0 := clamp01(frame.Y / screenHeight)
	x1 := clamp01((frame.X + frame.Width) / screenWidth)
	y1 := clamp01((frame.Y + frame.Height) / screenHeight)

	r := Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
	if r.Empty() {
		return Rect{}, false
	}
	return r, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

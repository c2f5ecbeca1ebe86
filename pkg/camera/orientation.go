package camera

// initialVideoOrientation picks the stream rotation when a session starts.
// The orientation constraint wins over a device held the other way; a
// device whose orientation has no mapping (unknown or flat) falls back to
// the screen aspect.
func initialVideoOrientation(model OrientationModel, src OrientationSource) VideoOrientation {
	device := src.DeviceOrientation()

	switch {
	case model == Portrait && !device.IsPortrait():
		return VideoPortrait
	case model == Landscape && !device.IsLandscape():
		return VideoLandscapeRight
	}

	if vo, ok := device.VideoOrientation(); ok {
		return vo
	}
	if w, h, ok := src.ScreenBounds(); ok && w > h {
		return VideoLandscapeRight
	}
	return VideoPortrait
}

// StaticOrientation is a fixed OrientationSource.
type StaticOrientation struct {
	Device DeviceOrientation
	Width  float64
	Height float64
}

// DeviceOrientation implements OrientationSource.
func (s StaticOrientation) DeviceOrientation() DeviceOrientation { return s.Device }

// ScreenBounds implements OrientationSource.
func (s StaticOrientation) ScreenBounds() (float64, float64, bool) {
	return s.Width, s.Height, s.Width > 0 && s.Height > 0
}

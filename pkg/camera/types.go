// Package camera selects, configures and reconfigures capture devices and
// routes their frames to a consumer.
package camera

import "fmt"

// CameraType is the physical device class. Zoom factors below 1.0 are
// realised by switching to the zoom-out (ultra wide) device.
type CameraType int

const (
	Regular CameraType = iota
	ZoomOut
)

func (t CameraType) String() string {
	switch t {
	case Regular:
		return "regular"
	case ZoomOut:
		return "zoomOut"
	default:
		return fmt.Sprintf("CameraType(%d)", int(t))
	}
}

// ParseCameraType parses "regular" or "zoomOut" (also "wide", "ultrawide").
func ParseCameraType(s string) (CameraType, error) {
	switch s {
	case "regular", "wide":
		return Regular, nil
	case "zoomOut", "zoomout", "ultrawide":
		return ZoomOut, nil
	}
	return Regular, fmt.Errorf("camera: unknown camera type %q", s)
}

// Direction is the side of the device the camera faces.
type Direction int

const (
	Back Direction = iota
	Front
)

func (d Direction) String() string {
	if d == Front {
		return "front"
	}
	return "back"
}

// ParseDirection parses "back" or "front".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "back", "rear":
		return Back, nil
	case "front", "user":
		return Front, nil
	}
	return Back, fmt.Errorf("camera: unknown direction %q", s)
}

// OrientationModel constrains the orientation of the scan surface.
type OrientationModel int

const (
	Adaptive OrientationModel = iota
	Portrait
	Landscape
)

func (o OrientationModel) String() string {
	switch o {
	case Portrait:
		return "portrait"
	case Landscape:
		return "landscape"
	default:
		return "adaptive"
	}
}

// ParseOrientationModel parses "adaptive", "portrait" or "landscape".
func ParseOrientationModel(s string) (OrientationModel, error) {
	switch s {
	case "adaptive", "":
		return Adaptive, nil
	case "portrait":
		return Portrait, nil
	case "landscape":
		return Landscape, nil
	}
	return Adaptive, fmt.Errorf("camera: unknown orientation %q", s)
}

// DeviceOrientation is the physical orientation of the device.
type DeviceOrientation int

const (
	OrientationUnknown DeviceOrientation = iota
	OrientationPortrait
	OrientationPortraitUpsideDown
	OrientationLandscapeLeft
	OrientationLandscapeRight
	OrientationFaceUp
	OrientationFaceDown
)

// IsPortrait reports whether the device is held upright or upside down.
func (o DeviceOrientation) IsPortrait() bool {
	return o == OrientationPortrait || o == OrientationPortraitUpsideDown
}

// IsLandscape reports whether the device is held sideways.
func (o DeviceOrientation) IsLandscape() bool {
	return o == OrientationLandscapeLeft || o == OrientationLandscapeRight
}

// VideoOrientation maps the device orientation to the stream rotation.
// Landscape is mirrored: a device rotated left shows the stream rotated
// right. Unknown and flat orientations have no mapping.
func (o DeviceOrientation) VideoOrientation() (VideoOrientation, bool) {
	switch o {
	case OrientationPortrait:
		return VideoPortrait, true
	case OrientationPortraitUpsideDown:
		return VideoPortraitUpsideDown, true
	case OrientationLandscapeLeft:
		return VideoLandscapeRight, true
	case OrientationLandscapeRight:
		return VideoLandscapeLeft, true
	}
	return VideoPortrait, false
}

// VideoOrientation is the rotation applied to the captured stream.
type VideoOrientation int

const (
	VideoPortrait VideoOrientation = iota
	VideoPortraitUpsideDown
	VideoLandscapeLeft
	VideoLandscapeRight
)

func (v VideoOrientation) String() string {
	switch v {
	case VideoPortraitUpsideDown:
		return "portraitUpsideDown"
	case VideoLandscapeLeft:
		return "landscapeLeft"
	case VideoLandscapeRight:
		return "landscapeRight"
	default:
		return "portrait"
	}
}

// Property identifies a queryable camera capability.
type Property int

const (
	PropertyZoomFactor Property = iota
	PropertyTorch
)

func (p Property) String() string {
	if p == PropertyTorch {
		return "torch"
	}
	return "zoomFactor"
}

// Surface is the size of the video display surface.
type Surface struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

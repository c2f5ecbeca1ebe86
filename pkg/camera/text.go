package camera

import "fmt"

var deviceOrientationNames = map[DeviceOrientation]string{
	OrientationUnknown:            "unknown",
	OrientationPortrait:           "portrait",
	OrientationPortraitUpsideDown: "portraitUpsideDown",
	OrientationLandscapeLeft:      "landscapeLeft",
	OrientationLandscapeRight:     "landscapeRight",
	OrientationFaceUp:             "faceUp",
	OrientationFaceDown:           "faceDown",
}

func (o DeviceOrientation) String() string {
	if name, ok := deviceOrientationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("DeviceOrientation(%d)", int(o))
}

// ParseDeviceOrientation parses the names returned by String.
func ParseDeviceOrientation(s string) (DeviceOrientation, error) {
	for o, name := range deviceOrientationNames {
		if name == s {
			return o, nil
		}
	}
	return OrientationUnknown, fmt.Errorf("camera: unknown device orientation %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	v, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (o OrientationModel) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *OrientationModel) UnmarshalText(text []byte) error {
	v, err := ParseOrientationModel(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (t CameraType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// MarshalText implements encoding.TextMarshaler.
func (v VideoOrientation) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// MarshalText implements encoding.TextMarshaler.
func (o DeviceOrientation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *CameraType) UnmarshalText(text []byte) error {
	v, err := ParseCameraType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

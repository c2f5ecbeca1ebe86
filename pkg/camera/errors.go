package camera

import (
	"errors"
	"fmt"
)

// Sentinel errors for camera session failures.
var (
	// ErrInputCreationFailed is returned when a device cannot be opened.
	ErrInputCreationFailed = errors.New("camera: could not create device input")

	// ErrActiveDeviceUnavailable is returned when an operation needs the
	// active device but Setup has not configured one.
	ErrActiveDeviceUnavailable = errors.New("camera: no active device")

	// ErrTorchUnsupported is returned by inputs whose device has no torch.
	ErrTorchUnsupported = errors.New("camera: torch not supported")

	// ErrInputClosed is returned when reading from a closed input.
	ErrInputClosed = errors.New("camera: input closed")

	// ErrFrameUnavailable is returned when a device produced no frame.
	ErrFrameUnavailable = errors.New("camera: frame unavailable")
)

// DeviceUnavailableError is returned when no discovered device matches the
// requested camera type.
type DeviceUnavailableError struct {
	Type CameraType
}

// Error implements the error interface.
func (e *DeviceUnavailableError) Error() string {
	return fmt.Sprintf("camera: no %s device available", e.Type)
}

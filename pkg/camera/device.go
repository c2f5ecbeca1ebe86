package camera

import (
	"context"
	"image"
	"sync"
	"time"
)

// Intrinsics is the 3x3 camera intrinsic matrix, row major.
type Intrinsics [9]float64

// Frame is one captured video frame.
type Frame struct {
	Image      image.Image
	Intrinsics *Intrinsics // nil when the device does not report them
	Sequence   uint64
	Timestamp  time.Time

	// Orientation is the stream rotation in effect when the frame was
	// delivered.
	Orientation VideoOrientation
}

// Device is a discovered physical camera.
type Device interface {
	ID() string
	Type() CameraType
	Direction() Direction
	HasTorch() bool

	// Open creates an input for the device.
	Open() (Input, error)
}

// Input is an opened device. Read is called from the frame delivery
// goroutine; the property setters are called from the device's
// configuration queue. Implementations must tolerate both concurrently.
type Input interface {
	Device() Device

	// Read blocks until the next frame is available. io.EOF ends delivery.
	Read(ctx context.Context) (Frame, error)

	SetTorch(on bool) error
	Torch() bool
	SetZoom(factor float64) error
	Close() error
}

// Discoverer lists the devices facing a direction.
type Discoverer interface {
	Devices(direction Direction) []Device
}

// FrameConsumer receives delivered frames. Consume runs on the frame
// delivery goroutine and should return quickly.
type FrameConsumer interface {
	Consume(frame Frame)
}

// FrameConsumerFunc adapts a function to FrameConsumer.
type FrameConsumerFunc func(Frame)

// Consume calls f(frame).
func (f FrameConsumerFunc) Consume(frame Frame) { f(frame) }

// PreviewSink displays frames. Preview must not block.
type PreviewSink interface {
	Preview(frame Frame)
}

// OrientationSource reports the physical device orientation and the
// screen size, as seen by the presentation layer.
type OrientationSource interface {
	DeviceOrientation() DeviceOrientation

	// ScreenBounds returns the screen size in points, ok is false when
	// it cannot be resolved.
	ScreenBounds() (width, height float64, ok bool)
}

// ReportedOrientation is an OrientationSource updated by the presentation
// layer. The zero value reports an unknown orientation and no screen.
type ReportedOrientation struct {
	mu     sync.RWMutex
	device DeviceOrientation
	width  float64
	height float64
}

// NewReportedOrientation returns a source with the given initial state.
func NewReportedOrientation(device DeviceOrientation, width, height float64) *ReportedOrientation {
	return &ReportedOrientation{device: device, width: width, height: height}
}

// SetDeviceOrientation records the device orientation.
func (r *ReportedOrientation) SetDeviceOrientation(o DeviceOrientation) {
	r.mu.Lock()
	r.device = o
	r.mu.Unlock()
}

// SetScreenBounds records the screen size.
func (r *ReportedOrientation) SetScreenBounds(width, height float64) {
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()
}

// DeviceOrientation implements OrientationSource.
func (r *ReportedOrientation) DeviceOrientation() DeviceOrientation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.device
}

// ScreenBounds implements OrientationSource.
func (r *ReportedOrientation) ScreenBounds() (float64, float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.width <= 0 || r.height <= 0 {
		return 0, 0, false
	}
	return r.width, r.height, true
}

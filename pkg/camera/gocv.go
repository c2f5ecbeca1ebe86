package camera

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// GocvDiscoverer exposes OpenCV capture devices (V4L2 on Linux). OpenCV
// cannot tell a wide from an ultra wide module, so device classes come
// from Config.Devices.
type GocvDiscoverer struct {
	Config Config
}

// NewGocvDiscoverer returns a discoverer for the devices listed in cfg.
func NewGocvDiscoverer(cfg Config) *GocvDiscoverer {
	return &GocvDiscoverer{Config: cfg}
}

// Devices implements Discoverer.
func (d *GocvDiscoverer) Devices(direction Direction) []Device {
	var devices []Device
	for _, spec := range d.Config.Devices {
		if spec.Direction != direction {
			continue
		}
		devices = append(devices, &gocvDevice{spec: spec, cfg: d.Config})
	}
	return devices
}

type gocvDevice struct {
	spec DeviceSpec
	cfg  Config
}

func (d *gocvDevice) ID() string           { return fmt.Sprintf("video%d", d.spec.Index) }
func (d *gocvDevice) Type() CameraType     { return d.spec.Type }
func (d *gocvDevice) Direction() Direction { return d.spec.Direction }

// HasTorch reports the torch flag of the device spec. OpenCV cannot
// probe for a flash LED, so it is declared with ":torch".
func (d *gocvDevice) HasTorch() bool { return d.spec.Torch }

// Open opens the capture device and applies the configured resolution.
func (d *gocvDevice) Open() (Input, error) {
	vc, err := gocv.OpenVideoCapture(d.spec.Index)
	if err != nil {
		return nil, err
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("device %d did not open", d.spec.Index)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(d.cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(d.cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(d.cfg.Framerate))

	in := &gocvInput{device: d, vc: vc, mat: gocv.NewMat()}
	if d.spec.Torch {
		// A failed torch open leaves capture usable; SetTorch reports it.
		in.torch, in.torchErr = openTorch(d.spec.Index)
	}
	return in, nil
}

// torchControl switches a flash LED used as a torch.
type torchControl interface {
	Set(on bool) error
	Get() (bool, error)
	Close() error
}

// gocvInput wraps a VideoCapture. OpenCV captures are not safe for
// concurrent use, so reads and property writes share a mutex.
type gocvInput struct {
	device *gocvDevice

	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	closed bool

	torch    torchControl
	torchErr error
}

func (in *gocvInput) Device() Device { return in.device }

// Read grabs the next frame and converts it to an image.
func (in *gocvInput) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return Frame{}, ErrInputClosed
	}

	if ok := in.vc.Read(&in.mat); !ok || in.mat.Empty() {
		return Frame{}, ErrFrameUnavailable
	}
	img, err := in.mat.ToImage()
	if err != nil {
		return Frame{}, fmt.Errorf("convert frame: %w", err)
	}
	return Frame{Image: img}, nil
}

// SetTorch writes the V4L2 flash LED control.
func (in *gocvInput) SetTorch(on bool) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	switch {
	case in.closed:
		return ErrInputClosed
	case in.torchErr != nil:
		return in.torchErr
	case in.torch == nil:
		return ErrTorchUnsupported
	}
	return in.torch.Set(on)
}

// Torch reads the flash LED control back from the driver.
func (in *gocvInput) Torch() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed || in.torch == nil {
		return false
	}
	on, err := in.torch.Get()
	return err == nil && on
}

// SetZoom writes the V4L2 zoom control. Drivers without it ignore the write.
func (in *gocvInput) SetZoom(factor float64) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return ErrInputClosed
	}
	in.vc.Set(gocv.VideoCaptureZoom, factor)
	return nil
}

// Close releases the capture device.
func (in *gocvInput) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return nil
	}
	in.closed = true
	if in.torch != nil {
		in.torch.Close()
	}
	in.mat.Close()
	return in.vc.Close()
}

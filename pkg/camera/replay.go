package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for LoadImages
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ReplayDevice is a Device that serves a fixed list of images. It stands
// in for hardware in tests and in the demo mode of cmd/scan.
type ReplayDevice struct {
	id        string
	typ       CameraType
	direction Direction
	torch     bool
	frames    []image.Image
	interval  time.Duration
	loop      bool
	openErr   error

	mu     sync.Mutex
	opens  int
	inputs []*ReplayInput
}

// ReplayOption configures a ReplayDevice.
type ReplayOption func(*ReplayDevice)

// WithTorch gives the device a torch.
func WithTorch() ReplayOption {
	return func(d *ReplayDevice) { d.torch = true }
}

// WithInterval sets the delay between frames (default 33ms).
func WithInterval(interval time.Duration) ReplayOption {
	return func(d *ReplayDevice) { d.interval = interval }
}

// WithoutLoop ends the stream with io.EOF after the last frame.
func WithoutLoop() ReplayOption {
	return func(d *ReplayDevice) { d.loop = false }
}

// WithOpenError makes Open fail with err.
func WithOpenError(err error) ReplayOption {
	return func(d *ReplayDevice) { d.openErr = err }
}

// NewReplayDevice creates a device that loops over frames.
func NewReplayDevice(id string, typ CameraType, direction Direction, frames []image.Image, opts ...ReplayOption) *ReplayDevice {
	d := &ReplayDevice{
		id:        id,
		typ:       typ,
		direction: direction,
		frames:    frames,
		interval:  33 * time.Millisecond,
		loop:      true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *ReplayDevice) ID() string           { return d.id }
func (d *ReplayDevice) Type() CameraType     { return d.typ }
func (d *ReplayDevice) Direction() Direction { return d.direction }
func (d *ReplayDevice) HasTorch() bool       { return d.torch }

// Open implements Device.
func (d *ReplayDevice) Open() (Input, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.openErr != nil {
		return nil, d.openErr
	}
	in := &ReplayInput{device: d, done: make(chan struct{})}
	d.inputs = append(d.inputs, in)
	return in, nil
}

// Opens returns how many times Open was called.
func (d *ReplayDevice) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// LastInput returns the most recently opened input, or nil.
func (d *ReplayDevice) LastInput() *ReplayInput {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.inputs) == 0 {
		return nil
	}
	return d.inputs[len(d.inputs)-1]
}

// ReplayInput is an opened ReplayDevice. It records property writes.
type ReplayInput struct {
	device *ReplayDevice

	mu        sync.Mutex
	next      int
	torch     bool
	zoom      float64
	zoomCalls int
	closed    bool
	done      chan struct{}
}

func (in *ReplayInput) Device() Device { return in.device }

// Read waits one interval and returns the next frame.
func (in *ReplayInput) Read(ctx context.Context) (Frame, error) {
	t := time.NewTimer(in.device.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-in.done:
		return Frame{}, ErrInputClosed
	case <-t.C:
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	frames := in.device.frames
	if len(frames) == 0 {
		return Frame{}, ErrFrameUnavailable
	}
	if in.next >= len(frames) {
		if !in.device.loop {
			return Frame{}, io.EOF
		}
		in.next = 0
	}
	img := frames[in.next]
	in.next++
	return Frame{Image: img, Timestamp: time.Now()}, nil
}

// SetTorch implements Input.
func (in *ReplayInput) SetTorch(on bool) error {
	if !in.device.torch {
		return ErrTorchUnsupported
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.torch = on
	return nil
}

// Torch implements Input.
func (in *ReplayInput) Torch() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.torch
}

// SetZoom implements Input.
func (in *ReplayInput) SetZoom(factor float64) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.zoom = factor
	in.zoomCalls++
	return nil
}

// Zoom returns the last zoom written and whether any write happened.
func (in *ReplayInput) Zoom() (float64, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.zoom, in.zoomCalls > 0
}

// Closed reports whether Close was called.
func (in *ReplayInput) Closed() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.closed
}

// Close implements Input.
func (in *ReplayInput) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.closed {
		in.closed = true
		close(in.done)
	}
	return nil
}

// ReplayDiscoverer is a fixed device list.
type ReplayDiscoverer []Device

// Devices implements Discoverer.
func (r ReplayDiscoverer) Devices(direction Direction) []Device {
	var out []Device
	for _, d := range r {
		if d.Direction() == direction {
			out = append(out, d)
		}
	}
	return out
}

// LoadImages decodes every PNG and JPEG file in dir, in name order.
func LoadImages(dir string) ([]image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var images []image.Image
	for _, name := range names {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("camera: no images in %s", dir)
	}
	return images, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

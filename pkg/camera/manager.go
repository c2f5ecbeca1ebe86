package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-barcode/internal/log"
)

// readRetryDelay is how long delivery backs off after a failed read.
const readRetryDelay = 10 * time.Millisecond

// SessionManager owns the active capture device. It selects devices,
// applies zoom/torch/rotation changes and delivers frames to a consumer.
type SessionManager struct {
	config           Config
	devices          []Device
	orientationModel OrientationModel
	orientation      OrientationSource
	consumer         FrameConsumer
	logger           *slog.Logger

	// mu guards the session wiring. Holding it for writing is the
	// begin/commit configuration bracket.
	mu          sync.RWMutex
	input       Input
	generation  uint64
	surface     Surface
	videoOrient VideoOrientation
	orientEpoch uint64 // bumped by every rotation
	preview     PreviewSink
	onRotation  []func(VideoOrientation, Surface)
	queues      map[string]*serialQueue
	closed      bool

	// torchIntent is the last requested torch state, nil until the first
	// TorchChange. It follows the session across device switches.
	torchIntent *bool

	// runMu serializes start/stop of frame delivery.
	runMu     sync.Mutex
	running   bool
	cancelRun context.CancelFunc
	runDone   chan struct{}
	seq       uint64

	// bg tracks fire-and-forget goroutines so Close can wait for them.
	bg sync.WaitGroup
}

// Option configures a SessionManager.
type Option func(*SessionManager)

// WithConfig sets the capture configuration.
func WithConfig(cfg Config) Option {
	return func(m *SessionManager) {
		m.config = cfg
	}
}

// WithOrientationSource sets where device orientation and screen size
// are read from.
func WithOrientationSource(src OrientationSource) Option {
	return func(m *SessionManager) {
		m.orientation = src
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *SessionManager) {
		m.logger = logger
	}
}

// NewSessionManager discovers the devices facing direction and returns a
// manager that delivers their frames to consumer. No device is opened
// until Setup.
func NewSessionManager(discoverer Discoverer, direction Direction, model OrientationModel, consumer FrameConsumer, opts ...Option) *SessionManager {
	m := &SessionManager{
		config:           DefaultConfig(),
		orientationModel: model,
		orientation:      StaticOrientation{},
		consumer:         consumer,
		logger:           log.Component("camera"),
		queues:           make(map[string]*serialQueue),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.config.ZoomMap == nil {
		m.config.ZoomMap = DefaultZoomMap()
	}
	m.devices = discoverer.Devices(direction)
	m.logger = m.logger.With("direction", direction.String())
	return m
}

// Setup opens a device and makes it the active input. The camera type is
// taken from cameraType, then from the configured default zoom, then
// Regular. A failed Setup leaves the manager usable for another attempt.
func (m *SessionManager) Setup(cameraType *CameraType) error {
	typ := Regular
	if cameraType != nil {
		typ = *cameraType
	} else if t, ok := m.config.ZoomMap[m.config.DefaultZoom]; ok {
		typ = t
	}

	dev := m.device(typ)
	if dev == nil {
		return &DeviceUnavailableError{Type: typ}
	}

	in, err := dev.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInputCreationFailed, dev.ID(), err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		in.Close()
		return ErrInputClosed
	}
	old := m.input
	m.input = in
	m.generation++
	epoch := m.orientEpoch
	m.mu.Unlock()

	if old != nil {
		m.retire(old)
	}

	m.logger.Info("camera configured", "device", dev.ID(), "type", typ.String())

	m.goBackground(func() {
		vo := initialVideoOrientation(m.orientationModel, m.orientation)
		m.mu.Lock()
		defer m.mu.Unlock()
		// A rotation that arrived meanwhile is more recent.
		if m.orientEpoch != epoch {
			return
		}
		m.videoOrient = vo
		m.logger.Debug("initial video orientation", "orientation", vo.String())
	})
	return nil
}

// IsAvailable reports whether a device of type t was discovered.
func (m *SessionManager) IsAvailable(t CameraType) bool {
	return m.device(t) != nil
}

// Apply applies a camera change. Zoom and torch writes are performed on
// the device's configuration queue; their failures are logged, not
// returned.
func (m *SessionManager) Apply(change Change) error {
	switch c := change.(type) {
	case ZoomFactorChange:
		typ, zoom := m.zoomTarget(c.Value)
		return m.reconfigure(&typ, nil, &zoom)
	case TorchChange:
		on := c.On
		return m.reconfigure(nil, &on, nil)
	case RotationChange:
		m.rotate(c)
		return nil
	case nil:
		return errors.New("camera: nil change")
	default:
		return fmt.Errorf("camera: unsupported change %T", change)
	}
}

// zoomTarget maps a requested zoom factor to a device class and the zoom
// factor to write to that device. The zoom-out device realises 0.5x at
// its own 1.0x.
func (m *SessionManager) zoomTarget(factor float64) (CameraType, float64) {
	if factor == ZoomOutFactor {
		return ZoomOut, 1.0
	}
	return Regular, factor
}

// reconfigure switches device when newType differs from the active one
// and queues the torch and zoom writes.
func (m *SessionManager) reconfigure(newType *CameraType, torch *bool, zoom *float64) error {
	m.mu.Lock()
	in := m.input
	if in == nil {
		m.mu.Unlock()
		return ErrActiveDeviceUnavailable
	}

	if torch != nil {
		on := *torch
		m.torchIntent = &on
	}

	target := in
	if newType != nil && in.Device().Type() != *newType {
		dev := m.device(*newType)
		if dev == nil {
			m.mu.Unlock()
			return &DeviceUnavailableError{Type: *newType}
		}
		if dev.HasTorch() && m.torchIntent != nil {
			on := *m.torchIntent
			torch = &on
		}

		newIn, err := dev.Open()
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s: %w", ErrInputCreationFailed, dev.ID(), err)
		}
		m.input = newIn
		m.generation++
		target = newIn
		m.mu.Unlock()

		m.retire(in)
		m.logger.Info("camera switched", "from", in.Device().ID(), "to", dev.ID())
	} else {
		m.mu.Unlock()
	}

	if torch == nil && zoom == nil {
		return nil
	}
	m.enqueue(target.Device(), func() {
		if torch != nil {
			if !target.Device().HasTorch() {
				m.logger.Debug("torch change dropped", "device", target.Device().ID(), "error", ErrTorchUnsupported)
			} else if err := target.SetTorch(*torch); err != nil {
				m.logger.Warn("torch change failed", "device", target.Device().ID(), "error", err)
			}
		}
		if zoom != nil {
			if err := target.SetZoom(*zoom); err != nil {
				m.logger.Warn("zoom change failed", "device", target.Device().ID(), "zoom", *zoom, "error", err)
			}
		}
	})
	return nil
}

// rotate resizes the display surface and re-derives the stream rotation.
// An unknown or flat device orientation keeps the current rotation.
func (m *SessionManager) rotate(c RotationChange) {
	m.mu.Lock()
	m.surface = Surface{Width: c.Width, Height: c.Height}
	m.orientEpoch++
	if vo, ok := m.orientation.DeviceOrientation().VideoOrientation(); ok {
		m.videoOrient = vo
	}
	vo, surface := m.videoOrient, m.surface
	listeners := append([]func(VideoOrientation, Surface){}, m.onRotation...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(vo, surface)
	}
}

// Value returns the value of a property: []float64 for PropertyZoomFactor
// and bool for PropertyTorch.
func (m *SessionManager) Value(p Property) (any, error) {
	switch p {
	case PropertyZoomFactor:
		return m.ZoomFactors(), nil
	case PropertyTorch:
		return m.HasTorch()
	default:
		return nil, fmt.Errorf("camera: unknown property %d", int(p))
	}
}

// ZoomFactors returns the sorted zoom factors whose device is present.
func (m *SessionManager) ZoomFactors() []float64 {
	return m.config.ZoomFactors(m.IsAvailable)
}

// HasTorch reports whether the active device has a torch.
func (m *SessionManager) HasTorch() (bool, error) {
	m.mu.RLock()
	in := m.input
	m.mu.RUnlock()
	if in == nil {
		return false, ErrActiveDeviceUnavailable
	}
	return in.Device().HasTorch(), nil
}

// ActiveType returns the class of the active device.
func (m *SessionManager) ActiveType() (CameraType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.input == nil {
		return Regular, ErrActiveDeviceUnavailable
	}
	return m.input.Device().Type(), nil
}

// VideoOrientation returns the current stream rotation.
func (m *SessionManager) VideoOrientation() VideoOrientation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.videoOrient
}

// Surface returns the current display surface size.
func (m *SessionManager) Surface() Surface {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.surface
}

// SetPreview sets the sink that displays delivered frames. nil removes it.
func (m *SessionManager) SetPreview(sink PreviewSink) {
	m.mu.Lock()
	m.preview = sink
	m.mu.Unlock()
}

// OnRotation registers fn to run after every RotationChange.
func (m *SessionManager) OnRotation(fn func(VideoOrientation, Surface)) {
	m.mu.Lock()
	m.onRotation = append(m.onRotation, fn)
	m.mu.Unlock()
}

// Start begins frame delivery in the background.
func (m *SessionManager) Start() {
	m.goBackground(func() {
		m.runMu.Lock()
		defer m.runMu.Unlock()
		if m.running || m.isClosed() {
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		m.cancelRun = cancel
		m.runDone = make(chan struct{})
		m.running = true
		go m.deliver(ctx, m.runDone)
		m.logger.Debug("frame delivery started")
	})
}

// Stop ends frame delivery in the background. It is a no-op if delivery
// is not running.
func (m *SessionManager) Stop() {
	m.goBackground(m.stopRunning)
}

// Running reports whether frame delivery is active.
func (m *SessionManager) Running() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.running
}

func (m *SessionManager) stopRunning() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running {
		return
	}
	m.cancelRun()
	<-m.runDone
	m.running = false
	m.logger.Debug("frame delivery stopped")
}

// Close stops delivery, waits for queued device work and closes the
// active input. The manager cannot be set up again afterwards.
func (m *SessionManager) Close() error {
	m.bg.Wait()
	m.stopRunning()

	m.mu.Lock()
	m.closed = true
	in := m.input
	m.input = nil
	m.generation++
	queues := m.queues
	m.queues = make(map[string]*serialQueue)
	m.mu.Unlock()

	// A Start that raced the first stop either sees closed or is stopped
	// here.
	m.stopRunning()

	var err error
	if in != nil {
		if q, ok := queues[in.Device().ID()]; ok {
			q.close()
			delete(queues, in.Device().ID())
		}
		err = in.Close()
	}
	for _, q := range queues {
		q.close()
	}
	return err
}

func (m *SessionManager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// deliver reads frames from the active input until ctx is cancelled.
// Frames read from an input that was replaced meanwhile are dropped.
func (m *SessionManager) deliver(ctx context.Context, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		m.mu.RLock()
		in, gen := m.input, m.generation
		m.mu.RUnlock()

		if in == nil {
			if !sleepCtx(ctx, readRetryDelay) {
				return
			}
			continue
		}

		frame, err := in.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				m.logger.Info("camera stream ended", "device", in.Device().ID())
				return
			}
			m.logger.Debug("frame read failed", "device", in.Device().ID(), "error", err)
			if !sleepCtx(ctx, readRetryDelay) {
				return
			}
			continue
		}

		m.mu.RLock()
		stale := gen != m.generation
		preview := m.preview
		frame.Orientation = m.videoOrient
		m.mu.RUnlock()
		if stale {
			continue
		}

		m.seq++
		frame.Sequence = m.seq
		if frame.Timestamp.IsZero() {
			frame.Timestamp = time.Now()
		}

		if preview != nil {
			preview.Preview(frame)
		}
		m.consumer.Consume(frame)
	}
}

// device returns the first discovered device of type t.
func (m *SessionManager) device(t CameraType) Device {
	for _, d := range m.devices {
		if d.Type() == t {
			return d
		}
	}
	return nil
}

// enqueue runs fn on dev's configuration queue.
func (m *SessionManager) enqueue(dev Device, fn func()) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	q, ok := m.queues[dev.ID()]
	if !ok {
		q = newSerialQueue()
		m.queues[dev.ID()] = q
	}
	m.mu.Unlock()

	if !q.submit(fn) {
		m.logger.Debug("device queue closed, change dropped", "device", dev.ID())
	}
}

// retire closes a replaced input after the writes already queued for its
// device have run.
func (m *SessionManager) retire(in Input) {
	m.enqueue(in.Device(), func() {
		if err := in.Close(); err != nil {
			m.logger.Warn("closing camera input failed", "device", in.Device().ID(), "error", err)
		}
	})
}

func (m *SessionManager) goBackground(fn func()) {
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		fn()
	}()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

package scanner

import (
	"log/slog"
	"sync"

	"github.com/teslashibe/go-barcode/pkg/barcode"
	"github.com/teslashibe/go-barcode/pkg/camera"
	"github.com/teslashibe/go-barcode/pkg/decode"
)

// Session is one presented scan. The presenter drives it: it starts frame
// delivery, forwards user controls and cancels. All methods are safe for
// concurrent use and become no-ops (or return ErrSessionClosed) once the
// scan has resolved.
type Session struct {
	id       string
	params   Parameters
	manager  *camera.SessionManager
	pipeline *decode.Pipeline
	stream   *resultStream
	logger   *slog.Logger

	mu          sync.Mutex
	zoomFactors []float64
	zoom        float64
	torchOn     bool
	torchWanted bool // last requested; applied when the device has a torch
	hasTorch    bool
	scanFrame   *decode.ScanFrame
	closed      bool
	done        chan struct{}
}

// Info is a snapshot of a session for presenters.
type Info struct {
	ID               string                  `json:"id"`
	Parameters       Parameters              `json:"parameters"`
	ZoomFactors      []float64               `json:"zoom_factors"`
	ShowZoomSelector bool                    `json:"show_zoom_selector"`
	Zoom             float64                 `json:"zoom"`
	HasTorch         bool                    `json:"has_torch"`
	TorchOn          bool                    `json:"torch_on"`
	ButtonGated      bool                    `json:"button_gated"`
	Armed            bool                    `json:"armed"`
	Running          bool                    `json:"running"`
	VideoOrientation camera.VideoOrientation `json:"video_orientation"`
	RegionOfInterest decode.Rect             `json:"region_of_interest"`
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Parameters returns the scan parameters.
func (s *Session) Parameters() Parameters { return s.params }

// Start begins frame delivery. It returns immediately.
func (s *Session) Start() {
	if s.isClosed() {
		return
	}
	s.manager.Start()
}

// Stop pauses frame delivery. It returns immediately.
func (s *Session) Stop() {
	if s.isClosed() {
		return
	}
	s.manager.Stop()
}

// Cancel ends the scan without a result.
func (s *Session) Cancel() {
	s.logger.Debug("cancel requested")
	s.stream.Publish(barcode.Empty())
}

// Arm sets the manual trigger of a button-gated session.
func (s *Session) Arm(on bool) {
	s.pipeline.Arm(on)
}

// Apply forwards a camera change. Selecting the current zoom again is
// ignored. The torch capability is refreshed after a zoom change since
// it may switch devices.
func (s *Session) Apply(change camera.Change) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if z, ok := change.(camera.ZoomFactorChange); ok && z.Value == s.zoom {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.manager.Apply(change); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch c := change.(type) {
	case camera.ZoomFactorChange:
		s.zoom = c.Value
		hasTorch, err := s.manager.HasTorch()
		s.hasTorch = err == nil && hasTorch
		s.torchOn = s.hasTorch && s.torchWanted
	case camera.TorchChange:
		s.torchWanted = c.On
		s.torchOn = s.hasTorch && c.On
	case camera.RotationChange:
	}
	return nil
}

// SetTorch is Apply(TorchChange).
func (s *Session) SetTorch(on bool) error {
	return s.Apply(camera.TorchChange{On: on})
}

// SetZoom is Apply(ZoomFactorChange).
func (s *Session) SetZoom(factor float64) error {
	return s.Apply(camera.ZoomFactorChange{Value: factor})
}

// ZoomFactors returns the selectable zoom factors.
func (s *Session) ZoomFactors() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.zoomFactors...)
}

// HasTorch reports whether the active device has a torch.
func (s *Session) HasTorch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasTorch
}

// UpdateScanFrame sets the on-screen scan rectangle. It is re-projected
// after every rotation.
func (s *Session) UpdateScanFrame(frame decode.ScanFrame) bool {
	s.mu.Lock()
	s.scanFrame = &frame
	s.mu.Unlock()
	return s.pipeline.UpdateScanFrame(frame)
}

func (s *Session) reproject() {
	s.mu.Lock()
	frame := s.scanFrame
	s.mu.Unlock()
	if frame != nil {
		s.pipeline.UpdateScanFrame(*frame)
	}
}

// VideoOrientation returns the stream rotation.
func (s *Session) VideoOrientation() camera.VideoOrientation {
	return s.manager.VideoOrientation()
}

// SetPreview attaches a preview sink to the frame stream.
func (s *Session) SetPreview(sink camera.PreviewSink) {
	s.manager.SetPreview(sink)
}

// Done is closed when the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:               s.id,
		Parameters:       s.params,
		ZoomFactors:      append([]float64(nil), s.zoomFactors...),
		ShowZoomSelector: len(s.zoomFactors) > 1,
		Zoom:             s.zoom,
		HasTorch:         s.hasTorch,
		TorchOn:          s.torchOn,
		ButtonGated:      s.pipeline.ButtonGated(),
		Armed:            s.pipeline.Armed(),
		Running:          !s.closed && s.manager.Running(),
		VideoOrientation: s.manager.VideoOrientation(),
		RegionOfInterest: s.pipeline.RegionOfInterest(),
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// close stops capture, releases the device and ends the result stream.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.manager.Stop()
	if err := s.manager.Close(); err != nil {
		s.logger.Warn("camera close failed", "error", err)
	}
	s.stream.Close()
	close(s.done)
}

// Package scanner runs one barcode scan at a time: it checks camera
// permission, builds a capture session and decode pipeline, hands the
// session to a presenter and resolves with the first result.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-barcode/internal/log"
	"github.com/teslashibe/go-barcode/pkg/barcode"
	"github.com/teslashibe/go-barcode/pkg/camera"
	"github.com/teslashibe/go-barcode/pkg/decode"
	"github.com/teslashibe/go-barcode/pkg/permission"
)

// Presenter puts a session on screen. Present must return promptly; the
// presenter is expected to call Session.Start itself. Dismiss is called
// once the scan has a result, before the session is torn down.
type Presenter interface {
	Present(s *Session) error
	Dismiss()
}

// Scanner is the scan entry point.
type Scanner struct {
	permissions  permission.Checker
	presenter    Presenter
	discoverer   camera.Discoverer
	detector     decode.Detector
	cameraConfig camera.Config
	orientation  camera.OrientationSource
	feedback     decode.Feedback
	threshold    float64
	maxRate      float64
	logger       *slog.Logger

	busy atomic.Bool

	mu        sync.Mutex
	state     State
	session   *Session
	listeners []func(State)
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithDiscoverer sets where capture devices come from. Defaults to gocv
// devices described by the camera config.
func WithDiscoverer(d camera.Discoverer) Option {
	return func(s *Scanner) { s.discoverer = d }
}

// WithDetector sets the symbol detector. Defaults to gozxing.
func WithDetector(d decode.Detector) Option {
	return func(s *Scanner) { s.detector = d }
}

// WithCameraConfig sets the capture configuration.
func WithCameraConfig(cfg camera.Config) Option {
	return func(s *Scanner) { s.cameraConfig = cfg }
}

// WithOrientationSource sets where device orientation and screen size
// are read from.
func WithOrientationSource(src camera.OrientationSource) Option {
	return func(s *Scanner) { s.orientation = src }
}

// WithFeedback sets the acknowledgment played on an accepted scan.
func WithFeedback(f decode.Feedback) Option {
	return func(s *Scanner) { s.feedback = f }
}

// WithThreshold overrides the detector confidence threshold.
func WithThreshold(t float64) Option {
	return func(s *Scanner) { s.threshold = t }
}

// WithMaxRate caps analyzed frames per second.
func WithMaxRate(fps float64) Option {
	return func(s *Scanner) { s.maxRate = fps }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// New creates a Scanner.
func New(permissions permission.Checker, presenter Presenter, opts ...Option) *Scanner {
	s := &Scanner{
		permissions:  permissions,
		presenter:    presenter,
		cameraConfig: camera.DefaultConfig(),
		feedback:     decode.Nop,
		threshold:    decode.DefaultThreshold,
		logger:       log.Component("scanner"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.discoverer == nil {
		s.discoverer = camera.NewGocvDiscoverer(s.cameraConfig)
	}
	if s.detector == nil {
		s.detector = decode.NewZXingDetector()
	}
	if s.orientation == nil {
		s.orientation = camera.NewReportedOrientation(camera.OrientationUnknown, 0, 0)
	}
	return s
}

// Scan runs one scan and blocks until it resolves. It returns
// ErrCameraAccessDenied, ErrScanningCancelled, a camera setup error, or
// the decoded result. Cancelling ctx cancels the scan like the user would.
func (s *Scanner) Scan(ctx context.Context, params Parameters) (barcode.Result, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return barcode.Empty(), ErrScanInProgress
	}
	defer s.busy.Store(false)

	start := time.Now()
	logger := s.logger.With("hint", hintLabel(params.Hint), "gated", params.ButtonGated())

	s.setState(StatePermissionPending)
	if !s.permissions.HasCameraAccess(ctx) {
		s.finish(StateDenied, start)
		logger.Info("camera access denied")
		return barcode.Empty(), ErrCameraAccessDenied
	}
	s.setState(StatePermissionGranted)

	sess, err := s.newSession(params)
	if err != nil {
		s.finish(StateFailed, start)
		logger.Warn("session setup failed", "error", err)
		return barcode.Empty(), err
	}
	logger = logger.With("session", sess.id)

	results, unsubscribe := sess.stream.Subscribe()
	defer unsubscribe()

	s.setSession(sess)
	defer s.setSession(nil)
	activeSessions.Inc()
	defer activeSessions.Dec()

	s.setState(StateSessionActive)
	if err := s.presenter.Present(sess); err != nil {
		sess.close()
		s.finish(StateFailed, start)
		return barcode.Empty(), fmt.Errorf("scanner: present: %w", err)
	}
	logger.Info("session presented")

	resolved := newOneshot[barcode.Result]()
	go func() {
		r := first(dropFirst(results))
		s.presenter.Dismiss()
		sess.close()
		resolved.resolve(r)
	}()

	stop := context.AfterFunc(ctx, sess.Cancel)
	defer stop()

	r, _ := resolved.wait(context.Background())
	if r.IsEmpty() {
		s.finish(StateCancelled, start)
		logger.Info("scan cancelled", "elapsed", time.Since(start))
		return barcode.Empty(), ErrScanningCancelled
	}

	s.finish(StateResultPublished, start)
	logger.Info("scan complete", "format", r.Format, "elapsed", time.Since(start))
	return r, nil
}

func (s *Scanner) newSession(params Parameters) (*Session, error) {
	id := uuid.NewString()
	logger := s.logger.With("session", id)

	sess := &Session{
		id:     id,
		params: params,
		stream: newResultStream(barcode.Empty()),
		logger: logger,
		zoom:   s.cameraConfig.DefaultZoom,
		done:   make(chan struct{}),
	}
	sess.pipeline = decode.NewPipeline(s.detector, sess.stream, decode.Options{
		ButtonGated: params.ButtonGated(),
		Hint:        params.Hint,
		Threshold:   s.threshold,
		Feedback:    s.feedback,
		Screen:      s.orientation,
		MaxRate:     s.maxRate,
		Logger:      logger.With("component", "decode"),
	})
	sess.manager = camera.NewSessionManager(s.discoverer, params.Direction, params.Orientation, sess.pipeline,
		camera.WithConfig(s.cameraConfig),
		camera.WithOrientationSource(s.orientation),
		camera.WithLogger(logger.With("component", "camera")),
	)

	if err := sess.manager.Setup(nil); err != nil {
		sess.manager.Close()
		return nil, err
	}

	sess.zoomFactors = sess.manager.ZoomFactors()
	if hasTorch, err := sess.manager.HasTorch(); err == nil {
		sess.hasTorch = hasTorch
	}
	sess.manager.OnRotation(func(camera.VideoOrientation, camera.Surface) {
		sess.reproject()
	})
	return sess, nil
}

// State returns the phase of the current or last scan.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns the presented session, or nil.
func (s *Scanner) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// OnStateChange registers fn to be called on every state transition.
func (s *Scanner) OnStateChange(fn func(State)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Scanner) setSession(sess *Session) {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
}

func (s *Scanner) setState(next State) {
	s.mu.Lock()
	prev := s.state
	if !canTransition(prev, next) {
		s.logger.Error("illegal state transition", "from", prev, "to", next)
	}
	s.state = next
	listeners := append([]func(State){}, s.listeners...)
	s.mu.Unlock()

	s.logger.Debug("state", "from", prev, "to", next)
	for _, fn := range listeners {
		fn(next)
	}
}

func (s *Scanner) finish(terminal State, start time.Time) {
	s.setState(terminal)
	outcome := terminal.String()
	scansTotal.WithLabelValues(outcome).Inc()
	scanDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func hintLabel(h *barcode.Hint) string {
	if h == nil {
		return barcode.HintUnknown.String()
	}
	return h.String()
}

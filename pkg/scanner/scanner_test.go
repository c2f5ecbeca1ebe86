package scanner

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-barcode/internal/log"
	"github.com/teslashibe/go-barcode/pkg/barcode"
	"github.com/teslashibe/go-barcode/pkg/camera"
	"github.com/teslashibe/go-barcode/pkg/decode"
	"github.com/teslashibe/go-barcode/pkg/permission"
)

// mockPresenter records calls and hands sessions to the test.
type mockPresenter struct {
	mu          sync.Mutex
	PresentFunc func(*Session) error
	presented   []*Session
	dismissed   int
	sessions    chan *Session
}

func newMockPresenter(fn func(*Session) error) *mockPresenter {
	return &mockPresenter{PresentFunc: fn, sessions: make(chan *Session, 1)}
}

func (m *mockPresenter) Present(s *Session) error {
	m.mu.Lock()
	m.presented = append(m.presented, s)
	m.mu.Unlock()
	m.sessions <- s
	if m.PresentFunc != nil {
		return m.PresentFunc(s)
	}
	return nil
}

func (m *mockPresenter) Dismiss() {
	m.mu.Lock()
	m.dismissed++
	m.mu.Unlock()
}

func (m *mockPresenter) counts() (presented, dismissed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.presented), m.dismissed
}

// startOnPresent starts frame delivery like a real presenter would.
func startOnPresent(s *Session) error {
	s.Start()
	return nil
}

type countingDetector struct {
	calls atomic.Int64
	obs   []decode.Observation
}

func (d *countingDetector) Detect(decode.Request) ([]decode.Observation, error) {
	d.calls.Add(1)
	return d.obs, nil
}

func qrDetector(text string, confidence float64) *countingDetector {
	return &countingDetector{obs: []decode.Observation{{
		Payload:    text,
		Symbology:  barcode.SymbologyQR,
		Confidence: confidence,
	}}}
}

func replayCamera(opts ...camera.ReplayOption) (*camera.ReplayDevice, camera.ReplayDiscoverer) {
	frames := []image.Image{image.NewGray(image.Rect(0, 0, 8, 8))}
	opts = append([]camera.ReplayOption{camera.WithInterval(time.Millisecond)}, opts...)
	dev := camera.NewReplayDevice("wide", camera.Regular, camera.Back, frames, opts...)
	return dev, camera.ReplayDiscoverer{dev}
}

func newTestScanner(checker permission.Checker, presenter Presenter, det decode.Detector, devices camera.Discoverer) *Scanner {
	return New(checker, presenter,
		WithDiscoverer(devices),
		WithDetector(det),
		WithLogger(log.Discard()),
	)
}

func scanAsync(s *Scanner, ctx context.Context, p Parameters) <-chan scanOutcome {
	ch := make(chan scanOutcome, 1)
	go func() {
		r, err := s.Scan(ctx, p)
		ch <- scanOutcome{r, err}
	}()
	return ch
}

type scanOutcome struct {
	result barcode.Result
	err    error
}

func waitOutcome(t *testing.T, ch <-chan scanOutcome) scanOutcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not resolve")
		return scanOutcome{}
	}
}

func waitSession(t *testing.T, p *mockPresenter) *Session {
	t.Helper()
	select {
	case s := <-p.sessions:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("session was not presented")
		return nil
	}
}

func TestScanPermissionDenied(t *testing.T) {
	dev, devices := replayCamera()
	presenter := newMockPresenter(startOnPresent)
	s := newTestScanner(permission.Static(false), presenter, qrDetector("ABC123", 1), devices)

	r, err := s.Scan(context.Background(), DefaultParameters())
	assert.ErrorIs(t, err, ErrCameraAccessDenied)
	assert.True(t, r.IsEmpty())
	assert.Equal(t, StateDenied, s.State())

	presented, _ := presenter.counts()
	assert.Zero(t, presented)
	assert.Zero(t, dev.Opens(), "no session may be started")
}

func TestScanCancelled(t *testing.T) {
	dev, devices := replayCamera()
	presenter := newMockPresenter(func(s *Session) error {
		s.Start()
		go s.Cancel()
		return nil
	})
	s := newTestScanner(permission.Static(true), presenter, &countingDetector{}, devices)

	r, err := s.Scan(context.Background(), DefaultParameters())
	assert.ErrorIs(t, err, ErrScanningCancelled)
	assert.Equal(t, barcode.Empty(), r)
	assert.Equal(t, StateCancelled, s.State())

	_, dismissed := presenter.counts()
	assert.Equal(t, 1, dismissed)
	assert.True(t, dev.LastInput().Closed(), "session torn down before resolution")
	assert.Nil(t, s.Session())
}

func TestScanSuccess(t *testing.T) {
	dev, devices := replayCamera()
	presenter := newMockPresenter(startOnPresent)
	s := newTestScanner(permission.Static(true), presenter, qrDetector("ABC123", 0.95), devices)

	r, err := s.Scan(context.Background(), DefaultParameters())
	require.NoError(t, err)
	assert.Equal(t, barcode.Result{Text: "ABC123", Format: barcode.HintQRCode}, r)
	assert.Equal(t, StateResultPublished, s.State())

	_, dismissed := presenter.counts()
	assert.Equal(t, 1, dismissed)
	assert.True(t, dev.LastInput().Closed())
}

func TestScanResolvesAmbiguousFormatWithHint(t *testing.T) {
	_, devices := replayCamera()
	det := &countingDetector{obs: []decode.Observation{{
		Payload: "0123456789012", Symbology: barcode.SymbologyEAN13, Confidence: 1,
	}}}
	s := newTestScanner(permission.Static(true), newMockPresenter(startOnPresent), det, devices)

	r, err := s.Scan(context.Background(), DefaultParameters().WithHint(barcode.HintUPCA))
	require.NoError(t, err)
	assert.Equal(t, barcode.HintUPCA, r.Format)
}

func TestScanBelowThresholdKeepsScanning(t *testing.T) {
	_, devices := replayCamera()
	det := qrDetector("ABC123", 0.5)
	presenter := newMockPresenter(startOnPresent)
	s := newTestScanner(permission.Static(true), presenter, det, devices)

	done := scanAsync(s, context.Background(), DefaultParameters())
	sess := waitSession(t, presenter)
	assert.Eventually(t, func() bool { return det.calls.Load() > 5 }, time.Second, 5*time.Millisecond)

	select {
	case o := <-done:
		t.Fatalf("scan resolved with %+v", o)
	default:
	}
	sess.Cancel()
	assert.ErrorIs(t, waitOutcome(t, done).err, ErrScanningCancelled)
}

type previewCounter struct{ n atomic.Int64 }

func (p *previewCounter) Preview(camera.Frame) { p.n.Add(1) }

func TestScanManualTrigger(t *testing.T) {
	_, devices := replayCamera()
	det := qrDetector("GATED", 1)
	preview := &previewCounter{}
	presenter := newMockPresenter(func(s *Session) error {
		s.SetPreview(preview)
		s.Start()
		return nil
	})
	s := newTestScanner(permission.Static(true), presenter, det, devices)

	params := DefaultParameters()
	params.ButtonText = "Scan"
	done := scanAsync(s, context.Background(), params)
	sess := waitSession(t, presenter)

	assert.Eventually(t, func() bool { return preview.n.Load() > 5 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, det.calls.Load(), "frames must be dropped until armed")
	assert.True(t, sess.Info().ButtonGated)

	sess.Arm(true)
	o := waitOutcome(t, done)
	require.NoError(t, o.err)
	assert.Equal(t, "GATED", o.result.Text)
}

func TestScanSetupFailure(t *testing.T) {
	presenter := newMockPresenter(startOnPresent)
	s := newTestScanner(permission.Static(true), presenter, &countingDetector{}, camera.ReplayDiscoverer{})

	_, err := s.Scan(context.Background(), DefaultParameters())
	var unavailable *camera.DeviceUnavailableError
	assert.ErrorAs(t, err, &unavailable)
	assert.Equal(t, StateFailed, s.State())

	presented, _ := presenter.counts()
	assert.Zero(t, presented)
}

func TestScanPresentFailure(t *testing.T) {
	dev, devices := replayCamera()
	boom := errors.New("no display")
	s := newTestScanner(permission.Static(true), newMockPresenter(func(*Session) error { return boom }), &countingDetector{}, devices)

	_, err := s.Scan(context.Background(), DefaultParameters())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, s.State())
	assert.True(t, dev.LastInput().Closed())
}

func TestScanContextCancel(t *testing.T) {
	_, devices := replayCamera()
	presenter := newMockPresenter(startOnPresent)
	s := newTestScanner(permission.Static(true), presenter, &countingDetector{}, devices)

	ctx, cancel := context.WithCancel(context.Background())
	done := scanAsync(s, ctx, DefaultParameters())
	waitSession(t, presenter)
	cancel()

	assert.ErrorIs(t, waitOutcome(t, done).err, ErrScanningCancelled)
}

func TestScanInProgress(t *testing.T) {
	_, devices := replayCamera()
	presenter := newMockPresenter(nil)
	s := newTestScanner(permission.Static(true), presenter, &countingDetector{}, devices)

	done := scanAsync(s, context.Background(), DefaultParameters())
	sess := waitSession(t, presenter)

	_, err := s.Scan(context.Background(), DefaultParameters())
	assert.ErrorIs(t, err, ErrScanInProgress)
	assert.Same(t, sess, s.Session())

	sess.Cancel()
	assert.ErrorIs(t, waitOutcome(t, done).err, ErrScanningCancelled)

	// The scanner is reusable once the scan resolved.
	presenter.PresentFunc = func(s *Session) error { go s.Cancel(); return nil }
	_, err = s.Scan(context.Background(), DefaultParameters())
	assert.ErrorIs(t, err, ErrScanningCancelled)
}

func TestScanStateSequence(t *testing.T) {
	_, devices := replayCamera()
	s := newTestScanner(permission.Static(true), newMockPresenter(startOnPresent), qrDetector("X", 1), devices)

	var mu sync.Mutex
	var states []State
	s.OnStateChange(func(st State) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})

	_, err := s.Scan(context.Background(), DefaultParameters())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{
		StatePermissionPending,
		StatePermissionGranted,
		StateSessionActive,
		StateResultPublished,
	}, states)
}

func TestCancelWinsOverLaterDecode(t *testing.T) {
	_, devices := replayCamera()
	det := qrDetector("late", 1)
	presenter := newMockPresenter(func(s *Session) error {
		s.Cancel()
		s.Start()
		return nil
	})
	s := newTestScanner(permission.Static(true), presenter, det, devices)

	_, err := s.Scan(context.Background(), DefaultParameters())
	assert.ErrorIs(t, err, ErrScanningCancelled)
}

func discard() *slog.Logger { return log.Discard() }

package decode

import (
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-barcode/internal/log"
	"github.com/teslashibe/go-barcode/pkg/barcode"
	"github.com/teslashibe/go-barcode/pkg/camera"
)

// mockDetector is a hand-written Detector with call tracking.
type mockDetector struct {
	mu         sync.Mutex
	DetectFunc func(Request) ([]Observation, error)
	requests   []Request
}

func (m *mockDetector) Detect(req Request) ([]Observation, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.DetectFunc != nil {
		return m.DetectFunc(req)
	}
	return nil, nil
}

func (m *mockDetector) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockDetector) last() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func returning(obs ...Observation) *mockDetector {
	return &mockDetector{DetectFunc: func(Request) ([]Observation, error) { return obs, nil }}
}

type resultRecorder struct {
	mu      sync.Mutex
	results []barcode.Result
}

func (r *resultRecorder) Publish(res barcode.Result) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

func (r *resultRecorder) all() []barcode.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]barcode.Result(nil), r.results...)
}

func frame() camera.Frame {
	return camera.Frame{Image: image.NewGray(image.Rect(0, 0, 4, 4)), Sequence: 1}
}

func hintPtr(h barcode.Hint) *barcode.Hint { return &h }

func newPipeline(det Detector, opts Options) (*Pipeline, *resultRecorder) {
	rec := &resultRecorder{}
	opts.Logger = log.Discard()
	return NewPipeline(det, rec, opts), rec
}

func TestConsumeConfidence(t *testing.T) {
	tests := []struct {
		name string
		obs  []Observation
		want []barcode.Result
	}{
		{
			name: "above threshold is published",
			obs:  []Observation{{Payload: "ABC123", Symbology: barcode.SymbologyQR, Confidence: 0.95}},
			want: []barcode.Result{{Text: "ABC123", Format: barcode.HintQRCode}},
		},
		{
			name: "threshold itself is rejected",
			obs:  []Observation{{Payload: "ABC123", Symbology: barcode.SymbologyQR, Confidence: 0.9}},
		},
		{
			name: "only the best candidate counts",
			obs: []Observation{
				{Payload: "low", Symbology: barcode.SymbologyQR, Confidence: 0.5},
				{Payload: "high", Symbology: barcode.SymbologyQR, Confidence: 0.99},
			},
		},
		{
			name: "empty payload is no result",
			obs:  []Observation{{Payload: "", Symbology: barcode.SymbologyQR, Confidence: 1}},
		},
		{
			name: "no candidates",
		},
		{
			name: "unmapped symbology resolves to unknown",
			obs:  []Observation{{Payload: "m", Symbology: barcode.SymbologyMicroQR, Confidence: 1}},
			want: []barcode.Result{{Text: "m", Format: barcode.HintUnknown}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, rec := newPipeline(returning(tc.obs...), Options{})
			p.Consume(frame())
			assert.Equal(t, tc.want, rec.all())
		})
	}
}

func TestConsumeResolvesWithHint(t *testing.T) {
	ean := Observation{Payload: "0123456789012", Symbology: barcode.SymbologyEAN13, Confidence: 1}

	tests := []struct {
		name string
		hint *barcode.Hint
		want barcode.Hint
	}{
		{"upcA hint wins", hintPtr(barcode.HintUPCA), barcode.HintUPCA},
		{"ean13 hint", hintPtr(barcode.HintEAN13), barcode.HintEAN13},
		{"no hint defaults to ean13", nil, barcode.HintEAN13},
		{"unknown hint defaults to ean13", hintPtr(barcode.HintUnknown), barcode.HintEAN13},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, rec := newPipeline(returning(ean), Options{Hint: tc.hint})
			p.Consume(frame())
			require.Len(t, rec.all(), 1)
			assert.Equal(t, tc.want, rec.all()[0].Format)
		})
	}
}

func TestConsumeRequestsHintedSymbologies(t *testing.T) {
	det := &mockDetector{}

	p, _ := newPipeline(det, Options{Hint: hintPtr(barcode.HintQRCode)})
	p.Consume(frame())
	assert.Equal(t, []barcode.Symbology{barcode.SymbologyQR}, det.last().Symbologies)

	p, _ = newPipeline(det, Options{})
	p.Consume(frame())
	assert.Equal(t, barcode.AllSymbologies(), det.last().Symbologies)
}

func TestButtonGating(t *testing.T) {
	det := returning(Observation{Payload: "X", Symbology: barcode.SymbologyCode128, Confidence: 1})
	p, rec := newPipeline(det, Options{ButtonGated: true})

	for i := 0; i < 5; i++ {
		p.Consume(frame())
	}
	assert.Zero(t, det.calls(), "detector must not run until armed")
	assert.Empty(t, rec.all())

	p.Arm(true)
	assert.True(t, p.Armed())
	p.Consume(frame())
	assert.Equal(t, 1, det.calls())
	assert.Equal(t, []barcode.Result{{Text: "X", Format: barcode.HintCode128}}, rec.all())

	p.Arm(false)
	p.Consume(frame())
	assert.Equal(t, 1, det.calls())
}

func TestArmIgnoredWhenNotGated(t *testing.T) {
	det := &mockDetector{}
	p, _ := newPipeline(det, Options{})
	p.Arm(false)
	p.Consume(frame())
	assert.Equal(t, 1, det.calls())
	assert.False(t, p.ButtonGated())
}

func TestDetectorErrorIsLocal(t *testing.T) {
	det := &mockDetector{DetectFunc: func(Request) ([]Observation, error) {
		return nil, errors.New("boom")
	}}
	p, rec := newPipeline(det, Options{})
	assert.NotPanics(t, func() { p.Consume(frame()) })
	assert.Empty(t, rec.all())
}

func TestFeedbackOnAccept(t *testing.T) {
	var acks int
	det := returning(Observation{Payload: "X", Symbology: barcode.SymbologyQR, Confidence: 1})
	p, _ := newPipeline(det, Options{Feedback: FeedbackFunc(func() { acks++ })})

	p.Consume(frame())
	p.Consume(frame())
	assert.Equal(t, 2, acks, "pipeline does not self-suppress")

	low := returning(Observation{Payload: "X", Symbology: barcode.SymbologyQR, Confidence: 0.1})
	p, _ = newPipeline(low, Options{Feedback: FeedbackFunc(func() { acks++ })})
	p.Consume(frame())
	assert.Equal(t, 2, acks)
}

func TestThrottle(t *testing.T) {
	det := &mockDetector{}
	p, _ := newPipeline(det, Options{MaxRate: 0.001})

	p.Consume(frame())
	p.Consume(frame())
	p.Consume(frame())
	assert.Equal(t, 1, det.calls())
}

func TestNilImageSkipped(t *testing.T) {
	det := &mockDetector{}
	p, _ := newPipeline(det, Options{})
	p.Consume(camera.Frame{})
	assert.Zero(t, det.calls())
}

func TestUpdateScanFrame(t *testing.T) {
	t.Run("no screen keeps full frame", func(t *testing.T) {
		p, _ := newPipeline(&mockDetector{}, Options{})
		assert.False(t, p.UpdateScanFrame(ScanFrame{X: 10, Y: 10, Width: 10, Height: 10}))
		assert.Equal(t, FullFrame, p.RegionOfInterest())
	})

	t.Run("projects against screen", func(t *testing.T) {
		screen := camera.NewReportedOrientation(camera.OrientationPortrait, 400, 800)
		det := &mockDetector{}
		p, _ := newPipeline(det, Options{Screen: screen})

		require.True(t, p.UpdateScanFrame(ScanFrame{X: 100, Y: 200, Width: 200, Height: 200}))
		want := Rect{X: 0.25, Y: 0.25, W: 0.5, H: 0.25}
		assert.Equal(t, want, p.RegionOfInterest())

		p.Consume(frame())
		assert.Equal(t, want, det.last().RegionOfInterest)

		// Screen size lost: previous region retained.
		screen.SetScreenBounds(0, 0)
		assert.False(t, p.UpdateScanFrame(ScanFrame{X: 0, Y: 0, Width: 10, Height: 10}))
		assert.Equal(t, want, p.RegionOfInterest())
	})
}

func TestProject(t *testing.T) {
	tests := []struct {
		name   string
		frame  ScanFrame
		w, h   float64
		want   Rect
		wantOK bool
	}{
		{"centered", ScanFrame{X: 50, Y: 50, Width: 100, Height: 100}, 200, 200, Rect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}, true},
		{"whole screen", ScanFrame{Width: 320, Height: 480}, 320, 480, FullFrame, true},
		{"clipped", ScanFrame{X: -100, Y: 100, Width: 400, Height: 400}, 200, 200, Rect{X: 0, Y: 0.5, W: 1, H: 0.5}, true},
		{"off screen", ScanFrame{X: 300, Y: 300, Width: 10, Height: 10}, 200, 200, Rect{}, false},
		{"unknown screen", ScanFrame{Width: 10, Height: 10}, 0, 0, Rect{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Project(tc.frame, tc.w, tc.h)
			assert.Equal(t, tc.wantOK, ok)
			assert.InDelta(t, tc.want.X, got.X, 1e-9)
			assert.InDelta(t, tc.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tc.want.W, got.W, 1e-9)
			assert.InDelta(t, tc.want.H, got.H, 1e-9)
		})
	}
}

func TestRectPixels(t *testing.T) {
	bounds := image.Rect(0, 0, 200, 100)
	assert.Equal(t, bounds, FullFrame.Pixels(bounds))
	assert.Equal(t, image.Rect(50, 25, 150, 75), Rect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}.Pixels(bounds))
	assert.Equal(t, image.Rect(100, 0, 200, 100), Rect{X: 0.5, W: 0.75, H: 1}.Pixels(bounds), "clipped to bounds")
}

func TestBell(t *testing.T) {
	var buf safeBuffer
	b := NewBell(&buf)
	b.Acknowledge()
	b.Acknowledge()
	assert.Equal(t, "\a\a", buf.String())
}

type safeBuffer struct {
	mu sync.Mutex
	b  []byte
}

func (s *safeBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b = append(s.b, p...)
	return len(p), nil
}

func (s *safeBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.b)
}

func framed(img image.Image) camera.Frame {
	return camera.Frame{Image: img, Sequence: 1}
}

package decode

import (
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/teslashibe/go-barcode/internal/log"
	"github.com/teslashibe/go-barcode/pkg/barcode"
	"github.com/teslashibe/go-barcode/pkg/camera"
)

// DefaultThreshold is the confidence a candidate must exceed to be
// accepted.
const DefaultThreshold = 0.9

// Publisher receives accepted results.
type Publisher interface {
	Publish(barcode.Result)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(barcode.Result)

// Publish implements Publisher.
func (f PublisherFunc) Publish(r barcode.Result) { f(r) }

// Options configures a Pipeline. The zero value scans continuously for
// every symbology.
type Options struct {
	// ButtonGated drops frames until the trigger is armed.
	ButtonGated bool

	// Hint narrows detection. Nil or HintUnknown accepts everything.
	Hint *barcode.Hint

	// Threshold overrides DefaultThreshold when positive.
	Threshold float64

	// Feedback is acknowledged on every accepted result. Defaults to Nop.
	Feedback Feedback

	// Screen resolves scan-frame projections. Without it UpdateScanFrame
	// keeps the current region of interest.
	Screen ScreenBounds

	// MaxRate caps analyzed frames per second. Zero means unlimited.
	MaxRate float64

	Logger *slog.Logger
}

// Pipeline is a camera.FrameConsumer that runs every admitted frame
// through a Detector and publishes accepted classifications.
//
// Consume is called from the frame delivery goroutine; Arm and
// UpdateScanFrame from anywhere.
type Pipeline struct {
	detector    Detector
	publisher   Publisher
	hint        *barcode.Hint
	symbologies []barcode.Symbology
	threshold   float64
	gated       bool
	feedback    Feedback
	screen      ScreenBounds
	limiter     *rate.Limiter
	logger      *slog.Logger

	armed atomic.Bool
	roi   atomic.Pointer[Rect]
}

// NewPipeline creates a decode pipeline.
func NewPipeline(detector Detector, publisher Publisher, opts Options) *Pipeline {
	p := &Pipeline{
		detector:    detector,
		publisher:   publisher,
		hint:        opts.Hint,
		symbologies: barcode.SymbologiesFor(opts.Hint),
		threshold:   DefaultThreshold,
		gated:       opts.ButtonGated,
		feedback:    opts.Feedback,
		screen:      opts.Screen,
		logger:      opts.Logger,
	}
	if opts.Threshold > 0 {
		p.threshold = opts.Threshold
	}
	if p.feedback == nil {
		p.feedback = Nop
	}
	if p.logger == nil {
		p.logger = log.Component("decode")
	}
	if opts.MaxRate > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.MaxRate), 1)
	}
	roi := FullFrame
	p.roi.Store(&roi)
	return p
}

// Consume implements camera.FrameConsumer.
func (p *Pipeline) Consume(f camera.Frame) {
	if p.gated && !p.armed.Load() {
		framesTotal.WithLabelValues(dispositionGated).Inc()
		return
	}
	if p.limiter != nil && !p.limiter.Allow() {
		framesTotal.WithLabelValues(dispositionThrottled).Inc()
		return
	}
	if f.Image == nil {
		return
	}

	req := Request{
		Image:            f.Image,
		Symbologies:      p.symbologies,
		RegionOfInterest: *p.roi.Load(),
		Intrinsics:       f.Intrinsics,
		Orientation:      f.Orientation,
	}

	start := time.Now()
	observations, err := p.detector.Detect(req)
	detectDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		framesTotal.WithLabelValues(dispositionFailed).Inc()
		p.logger.Debug("detect failed", "seq", f.Sequence, "error", err)
		return
	}
	if len(observations) == 0 {
		framesTotal.WithLabelValues(dispositionAnalyzed).Inc()
		return
	}

	best := observations[0]
	if best.Confidence <= p.threshold || best.Payload == "" {
		framesTotal.WithLabelValues(dispositionBelowThreshold).Inc()
		return
	}

	result := barcode.Result{
		Text:   best.Payload,
		Format: barcode.Resolve(best.Symbology, p.hint),
	}
	framesTotal.WithLabelValues(dispositionAccepted).Inc()
	p.logger.Debug("barcode accepted",
		"seq", f.Sequence,
		"symbology", best.Symbology,
		"format", result.Format,
		"confidence", best.Confidence)

	p.feedback.Acknowledge()
	p.publisher.Publish(result)
}

// Arm sets the manual trigger. It has no effect on pipelines that are not
// button-gated.
func (p *Pipeline) Arm(on bool) {
	p.armed.Store(on)
}

// Armed reports whether the manual trigger is set.
func (p *Pipeline) Armed() bool {
	return p.armed.Load()
}

// ButtonGated reports whether frames wait for the trigger.
func (p *Pipeline) ButtonGated() bool {
	return p.gated
}

// UpdateScanFrame projects the on-screen scan frame into the detector's
// region of interest. The previous region is kept when the screen size
// cannot be resolved.
func (p *Pipeline) UpdateScanFrame(frame ScanFrame) bool {
	if p.screen == nil {
		return false
	}
	w, h, ok := p.screen.ScreenBounds()
	if !ok {
		return false
	}
	roi, ok := Project(frame, w, h)
	if !ok {
		return false
	}
	p.roi.Store(&roi)
	return true
}

// RegionOfInterest returns the current normalized region of interest.
func (p *Pipeline) RegionOfInterest() Rect {
	return *p.roi.Load()
}

// Symbologies returns the formats requested from the detector.
func (p *Pipeline) Symbologies() []barcode.Symbology {
	out := make([]barcode.Symbology, len(p.symbologies))
	copy(out, p.symbologies)
	return out
}

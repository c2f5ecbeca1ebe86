package web

import (
	"bytes"
	"image/jpeg"
	"sync"

	"golang.org/x/time/rate"

	"github.com/teslashibe/go-barcode/pkg/camera"
)

// previewSink encodes frames as JPEG for /ws/preview. Frames are dropped
// when nobody watches or faster than the configured rate.
type previewSink struct {
	p       *Presenter
	limiter *rate.Limiter
	quality int

	mu  sync.Mutex
	buf bytes.Buffer
}

func newPreviewSink(p *Presenter, fps float64, quality int) *previewSink {
	return &previewSink{
		p:       p,
		limiter: rate.NewLimiter(rate.Limit(fps), 1),
		quality: quality,
	}
}

// Preview implements camera.PreviewSink.
func (s *previewSink) Preview(f camera.Frame) {
	if f.Image == nil || s.p.preview.ClientCount() == 0 || !s.limiter.Allow() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
	if err := jpeg.Encode(&s.buf, f.Image, &jpeg.Options{Quality: s.quality}); err != nil {
		s.p.logger.Debug("preview encode failed", "seq", f.Sequence, "error", err)
		return
	}
	s.p.preview.BroadcastBinary(bytes.Clone(s.buf.Bytes()))
}

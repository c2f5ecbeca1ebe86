// Package web presents scan sessions in a browser: a scan page with a live
// preview, JSON controls and websocket session events.
package web

import (
	"context"
	"embed"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-barcode/internal/log"
	"github.com/teslashibe/go-barcode/pkg/camera"
	"github.com/teslashibe/go-barcode/pkg/decode"
	"github.com/teslashibe/go-barcode/pkg/hub"
	"github.com/teslashibe/go-barcode/pkg/scanner"
)

//go:embed static/index.html
var static embed.FS

// Presenter is a scanner.Presenter serving the active session over HTTP.
type Presenter struct {
	cfg         Config
	app         *fiber.App
	orientation *camera.ReportedOrientation
	logger      *slog.Logger

	events  *hub.Hub
	preview *hub.Hub
	sink    *previewSink

	mu      sync.RWMutex
	session *scanner.Session
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Presenter) { p.logger = logger }
}

// New creates a Presenter. orientation receives device orientation and
// screen size reported by the page; pass the same source to the scanner.
func New(cfg Config, orientation *camera.ReportedOrientation, opts ...Option) *Presenter {
	p := &Presenter{
		cfg:         cfg,
		orientation: orientation,
		logger:      log.Component("web"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.events = hub.New("events", hub.WithReplayLast(), hub.WithLogger(p.logger))
	p.preview = hub.New("preview", hub.WithLogger(p.logger))
	p.sink = newPreviewSink(p, cfg.PreviewFPS, cfg.JPEGQuality)

	app := fiber.New(fiber.Config{
		AppName:               "go-barcode",
		DisableStartupMessage: true,
	})
	app.Use(fiberrecover.New())
	app.Use(cors.New())

	app.Get("/", p.handleIndex)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Get("/session", p.handleSession)
	api.Post("/session/cancel", p.handleCancel)
	api.Post("/session/trigger", p.handleTrigger)
	api.Post("/session/frame", p.handleScanFrame)
	api.Post("/camera/torch", p.handleTorch)
	api.Post("/camera/zoom", p.handleZoom)
	api.Post("/camera/rotation", p.handleRotation)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(p.handleWS(p.events)))
	app.Get("/ws/preview", websocket.New(p.handleWS(p.preview)))

	p.app = app
	return p
}

// App returns the fiber app.
func (p *Presenter) App() *fiber.App {
	return p.app
}

// Run starts the hubs and serves until ctx is done.
func (p *Presenter) Run(ctx context.Context) error {
	go p.events.Run(ctx)
	go p.preview.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		p.logger.Info("web presenter listening", "addr", p.cfg.Addr)
		errc <- p.app.Listen(p.cfg.Addr)
	}()

	select {
	case <-ctx.Done():
		return p.app.Shutdown()
	case err := <-errc:
		return err
	}
}

// Present implements scanner.Presenter. It attaches the preview, applies
// the default scan frame and starts capture.
func (p *Presenter) Present(s *scanner.Session) error {
	p.mu.Lock()
	p.session = s
	p.mu.Unlock()

	s.SetPreview(p.sink)
	if w, h, ok := p.orientation.ScreenBounds(); ok {
		s.UpdateScanFrame(centeredFrame(w, h, p.cfg.ScanFrameFraction))
	}
	s.Start()

	p.logger.Info("session presented", "session", s.ID())
	p.publishSession(s)
	p.publish(Event{Type: EventPresented})
	return nil
}

// Dismiss implements scanner.Presenter.
func (p *Presenter) Dismiss() {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.mu.Unlock()

	if s != nil {
		s.SetPreview(nil)
		p.logger.Info("session dismissed", "session", s.ID())
	}
	p.publish(Event{Type: EventDismissed})
}

// Session returns the presented session, or nil.
func (p *Presenter) Session() *scanner.Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session
}

// centeredFrame is a square scan frame covering fraction of the shorter
// screen side.
func centeredFrame(w, h, fraction float64) decode.ScanFrame {
	side := min(w, h) * fraction
	return decode.ScanFrame{
		X:      (w - side) / 2,
		Y:      (h - side) / 2,
		Width:  side,
		Height: side,
	}
}

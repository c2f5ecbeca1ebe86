package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-barcode/pkg/camera"
	"github.com/teslashibe/go-barcode/pkg/decode"
	"github.com/teslashibe/go-barcode/pkg/hub"
	"github.com/teslashibe/go-barcode/pkg/scanner"
)

// TriggerRequest arms or disarms the manual trigger.
type TriggerRequest struct {
	Armed *bool `json:"armed"` // Defaults to true
}

// TorchRequest switches the torch.
type TorchRequest struct {
	On bool `json:"on"`
}

// ZoomRequest selects a zoom factor.
type ZoomRequest struct {
	Factor float64 `json:"factor"`
}

// RotationRequest reports a layout change from the page.
type RotationRequest struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Orientation string `json:"orientation,omitempty"` // Device orientation name
}

// ScanFrameRequest is the on-screen scan rectangle in CSS pixels.
type ScanFrameRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (p *Presenter) handleIndex(c *fiber.Ctx) error {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		return err
	}
	c.Type("html")
	return c.Send(page)
}

func (p *Presenter) handleSession(c *fiber.Ctx) error {
	s, err := p.activeSession()
	if err != nil {
		return err
	}
	return c.JSON(s.Info())
}

func (p *Presenter) handleCancel(c *fiber.Ctx) error {
	s, err := p.activeSession()
	if err != nil {
		return err
	}
	s.Cancel()
	return c.SendStatus(fiber.StatusAccepted)
}

func (p *Presenter) handleTrigger(c *fiber.Ctx) error {
	s, err := p.activeSession()
	if err != nil {
		return err
	}
	var req TriggerRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	armed := req.Armed == nil || *req.Armed
	s.Arm(armed)
	return p.respond(c, s)
}

func (p *Presenter) handleTorch(c *fiber.Ctx) error {
	var req TorchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return p.apply(c, camera.TorchChange{On: req.On})
}

func (p *Presenter) handleZoom(c *fiber.Ctx) error {
	var req ZoomRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Factor <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "factor must be positive")
	}
	return p.apply(c, camera.ZoomFactorChange{Value: req.Factor})
}

func (p *Presenter) handleRotation(c *fiber.Ctx) error {
	var req RotationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Width <= 0 || req.Height <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "width and height must be positive")
	}
	if req.Orientation != "" {
		o, err := camera.ParseDeviceOrientation(req.Orientation)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		p.orientation.SetDeviceOrientation(o)
	}
	p.orientation.SetScreenBounds(float64(req.Width), float64(req.Height))
	return p.apply(c, camera.RotationChange{Height: req.Height, Width: req.Width})
}

func (p *Presenter) handleScanFrame(c *fiber.Ctx) error {
	s, err := p.activeSession()
	if err != nil {
		return err
	}
	var req ScanFrameRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	applied := s.UpdateScanFrame(decode.ScanFrame{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height})
	return c.JSON(fiber.Map{
		"applied":            applied,
		"region_of_interest": s.Info().RegionOfInterest,
	})
}

// apply forwards a camera change to the active session.
func (p *Presenter) apply(c *fiber.Ctx, change camera.Change) error {
	s, err := p.activeSession()
	if err != nil {
		return err
	}
	if err := s.Apply(change); err != nil {
		return changeError(err)
	}
	return p.respond(c, s)
}

// respond returns and broadcasts the session snapshot.
func (p *Presenter) respond(c *fiber.Ctx, s *scanner.Session) error {
	p.publishSession(s)
	return c.JSON(s.Info())
}

func (p *Presenter) activeSession() (*scanner.Session, error) {
	s := p.Session()
	if s == nil {
		return nil, fiber.NewError(fiber.StatusConflict, "no active scan session")
	}
	return s, nil
}

// changeError maps camera errors to HTTP errors.
func changeError(err error) error {
	var unavailable *camera.DeviceUnavailableError
	switch {
	case errors.Is(err, scanner.ErrSessionClosed):
		return fiber.NewError(fiber.StatusGone, err.Error())
	case errors.As(err, &unavailable), errors.Is(err, camera.ErrActiveDeviceUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func (p *Presenter) handleWS(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		hub.NewClient(h, conn).Run()
	}
}

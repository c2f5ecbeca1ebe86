package scanner

import (
	"github.com/teslashibe/go-barcode/pkg/barcode"
	"github.com/teslashibe/go-barcode/pkg/camera"
)

// Parameters configure one scan.
type Parameters struct {
	// Instructions are shown on the scan surface.
	Instructions string `json:"instructions"`

	// ButtonText labels the manual trigger. Empty means frames are
	// analyzed continuously.
	ButtonText string `json:"button_text,omitempty"`

	Direction   camera.Direction        `json:"direction"`
	Orientation camera.OrientationModel `json:"orientation"`

	// Hint narrows detection. Nil or HintUnknown accepts every format.
	Hint *barcode.Hint `json:"hint,omitempty"`
}

// DefaultParameters returns continuous scanning for every format on the
// back camera.
func DefaultParameters() Parameters {
	return Parameters{
		Instructions: "Position the barcode within the frame",
		Direction:    camera.Back,
		Orientation:  camera.Adaptive,
	}
}

// ButtonGated reports whether frames wait for the manual trigger.
func (p Parameters) ButtonGated() bool {
	return p.ButtonText != ""
}

// WithHint returns a copy of p restricted to h.
func (p Parameters) WithHint(h barcode.Hint) Parameters {
	p.Hint = &h
	return p
}

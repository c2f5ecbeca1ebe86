package camera

// Change is a modification to the camera. It is a closed set:
// ZoomFactorChange, TorchChange and RotationChange.
type Change interface {
	isChange()
}

// ZoomFactorChange requests a zoom factor. 0.5 selects the zoom-out device.
type ZoomFactorChange struct {
	Value float64
}

// TorchChange turns the torch of the active device on or off.
type TorchChange struct {
	On bool
}

// RotationChange resizes the display surface after a rotation or layout
// change. It does not touch device selection.
type RotationChange struct {
	Height int
	Width  int
}

func (ZoomFactorChange) isChange() {}
func (TorchChange) isChange()      {}
func (RotationChange) isChange()   {}

//go:build !linux

package camera

// openTorch is only implemented for V4L2.
func openTorch(int) (torchControl, error) {
	return nil, ErrTorchUnsupported
}

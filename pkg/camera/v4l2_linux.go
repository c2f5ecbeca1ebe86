//go:build linux

package camera

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// V4L2 flash controls (linux/v4l2-controls.h).
const (
	v4l2CIDFlashLEDMode = 0x009c0900 + 1
	v4l2FlashLEDNone    = 0
	v4l2FlashLEDTorch   = 2
)

// ioctl requests for struct v4l2_control (linux/videodev2.h).
var (
	vidiocGCtrl = iowr('V', 27, unsafe.Sizeof(v4l2Control{}))
	vidiocSCtrl = iowr('V', 28, unsafe.Sizeof(v4l2Control{}))
)

type v4l2Control struct {
	ID    uint32
	Value int32
}

func iowr(typ byte, nr, size uintptr) uintptr {
	const read, write = 2, 1
	return (read|write)<<30 | size<<16 | uintptr(typ)<<8 | nr
}

// v4l2Torch drives the flash LED control of /dev/video<index>. It opens
// its own descriptor; V4L2 allows controls on a node that is streaming.
type v4l2Torch struct {
	mu sync.Mutex
	fd int
}

func openTorch(index int) (torchControl, error) {
	path := fmt.Sprintf("/dev/video%d", index)
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	t := &v4l2Torch{fd: fd}
	if _, err := t.Get(); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: %w: %w", path, ErrTorchUnsupported, err)
	}
	return t, nil
}

func (t *v4l2Torch) ioctl(req uintptr, ctrl *v4l2Control) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(t.fd), req, uintptr(unsafe.Pointer(ctrl)))
	if errno != 0 {
		return errno
	}
	return nil
}

func (t *v4l2Torch) Set(on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	ctrl := v4l2Control{ID: v4l2CIDFlashLEDMode, Value: v4l2FlashLEDNone}
	if on {
		ctrl.Value = v4l2FlashLEDTorch
	}
	return t.ioctl(vidiocSCtrl, &ctrl)
}

func (t *v4l2Torch) Get() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ctrl := v4l2Control{ID: v4l2CIDFlashLEDMode}
	if err := t.ioctl(vidiocGCtrl, &ctrl); err != nil {
		return false, err
	}
	return ctrl.Value == v4l2FlashLEDTorch, nil
}

func (t *v4l2Torch) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return unix.Close(t.fd)
}

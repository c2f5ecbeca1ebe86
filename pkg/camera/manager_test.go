package camera

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-barcode/internal/log"
)

// frameRecorder collects delivered frames.
type frameRecorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *frameRecorder) Consume(f Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
}

func (r *frameRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func testFrames() []image.Image {
	return []image.Image{image.NewGray(image.Rect(0, 0, 8, 8))}
}

func newTestManager(t *testing.T, devices ReplayDiscoverer, opts ...Option) (*SessionManager, *frameRecorder) {
	t.Helper()
	rec := &frameRecorder{}
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	m := NewSessionManager(devices, Back, Adaptive, rec, opts...)
	t.Cleanup(func() { m.Close() })
	return m, rec
}

func bothCameras(opts ...ReplayOption) (*ReplayDevice, *ReplayDevice, ReplayDiscoverer) {
	regular := NewReplayDevice("wide", Regular, Back, testFrames(), opts...)
	zoomOut := NewReplayDevice("ultrawide", ZoomOut, Back, testFrames(), opts...)
	return regular, zoomOut, ReplayDiscoverer{regular, zoomOut}
}

func TestSetupResolution(t *testing.T) {
	zoomOutType := ZoomOut

	tests := []struct {
		name     string
		arg      *CameraType
		cfg      func(*Config)
		wantType CameraType
	}{
		{name: "default zoom 1.0 selects regular", wantType: Regular},
		{name: "explicit type wins", arg: &zoomOutType, wantType: ZoomOut},
		{
			name:     "default zoom 0.5 selects zoom-out",
			cfg:      func(c *Config) { c.DefaultZoom = 0.5 },
			wantType: ZoomOut,
		},
		{
			name:     "unmapped default zoom falls back to regular",
			cfg:      func(c *Config) { c.DefaultZoom = 3.0 },
			wantType: Regular,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, devices := bothCameras()
			cfg := DefaultConfig()
			if tc.cfg != nil {
				tc.cfg(&cfg)
			}
			m, _ := newTestManager(t, devices, WithConfig(cfg))

			require.NoError(t, m.Setup(tc.arg))
			got, err := m.ActiveType()
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, got)
		})
	}
}

func TestSetupFailures(t *testing.T) {
	t.Run("missing device", func(t *testing.T) {
		regular := NewReplayDevice("wide", Regular, Back, testFrames())
		m, _ := newTestManager(t, ReplayDiscoverer{regular})

		zoomOut := ZoomOut
		err := m.Setup(&zoomOut)
		var unavailable *DeviceUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, ZoomOut, unavailable.Type)

		// The manager stays usable.
		require.NoError(t, m.Setup(nil))
	})

	t.Run("open failure", func(t *testing.T) {
		cause := errors.New("busy")
		broken := NewReplayDevice("wide", Regular, Back, testFrames(), WithOpenError(cause))
		m, _ := newTestManager(t, ReplayDiscoverer{broken})

		err := m.Setup(nil)
		assert.ErrorIs(t, err, ErrInputCreationFailed)
		assert.ErrorIs(t, err, cause)

		_, err = m.HasTorch()
		assert.ErrorIs(t, err, ErrActiveDeviceUnavailable)
	})

	t.Run("front direction ignores back devices", func(t *testing.T) {
		_, _, devices := bothCameras()
		m := NewSessionManager(devices, Front, Adaptive, &frameRecorder{}, WithLogger(log.Discard()))
		defer m.Close()

		var unavailable *DeviceUnavailableError
		assert.ErrorAs(t, m.Setup(nil), &unavailable)
	})
}

func TestAvailabilityAndZoomFactors(t *testing.T) {
	t.Run("regular only", func(t *testing.T) {
		regular := NewReplayDevice("wide", Regular, Back, testFrames())
		m, _ := newTestManager(t, ReplayDiscoverer{regular})

		assert.True(t, m.IsAvailable(Regular))
		assert.False(t, m.IsAvailable(ZoomOut))
		assert.Equal(t, []float64{1.0}, m.ZoomFactors())

		v, err := m.Value(PropertyZoomFactor)
		require.NoError(t, err)
		assert.Equal(t, []float64{1.0}, v)
	})

	t.Run("both cameras", func(t *testing.T) {
		_, _, devices := bothCameras()
		m, _ := newTestManager(t, devices)
		assert.Equal(t, []float64{0.5, 1.0}, m.ZoomFactors())
	})
}

func TestApplyZoom(t *testing.T) {
	regular, zoomOut, devices := bothCameras(WithTorch())
	m, _ := newTestManager(t, devices)
	require.NoError(t, m.Setup(nil))

	// Torch on the regular device, then switch to the zoom-out device.
	require.NoError(t, m.Apply(TorchChange{On: true}))
	assert.Eventually(t, func() bool { return regular.LastInput().Torch() }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Apply(ZoomFactorChange{Value: 0.5}))
	typ, err := m.ActiveType()
	require.NoError(t, err)
	assert.Equal(t, ZoomOut, typ)

	in := zoomOut.LastInput()
	require.NotNil(t, in)
	assert.Eventually(t, func() bool {
		z, ok := in.Zoom()
		return ok && z == 1.0
	}, time.Second, 5*time.Millisecond, "zoom-out device must report 1.0x")
	assert.Eventually(t, in.Torch, time.Second, 5*time.Millisecond, "torch state carries over")
	assert.Eventually(t, regular.LastInput().Closed, time.Second, 5*time.Millisecond)

	// Anything >= 1.0 goes back to the regular device as a direct zoom.
	for _, factor := range []float64{1.0, 2.0, 3.5} {
		require.NoError(t, m.Apply(ZoomFactorChange{Value: factor}))
		typ, _ := m.ActiveType()
		assert.Equal(t, Regular, typ, "factor %.1f", factor)

		last := regular.LastInput()
		want := factor
		assert.Eventually(t, func() bool {
			z, ok := last.Zoom()
			return ok && z == want
		}, time.Second, 5*time.Millisecond)
	}
}

func TestTorchIntentSurvivesImmediateSwitch(t *testing.T) {
	regular, zoomOut, devices := bothCameras(WithTorch())
	m, _ := newTestManager(t, devices)
	require.NoError(t, m.Setup(nil))

	// No wait between the calls: the torch write may still be queued on
	// the regular device when the switch happens.
	require.NoError(t, m.Apply(TorchChange{On: true}))
	require.NoError(t, m.Apply(ZoomFactorChange{Value: 0.5}))

	in := zoomOut.LastInput()
	require.NotNil(t, in)
	assert.Eventually(t, in.Torch, time.Second, 5*time.Millisecond, "torch intent carried to zoom-out device")

	// And back again, with the torch switched off in between.
	require.NoError(t, m.Apply(TorchChange{On: false}))
	require.NoError(t, m.Apply(ZoomFactorChange{Value: 1.0}))
	back := regular.LastInput()
	assert.False(t, back.Closed())
	assert.Never(t, back.Torch, 30*time.Millisecond, 5*time.Millisecond, "torch off intent carried back")
}

func TestSwitchWithoutTorchIntent(t *testing.T) {
	_, zoomOut, devices := bothCameras(WithTorch())
	m, _ := newTestManager(t, devices)
	require.NoError(t, m.Setup(nil))

	require.NoError(t, m.Apply(ZoomFactorChange{Value: 0.5}))
	in := zoomOut.LastInput()
	require.NotNil(t, in)
	assert.Never(t, in.Torch, 30*time.Millisecond, 5*time.Millisecond)
}

func TestApplyWithoutDevice(t *testing.T) {
	_, _, devices := bothCameras()
	m, _ := newTestManager(t, devices)

	assert.ErrorIs(t, m.Apply(TorchChange{On: true}), ErrActiveDeviceUnavailable)
	assert.ErrorIs(t, m.Apply(ZoomFactorChange{Value: 2}), ErrActiveDeviceUnavailable)
	assert.NoError(t, m.Apply(RotationChange{Height: 800, Width: 600}), "rotation does not need a device")
}

func TestApplyZoomOutUnavailable(t *testing.T) {
	regular := NewReplayDevice("wide", Regular, Back, testFrames())
	m, _ := newTestManager(t, ReplayDiscoverer{regular})
	require.NoError(t, m.Setup(nil))

	var unavailable *DeviceUnavailableError
	assert.ErrorAs(t, m.Apply(ZoomFactorChange{Value: 0.5}), &unavailable)

	typ, _ := m.ActiveType()
	assert.Equal(t, Regular, typ, "failed switch keeps the active device")
}

func TestTorchUnsupportedIsDropped(t *testing.T) {
	regular := NewReplayDevice("wide", Regular, Back, testFrames())
	m, _ := newTestManager(t, ReplayDiscoverer{regular})
	require.NoError(t, m.Setup(nil))

	hasTorch, err := m.HasTorch()
	require.NoError(t, err)
	assert.False(t, hasTorch)
	assert.NoError(t, m.Apply(TorchChange{On: true}))
}

func TestRotation(t *testing.T) {
	_, _, devices := bothCameras()
	src := NewReportedOrientation(OrientationPortrait, 390, 844)
	m, _ := newTestManager(t, devices, WithOrientationSource(src))
	require.NoError(t, m.Setup(nil))

	var got []VideoOrientation
	var mu sync.Mutex
	m.OnRotation(func(vo VideoOrientation, s Surface) {
		mu.Lock()
		got = append(got, vo)
		mu.Unlock()
	})

	src.SetDeviceOrientation(OrientationLandscapeLeft)
	require.NoError(t, m.Apply(RotationChange{Height: 390, Width: 844}))
	assert.Equal(t, Surface{Width: 844, Height: 390}, m.Surface())
	assert.Equal(t, VideoLandscapeRight, m.VideoOrientation())

	// Flat keeps the previous rotation.
	src.SetDeviceOrientation(OrientationFaceUp)
	require.NoError(t, m.Apply(RotationChange{Height: 390, Width: 844}))
	assert.Equal(t, VideoLandscapeRight, m.VideoOrientation())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []VideoOrientation{VideoLandscapeRight, VideoLandscapeRight}, got)
}

func TestStartStop(t *testing.T) {
	regular := NewReplayDevice("wide", Regular, Back, testFrames(), WithInterval(time.Millisecond))
	m, rec := newTestManager(t, ReplayDiscoverer{regular})

	m.Stop() // no-op when not running
	require.NoError(t, m.Setup(nil))
	m.Start()

	assert.Eventually(t, func() bool { return rec.count() >= 3 }, time.Second, 5*time.Millisecond)

	m.Stop()
	assert.Eventually(t, func() bool { return !m.Running() }, time.Second, 5*time.Millisecond)

	n := rec.count()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, rec.count(), "no frames after stop")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i, f := range rec.frames {
		assert.Equal(t, uint64(i+1), f.Sequence)
	}
}

type previewCounter struct {
	mu sync.Mutex
	n  int
}

func (p *previewCounter) Preview(Frame) {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
}

func (p *previewCounter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

func TestPreviewReceivesFrames(t *testing.T) {
	regular := NewReplayDevice("wide", Regular, Back, testFrames(), WithInterval(time.Millisecond))
	m, _ := newTestManager(t, ReplayDiscoverer{regular})
	preview := &previewCounter{}
	m.SetPreview(preview)

	require.NoError(t, m.Setup(nil))
	m.Start()
	assert.Eventually(t, func() bool { return preview.count() > 0 }, time.Second, 5*time.Millisecond)
}

func TestCloseReleasesInput(t *testing.T) {
	regular := NewReplayDevice("wide", Regular, Back, testFrames(), WithInterval(time.Millisecond))
	m := NewSessionManager(ReplayDiscoverer{regular}, Back, Adaptive, &frameRecorder{}, WithLogger(log.Discard()))
	require.NoError(t, m.Setup(nil))
	m.Start()

	require.NoError(t, m.Close())
	assert.True(t, regular.LastInput().Closed())
	assert.False(t, m.Running())
	assert.ErrorIs(t, m.Setup(nil), ErrInputClosed)
}

func TestStartAfterClose(t *testing.T) {
	regular := NewReplayDevice("wide", Regular, Back, testFrames(), WithInterval(time.Millisecond))
	m := NewSessionManager(ReplayDiscoverer{regular}, Back, Adaptive, &frameRecorder{}, WithLogger(log.Discard()))
	require.NoError(t, m.Setup(nil))
	require.NoError(t, m.Close())

	m.Start()
	assert.Never(t, m.Running, 50*time.Millisecond, 5*time.Millisecond, "closed manager must not deliver")
}

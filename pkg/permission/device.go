package permission

import (
	"context"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultDevicePattern matches V4L2 capture nodes.
const DefaultDevicePattern = "/dev/video*"

// DeviceAuthorizer authorizes camera use from device node permissions.
// Nodes the process cannot open read/write mean Denied. When Consent is
// set the user must also agree once per authorizer; until then the status
// is NotDetermined.
type DeviceAuthorizer struct {
	Pattern string
	Consent func(ctx context.Context) (bool, error)

	mu      sync.Mutex
	decided bool
	granted bool
}

// NewDeviceAuthorizer creates an authorizer for DefaultDevicePattern.
func NewDeviceAuthorizer(consent func(ctx context.Context) (bool, error)) *DeviceAuthorizer {
	return &DeviceAuthorizer{Pattern: DefaultDevicePattern, Consent: consent}
}

// Status implements Authorizer.
func (a *DeviceAuthorizer) Status(ctx context.Context) Status {
	if len(a.AccessibleDevices()) == 0 {
		return Denied
	}
	if a.Consent == nil {
		return Authorized
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case !a.decided:
		return NotDetermined
	case a.granted:
		return Authorized
	default:
		return Denied
	}
}

// Request implements Authorizer. The answer is remembered.
func (a *DeviceAuthorizer) Request(ctx context.Context) (bool, error) {
	if a.Consent == nil {
		return len(a.AccessibleDevices()) > 0, nil
	}
	granted, err := a.Consent(ctx)
	if err != nil {
		return false, err
	}

	a.mu.Lock()
	a.decided, a.granted = true, granted
	a.mu.Unlock()
	return granted, nil
}

// AccessibleDevices returns the nodes matching Pattern that this process
// can open for reading and writing.
func (a *DeviceAuthorizer) AccessibleDevices() []string {
	pattern := a.Pattern
	if pattern == "" {
		pattern = DefaultDevicePattern
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}

	var ok []string
	for _, path := range matches {
		if unix.Access(path, unix.R_OK|unix.W_OK) == nil {
			ok = append(ok, path)
		}
	}
	return ok
}

package scanner

import "errors"

var (
	// ErrCameraAccessDenied is returned when camera access was not granted.
	// No session is started.
	ErrCameraAccessDenied = errors.New("scanner: camera access denied")

	// ErrScanningCancelled is returned when the user dismissed the scan
	// without a decode.
	ErrScanningCancelled = errors.New("scanner: scanning cancelled")

	// ErrScanInProgress is returned when Scan is called while another scan
	// on the same Scanner is still pending.
	ErrScanInProgress = errors.New("scanner: scan already in progress")

	// ErrSessionClosed is returned by session controls after teardown.
	ErrSessionClosed = errors.New("scanner: session closed")
)

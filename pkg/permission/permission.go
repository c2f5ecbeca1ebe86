// Package permission decides whether the camera may be used, asking the
// user when the decision has not been made yet.
package permission

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-barcode/internal/log"
)

// Status is the camera authorization state.
type Status int

const (
	NotDetermined Status = iota
	Authorized
	Denied
)

func (s Status) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	case NotDetermined:
		return "notDetermined"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Checker reports whether the camera may be used. It may block while the
// user is asked.
type Checker interface {
	HasCameraAccess(ctx context.Context) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) bool

// HasCameraAccess implements Checker.
func (f CheckerFunc) HasCameraAccess(ctx context.Context) bool { return f(ctx) }

// Static is a Checker with a fixed answer.
type Static bool

// HasCameraAccess implements Checker.
func (s Static) HasCameraAccess(context.Context) bool { return bool(s) }

// Authorizer is the platform authorization backend.
type Authorizer interface {
	Status(ctx context.Context) Status
	// Request asks for access. It is only called while the status is
	// NotDetermined.
	Request(ctx context.Context) (bool, error)
}

// Prompter talks to the user on behalf of the Behaviour.
type Prompter interface {
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, question string) (bool, error)
	// Notify shows a message that needs no answer.
	Notify(title, message string)
}

// Messages shown after access was refused.
const (
	DeniedTitle   = "Camera Access Not Enabled"
	DeniedMessage = "To continue, grant this user read/write access to the video device (e.g. add it to the video group) and try again."
)

// Behaviour is the default Checker.
//
//	authorized     -> true
//	notDetermined  -> request, notify on refusal
//	denied         -> false
type Behaviour struct {
	authorizer Authorizer
	prompter   Prompter
	logger     *slog.Logger
}

// NewBehaviour creates a Checker over authorizer. prompter may be nil.
func NewBehaviour(authorizer Authorizer, prompter Prompter) *Behaviour {
	return &Behaviour{
		authorizer: authorizer,
		prompter:   prompter,
		logger:     log.Component("permission"),
	}
}

// WithLogger replaces the logger.
func (b *Behaviour) WithLogger(logger *slog.Logger) *Behaviour {
	b.logger = logger
	return b
}

// HasCameraAccess implements Checker.
func (b *Behaviour) HasCameraAccess(ctx context.Context) bool {
	status := b.authorizer.Status(ctx)
	b.logger.Debug("camera authorization", "status", status)

	switch status {
	case Authorized:
		return true
	case NotDetermined:
		return b.request(ctx)
	default:
		return false
	}
}

func (b *Behaviour) request(ctx context.Context) bool {
	granted, err := b.authorizer.Request(ctx)
	if err != nil {
		b.logger.Warn("camera access request failed", "error", err)
		granted = false
	}
	if !granted && b.prompter != nil {
		b.prompter.Notify(DeniedTitle, DeniedMessage)
	}
	return granted
}

package decode

import (
	"io"
	"sync"
)

// Feedback acknowledges an accepted scan to the user.
type Feedback interface {
	Acknowledge()
}

// FeedbackFunc adapts a function to Feedback.
type FeedbackFunc func()

// Acknowledge implements Feedback.
func (f FeedbackFunc) Acknowledge() { f() }

// Nop is a Feedback that does nothing.
var Nop Feedback = FeedbackFunc(func() {})

// Bell rings the terminal bell on W.
type Bell struct {
	mu sync.Mutex
	W  io.Writer
}

// NewBell creates a bell writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{W: w}
}

// Acknowledge implements Feedback. Write errors are ignored.
func (b *Bell) Acknowledge() {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = io.WriteString(b.W, "\a")
}

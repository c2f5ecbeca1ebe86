package web

import (
	"time"

	"github.com/teslashibe/go-barcode/pkg/barcode"
	"github.com/teslashibe/go-barcode/pkg/scanner"
)

// Event types sent on /ws/events.
const (
	EventState     = "state"
	EventPresented = "presented"
	EventDismissed = "dismissed"
	EventSession   = "session"
	EventResult    = "result"
)

// Event is a JSON session event.
type Event struct {
	Type    string          `json:"type"`
	Time    time.Time       `json:"time"`
	State   scanner.State   `json:"state,omitempty"`
	Session *scanner.Info   `json:"session,omitempty"`
	Result  *barcode.Result `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// publish broadcasts ev on the events hub.
func (p *Presenter) publish(ev Event) {
	ev.Time = time.Now()
	if err := p.events.BroadcastJSON(ev); err != nil {
		p.logger.Warn("encode event failed", "type", ev.Type, "error", err)
	}
}

// PublishState broadcasts a scanner state change. Register it with
// Scanner.OnStateChange.
func (p *Presenter) PublishState(st scanner.State) {
	p.publish(Event{Type: EventState, State: st})
}

// PublishResult broadcasts the outcome of a scan.
func (p *Presenter) PublishResult(r barcode.Result, err error) {
	ev := Event{Type: EventResult}
	if err != nil {
		ev.Error = err.Error()
	} else {
		ev.Result = &r
	}
	p.publish(ev)
}

func (p *Presenter) publishSession(s *scanner.Session) {
	info := s.Info()
	p.publish(Event{Type: EventSession, Session: &info})
}

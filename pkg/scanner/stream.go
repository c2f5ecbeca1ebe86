package scanner

import (
	"sync"

	"github.com/teslashibe/go-barcode/pkg/barcode"
)

// subscriberBuffer holds the replayed current value plus the first
// published one. Later publications are dropped for a full subscriber.
const subscriberBuffer = 2

// resultStream is a current-value cell with subscribers. A new subscriber
// first receives the current value, then every publication. Both the
// decode pipeline and user cancellation publish into it.
type resultStream struct {
	mu      sync.Mutex
	current barcode.Result
	subs    map[int]chan barcode.Result
	next    int
	closed  bool
}

func newResultStream(initial barcode.Result) *resultStream {
	return &resultStream{
		current: initial,
		subs:    make(map[int]chan barcode.Result),
	}
}

// Publish implements decode.Publisher. It never blocks.
func (s *resultStream) Publish(r barcode.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.current = r
	for _, ch := range s.subs {
		select {
		case ch <- r:
		default:
		}
	}
}

// Subscribe returns a channel replaying the current value followed by
// later publications, and a function that ends the subscription.
func (s *resultStream) Subscribe() (<-chan barcode.Result, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan barcode.Result, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- s.current

	id := s.next
	s.next++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close ends every subscription. Later publications are ignored.
func (s *resultStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// dropFirst discards the first value of ch.
func dropFirst(ch <-chan barcode.Result) <-chan barcode.Result {
	<-ch
	return ch
}

// first returns the next value of ch. A closed channel yields the empty
// result.
func first(ch <-chan barcode.Result) barcode.Result {
	r, ok := <-ch
	if !ok {
		return barcode.Empty()
	}
	return r
}

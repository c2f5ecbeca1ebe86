package camera

import "sync"

// serialQueue runs submitted work one item at a time on its own goroutine.
// One queue exists per device so property writes never overlap.
type serialQueue struct {
	work chan func()
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newSerialQueue() *serialQueue {
	q := &serialQueue{
		work: make(chan func(), 16),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *serialQueue) run() {
	defer close(q.done)
	for fn := range q.work {
		fn()
	}
}

// submit queues fn. It reports false if the queue is closed.
func (q *serialQueue) submit(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.work <- fn
	return true
}

// close stops accepting work and waits for queued work to finish.
func (q *serialQueue) close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.work)
	}
	q.mu.Unlock()
	<-q.done
}
